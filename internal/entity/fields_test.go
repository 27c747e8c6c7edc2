package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/router-ingest/constants"
)

func TestExtractedFields_GetSet(t *testing.T) {
	var f ExtractedFields
	_, ok := f.Get(constants.FieldSerialNumber)
	assert.False(t, ok)
	assert.Equal(t, "", f.Value(constants.FieldSerialNumber))

	assert.True(t, f.Set(constants.FieldDefaultPassword, ""))
	v, ok := f.Get(constants.FieldDefaultPassword)
	assert.True(t, ok, "empty is still present")
	assert.Equal(t, "", v)

	assert.False(t, f.Set("mac_address", "aa"))
}

func TestExtractedFields_Clone(t *testing.T) {
	var nilFields *ExtractedFields
	assert.Nil(t, nilFields.Clone())

	f := &ExtractedFields{SerialNumber: StrPtr("SN1")}
	c := f.Clone()
	*c.SerialNumber = "changed"
	assert.Equal(t, "SN1", *f.SerialNumber)
	assert.Nil(t, c.DefaultSSID)
}
