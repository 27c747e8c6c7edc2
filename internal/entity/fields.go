package entity

import "github.com/joseph-ayodele/router-ingest/constants"

// ExtractedFields is the record read off one router label.
// A nil pointer means the field is absent (unreadable or never supplied).
type ExtractedFields struct {
	SerialNumber    *string `json:"serial_number"`
	DefaultSSID     *string `json:"default_ssid"`
	DefaultPassword *string `json:"default_pass"`
	TargetSSID      *string `json:"target_ssid"`
	SimID           *string `json:"sim_id,omitempty"`
}

func (f *ExtractedFields) slot(name constants.FieldName) **string {
	switch name {
	case constants.FieldSerialNumber:
		return &f.SerialNumber
	case constants.FieldDefaultSSID:
		return &f.DefaultSSID
	case constants.FieldDefaultPassword:
		return &f.DefaultPassword
	case constants.FieldTargetSSID:
		return &f.TargetSSID
	case constants.FieldSimID:
		return &f.SimID
	}
	return nil
}

// Get returns the value of a field and whether it is present.
func (f *ExtractedFields) Get(name constants.FieldName) (string, bool) {
	s := f.slot(name)
	if s == nil || *s == nil {
		return "", false
	}
	return **s, true
}

// Set assigns a field. It returns false for unknown field names.
func (f *ExtractedFields) Set(name constants.FieldName, value string) bool {
	s := f.slot(name)
	if s == nil {
		return false
	}
	v := value
	*s = &v
	return true
}

// Value returns the field or "" when absent.
func (f *ExtractedFields) Value(name constants.FieldName) string {
	v, _ := f.Get(name)
	return v
}

// Clone returns a deep copy so callers never share pointers with the queue.
func (f *ExtractedFields) Clone() *ExtractedFields {
	if f == nil {
		return nil
	}
	return &ExtractedFields{
		SerialNumber:    cloneStr(f.SerialNumber),
		DefaultSSID:     cloneStr(f.DefaultSSID),
		DefaultPassword: cloneStr(f.DefaultPassword),
		TargetSSID:      cloneStr(f.TargetSSID),
		SimID:           cloneStr(f.SimID),
	}
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// StrPtr is a small helper for building fields in tests and adapters.
func StrPtr(s string) *string { return &s }
