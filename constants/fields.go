package constants

// FieldName identifies one editable field of an extracted record.
type FieldName string

const (
	FieldSerialNumber    FieldName = "serial_number"
	FieldDefaultSSID     FieldName = "default_ssid"
	FieldDefaultPassword FieldName = "default_pass"
	FieldTargetSSID      FieldName = "target_ssid"
	FieldSimID           FieldName = "sim_id"
)

// ExportColumns is the fixed column order of the exported document.
var ExportColumns = []FieldName{
	FieldSerialNumber,
	FieldDefaultSSID,
	FieldDefaultPassword,
	FieldTargetSSID,
}

var editableFields = map[FieldName]struct{}{
	FieldSerialNumber:    {},
	FieldDefaultSSID:     {},
	FieldDefaultPassword: {},
	FieldTargetSSID:      {},
	FieldSimID:           {},
}

// IsEditableField reports whether name is a field the operator may change.
func IsEditableField(name string) bool {
	_, ok := editableFields[FieldName(name)]
	return ok
}

// ExportHeader returns the column names as strings.
func ExportHeader() []string {
	out := make([]string, len(ExportColumns))
	for i, c := range ExportColumns {
		out[i] = string(c)
	}
	return out
}
