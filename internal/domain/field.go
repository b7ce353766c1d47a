package domain

// FieldType enumerates the storage types a matter field can take.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeNumber   FieldType = "number"
	FieldTypeUser     FieldType = "user"
	FieldTypeCurrency FieldType = "currency"
	FieldTypeBoolean  FieldType = "boolean"
	FieldTypeDate     FieldType = "date"
	FieldTypeSelect   FieldType = "select"
	FieldTypeStatus   FieldType = "status"
)

// FieldTypes lists every supported field type.
var FieldTypes = []FieldType{
	FieldTypeText,
	FieldTypeNumber,
	FieldTypeUser,
	FieldTypeCurrency,
	FieldTypeBoolean,
	FieldTypeDate,
	FieldTypeSelect,
	FieldTypeStatus,
}

// Valid reports whether t is one of the supported field types.
func (t FieldType) Valid() bool {
	for _, candidate := range FieldTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseFieldType validates a raw field type string.
func ParseFieldType(raw string) (FieldType, error) {
	t := FieldType(raw)
	if !t.Valid() {
		return "", &UnsupportedFieldTypeError{FieldType: raw}
	}
	return t, nil
}

// FieldDefinition describes a typed attribute on a board's matters.
type FieldDefinition struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// SeverityLabels is the fixed ordering used when sorting select fields, lowest first.
var SeverityLabels = []string{"Low", "Medium", "High", "Critical"}

// StatusGroup buckets status options; the terminal group marks completion.
type StatusGroup struct {
	ID       string
	Name     string
	Sequence int
}
