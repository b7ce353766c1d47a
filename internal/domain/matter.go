package domain

import "time"

// Matter is a tracked work item carrying a dynamic set of typed fields.
type Matter struct {
	ID        string
	BoardID   string
	Fields    map[string]FieldValue
	CreatedAt time.Time
	UpdatedAt time.Time
	CycleTime *CycleTime
	SLA       *SLAStatus
}

// FieldValue is a resolved field on a matter. Value holds the type specific payload:
// string (text, select), float64 (number), bool (boolean), time.Time (date),
// CurrencyValue, UserValue, or StatusValue / status id string.
type FieldValue struct {
	FieldID      string
	FieldName    string
	FieldType    FieldType
	Value        any
	DisplayValue *string
}

// CurrencyValue is stored as JSON in the currency column.
type CurrencyValue struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// UserValue is a resolved reference to a user row.
type UserValue struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DisplayName string `json:"displayName"`
}

// StatusValue carries the status option id together with its group name.
type StatusValue struct {
	StatusID  string `json:"statusId"`
	GroupName string `json:"groupName"`
}
