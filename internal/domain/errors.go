package domain

import (
	"errors"
	"fmt"
)

// ErrMatterNotFound is returned when a matter id does not exist.
var ErrMatterNotFound = errors.New("matter not found")

// UnknownFieldError is raised when a sort or search target names no field in the schema.
type UnknownFieldError struct {
	Name string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Name)
}

// UnsupportedFieldTypeError is raised when a field type has no storage mapping.
type UnsupportedFieldTypeError struct {
	FieldType string
}

func (e *UnsupportedFieldTypeError) Error() string {
	return fmt.Sprintf("unsupported field type %q", e.FieldType)
}

// InvalidFieldValueError is raised when a value cannot be stored for its field type.
type InvalidFieldValueError struct {
	FieldType FieldType
	Reason    string
}

func (e *InvalidFieldValueError) Error() string {
	return fmt.Sprintf("invalid %s value: %s", e.FieldType, e.Reason)
}

// TransactionError marks a rolled back multi-statement write.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}
