package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/matter-service/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestResolveFieldValue(t *testing.T) {
	f := newDisplayFormatter()
	number := 1234567.891
	yes, no := true, false
	userID := int64(42)
	date := time.Date(2024, 3, 15, 22, 30, 0, 0, time.UTC)

	tests := []struct {
		name        string
		row         fieldRow
		wantValue   any
		wantDisplay *string
	}{
		{
			name:      "text prefers text_value",
			row:       fieldRow{FieldType: domain.FieldTypeText, TextValue: strPtr("Acme"), StringValue: strPtr("legacy")},
			wantValue: "Acme",
		},
		{
			name:      "text falls back to string_value",
			row:       fieldRow{FieldType: domain.FieldTypeText, StringValue: strPtr("legacy")},
			wantValue: "legacy",
		},
		{
			name:        "number is grouped",
			row:         fieldRow{FieldType: domain.FieldTypeNumber, NumberValue: &number},
			wantValue:   number,
			wantDisplay: strPtr("1,234,567.891"),
		},
		{
			name: "absent number",
			row:  fieldRow{FieldType: domain.FieldTypeNumber},
		},
		{
			name:        "date",
			row:         fieldRow{FieldType: domain.FieldTypeDate, DateValue: &date},
			wantValue:   date,
			wantDisplay: strPtr("3/15/2024"),
		},
		{
			name: "absent date",
			row:  fieldRow{FieldType: domain.FieldTypeDate},
		},
		{
			name:        "boolean true",
			row:         fieldRow{FieldType: domain.FieldTypeBoolean, BooleanValue: &yes},
			wantValue:   true,
			wantDisplay: strPtr(checkMark),
		},
		{
			name:        "boolean false",
			row:         fieldRow{FieldType: domain.FieldTypeBoolean, BooleanValue: &no},
			wantValue:   false,
			wantDisplay: strPtr(crossMark),
		},
		{
			name:        "currency",
			row:         fieldRow{FieldType: domain.FieldTypeCurrency, CurrencyValue: []byte(`{"amount":1500,"currency":"USD"}`)},
			wantValue:   domain.CurrencyValue{Amount: 1500, Currency: "USD"},
			wantDisplay: strPtr("1,500 USD"),
		},
		{
			name: "absent currency",
			row:  fieldRow{FieldType: domain.FieldTypeCurrency},
		},
		{
			name: "user",
			row: fieldRow{
				FieldType:     domain.FieldTypeUser,
				UserValue:     &userID,
				UserID:        &userID,
				UserEmail:     strPtr("jane@example.com"),
				UserFirstName: strPtr("Jane"),
				UserLastName:  strPtr("Doe"),
			},
			wantValue: domain.UserValue{
				ID:          42,
				Email:       "jane@example.com",
				FirstName:   "Jane",
				LastName:    "Doe",
				DisplayName: "Jane Doe",
			},
			wantDisplay: strPtr("Jane Doe"),
		},
		{
			name:        "select",
			row:         fieldRow{FieldType: domain.FieldTypeSelect, SelectValue: strPtr("opt-1"), SelectLabel: strPtr("High")},
			wantValue:   "opt-1",
			wantDisplay: strPtr("High"),
		},
		{
			name:        "status with group",
			row:         fieldRow{FieldType: domain.FieldTypeStatus, StatusValue: strPtr("st-1"), StatusLabel: strPtr("Closed"), StatusGroup: strPtr("Done")},
			wantValue:   domain.StatusValue{StatusID: "st-1", GroupName: "Done"},
			wantDisplay: strPtr("Closed"),
		},
		{
			name:        "status without group",
			row:         fieldRow{FieldType: domain.FieldTypeStatus, StatusValue: strPtr("st-1"), StatusLabel: strPtr("Closed")},
			wantValue:   "st-1",
			wantDisplay: strPtr("Closed"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.row.FieldID = "field-1"
			tt.row.FieldName = "Field"

			got, err := resolveFieldValue(tt.row, f)
			require.NoError(t, err)
			assert.Equal(t, "field-1", got.FieldID)
			assert.Equal(t, "Field", got.FieldName)
			assert.Equal(t, tt.row.FieldType, got.FieldType)
			assert.Equal(t, tt.wantValue, got.Value)
			assert.Equal(t, tt.wantDisplay, got.DisplayValue)
		})
	}
}

func TestResolveFieldValue_UnsupportedType(t *testing.T) {
	_, err := resolveFieldValue(fieldRow{FieldType: "geo"}, newDisplayFormatter())
	var unsupported *domain.UnsupportedFieldTypeError
	assert.ErrorAs(t, err, &unsupported)
}
