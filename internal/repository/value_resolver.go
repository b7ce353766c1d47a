package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/spec-kit/matter-service/internal/domain"
)

const (
	checkMark = "✓"
	crossMark = "✗"
)

// fieldRow is one stored value joined to its definition and lookup tables.
type fieldRow struct {
	FieldID       string
	FieldName     string
	FieldType     domain.FieldType
	TextValue     *string
	StringValue   *string
	NumberValue   *float64
	DateValue     *time.Time
	BooleanValue  *bool
	CurrencyValue []byte
	UserValue     *int64
	SelectValue   *string
	StatusValue   *string
	UserID        *int64
	UserEmail     *string
	UserFirstName *string
	UserLastName  *string
	SelectLabel   *string
	StatusLabel   *string
	StatusGroup   *string
}

// displayFormatter renders locale aware display strings.
type displayFormatter struct {
	printer *message.Printer
}

func newDisplayFormatter() *displayFormatter {
	return &displayFormatter{printer: message.NewPrinter(language.English)}
}

// groupNumber renders v with thousands separators and at most three decimals.
func (f *displayFormatter) groupNumber(v float64) string {
	return f.printer.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(3)))
}

func (f *displayFormatter) date(t time.Time) string {
	return t.UTC().Format("1/2/2006")
}

// resolveFieldValue materializes a typed FieldValue from a stored row.
func resolveFieldValue(row fieldRow, f *displayFormatter) (domain.FieldValue, error) {
	strategy, err := strategyFor(row.FieldType)
	if err != nil {
		return domain.FieldValue{}, err
	}
	value, display := strategy.resolve(row, f)
	return domain.FieldValue{
		FieldID:      row.FieldID,
		FieldName:    row.FieldName,
		FieldType:    row.FieldType,
		Value:        value,
		DisplayValue: display,
	}, nil
}

func resolveText(row fieldRow, _ *displayFormatter) (any, *string) {
	if row.TextValue != nil {
		return *row.TextValue, nil
	}
	if row.StringValue != nil {
		return *row.StringValue, nil
	}
	return nil, nil
}

func resolveNumber(row fieldRow, f *displayFormatter) (any, *string) {
	if row.NumberValue == nil {
		return nil, nil
	}
	display := f.groupNumber(*row.NumberValue)
	return *row.NumberValue, &display
}

func resolveDate(row fieldRow, f *displayFormatter) (any, *string) {
	if row.DateValue == nil {
		return nil, nil
	}
	display := f.date(*row.DateValue)
	return *row.DateValue, &display
}

func resolveBoolean(row fieldRow, _ *displayFormatter) (any, *string) {
	display := crossMark
	if row.BooleanValue == nil {
		return nil, &display
	}
	if *row.BooleanValue {
		display = checkMark
	}
	return *row.BooleanValue, &display
}

func resolveCurrency(row fieldRow, f *displayFormatter) (any, *string) {
	if len(row.CurrencyValue) == 0 {
		return nil, nil
	}
	var currency domain.CurrencyValue
	if err := json.Unmarshal(row.CurrencyValue, &currency); err != nil {
		return nil, nil
	}
	display := fmt.Sprintf("%s %s", f.groupNumber(currency.Amount), currency.Currency)
	return currency, &display
}

func resolveUser(row fieldRow, _ *displayFormatter) (any, *string) {
	if row.UserID == nil {
		return nil, nil
	}
	user := domain.UserValue{
		ID:        *row.UserID,
		Email:     deref(row.UserEmail),
		FirstName: deref(row.UserFirstName),
		LastName:  deref(row.UserLastName),
	}
	user.DisplayName = user.FirstName + " " + user.LastName
	display := user.DisplayName
	return user, &display
}

func resolveSelect(row fieldRow, _ *displayFormatter) (any, *string) {
	if row.SelectValue == nil {
		return nil, row.SelectLabel
	}
	return *row.SelectValue, row.SelectLabel
}

func resolveStatus(row fieldRow, _ *displayFormatter) (any, *string) {
	if row.StatusValue == nil {
		return nil, row.StatusLabel
	}
	if row.StatusGroup != nil {
		return domain.StatusValue{StatusID: *row.StatusValue, GroupName: *row.StatusGroup}, row.StatusLabel
	}
	return *row.StatusValue, row.StatusLabel
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
