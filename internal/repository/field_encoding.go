package repository

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/matter-service/internal/domain"
)

// A nil raw value clears the column for every type.

func encodeText(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	default:
		return nil, invalidValue(domain.FieldTypeText, "expected a string")
	}
}

func encodeNumber(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case float64:
		return finiteNumber(v)
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, invalidValue(domain.FieldTypeNumber, err.Error())
		}
		return finiteNumber(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, invalidValue(domain.FieldTypeNumber, "expected a number")
		}
		// ParseFloat accepts "NaN" and "Inf"
		return finiteNumber(f)
	default:
		return nil, invalidValue(domain.FieldTypeNumber, "expected a number")
	}
}

func finiteNumber(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalidValue(domain.FieldTypeNumber, "expected a finite number")
	}
	return f, nil
}

func encodeDate(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, invalidValue(domain.FieldTypeDate, "expected an RFC3339 timestamp")
		}
		return t, nil
	default:
		return nil, invalidValue(domain.FieldTypeDate, "expected an RFC3339 timestamp")
	}
}

func encodeBoolean(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	default:
		return nil, invalidValue(domain.FieldTypeBoolean, "expected a boolean")
	}
}

func encodeCurrency(raw any) (any, error) {
	var currency domain.CurrencyValue
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case domain.CurrencyValue:
		currency = v
	case map[string]any:
		amount, err := encodeNumber(v["amount"])
		if err != nil || amount == nil {
			return nil, invalidValue(domain.FieldTypeCurrency, "amount must be a number")
		}
		code, _ := v["currency"].(string)
		currency = domain.CurrencyValue{Amount: amount.(float64), Currency: code}
	default:
		return nil, invalidValue(domain.FieldTypeCurrency, "expected {amount, currency}")
	}
	currency.Currency = strings.ToUpper(strings.TrimSpace(currency.Currency))
	if currency.Currency == "" {
		return nil, invalidValue(domain.FieldTypeCurrency, "currency code required")
	}
	encoded, err := json.Marshal(currency)
	if err != nil {
		return nil, invalidValue(domain.FieldTypeCurrency, err.Error())
	}
	return encoded, nil
}

// users.id is a SERIAL, so ids outside 1..MaxInt32 can never reference a user.
func encodeUser(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case int:
		return userID(int64(v))
	case int64:
		return userID(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, invalidValue(domain.FieldTypeUser, "user id must be an integer")
		}
		if v < 1 || v > math.MaxInt32 {
			return nil, invalidValue(domain.FieldTypeUser, "user id out of range")
		}
		return int64(v), nil
	case domain.UserValue:
		return userID(v.ID)
	case map[string]any:
		return encodeUser(v["id"])
	default:
		return nil, invalidValue(domain.FieldTypeUser, "expected a user id")
	}
}

func userID(id int64) (any, error) {
	if id < 1 || id > math.MaxInt32 {
		return nil, invalidValue(domain.FieldTypeUser, "user id out of range")
	}
	return id, nil
}

func encodeReference(fieldType domain.FieldType) func(any) (any, error) {
	return func(raw any) (any, error) {
		switch v := raw.(type) {
		case nil:
			return nil, nil
		case string:
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, invalidValue(fieldType, "expected an option id")
			}
			return id.String(), nil
		case domain.StatusValue:
			return encodeReference(fieldType)(v.StatusID)
		case map[string]any:
			if statusID, ok := v["statusId"].(string); ok {
				return encodeReference(fieldType)(statusID)
			}
			return nil, invalidValue(fieldType, "expected an option id")
		default:
			return nil, invalidValue(fieldType, "expected an option id")
		}
	}
}

func invalidValue(fieldType domain.FieldType, reason string) error {
	return &domain.InvalidFieldValueError{FieldType: fieldType, Reason: reason}
}
