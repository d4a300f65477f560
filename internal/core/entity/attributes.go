package entity

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Attributes is the free-form JSONB column carried by every entity.
// Clinics use it for site-specific fields (storage conditions, internal
// codes) that do not warrant schema changes.
//
// Decoding goes through json.Number so that decimal values survive the
// round trip; the default decoder would flatten them to float64.
type Attributes map[string]any

// Scan implements sql.Scanner for the JSONB column.
func (a *Attributes) Scan(src any) error {
	if src == nil {
		*a = nil
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("attributes: cannot scan %T", src)
	}
	if len(raw) == 0 {
		*a = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return fmt.Errorf("attributes: %w", err)
	}
	*a = m
	return nil
}

// Value implements driver.Valuer for the JSONB column.
func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// GetString returns the string under key, or "" when absent or not a string.
func (a Attributes) GetString(key string) string {
	if a == nil {
		return ""
	}
	v, _ := a[key].(string)
	return v
}

// GetDecimal reads a numeric value with full precision. Accepts the
// json.Number produced by Scan as well as string and float inputs.
func (a Attributes) GetDecimal(key string) decimal.Decimal {
	if a == nil {
		return decimal.Zero
	}
	switch v := a[key].(type) {
	case json.Number:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return d
		}
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(v)
	}
	return decimal.Zero
}

// Set stores a value, allocating the map on first use.
func (a *Attributes) Set(key string, value any) {
	if *a == nil {
		*a = make(Attributes)
	}
	(*a)[key] = value
}
