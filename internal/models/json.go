package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

// JSON type for flexible metadata storage
type JSON map[string]interface{}

// Metadata keys used on ledger rows.
const (
	MetaBonusAmount   = "bonus_amount"
	MetaOrderID       = "order_id"
	MetaOrderNumber   = "order_number"
	MetaPackageID     = "package_id"
	MetaWalletTransID = "wallet_transaction_id"
	MetaBackfilled    = "backfilled"
	MetaBackfillDate  = "backfill_date"
)

// Value implements the driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, &j)
}

// MarshalJSON returns the JSON encoding
func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return json.Marshal(map[string]interface{}(j))
}

// UnmarshalJSON sets the JSON encoding
func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return errors.New("nil pointer")
	}
	return json.Unmarshal(data, (*map[string]interface{})(j))
}

// String returns the string stored under key, or "" when absent.
func (j JSON) String(key string) string {
	if j == nil {
		return ""
	}
	if s, ok := j[key].(string); ok {
		return s
	}
	return ""
}

// Decimal reads a numeric metadata value. Values round-trip through
// jsonb as float64 or string depending on how they were written, so
// both are accepted. Missing or unparseable values yield zero.
func (j JSON) Decimal(key string) decimal.Decimal {
	if j == nil {
		return decimal.Zero
	}
	switch v := j[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int64:
		return decimal.NewFromInt(v)
	case json.Number:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return d
		}
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// Bool returns the boolean stored under key, false when absent.
func (j JSON) Bool(key string) bool {
	if j == nil {
		return false
	}
	b, _ := j[key].(bool)
	return b
}
