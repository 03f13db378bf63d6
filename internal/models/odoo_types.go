package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// OdooString is a custom string type that handles Odoo's dynamic typing.
// Odoo returns `false` (boolean) for empty text fields instead of an empty string.
// This type implements json.Unmarshaler to handle both string and bool(false).
type OdooString string

// UnmarshalJSON handles dynamic typing from Odoo
func (os *OdooString) UnmarshalJSON(data []byte) error {
	// 1. Try string
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*os = OdooString(s)
		return nil
	}

	// 2. Try boolean (Odoo returns false for empty strings)
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if !b {
			*os = ""
			return nil
		}
		// If true, it's weird for a string field, but let's treat as "true" string
		*os = "true"
		return nil
	}

	return errors.New("OdooString: cannot unmarshal value into string")
}

// Value implements driver.Valuer interface for database storage
func (os OdooString) Value() (driver.Value, error) {
	return string(os), nil
}

// Scan implements sql.Scanner interface for database retrieval
func (os *OdooString) Scan(value interface{}) error {
	if value == nil {
		*os = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*os = OdooString(v)
	case []byte:
		*os = OdooString(string(v))
	default:
		return fmt.Errorf("failed to scan OdooString: %v", value)
	}
	return nil
}

// String returns native string value
func (os OdooString) String() string {
	return string(os)
}

// OdooMany2One handles Odoo's many2one fields, which arrive as either
// `[id, "display name"]` or `false` when unset.
type OdooMany2One struct {
	ID   int64
	Name string
}

// UnmarshalJSON handles the two wire shapes
func (m *OdooMany2One) UnmarshalJSON(data []byte) error {
	// 1. Try [id, name] tuple
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err == nil {
		if len(tuple) >= 1 {
			_ = json.Unmarshal(tuple[0], &m.ID)
		}
		if len(tuple) >= 2 {
			_ = json.Unmarshal(tuple[1], &m.Name)
		}
		return nil
	}

	// 2. false = unset
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		m.ID = 0
		m.Name = ""
		return nil
	}

	return errors.New("OdooMany2One: cannot unmarshal value")
}

// IsSet reports whether the reference points at a record
func (m OdooMany2One) IsSet() bool {
	return m.ID != 0
}

// Code extracts the leading code token from an Odoo display name like
// "600000 Expenses" or "440000 Trade Creditors".
func (m OdooMany2One) Code() string {
	fields := strings.Fields(m.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// OdooPartner is the wire shape of res.partner rows fetched during master-data
// sync. Only the fields the matcher cares about.
type OdooPartner struct {
	ID     int64      `json:"id" xmlrpc:"id"`
	Name   string     `json:"name" xmlrpc:"name"`
	Ref    OdooString `json:"ref" xmlrpc:"ref"`
	Vat    OdooString `json:"vat" xmlrpc:"vat"`
	Active bool       `json:"active" xmlrpc:"active"`
}

// OdooProduct is the wire shape of product.product rows fetched during
// master-data sync.
type OdooProduct struct {
	ID             int64        `json:"id" xmlrpc:"id"`
	Name           string       `json:"name" xmlrpc:"name"`
	DefaultCode    OdooString   `json:"default_code" xmlrpc:"default_code"`
	Type           string       `json:"type" xmlrpc:"type"` // product, consu, service
	ExpenseAccount OdooMany2One `json:"property_account_expense_id" xmlrpc:"property_account_expense_id"`
	Active         bool         `json:"active" xmlrpc:"active"`
}
