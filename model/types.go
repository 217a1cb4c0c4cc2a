// Package model defines the persistence records for every adapter table.
// All rows share a generator-assigned string primary key, UTC created_at
// and updated_at timestamps, and an optional tenant_id scoping column.
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap maps a JSON object column to a Go map. Opaque payloads such as
// content data and widget instances round-trip through it untouched.
type JSONMap map[string]any

// Value marshals the map for storage. A nil map is stored as SQL NULL.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan decodes a stored JSON object. Malformed stored data is an error,
// not an empty default.
func (m *JSONMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	b, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(b, m)
}

// StringList maps a JSON string-array column, used for role id lists and
// role permissions.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	b, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(b, l)
}

// JSONValue maps a JSON column holding any value shape, used for
// preference values.
type JSONValue struct {
	V any
}

func (v JSONValue) Value() (driver.Value, error) {
	if v.V == nil {
		return nil, nil
	}
	return json.Marshal(v.V)
}

func (v *JSONValue) Scan(src any) error {
	if src == nil {
		v.V = nil
		return nil
	}
	b, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		v.V = nil
		return nil
	}
	return json.Unmarshal(b, &v.V)
}

// MarshalJSON emits the wrapped value directly.
func (v JSONValue) MarshalJSON() ([]byte, error) { return json.Marshal(v.V) }

// UnmarshalJSON stores the raw value.
func (v *JSONValue) UnmarshalJSON(b []byte) error { return json.Unmarshal(b, &v.V) }

func jsonBytes(src any) ([]byte, error) {
	switch t := src.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return nil, fmt.Errorf("unsupported JSON column source %T", src)
	}
}
