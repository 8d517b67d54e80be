package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

var errUnsupportedJSONSource = errors.New("unsupported json column source")

// StringList is a list of identifiers persisted as a JSONB array.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}

	return MarshalJSONColumn(l)
}

func (l *StringList) Scan(src any) error {
	return ScanJSONColumn(src, (*[]string)(l))
}

func (l StringList) Contains(value string) bool {
	return slices.Contains(l, value)
}

func (l StringList) Clone() StringList {
	if l == nil {
		return nil
	}

	return slices.Clone(l)
}

func MarshalJSONColumn(value any) (driver.Value, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json column: %w", err)
	}

	return raw, nil
}

// ScanJSONColumn decodes a JSON/JSONB column into dest. NULL leaves dest untouched.
func ScanJSONColumn(src any, dest any) error {
	var raw []byte

	switch value := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = value
	case string:
		raw = []byte(value)
	default:
		return fmt.Errorf("%w: %T", errUnsupportedJSONSource, src)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("failed to unmarshal json column: %w", err)
	}

	return nil
}

// RawJSON is a pre-encoded JSON document stored as-is in a JSONB column.
type RawJSON []byte

func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}

	return []byte(r), nil
}

func (r *RawJSON) Scan(src any) error {
	switch value := src.(type) {
	case nil:
		*r = nil
	case []byte:
		*r = append((*r)[0:0], value...)
	case string:
		*r = RawJSON(value)
	default:
		return fmt.Errorf("%w: %T", errUnsupportedJSONSource, src)
	}

	return nil
}

func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}

	return r, nil
}

func (r *RawJSON) UnmarshalJSON(data []byte) error {
	*r = append((*r)[0:0], data...)

	return nil
}
