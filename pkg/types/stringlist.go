package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList round-trips a JSONB array-of-strings column. A NULL column scans
// to an empty list; malformed stored JSON surfaces as CorruptDataError.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}

	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("encode string list: %w", err)
	}

	return data, nil
}

func (l *StringList) Scan(src any) error {
	var raw []byte

	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return &CorruptDataError{Err: fmt.Errorf("unexpected column type %T", src)}
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return &CorruptDataError{Err: err}
	}

	if out == nil {
		out = []string{}
	}
	*l = out

	return nil
}
