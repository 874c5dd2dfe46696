package models

import (
	"bytes"
	"database/sql/driver"
	"fmt"
)

// Flag is a boolean stored as a 0/1 smallint. The store keeps the columnar
// shape; clients always see true/false.
type Flag int16

func (f Flag) Bool() bool { return f != 0 }

func FlagFrom(b bool) Flag {
	if b {
		return 1
	}
	return 0
}

func (f Flag) MarshalJSON() ([]byte, error) {
	if f.Bool() {
		return []byte("true"), nil
	}
	return []byte("false"), nil
}

// UnmarshalJSON accepts both booleans and 0/1 numbers.
func (f *Flag) UnmarshalJSON(data []byte) error {
	switch {
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("1")):
		*f = 1
	case bytes.Equal(data, []byte("false")), bytes.Equal(data, []byte("0")), bytes.Equal(data, []byte("null")):
		*f = 0
	default:
		return fmt.Errorf("invalid flag value %q", data)
	}
	return nil
}

func (f Flag) Value() (driver.Value, error) { return int64(f), nil }

func (f *Flag) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = 0
	case bool:
		*f = FlagFrom(v)
	case int64:
		*f = Flag(v)
	case []byte:
		if len(v) > 0 && (v[0] == '1' || v[0] == 't') {
			*f = 1
		} else {
			*f = 0
		}
	default:
		return fmt.Errorf("cannot scan %T into Flag", src)
	}
	return nil
}
