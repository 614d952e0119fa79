package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrOptionsNotObject is returned when an options payload is not a JSON object.
var ErrOptionsNotObject = errors.New("options must be a JSON object")

// Options is the free-form presentation bag of a custom button (icon, color,
// display flag, ...). It keeps the raw JSON so key order survives a round trip.
type Options []byte

// NewOptions validates raw as a JSON object. A nil or "null" payload yields an
// empty object.
func NewOptions(raw []byte) (Options, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return Options("{}"), nil
	}
	if !gjson.Valid(trimmed) || !gjson.Parse(trimmed).IsObject() {
		return nil, ErrOptionsNotObject
	}
	return Options(trimmed), nil
}

// Get returns the value stored under key.
func (o Options) Get(key string) gjson.Result {
	return gjson.GetBytes(o.bytes(), gjson.Escape(key))
}

// Set returns a copy of o with key set to the raw JSON value.
func (o Options) Set(key string, rawValue []byte) (Options, error) {
	if !gjson.ValidBytes(rawValue) {
		return nil, fmt.Errorf("options/%s: value is not valid JSON", key)
	}
	out, err := sjson.SetRawBytes(o.bytes(), gjson.Escape(key), rawValue)
	if err != nil {
		return nil, fmt.Errorf("options/%s: %w", key, err)
	}
	return Options(out), nil
}

// Delete returns a copy of o without key.
func (o Options) Delete(key string) (Options, error) {
	out, err := sjson.DeleteBytes(o.bytes(), gjson.Escape(key))
	if err != nil {
		return nil, fmt.Errorf("options/%s: %w", key, err)
	}
	return Options(out), nil
}

// Keys lists the top-level keys in document order.
func (o Options) Keys() []string {
	var keys []string
	gjson.ParseBytes(o.bytes()).ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

func (o Options) bytes() []byte {
	if len(o) == 0 {
		return []byte("{}")
	}
	return append([]byte(nil), o...)
}

// MarshalJSON emits the stored object verbatim.
func (o Options) MarshalJSON() ([]byte, error) {
	return o.bytes(), nil
}

func (o *Options) UnmarshalJSON(data []byte) error {
	parsed, err := NewOptions(data)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Value stores the options as text.
func (o Options) Value() (driver.Value, error) {
	return string(o.bytes()), nil
}

func (o *Options) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*o = Options("{}")
		return nil
	case []byte:
		parsed, err := NewOptions(v)
		if err != nil {
			return err
		}
		*o = parsed
		return nil
	case string:
		parsed, err := NewOptions([]byte(v))
		if err != nil {
			return err
		}
		*o = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Options", value)
	}
}
