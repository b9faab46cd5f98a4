package types

import (
	"bytes"
	"encoding/json"
	"errors"
)

// NullableAny holds an arbitrary JSON value that may be null. The raw bytes
// are kept as provided, so numbers and field order survive a round trip.
type NullableAny struct {
	value json.RawMessage
	valid bool // valid is true if value is not nil
}

func (na NullableAny) IsNil() bool {
	return !na.valid
}

// Set assigns a value. json.RawMessage and []byte inputs are validated as
// JSON; everything else is marshaled.
func (na *NullableAny) Set(value any) error {
	var jsonValue json.RawMessage

	switch v := value.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			na.value = nil
			na.valid = false
			return errors.New("value is not valid JSON")
		}
		jsonValue = v
	case []byte:
		if !json.Valid(v) {
			// Not valid JSON as-is; marshal it instead.
			marshaledValue, err := json.Marshal(value)
			if err != nil {
				na.value = nil
				na.valid = false
				return err
			}
			jsonValue = marshaledValue
		} else {
			jsonValue = v
		}
	default:
		marshaledValue, err := json.Marshal(value)
		if err != nil {
			na.value = nil
			na.valid = false
			return err
		}
		jsonValue = marshaledValue
	}

	na.value = jsonValue
	na.valid = true
	return nil
}

// Get returns the decoded value, or nil when the value is null or undecodable.
func (na NullableAny) Get() any {
	if na.valid {
		var v any
		err := json.Unmarshal(na.value, &v)
		if err != nil {
			return nil
		}
		return v
	}
	return nil
}

// Equals reports whether two values are byte-equal, or both null.
func (na NullableAny) Equals(value NullableAny) bool {
	if na.valid && value.valid {
		return bytes.Equal(na.value, value.value)
	}
	return na.valid == value.valid
}

// GetAs unmarshals the value into v. Returns an error when the value is null.
func (na NullableAny) GetAs(v any) error {
	if na.valid {
		return json.Unmarshal(na.value, v)
	}
	return errors.New("value is not set")
}

// MarshalJSON implements the json.Marshaler interface.
func (na NullableAny) MarshalJSON() ([]byte, error) {
	if na.valid {
		return na.value, nil
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (na *NullableAny) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		na.value = nil
		na.valid = false
		return nil
	}
	if !json.Valid(data) {
		na.value = nil
		na.valid = false
		return errors.New("invalid JSON")
	}
	na.value = data
	na.valid = true
	return nil
}

// NullableAnyFrom creates a NullableAny holding the given value.
func NullableAnyFrom(value any) (NullableAny, error) {
	var na NullableAny
	err := na.Set(value)
	if err != nil {
		return NullableAny{}, err
	}
	return na, nil
}

// NullableAnySetRaw wraps raw JSON without validating it. The caller is
// responsible for passing well-formed JSON.
func NullableAnySetRaw(value json.RawMessage) NullableAny {
	return NullableAny{
		value: value,
		valid: true,
	}
}

// NilAny returns a NullableAny representing null.
func NilAny() NullableAny {
	return NullableAny{
		value: nil,
		valid: false,
	}
}

var _ json.Marshaler = &NullableAny{}
var _ json.Unmarshaler = &NullableAny{}
var _ Nullable = &NullableAny{}
var _ json.Marshaler = NullableAny{}
