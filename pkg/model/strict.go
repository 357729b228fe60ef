package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// decodeStrict unmarshals data into v, rejecting unknown fields at every
// struct level and trailing garbage after the top-level value. Fields typed
// as json.RawMessage or map[string]string are opaque payloads and are not
// subject to field-level rejection, matching the data model's own scoping
// of "strict" to the named, structured fields.
func decodeStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("trailing data after JSON value")
	}
	return nil
}

// ErrEmpty reports that a required string field was empty.
type ErrEmpty struct {
	Field string
}

func (e *ErrEmpty) Error() string {
	return fmt.Sprintf("%s: must not be empty", e.Field)
}

func requireNonEmpty(field, value string) error {
	if value == "" {
		return &ErrEmpty{Field: field}
	}
	return nil
}
