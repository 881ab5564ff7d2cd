package model

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes "not provided" from "explicitly null" in partial
// updates. The zero value means not provided.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a provided, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a provided Optional that clears the field.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// Apply returns the merged value: current when not provided, otherwise the
// provided value (possibly nil).
func (o Optional[T]) Apply(current *T) *T {
	if !o.Set {
		return current
	}
	if o.Value == nil {
		return nil
	}
	v := *o.Value
	return &v
}

// UnmarshalJSON marks the field as provided; a literal null clears it.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// MarshalJSON writes the value or null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}
