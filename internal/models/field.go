package models

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Field is an optional value for partial updates. The zero Field is unset and
// leaves the stored value untouched. For pointer types an explicit JSON null
// sets the field to nil; for other types null is treated as absent.
type Field[T any] struct {
	value T
	set   bool
}

// Set returns a Field carrying v.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// IsSet reports whether the field was supplied.
func (f Field[T]) IsSet() bool { return f.set }

// Get returns the value and whether it was supplied.
func (f Field[T]) Get() (T, bool) { return f.value, f.set }

// OrElse returns the supplied value or fallback.
func (f Field[T]) OrElse(fallback T) T {
	if f.set {
		return f.value
	}
	return fallback
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		if reflect.TypeOf(&zero).Elem().Kind() == reflect.Pointer {
			f.value = zero
			f.set = true
		}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.value = v
	f.set = true
	return nil
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.set {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}
