// Package opt provides an explicit optional value used wherever a stage may
// produce "no value" instead of a sample.
package opt

import (
	"bytes"
	"encoding/json"
)

// Value holds either a present value of type T or nothing.
// The zero Value is absent.
type Value[T any] struct {
	v  T
	ok bool
}

// Some returns a present Value wrapping v.
func Some[T any](v T) Value[T] {
	return Value[T]{v: v, ok: true}
}

// None returns an absent Value.
func None[T any]() Value[T] {
	return Value[T]{}
}

// Get returns the wrapped value and whether it is present.
func (o Value[T]) Get() (T, bool) {
	return o.v, o.ok
}

// IsSome reports whether the value is present.
func (o Value[T]) IsSome() bool {
	return o.ok
}

// IsNone reports whether the value is absent.
func (o Value[T]) IsNone() bool {
	return !o.ok
}

// OrElse returns the wrapped value, or fallback when absent.
func (o Value[T]) OrElse(fallback T) T {
	if !o.ok {
		return fallback
	}
	return o.v
}

// MarshalJSON encodes an absent value as null.
func (o Value[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.v)
}

// UnmarshalJSON decodes null as absent and anything else as present.
func (o *Value[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = None[T]()
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// Present returns the wrapped values of all present entries, in order.
func Present[T any](values []Value[T]) []T {
	out := make([]T, 0, len(values))
	for _, v := range values {
		if v.ok {
			out = append(out, v.v)
		}
	}
	return out
}
