package models

import "fmt"

// Optional is a value that is either present or absent. The zero value is
// absent.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) IsSet() bool { return o.set }

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// MustGet returns the value and panics when it is absent.
func (o Optional[T]) MustGet() T {
	if !o.set {
		var zero T
		panic(fmt.Sprintf("optional %T: value not set", zero))
	}
	return o.value
}
