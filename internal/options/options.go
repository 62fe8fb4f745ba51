// Package options implements the functional option pattern shared by the
// configurable constructors in this module.
//
// An Option[T] mutates a configuration value of type T and may reject it.
// Constructors collect their options and apply them in order with Apply;
// the first failing option aborts construction.
package options

// Option configures a value of type T.
type Option[T any] interface {
	apply(T) error
}

type funcOption[T any] struct {
	fn func(T) error
}

func (f funcOption[T]) apply(target T) error {
	return f.fn(target)
}

// New wraps a validating configuration function into an Option.
func New[T any](fn func(T) error) Option[T] {
	return funcOption[T]{fn: fn}
}

// NoError wraps a configuration function that cannot fail.
func NoError[T any](fn func(T)) Option[T] {
	return funcOption[T]{fn: func(target T) error {
		fn(target)

		return nil
	}}
}

// Apply runs opts against target in order, stopping at the first error.
func Apply[T any](target T, opts ...Option[T]) error {
	for _, opt := range opts {
		if err := opt.apply(target); err != nil {
			return err
		}
	}

	return nil
}
