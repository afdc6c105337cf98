// Package fn holds the small set of generic helpers the relay pipeline needs
// to carry "value or nothing" through its channels without resorting to nil
// pointers. It started as a wider functional-programming toolkit; everything
// that wasn't actually load-bearing for AckRequest's optional HalfKey was
// trimmed, since unexercised generic combinators are just another thing to
// keep in sync with nothing using them.
package fn

// Option[A] represents a value which may or may not be there. This is often
// preferable to a nil-able pointer, since the zero value of Option[A] is
// already the correct "no value" state for any A, including non-pointer
// types.
type Option[A any] struct {
	isSome bool
	some   A
}

// Some injects a value into an optional context.
func Some[A any](a A) Option[A] {
	return Option[A]{
		isSome: true,
		some:   a,
	}
}

// None constructs an empty option.
func None[A any]() Option[A] {
	return Option[A]{}
}

// IsSome returns true if the Option contains a value.
func (o Option[A]) IsSome() bool {
	return o.isSome
}

// IsNone returns true if the Option is empty.
func (o Option[A]) IsNone() bool {
	return !o.isSome
}

// UnwrapOr extracts the value from an option, substituting the supplied
// default when the option is empty. AckOut uses this to turn a "random ack"
// (None) into the zero HalfKey the wire format expects.
func (o Option[A]) UnwrapOr(a A) A {
	if o.isSome {
		return o.some
	}

	return a
}
