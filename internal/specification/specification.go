// Package specification provides composable boolean predicates.
//
// A Spec is pure: it holds no state and has no side effects, so the same
// candidate always yields the same answer. Composites build new values and
// never modify their operands.
package specification

// Spec is a predicate over candidates of type T.
type Spec[T any] interface {
	IsSatisfiedBy(candidate T) bool
	And(other Spec[T]) Spec[T]
	Or(other Spec[T]) Spec[T]
	Not() Spec[T]
}

// Predicate adapts a plain function to the Spec interface.
type Predicate[T any] func(candidate T) bool

// New wraps fn as a Spec.
func New[T any](fn func(T) bool) Spec[T] {
	return Predicate[T](fn)
}

// IsSatisfiedBy reports whether candidate matches.
func (p Predicate[T]) IsSatisfiedBy(candidate T) bool {
	return p(candidate)
}

// And returns a Spec satisfied when both p and other are.
func (p Predicate[T]) And(other Spec[T]) Spec[T] {
	return And[T](p, other)
}

// Or returns a Spec satisfied when either p or other is.
func (p Predicate[T]) Or(other Spec[T]) Spec[T] {
	return Or[T](p, other)
}

// Not returns the negation of p.
func (p Predicate[T]) Not() Spec[T] {
	return Not[T](p)
}

// And returns a Spec satisfied when every spec is satisfied.
// Evaluation stops at the first spec that fails. An empty list is always satisfied.
func And[T any](specs ...Spec[T]) Spec[T] {
	specs = append([]Spec[T](nil), specs...)
	return Predicate[T](func(candidate T) bool {
		for _, s := range specs {
			if !s.IsSatisfiedBy(candidate) {
				return false
			}
		}
		return true
	})
}

// Or returns a Spec satisfied when at least one spec is satisfied.
// An empty list is never satisfied.
func Or[T any](specs ...Spec[T]) Spec[T] {
	specs = append([]Spec[T](nil), specs...)
	return Predicate[T](func(candidate T) bool {
		for _, s := range specs {
			if s.IsSatisfiedBy(candidate) {
				return true
			}
		}
		return false
	})
}

// Not negates s.
func Not[T any](s Spec[T]) Spec[T] {
	return Predicate[T](func(candidate T) bool {
		return !s.IsSatisfiedBy(candidate)
	})
}

// All is a Spec satisfied by every candidate.
func All[T any]() Spec[T] {
	return Predicate[T](func(T) bool { return true })
}

// Filter returns the items that satisfy s, preserving their order.
func Filter[T any](items []T, s Spec[T]) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if s.IsSatisfiedBy(item) {
			out = append(out, item)
		}
	}
	return out
}
