package group

import (
	"io"
	"math/big"
)

// Element is a member of a finite abelian group, written additively.
// The discrete-log solvers operate on any implementation of this
// interface; they never look inside an element beyond these methods.
type Element interface {
	// Add combines this element with another element of the same group.
	// Implementations must reject elements of a different group (or of a
	// different concrete type) with ErrMismatchedElements.
	Add(other Element) (Element, error)

	// Neg returns the additive inverse of the element.
	Neg() Element

	// Mul returns k times this element. k may be negative or zero;
	// (-k)*P is defined as k*(-P) and 0*P is the identity.
	Mul(k *big.Int) Element

	// Equal reports whether the two elements are the same group element.
	// An element of a different group is never equal.
	Equal(other Element) bool

	// IsIdentity reports whether this is the neutral element of the group.
	IsIdentity() bool

	// Bytes returns the canonical serialization of the element.
	// Two elements are equal iff their serializations are identical, so
	// the byte form doubles as a total order for lookup tables.
	Bytes() []byte
}

// Group bundles the ambient data of a finite abelian group: a fixed
// generator, the group order, scalar sampling and deserialization.
type Group interface {
	// Name returns the group identifier (e.g. "secp256k1").
	Name() string

	// Generator returns the distinguished generator of the group.
	Generator() Element

	// Order returns the order of the generator.
	Order() *big.Int

	// RandomScalar samples a uniform scalar in [1, Order).
	RandomScalar(random io.Reader) (*big.Int, error)

	// ElementFromBytes deserializes a canonical encoding produced by
	// Element.Bytes, validating group membership.
	ElementFromBytes(b []byte) (Element, error)
}
