// Package curves adapts library-backed elliptic-curve groups to the
// group interfaces, so the discrete-log solvers can run against them
// unchanged.
package curves

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/smallyu/go-ecdh/pkg/group"
)

// Secp256k1 implements group.Group over the decred secp256k1 arithmetic.
type Secp256k1 struct{}

var (
	_ group.Group   = (*Secp256k1)(nil)
	_ group.Element = (*secpElement)(nil)
)

// NewSecp256k1 returns the secp256k1 group adapter.
func NewSecp256k1() group.Group {
	return &Secp256k1{}
}

func (c *Secp256k1) Name() string {
	return "secp256k1"
}

func (c *Secp256k1) Order() *big.Int {
	return new(big.Int).Set(secp256k1.S256().N)
}

func (c *Secp256k1) Generator() group.Element {
	var g secp256k1.JacobianPoint
	one := new(secp256k1.ModNScalar).SetInt(1)
	secp256k1.ScalarBaseMultNonConst(one, &g)
	g.ToAffine()
	return &secpElement{p: g}
}

func (c *Secp256k1) RandomScalar(random io.Reader) (*big.Int, error) {
	nMinus1 := new(big.Int).Sub(secp256k1.S256().N, big.NewInt(1))
	k, err := rand.Int(random, nMinus1)
	if err != nil {
		return nil, err
	}
	return k.Add(k, big.NewInt(1)), nil
}

func (c *Secp256k1) ElementFromBytes(b []byte) (group.Element, error) {
	if len(b) == 1 && b[0] == 0x00 {
		return &secpElement{identity: true}, nil
	}
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, group.ErrInvalidEncoding
	}
	var p secp256k1.JacobianPoint
	pub.AsJacobian(&p)
	return &secpElement{p: p}, nil
}

// secpElement is an affine-normalized secp256k1 point.
type secpElement struct {
	identity bool
	p        secp256k1.JacobianPoint
}

func (e *secpElement) Add(other group.Element) (group.Element, error) {
	o, ok := other.(*secpElement)
	if !ok {
		return nil, group.ErrMismatchedElements
	}
	if e.identity {
		return o, nil
	}
	if o.identity {
		return e, nil
	}

	var sum secp256k1.JacobianPoint
	a, b := e.p, o.p
	secp256k1.AddNonConst(&a, &b, &sum)
	return normalized(&sum), nil
}

func (e *secpElement) Neg() group.Element {
	if e.identity {
		return e
	}
	n := e.p
	n.Y.Negate(1).Normalize()
	return &secpElement{p: n}
}

func (e *secpElement) Mul(k *big.Int) group.Element {
	if e.identity {
		return e
	}
	k = new(big.Int).Mod(k, secp256k1.S256().N)
	if k.Sign() == 0 {
		return &secpElement{identity: true}
	}

	var s secp256k1.ModNScalar
	s.SetByteSlice(k.Bytes())
	var prod secp256k1.JacobianPoint
	base := e.p
	secp256k1.ScalarMultNonConst(&s, &base, &prod)
	return normalized(&prod)
}

func (e *secpElement) Equal(other group.Element) bool {
	o, ok := other.(*secpElement)
	if !ok {
		return false
	}
	if e.identity || o.identity {
		return e.identity == o.identity
	}
	return e.p.X.Equals(&o.p.X) && e.p.Y.Equals(&o.p.Y)
}

func (e *secpElement) IsIdentity() bool {
	return e.identity
}

// Bytes returns 0x00 for the identity and the 33-byte compressed
// serialization otherwise.
func (e *secpElement) Bytes() []byte {
	if e.identity {
		return []byte{0x00}
	}
	x, y := e.p.X, e.p.Y
	return secp256k1.NewPublicKey(&x, &y).SerializeCompressed()
}

// normalized wraps a Jacobian result, mapping the point at infinity to
// the identity element.
func normalized(p *secp256k1.JacobianPoint) *secpElement {
	if p.Z.Normalize().IsZero() {
		return &secpElement{identity: true}
	}
	p.ToAffine()
	return &secpElement{p: *p}
}
