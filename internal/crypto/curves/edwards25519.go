package curves

import (
	"crypto/rand"
	"io"
	"math/big"

	"filippo.io/edwards25519"

	"github.com/smallyu/go-ecdh/pkg/group"
)

// Edwards25519 implements group.Group over the prime-order subgroup of
// edwards25519.
type Edwards25519 struct{}

var (
	_ group.Group   = (*Edwards25519)(nil)
	_ group.Element = (*edElement)(nil)
)

// NewEdwards25519 returns the edwards25519 group adapter.
func NewEdwards25519() group.Group {
	return &Edwards25519{}
}

func (c *Edwards25519) Name() string {
	return "edwards25519"
}

// Order returns l = 2^252 + 27742317777372353535851937790883648493.
func (c *Edwards25519) Order() *big.Int {
	l, _ := new(big.Int).SetString("7237005577332262213973186563042994240857116359379907606001950938285454250989", 10)
	return l
}

func (c *Edwards25519) Generator() group.Element {
	return &edElement{p: edwards25519.NewGeneratorPoint()}
}

func (c *Edwards25519) RandomScalar(random io.Reader) (*big.Int, error) {
	lMinus1 := new(big.Int).Sub(c.Order(), big.NewInt(1))
	k, err := rand.Int(random, lMinus1)
	if err != nil {
		return nil, err
	}
	return k.Add(k, big.NewInt(1)), nil
}

func (c *Edwards25519) ElementFromBytes(b []byte) (group.Element, error) {
	p, err := edwards25519.NewIdentityPoint().SetBytes(b)
	if err != nil {
		return nil, group.ErrInvalidEncoding
	}
	return &edElement{p: p}, nil
}

// edElement wraps an edwards25519 point.
type edElement struct {
	p *edwards25519.Point
}

func (e *edElement) Add(other group.Element) (group.Element, error) {
	o, ok := other.(*edElement)
	if !ok {
		return nil, group.ErrMismatchedElements
	}
	return &edElement{p: new(edwards25519.Point).Add(e.p, o.p)}, nil
}

func (e *edElement) Neg() group.Element {
	return &edElement{p: new(edwards25519.Point).Negate(e.p)}
}

func (e *edElement) Mul(k *big.Int) group.Element {
	s := scalarFromBigInt(k)
	return &edElement{p: new(edwards25519.Point).ScalarMult(s, e.p)}
}

func (e *edElement) Equal(other group.Element) bool {
	o, ok := other.(*edElement)
	if !ok {
		return false
	}
	return e.p.Equal(o.p) == 1
}

func (e *edElement) IsIdentity() bool {
	return e.p.Equal(edwards25519.NewIdentityPoint()) == 1
}

func (e *edElement) Bytes() []byte {
	return e.p.Bytes()
}

// scalarFromBigInt reduces k mod l and converts the big-endian big.Int
// form to the scalar field's little-endian encoding.
func scalarFromBigInt(k *big.Int) *edwards25519.Scalar {
	l, _ := new(big.Int).SetString("7237005577332262213973186563042994240857116359379907606001950938285454250989", 10)
	k = new(big.Int).Mod(k, l)

	be := k.Bytes()
	var le [32]byte
	for i := 0; i < len(be); i++ {
		le[len(be)-1-i] = be[i]
	}

	s, err := edwards25519.NewScalar().SetCanonicalBytes(le[:])
	if err != nil {
		// k was reduced mod l above, so the encoding is canonical.
		panic(err)
	}
	return s
}
