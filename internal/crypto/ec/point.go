package ec

import (
	"fmt"
	"io"
	"math/big"

	"github.com/smallyu/go-ecdh/internal/crypto/dlog"
	"github.com/smallyu/go-ecdh/internal/crypto/modular"
	"github.com/smallyu/go-ecdh/pkg/group"
)

// Point is a rational point of a curve: either the identity O or an
// affine pair (x, y) with both coordinates in [0, p). Points are
// immutable; every operation produces a new point. *Point implements
// group.Element, which is what the discrete-log solvers consume.
type Point struct {
	curve *Curve
	inf   bool
	x, y  *big.Int
}

var _ group.Element = (*Point)(nil)

// Identity returns the neutral element O of the curve's group.
func (c *Curve) Identity() *Point {
	return &Point{curve: c, inf: true}
}

// NewPoint constructs the affine point (x, y), reducing the coordinates
// mod p and validating the curve equation.
func (c *Curve) NewPoint(x, y *big.Int) (*Point, error) {
	x = new(big.Int).Mod(x, c.p)
	y = new(big.Int).Mod(y, c.p)
	if !c.Contains(x, y) {
		return nil, ErrNotOnCurve
	}
	return &Point{curve: c, x: x, y: y}, nil
}

// Curve returns the curve the point lives on.
func (p *Point) Curve() *Curve { return p.curve }

// IsIdentity reports whether the point is O.
func (p *Point) IsIdentity() bool { return p.inf }

// X returns the affine x coordinate. Undefined (nil) for O.
func (p *Point) X() *big.Int {
	if p.inf {
		return nil
	}
	return new(big.Int).Set(p.x)
}

// Y returns the affine y coordinate. Undefined (nil) for O.
func (p *Point) Y() *big.Int {
	if p.inf {
		return nil
	}
	return new(big.Int).Set(p.y)
}

// Add implements the chord-and-tangent group law. Both operands must be
// points of the same curve.
func (p *Point) Add(other group.Element) (group.Element, error) {
	q, ok := other.(*Point)
	if !ok {
		return nil, group.ErrMismatchedElements
	}
	if !p.curve.Equal(q.curve) {
		return nil, fmt.Errorf("%w: %w", ErrMixedCurves, group.ErrMismatchedElements)
	}
	return p.add(q)
}

// add evaluates the group-law case split in order: identities, vertical
// chord, tangent, generic chord.
func (p *Point) add(q *Point) (*Point, error) {
	mod := p.curve.p

	// 1-2. O is neutral on both sides.
	if p.inf {
		return q, nil
	}
	if q.inf {
		return p, nil
	}

	// 3. Vertical chord: mutual inverses sum to O. Doubling a point with
	// y = 0 lands here too, its tangent is vertical.
	if p.x.Cmp(q.x) == 0 && (p.y.Cmp(q.y) != 0 || p.y.Sign() == 0) {
		return p.curve.Identity(), nil
	}

	var m *big.Int
	if p.x.Cmp(q.x) == 0 {
		// 4. Doubling: m = (3x^2 + 2ax + b) / 2y.
		num := new(big.Int).Mul(big.NewInt(3), p.x)
		num.Add(num, new(big.Int).Lsh(p.curve.a, 1))
		num.Mul(num, p.x)
		num.Add(num, p.curve.b)
		den, err := modular.Inverse(new(big.Int).Lsh(p.y, 1), mod)
		if err != nil {
			return nil, err
		}
		m = modular.Mul(num.Mod(num, mod), den, mod)
	} else {
		// 5. Chord: m = (qy - py) / (qx - px).
		num := modular.Sub(q.y, p.y, mod)
		den, err := modular.Inverse(modular.Sub(q.x, p.x, mod), mod)
		if err != nil {
			return nil, err
		}
		m = modular.Mul(num, den, mod)
	}

	// x3 = m^2 - a - px - qx; the -a term comes from the non-zero x^2
	// coefficient of the curve equation.
	x3 := new(big.Int).Mul(m, m)
	x3.Sub(x3, p.curve.a)
	x3.Sub(x3, p.x)
	x3.Sub(x3, q.x)
	x3.Mod(x3, mod)

	// y3 = m*(px - x3) - py
	y3 := new(big.Int).Sub(p.x, x3)
	y3.Mul(y3, m)
	y3.Sub(y3, p.y)
	y3.Mod(y3, mod)

	return &Point{curve: p.curve, x: x3, y: y3}, nil
}

// Neg returns the additive inverse: -O = O, -(x, y) = (x, -y mod p).
func (p *Point) Neg() group.Element {
	if p.inf {
		return p
	}
	return &Point{curve: p.curve, x: new(big.Int).Set(p.x), y: modular.Neg(p.y, p.curve.p)}
}

// Mul computes k*p with a most-significant-bit-first binary ladder.
// Negative k multiplies the negated point.
func (p *Point) Mul(k *big.Int) group.Element {
	return p.mul(k)
}

func (p *Point) mul(k *big.Int) *Point {
	base := p
	if k.Sign() < 0 {
		base = p.Neg().(*Point)
		k = new(big.Int).Neg(k)
	}

	acc := p.curve.Identity()
	for i := k.BitLen() - 1; i >= 0; i-- {
		// The accumulator stays on the curve, so add cannot fail.
		acc, _ = acc.add(acc)
		if k.Bit(i) == 1 {
			acc, _ = acc.add(base)
		}
	}
	return acc
}

// Equal reports whether the two elements are the same point of the same
// curve.
func (p *Point) Equal(other group.Element) bool {
	q, ok := other.(*Point)
	if !ok || !p.curve.Equal(q.curve) {
		return false
	}
	if p.inf || q.inf {
		return p.inf == q.inf
	}
	return p.x.Cmp(q.x) == 0 && p.y.Cmp(q.y) == 0
}

// Order computes the order of the point: the divisors of the group
// cardinality are probed in ascending order and the smallest one
// annihilating the point is returned.
func (p *Point) Order(random io.Reader) (*big.Int, error) {
	n, err := p.curve.Cardinality(random)
	if err != nil {
		return nil, err
	}
	factors, err := dlog.Factor(n)
	if err != nil {
		return nil, err
	}
	for _, d := range divisors(factors) {
		if p.mul(d).IsIdentity() {
			return d, nil
		}
	}
	// Lagrange guarantees n*p = O, so the loop always returns.
	return nil, fmt.Errorf("ec: order of %s does not divide cardinality %s", p, n)
}

// String renders an affine point as "[x, y]" and the identity as "O".
func (p *Point) String() string {
	if p.inf {
		return "O"
	}
	return fmt.Sprintf("[%s, %s]", p.x, p.y)
}
