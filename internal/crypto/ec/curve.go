// Package ec implements arithmetic on the rational points of elliptic
// curves y^2 = x^3 + a*x^2 + b*x + c over a prime field F_p: the group
// law with all its degenerate cases, scalar multiplication, point and
// group order computation, generator search and full enumeration.
package ec

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/smallyu/go-ecdh/internal/crypto/dlog"
	"github.com/smallyu/go-ecdh/internal/crypto/modular"
)

var (
	// ErrNotPrime is returned when constructing a curve over a modulus
	// that is composite or <= 3.
	ErrNotPrime = errors.New("ec: field modulus is not an odd prime > 3")

	// ErrSingularCurve is returned when the discriminant of the curve
	// equation vanishes mod p.
	ErrSingularCurve = errors.New("ec: curve is singular")

	// ErrNotOnCurve is returned when constructing a point from
	// coordinates that do not satisfy the curve equation.
	ErrNotOnCurve = errors.New("ec: coordinates do not satisfy the curve equation")

	// ErrMixedCurves is returned when a group operation combines points
	// of different curves.
	ErrMixedCurves = errors.New("ec: points belong to different curves")

	// ErrNoGenerator is returned when the bounded generator search
	// exhausts its attempts. On a non-cyclic group no point generates
	// everything and the search cannot succeed.
	ErrNoGenerator = errors.New("ec: no generator found within the search bound")

	// ErrCardinalityNotDetermined is returned when the cardinality
	// sampling loop hits the caller-supplied sample cap.
	ErrCardinalityNotDetermined = errors.New("ec: cardinality not determined within the sample cap")
)

const (
	primalityRounds      = 32
	generatorSearchBound = 4096
)

// Curve holds the parameters (a, b, c, p) of y^2 = x^3 + a*x^2 + b*x + c
// over F_p, with coefficients reduced to [0, p). Immutable after
// construction; the cached cardinality is set once under the mutex.
type Curve struct {
	a, b, c, p *big.Int

	mu   sync.Mutex
	card *big.Int
}

// NewCurve validates p (odd prime > 3) and non-singularity, reduces the
// coefficients mod p and returns the curve.
func NewCurve(a, b, c, p *big.Int) (*Curve, error) {
	if p.Cmp(big.NewInt(3)) <= 0 || !p.ProbablyPrime(primalityRounds) {
		return nil, ErrNotPrime
	}

	curve := &Curve{
		a: new(big.Int).Mod(a, p),
		b: new(big.Int).Mod(b, p),
		c: new(big.Int).Mod(c, p),
		p: new(big.Int).Set(p),
	}

	if Discriminant(curve.a, curve.b, curve.c, curve.p).Sign() == 0 {
		return nil, ErrSingularCurve
	}
	return curve, nil
}

// Discriminant computes the discriminant of the cubic
// x^3 + a*x^2 + b*x + c reduced mod p. The curve is singular iff it is
// zero.
func Discriminant(a, b, c, p *big.Int) *big.Int {
	// 18abc - 4a^3c + a^2b^2 - 4b^3 - 27c^2
	t1 := new(big.Int).Mul(big.NewInt(18), a)
	t1.Mul(t1, b)
	t1.Mul(t1, c)

	t2 := new(big.Int).Exp(a, big.NewInt(3), nil)
	t2.Mul(t2, c)
	t2.Mul(t2, big.NewInt(4))

	t3 := new(big.Int).Mul(a, a)
	bb := new(big.Int).Mul(b, b)
	t3.Mul(t3, bb)

	t4 := new(big.Int).Exp(b, big.NewInt(3), nil)
	t4.Mul(t4, big.NewInt(4))

	t5 := new(big.Int).Mul(c, c)
	t5.Mul(t5, big.NewInt(27))

	d := new(big.Int).Sub(t1, t2)
	d.Add(d, t3)
	d.Sub(d, t4)
	d.Sub(d, t5)
	return d.Mod(d, p)
}

// A returns the x^2 coefficient.
func (c *Curve) A() *big.Int { return new(big.Int).Set(c.a) }

// B returns the x coefficient.
func (c *Curve) B() *big.Int { return new(big.Int).Set(c.b) }

// C returns the constant coefficient.
func (c *Curve) C() *big.Int { return new(big.Int).Set(c.c) }

// P returns the field modulus.
func (c *Curve) P() *big.Int { return new(big.Int).Set(c.p) }

// Equal reports whether two curves have the same parameters. Distinct
// instances with equal parameters describe the same group, as happens
// when a curve is rebuilt from its wire form.
func (c *Curve) Equal(o *Curve) bool {
	if c == o {
		return true
	}
	if c == nil || o == nil {
		return false
	}
	return c.p.Cmp(o.p) == 0 && c.a.Cmp(o.a) == 0 && c.b.Cmp(o.b) == 0 && c.c.Cmp(o.c) == 0
}

// rhs evaluates x^3 + a*x^2 + b*x + c mod p by Horner's rule.
func (c *Curve) rhs(x *big.Int) *big.Int {
	r := new(big.Int).Add(x, c.a)
	r.Mul(r, x)
	r.Add(r, c.b)
	r.Mul(r, x)
	r.Add(r, c.c)
	return r.Mod(r, c.p)
}

// Contains reports whether (x, y) satisfies the curve equation.
func (c *Curve) Contains(x, y *big.Int) bool {
	x = new(big.Int).Mod(x, c.p)
	y = new(big.Int).Mod(y, c.p)
	lhs := modular.Mul(y, y, c.p)
	return lhs.Cmp(c.rhs(x)) == 0
}

// PickPoint samples a uniform x until the curve equation has a solution
// and returns one of the two matching points. About two attempts are
// expected per point.
func (c *Curve) PickPoint(random io.Reader) (*Point, error) {
	for {
		x, err := rand.Int(random, c.p)
		if err != nil {
			return nil, err
		}
		r, _, err := modular.Sqrt(c.rhs(x), c.p)
		if errors.Is(err, modular.ErrNotASquare) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &Point{curve: c, x: x, y: r}, nil
	}
}

// PickGenerator computes the group order and samples points until one of
// full order turns up. The search is bounded: on a non-cyclic group it
// would never terminate, so after the bound it reports ErrNoGenerator.
func (c *Curve) PickGenerator(random io.Reader) (*Point, error) {
	n, err := c.Cardinality(random)
	if err != nil {
		return nil, err
	}
	factors, err := dlog.Factor(n)
	if err != nil {
		return nil, err
	}

	for i := 0; i < generatorSearchBound; i++ {
		pt, err := c.PickPoint(random)
		if err != nil {
			return nil, err
		}
		ord, err := stripToOrder(pt, n, factors)
		if err != nil {
			return nil, err
		}
		if ord.Cmp(n) == 0 {
			return pt, nil
		}
	}
	return nil, ErrNoGenerator
}

// Points enumerates every rational point of the curve, the identity
// included. When the cardinality has already been computed the emitted
// count is checked against it.
func (c *Curve) Points() ([]*Point, error) {
	pts := []*Point{c.Identity()}

	x := new(big.Int)
	for ; x.Cmp(c.p) < 0; x = new(big.Int).Add(x, big.NewInt(1)) {
		r1, r2, err := modular.Sqrt(c.rhs(x), c.p)
		if errors.Is(err, modular.ErrNotASquare) {
			continue
		}
		if err != nil {
			return nil, err
		}
		pts = append(pts, &Point{curve: c, x: new(big.Int).Set(x), y: r1})
		if r1.Cmp(r2) != 0 {
			pts = append(pts, &Point{curve: c, x: new(big.Int).Set(x), y: r2})
		}
	}

	c.mu.Lock()
	card := c.card
	c.mu.Unlock()
	if card != nil && big.NewInt(int64(len(pts))).Cmp(card) != 0 {
		return nil, fmt.Errorf("ec: enumeration found %d points, cardinality is %s", len(pts), card)
	}
	return pts, nil
}

// String renders the curve equation, e.g.
// "y^2==x^3+2x^2+5x+7 over F_967".
func (c *Curve) String() string {
	return fmt.Sprintf("y^2==x^3+%sx^2+%sx+%s over F_%s", c.a, c.b, c.c, c.p)
}
