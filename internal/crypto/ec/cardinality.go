package ec

import (
	"io"
	"math/big"
	"sort"

	"github.com/smallyu/go-ecdh/internal/crypto/dlog"
)

// Cardinality returns the number of rational points on the curve,
// computing it on first use and caching it. The computation samples
// points, accumulates the LCM of their orders and stops as soon as a
// single multiple of the accumulator fits the Hasse interval
// [p+1-2*sqrt(p), p+1+2*sqrt(p)]; that multiple is the group order.
func (c *Curve) Cardinality(random io.Reader) (*big.Int, error) {
	return c.CardinalityCapped(random, 0)
}

// CardinalityCapped is Cardinality with a bound on the number of sampled
// points; maxSamples <= 0 means unbounded. A pathological random source
// can stall the LCM accumulation, in which case the cap surfaces
// ErrCardinalityNotDetermined instead of looping forever.
func (c *Curve) CardinalityCapped(random io.Reader, maxSamples int) (*big.Int, error) {
	c.mu.Lock()
	if c.card != nil {
		n := new(big.Int).Set(c.card)
		c.mu.Unlock()
		return n, nil
	}
	c.mu.Unlock()

	lower, upper := c.HasseInterval()
	acc := big.NewInt(1)

	for samples := 0; ; samples++ {
		// Exactly one multiple of acc inside the Hasse interval means
		// that multiple is #C: the order of every sampled point divides
		// #C, hence so does acc, and #C lies in the interval.
		if n, unique := uniqueMultipleIn(acc, lower, upper); unique {
			c.mu.Lock()
			if c.card == nil {
				c.card = new(big.Int).Set(n)
			}
			c.mu.Unlock()
			return n, nil
		}

		if maxSamples > 0 && samples >= maxSamples {
			return nil, ErrCardinalityNotDetermined
		}

		pt, err := c.PickPoint(random)
		if err != nil {
			return nil, err
		}
		ord, err := orderInInterval(pt, lower, upper)
		if err != nil {
			return nil, err
		}
		acc = lcm(acc, ord)
	}
}

// HasseInterval returns [p+1-w, p+1+w] with w = 2*ceil(sqrt(p)), wide
// enough to contain #C on either side.
func (c *Curve) HasseInterval() (*big.Int, *big.Int) {
	s := new(big.Int).Sqrt(c.p)
	if new(big.Int).Mul(s, s).Cmp(c.p) < 0 {
		s.Add(s, big.NewInt(1))
	}
	w := new(big.Int).Lsh(s, 1)
	center := new(big.Int).Add(c.p, big.NewInt(1))
	lower := new(big.Int).Sub(center, w)
	// The widened radius can push the bound to zero for tiny primes; the
	// group always has at least the identity.
	if lower.Sign() <= 0 {
		lower = big.NewInt(1)
	}
	return lower, new(big.Int).Add(center, w)
}

// uniqueMultipleIn reports whether exactly one multiple of m lies in
// [lower, upper], and returns it.
func uniqueMultipleIn(m, lower, upper *big.Int) (*big.Int, bool) {
	// kMin = ceil(lower/m), kMax = floor(upper/m)
	kMin := new(big.Int).Sub(lower, big.NewInt(1))
	kMin.Div(kMin, m)
	kMin.Add(kMin, big.NewInt(1))
	kMax := new(big.Int).Div(upper, m)
	if kMin.Cmp(kMax) != 0 {
		return nil, false
	}
	return kMin.Mul(kMin, m), true
}

// orderInInterval computes the exact order of pt. The least multiple of
// ord(pt) in the Hasse interval is found by a baby-step/giant-step
// search for j with (lower+j)*pt = O, then reduced to the order itself
// by stripping prime factors that keep annihilating the point.
func orderInInterval(pt *Point, lower, upper *big.Int) (*big.Int, error) {
	width := new(big.Int).Sub(upper, lower)
	width.Add(width, big.NewInt(1))

	// j*pt = -(lower*pt) always has a solution: #C - lower fits the
	// search window.
	target := pt.mul(lower).Neg()
	j, err := dlog.AutoShanks(pt, target, width)
	if err != nil {
		return nil, err
	}
	m := new(big.Int).Add(lower, j)

	factors, err := dlog.Factor(m)
	if err != nil {
		return nil, err
	}
	return stripToOrder(pt, m, factors)
}

// stripToOrder reduces a known annihilating multiple m of pt to the
// exact order of pt: for every prime factor, divide it out as long as
// the quotient still annihilates the point.
func stripToOrder(pt *Point, m *big.Int, factors []dlog.PrimePower) (*big.Int, error) {
	ord := new(big.Int).Set(m)
	for _, f := range factors {
		for e := 0; e < f.E; e++ {
			q := new(big.Int).Div(ord, f.P)
			if !pt.mul(q).IsIdentity() {
				break
			}
			ord = q
		}
	}
	return ord, nil
}

// divisors expands a factorization into the sorted list of all
// divisors, walking exponent vectors.
func divisors(factors []dlog.PrimePower) []*big.Int {
	divs := []*big.Int{big.NewInt(1)}
	for _, f := range factors {
		grown := make([]*big.Int, 0, len(divs)*(f.E+1))
		pe := big.NewInt(1)
		for e := 0; e <= f.E; e++ {
			for _, d := range divs {
				grown = append(grown, new(big.Int).Mul(d, pe))
			}
			pe = new(big.Int).Mul(pe, f.P)
		}
		divs = grown
	}
	sort.Slice(divs, func(i, j int) bool { return divs[i].Cmp(divs[j]) < 0 })
	return divs
}

func lcm(a, b *big.Int) *big.Int {
	g := new(big.Int).GCD(nil, nil, a, b)
	r := new(big.Int).Div(a, g)
	return r.Mul(r, b)
}
