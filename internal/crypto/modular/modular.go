// Package modular implements exact integer arithmetic modulo a prime p.
// All results are canonicalized to the range [0, p).
package modular

import (
	"errors"
	"math/big"
)

var (
	// ErrNotInvertible is returned when inverting an operand that is
	// congruent to zero mod p.
	ErrNotInvertible = errors.New("modular: operand is not invertible")

	// ErrNotASquare is returned by Sqrt when the operand is a quadratic
	// non-residue mod p.
	ErrNotASquare = errors.New("modular: operand is not a square")
)

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// Add computes (a + b) mod p.
func Add(a, b, p *big.Int) *big.Int {
	r := new(big.Int).Add(a, b)
	return r.Mod(r, p)
}

// Sub computes (a - b) mod p.
func Sub(a, b, p *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	return r.Mod(r, p)
}

// Mul computes (a * b) mod p.
func Mul(a, b, p *big.Int) *big.Int {
	r := new(big.Int).Mul(a, b)
	return r.Mod(r, p)
}

// Neg computes (-a) mod p.
func Neg(a, p *big.Int) *big.Int {
	r := new(big.Int).Neg(a)
	return r.Mod(r, p)
}

// Inverse computes a^-1 mod p via the extended Euclidean algorithm.
// Returns ErrNotInvertible when a ≡ 0 (mod p).
func Inverse(a, p *big.Int) (*big.Int, error) {
	a = new(big.Int).Mod(a, p)
	if a.Sign() == 0 {
		return nil, ErrNotInvertible
	}

	// gcd = a*x + p*y; for prime p and a != 0 the gcd is 1 and x is the
	// inverse.
	x := new(big.Int)
	gcd := new(big.Int).GCD(x, nil, a, p)
	if gcd.Cmp(one) != 0 {
		return nil, ErrNotInvertible
	}
	return x.Mod(x, p), nil
}

// Sqrt computes the square roots of n mod p. On success it returns the
// pair {r, p-r}; when n has no root it returns ErrNotASquare.
//
// For p ≡ 3 (mod 4) the root is n^((p+1)/4); the general case uses the
// Tonelli-Shanks algorithm.
func Sqrt(n, p *big.Int) (*big.Int, *big.Int, error) {
	n = new(big.Int).Mod(n, p)
	if n.Sign() == 0 {
		return new(big.Int), new(big.Int), nil
	}

	var r *big.Int
	if isThreeMod4(p) {
		// r = n^((p+1)/4) mod p
		e := new(big.Int).Add(p, one)
		e.Rsh(e, 2)
		r = new(big.Int).Exp(n, e, p)
	} else {
		var err error
		r, err = tonelliShanks(n, p)
		if err != nil {
			return nil, nil, err
		}
	}

	// Verify r^2 ≡ n; for a non-residue the exponentiation above yields
	// a root of -n instead.
	check := new(big.Int).Mul(r, r)
	check.Mod(check, p)
	if check.Cmp(n) != 0 {
		return nil, nil, ErrNotASquare
	}

	return r, new(big.Int).Sub(p, r), nil
}

func isThreeMod4(p *big.Int) bool {
	return p.Bit(0) == 1 && p.Bit(1) == 1
}

// tonelliShanks finds r with r^2 ≡ n (mod p) for odd prime p and n != 0.
func tonelliShanks(n, p *big.Int) (*big.Int, error) {
	// 1. Check n is a residue via Euler's criterion: n^((p-1)/2) ≡ 1.
	pMinus1 := new(big.Int).Sub(p, one)
	legendreExp := new(big.Int).Rsh(pMinus1, 1)
	if new(big.Int).Exp(n, legendreExp, p).Cmp(one) != 0 {
		return nil, ErrNotASquare
	}

	// 2. Write p-1 = q * 2^s with q odd.
	q := new(big.Int).Set(pMinus1)
	s := 0
	for q.Bit(0) == 0 {
		q.Rsh(q, 1)
		s++
	}

	// 3. Find a quadratic non-residue z by scanning upward from 2.
	z := new(big.Int).Set(two)
	for new(big.Int).Exp(z, legendreExp, p).Cmp(pMinus1) != 0 {
		z.Add(z, one)
	}

	// 4. Iterate: m = s, c = z^q, t = n^q, r = n^((q+1)/2).
	m := s
	c := new(big.Int).Exp(z, q, p)
	t := new(big.Int).Exp(n, q, p)
	rExp := new(big.Int).Add(q, one)
	rExp.Rsh(rExp, 1)
	r := new(big.Int).Exp(n, rExp, p)

	for t.Cmp(one) != 0 {
		// Find the least i in (0, m) with t^(2^i) ≡ 1.
		i := 0
		t2i := new(big.Int).Set(t)
		for t2i.Cmp(one) != 0 {
			t2i.Mul(t2i, t2i)
			t2i.Mod(t2i, p)
			i++
			if i == m {
				return nil, ErrNotASquare
			}
		}

		// b = c^(2^(m-i-1))
		b := new(big.Int).Set(c)
		for j := 0; j < m-i-1; j++ {
			b.Mul(b, b)
			b.Mod(b, p)
		}

		m = i
		c.Mul(b, b)
		c.Mod(c, p)
		t.Mul(t, c)
		t.Mod(t, p)
		r.Mul(r, b)
		r.Mod(r, p)
	}

	return r, nil
}
