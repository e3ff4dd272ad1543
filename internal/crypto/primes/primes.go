// Package primes provides probabilistic prime generation: Miller-Rabin
// testing and random pseudoprimes of a caller-requested byte length.
package primes

import (
	"errors"
	"io"
	"math/big"
)

// ErrShortRead is returned when the random source cannot supply enough
// bytes.
var ErrShortRead = errors.New("primes: random source exhausted")

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// RandomWithBytes returns a non-negative integer assembled from n random
// bytes. n <= 0 yields zero.
func RandomWithBytes(random io.Reader, n int) (*big.Int, error) {
	if n <= 0 {
		return new(big.Int), nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(random, buf); err != nil {
		return nil, ErrShortRead
	}
	return new(big.Int).SetBytes(buf), nil
}

// RandomInRange returns a uniform integer in [a, b). When a == b it
// returns a; when b < a the bounds are swapped.
func RandomInRange(random io.Reader, a, b *big.Int) (*big.Int, error) {
	if a.Cmp(b) == 0 {
		return new(big.Int).Set(a), nil
	}
	if b.Cmp(a) < 0 {
		a, b = b, a
	}

	span := new(big.Int).Sub(b, a)
	// Oversample well past the span's width so the mod bias is
	// negligible.
	delta, err := RandomWithBytes(random, (span.BitLen()+7)/8+10)
	if err != nil {
		return nil, err
	}
	delta.Mod(delta, span)
	return delta.Add(delta, a), nil
}

// MillerRabin runs rounds iterations of the Miller-Rabin test on n.
// Returns true when n passes every round, which for a composite n
// happens with probability at most 4^-rounds. n <= 1 never passes.
func MillerRabin(random io.Reader, n *big.Int, rounds int) (bool, error) {
	if n.Cmp(one) <= 0 {
		return false, nil
	}
	if n.Cmp(two) == 0 || n.Cmp(big.NewInt(3)) == 0 {
		return true, nil
	}
	if n.Bit(0) == 0 {
		return false, nil
	}

	// Write n-1 = d * 2^s with d odd.
	nMinus1 := new(big.Int).Sub(n, one)
	d := new(big.Int).Set(nMinus1)
	s := 0
	for d.Bit(0) == 0 {
		d.Rsh(d, 1)
		s++
	}

	nMinus2 := new(big.Int).Sub(n, two)
	for i := 0; i < rounds; i++ {
		a, err := RandomInRange(random, two, nMinus2)
		if err != nil {
			return false, err
		}

		x := new(big.Int).Exp(a, d, n)
		if x.Cmp(one) == 0 || x.Cmp(nMinus1) == 0 {
			continue
		}

		witness := true
		for j := 0; j < s-1; j++ {
			x.Mul(x, x)
			x.Mod(x, n)
			if x.Cmp(one) == 0 {
				return false, nil
			}
			if x.Cmp(nMinus1) == 0 {
				witness = false
				break
			}
		}
		if witness {
			return false, nil
		}
	}
	return true, nil
}

// PseudoprimeWithBytes draws n-byte random integers until one passes
// Miller-Rabin with the given number of rounds.
func PseudoprimeWithBytes(random io.Reader, n, rounds int) (*big.Int, error) {
	for {
		candidate, err := RandomWithBytes(random, n)
		if err != nil {
			return nil, err
		}
		ok, err := MillerRabin(random, candidate, rounds)
		if err != nil {
			return nil, err
		}
		if ok {
			return candidate, nil
		}
	}
}
