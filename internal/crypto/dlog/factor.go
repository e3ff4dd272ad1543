package dlog

import (
	"math/big"
	"sort"
)

// PrimePower is one term p^e of a prime factorization.
type PrimePower struct {
	P *big.Int
	E int
}

const (
	trialDivisionBound = 1 << 16
	rhoIterationBudget = 1 << 21
	rhoPolynomialTries = 24
	millerRabinRounds  = 32
)

// Factor returns the full prime factorization of n > 0, smallest prime
// first. Small factors are removed by trial division; the remaining
// cofactor is split recursively with Pollard's rho.
// Returns ErrFactorizationFailed when the budget is exhausted before the
// cofactor is fully split.
func Factor(n *big.Int) ([]PrimePower, error) {
	if n.Sign() <= 0 {
		return nil, ErrFactorizationFailed
	}

	exps := make(map[string]*PrimePower)
	addFactor := func(p *big.Int) {
		key := p.String()
		if f, ok := exps[key]; ok {
			f.E++
			return
		}
		exps[key] = &PrimePower{P: new(big.Int).Set(p), E: 1}
	}

	rest := new(big.Int).Set(n)

	// 1. Trial division by 2 and odd candidates up to the bound.
	d := big.NewInt(2)
	for rest.Bit(0) == 0 {
		rest.Rsh(rest, 1)
		addFactor(d)
	}
	d = big.NewInt(3)
	limit := big.NewInt(trialDivisionBound)
	rem := new(big.Int)
	for d.Cmp(limit) <= 0 {
		sq := new(big.Int).Mul(d, d)
		if sq.Cmp(rest) > 0 {
			break
		}
		q, r := new(big.Int).QuoRem(rest, d, rem)
		if r.Sign() == 0 {
			rest.Set(q)
			addFactor(d)
			continue
		}
		d.Add(d, big.NewInt(2))
	}

	// 2. Split what is left with Pollard's rho.
	if err := splitCofactor(rest, addFactor); err != nil {
		return nil, err
	}

	out := make([]PrimePower, 0, len(exps))
	for _, f := range exps {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].P.Cmp(out[j].P) < 0 })
	return out, nil
}

func splitCofactor(n *big.Int, addFactor func(*big.Int)) error {
	one := big.NewInt(1)
	if n.Cmp(one) == 0 {
		return nil
	}
	if n.ProbablyPrime(millerRabinRounds) {
		addFactor(n)
		return nil
	}

	f := pollardRho(n)
	if f == nil {
		return ErrFactorizationFailed
	}
	if err := splitCofactor(f, addFactor); err != nil {
		return err
	}
	return splitCofactor(new(big.Int).Div(n, f), addFactor)
}

// pollardRho finds a non-trivial factor of composite n, or nil when the
// iteration budget runs out. Floyd cycle finding.
func pollardRho(n *big.Int) *big.Int {
	one := big.NewInt(1)
	two := big.NewInt(2)

	// Perfect squares defeat rho's random walk; peel them off directly.
	root := new(big.Int).Sqrt(n)
	if new(big.Int).Mul(root, root).Cmp(n) == 0 {
		return root
	}

	f := func(x, c *big.Int) *big.Int {
		y := new(big.Int).Mul(x, x)
		y.Add(y, c)
		return y.Mod(y, n)
	}

	for try := int64(1); try <= rhoPolynomialTries; try++ {
		c := big.NewInt(try)
		x := new(big.Int).Set(two)
		y := new(big.Int).Set(two)
		d := new(big.Int).Set(one)

		for i := 0; i < rhoIterationBudget && d.Cmp(one) == 0; i++ {
			x = f(x, c)
			y = f(f(y, c), c)
			diff := new(big.Int).Sub(x, y)
			diff.Abs(diff)
			if diff.Sign() == 0 {
				d.Set(n) // cycle collapsed, retry with the next c
				break
			}
			d.GCD(nil, nil, diff, n)
		}

		if d.Cmp(one) > 0 && d.Cmp(n) < 0 {
			return d
		}
	}
	return nil
}
