package dlog

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/smallyu/go-ecdh/pkg/group"
)

// PohligHellman finds k in [0, n) with k*a = b, where n is the order of
// a. The problem is reduced to one discrete log per prime-power factor
// of n, each solved digit by digit with AutoShanks over a group of prime
// order, and the partial results are recombined by the Chinese remainder
// theorem.
//
// Returns ErrNoSolution when b is not in the subgroup generated by a and
// ErrFactorizationFailed when n resists the factoring budget.
func PohligHellman(a, b group.Element, n *big.Int) (*big.Int, error) {
	if n.Sign() <= 0 {
		return nil, ErrNoSolution
	}

	factors, err := Factor(n)
	if err != nil {
		return nil, err
	}

	residues := make([]*big.Int, 0, len(factors))
	moduli := make([]*big.Int, 0, len(factors))

	for _, pp := range factors {
		// q = p^e, the subgroup this factor is responsible for.
		q := new(big.Int).Exp(pp.P, big.NewInt(int64(pp.E)), nil)
		cofactor := new(big.Int).Div(n, q)

		// a_i has order q; b_i is the target pushed into <a_i>.
		ai := a.Mul(cofactor)
		bi := b.Mul(cofactor)

		ki, err := prefixDigits(ai, bi, pp.P, pp.E)
		if err != nil {
			return nil, err
		}

		residues = append(residues, ki)
		moduli = append(moduli, q)
	}

	return crt(residues, moduli)
}

// prefixDigits solves x*ai = bi for x in [0, p^e) where ai has order
// p^e, recovering x one base-p digit at a time.
func prefixDigits(ai, bi group.Element, p *big.Int, e int) (*big.Int, error) {
	// gamma = p^(e-1)*ai generates the order-p subgroup every digit
	// equation lives in.
	pe1 := new(big.Int).Exp(p, big.NewInt(int64(e-1)), nil)
	gamma := ai.Mul(pe1)

	x := new(big.Int)
	pd := big.NewInt(1) // p^d

	for d := 0; d < e; d++ {
		// t = p^(e-1-d) * (bi - x*ai)
		shift := new(big.Int).Exp(p, big.NewInt(int64(e-1-d)), nil)
		adj, err := bi.Add(ai.Mul(new(big.Int).Neg(x)))
		if err != nil {
			return nil, err
		}
		t := adj.Mul(shift)

		digit, err := AutoShanks(gamma, t, p)
		if err != nil {
			if errors.Is(err, ErrNoSolution) {
				return nil, ErrNoSolution
			}
			return nil, err
		}

		x.Add(x, new(big.Int).Mul(digit, pd))
		pd.Mul(pd, p)
	}

	return x, nil
}

// crt recombines x ≡ residues[i] (mod moduli[i]) for pairwise coprime
// moduli into the unique x modulo their product.
func crt(residues, moduli []*big.Int) (*big.Int, error) {
	modulus := big.NewInt(1)
	for _, m := range moduli {
		modulus.Mul(modulus, m)
	}

	x := new(big.Int)
	for i := range residues {
		mi := new(big.Int).Div(modulus, moduli[i])
		inv := new(big.Int).ModInverse(mi, moduli[i])
		if inv == nil {
			return nil, fmt.Errorf("dlog: moduli %s and %s are not coprime", mi, moduli[i])
		}
		term := new(big.Int).Mul(residues[i], mi)
		term.Mul(term, inv)
		x.Add(x, term)
	}

	return x.Mod(x, modulus), nil
}
