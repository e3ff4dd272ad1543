package dlog

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactorSmall(t *testing.T) {
	cases := []struct {
		n    int64
		want map[int64]int
	}{
		{2, map[int64]int{2: 1}},
		{976, map[int64]int{2: 4, 61: 1}},
		{25136, map[int64]int{2: 4, 1571: 1}},
		{3600, map[int64]int{2: 4, 3: 2, 5: 2}},
		{1, map[int64]int{}},
		{104729, map[int64]int{104729: 1}}, // the 10000th prime
	}

	for _, tc := range cases {
		factors, err := Factor(big.NewInt(tc.n))
		require.NoError(t, err, "n=%d", tc.n)

		got := make(map[int64]int, len(factors))
		prod := big.NewInt(1)
		for _, f := range factors {
			got[f.P.Int64()] = f.E
			pe := new(big.Int).Exp(f.P, big.NewInt(int64(f.E)), nil)
			prod.Mul(prod, pe)
		}
		assert.Equal(t, tc.want, got, "n=%d", tc.n)
		assert.Equal(t, tc.n, prod.Int64(), "factors of %d multiply back", tc.n)
	}
}

func TestFactorSorted(t *testing.T) {
	factors, err := Factor(big.NewInt(2 * 3 * 5 * 7 * 11))
	require.NoError(t, err)
	for i := 1; i < len(factors); i++ {
		assert.True(t, factors[i-1].P.Cmp(factors[i].P) < 0)
	}
}

func TestFactorLargeSemiprime(t *testing.T) {
	// Both primes sit above the trial-division bound, forcing rho.
	p, _ := new(big.Int).SetString("1000003", 10)
	q, _ := new(big.Int).SetString("1000033", 10)
	n := new(big.Int).Mul(p, q)

	factors, err := Factor(n)
	require.NoError(t, err)
	require.Len(t, factors, 2)
	assert.Zero(t, factors[0].P.Cmp(p))
	assert.Zero(t, factors[1].P.Cmp(q))
}

func TestFactorPerfectSquare(t *testing.T) {
	// 1000003^2: rho's walk degenerates on squares, the direct square
	// check has to catch it.
	p, _ := new(big.Int).SetString("1000003", 10)
	n := new(big.Int).Mul(p, p)

	factors, err := Factor(n)
	require.NoError(t, err)
	require.Len(t, factors, 1)
	assert.Zero(t, factors[0].P.Cmp(p))
	assert.Equal(t, 2, factors[0].E)
}

func TestFactorRejectsNonPositive(t *testing.T) {
	_, err := Factor(big.NewInt(0))
	assert.ErrorIs(t, err, ErrFactorizationFailed)
}

func TestCRT(t *testing.T) {
	// x ≡ 2 (mod 3), x ≡ 3 (mod 5), x ≡ 2 (mod 7) -> x = 23 (Sunzi's
	// classic instance).
	x, err := crt(
		[]*big.Int{big.NewInt(2), big.NewInt(3), big.NewInt(2)},
		[]*big.Int{big.NewInt(3), big.NewInt(5), big.NewInt(7)},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(23), x.Int64())
}

func TestCRTNonCoprime(t *testing.T) {
	_, err := crt(
		[]*big.Int{big.NewInt(1), big.NewInt(2)},
		[]*big.Int{big.NewInt(4), big.NewInt(6)},
	)
	assert.Error(t, err)
}
