package dlog_test

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallyu/go-ecdh/internal/crypto/dlog"
	"github.com/smallyu/go-ecdh/internal/crypto/ec"
)

// mediumGenerator returns the curve of 25136 points together with a
// generator of the full group.
func mediumGenerator(t *testing.T) (*ec.Curve, *ec.Point, *big.Int) {
	t.Helper()
	c, err := ec.NewCurve(big.NewInt(1), big.NewInt(2), big.NewInt(300), big.NewInt(25169))
	require.NoError(t, err)
	g, err := c.PickGenerator(rand.Reader)
	require.NoError(t, err)
	return c, g, big.NewInt(25136)
}

func TestAutoShanksEndToEnd(t *testing.T) {
	_, g, n := mediumGenerator(t)
	q := g.Mul(big.NewInt(3343))

	k, err := dlog.AutoShanks(g, q, n)
	require.NoError(t, err)
	assert.Equal(t, int64(3343), k.Int64())
}

func TestPohligHellmanMatchesShanks(t *testing.T) {
	_, g, n := mediumGenerator(t)
	q := g.Mul(big.NewInt(3343))

	k, err := dlog.PohligHellman(g, q, n)
	require.NoError(t, err)
	assert.Equal(t, int64(3343), k.Int64())
}

func TestSolversAcrossExponentRange(t *testing.T) {
	_, g, n := mediumGenerator(t)

	for _, k := range []int64{0, 1, 2, 25135, 12568, 777} {
		q := g.Mul(big.NewInt(k))

		got, err := dlog.AutoShanks(g, q, n)
		require.NoError(t, err, "autoshanks k=%d", k)
		assert.Equal(t, k, got.Int64(), "autoshanks k=%d", k)

		got, err = dlog.PohligHellman(g, q, n)
		require.NoError(t, err, "pohlig-hellman k=%d", k)
		assert.Equal(t, k, got.Int64(), "pohlig-hellman k=%d", k)
	}
}

func TestShanksExplicitSteps(t *testing.T) {
	_, g, _ := mediumGenerator(t)
	q := g.Mul(big.NewInt(200))

	// bs*gs = 15*15 > 200
	k, err := dlog.Shanks(g, q, 15, 15)
	require.NoError(t, err)
	assert.Equal(t, int64(200), k.Int64())

	// The window [0, 100) misses k = 200.
	_, err = dlog.Shanks(g, q, 10, 10)
	assert.ErrorIs(t, err, dlog.ErrNoSolution)
}

func TestShanksReturnsSmallestSolution(t *testing.T) {
	_, g, n := mediumGenerator(t)

	// a of order 16: solutions recur mod 16, the solver must report the
	// least one even with a search window far larger than the order.
	cof := new(big.Int).Div(n, big.NewInt(16))
	a := g.Mul(cof)
	b := a.Mul(big.NewInt(5))

	k, err := dlog.Shanks(a, b, 40, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(5), k.Int64())
}

func TestSolversRejectTargetOutsideSubgroup(t *testing.T) {
	_, g, n := mediumGenerator(t)

	// <2g> is the index-2 subgroup of even multiples; g itself is not in
	// it.
	half := new(big.Int).Rsh(n, 1)
	a := g.Mul(big.NewInt(2))

	_, err := dlog.AutoShanks(a, g, half)
	assert.ErrorIs(t, err, dlog.ErrNoSolution)

	_, err = dlog.PohligHellman(a, g, half)
	assert.ErrorIs(t, err, dlog.ErrNoSolution)
}

func TestAutoShanksIdentityBase(t *testing.T) {
	c, err := ec.NewCurve(big.NewInt(1), big.NewInt(2), big.NewInt(300), big.NewInt(25169))
	require.NoError(t, err)
	o := c.Identity()

	// 0*O = O: the trivial instance has answer 0.
	k, err := dlog.AutoShanks(o, o, big.NewInt(100))
	require.NoError(t, err)
	assert.Zero(t, k.Sign())

	// No multiple of O ever reaches an affine point.
	p, err := c.PickPoint(rand.Reader)
	require.NoError(t, err)
	_, err = dlog.AutoShanks(o, p, big.NewInt(100))
	assert.ErrorIs(t, err, dlog.ErrNoSolution)
}
