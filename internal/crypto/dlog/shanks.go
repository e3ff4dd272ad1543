// Package dlog implements discrete-logarithm solvers over any finite
// abelian group exposing the group.Element interface: Shanks's
// baby-step/giant-step method and the Pohlig-Hellman reduction.
package dlog

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/smallyu/go-ecdh/pkg/group"
)

var (
	// ErrNoSolution is returned when the target is not a multiple of the
	// base within the searched range, i.e. b is not in the subgroup
	// generated by a.
	ErrNoSolution = errors.New("dlog: no solution in range")

	// ErrFactorizationFailed is returned by PohligHellman when the group
	// order could not be fully factored within the factoring budget.
	ErrFactorizationFailed = errors.New("dlog: factorization of the group order failed")
)

// babyEntry is one row of the baby-step table: the canonical encoding of
// j*a together with j.
type babyEntry struct {
	key string
	j   int64
}

// Shanks finds the smallest k in [0, bs*gs) with k*a = b, or returns
// ErrNoSolution. Time is O((bs+gs) log bs), space O(bs).
func Shanks(a, b group.Element, bs, gs int64) (*big.Int, error) {
	if bs <= 0 || gs <= 0 {
		return nil, ErrNoSolution
	}

	// 1. Baby steps: tabulate j*a for j = 0 .. bs-1, keyed by the
	// canonical encoding. Duplicate keys keep the smallest j so that the
	// overall k returned is minimal even when ord(a) < bs.
	table := make([]babyEntry, 0, bs)
	cur := b.Mul(big.NewInt(0)) // identity of the right group
	for j := int64(0); j < bs; j++ {
		table = append(table, babyEntry{key: string(cur.Bytes()), j: j})
		next, err := cur.Add(a)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	sort.Slice(table, func(i, j int) bool {
		if table[i].key != table[j].key {
			return table[i].key < table[j].key
		}
		return table[i].j < table[j].j
	})

	// 2. Giant step: -bs*a.
	step := a.Mul(big.NewInt(bs)).Neg()

	// 3. Probe b, b+step, b+2*step, ...
	probe := b
	for i := int64(0); i < gs; i++ {
		key := string(probe.Bytes())
		idx := sort.Search(len(table), func(n int) bool { return table[n].key >= key })
		if idx < len(table) && table[idx].key == key {
			k := big.NewInt(i)
			k.Mul(k, big.NewInt(bs))
			k.Add(k, big.NewInt(table[idx].j))
			return k, nil
		}
		next, err := probe.Add(step)
		if err != nil {
			return nil, err
		}
		probe = next
	}

	return nil, ErrNoSolution
}

// AutoShanks runs Shanks with bs = gs = ceil(sqrt(n)), covering the full
// range [0, n) of exponents for a group of order n.
func AutoShanks(a, b group.Element, n *big.Int) (*big.Int, error) {
	if n.Sign() <= 0 {
		return nil, ErrNoSolution
	}

	m := new(big.Int).Sqrt(n)
	if new(big.Int).Mul(m, m).Cmp(n) < 0 {
		m.Add(m, big.NewInt(1))
	}
	if !m.IsInt64() {
		return nil, fmt.Errorf("dlog: baby-step table of %s entries is not realizable", m)
	}

	return Shanks(a, b, m.Int64(), m.Int64())
}
