package qstate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qflow-sim/qflow/eint"
	"github.com/qflow-sim/qflow/qstate"
)

func TestBranchCopyIsIndependent(t *testing.T) {
	var reg qstate.Registry
	key := reg.NewKey()
	id := reg.Alloc(key)

	b := qstate.NewBranch()
	b.Set(id, eint.New(1))

	c := b.Copy()
	c.Set(id, eint.New(2))

	v, _ := b.Get(id)
	require.Equal(t, int64(1), v.Int64())
	v, _ = c.Get(id)
	require.Equal(t, int64(2), v.Int64())
}

func TestBranchEqualIgnoresAmplitude(t *testing.T) {
	var reg qstate.Registry
	key := reg.NewKey()
	id := reg.Alloc(key)

	a := qstate.NewBranch()
	a.Set(id, eint.New(5))
	a.Amp = 1

	b := qstate.NewBranch()
	b.Set(id, eint.New(5))
	b.Amp = -1

	require.True(t, a.Equal(b))
}

func TestBranchEqualExceptSkipsOneRegister(t *testing.T) {
	var reg qstate.Registry
	k1 := reg.NewKey()
	id1 := reg.Alloc(k1)
	k2 := reg.NewKey()
	id2 := reg.Alloc(k2)

	a := qstate.NewBranch()
	a.Set(id1, eint.New(1))
	a.Set(id2, eint.New(9))

	b := qstate.NewBranch()
	b.Set(id1, eint.New(1))
	b.Set(id2, eint.New(100))

	require.False(t, a.Equal(b))
	require.True(t, a.EqualExcept(b, id2))
}

func TestMergeSumsAmplitudesOfStructurallyEqualBranches(t *testing.T) {
	var reg qstate.Registry
	key := reg.NewKey()
	id := reg.Alloc(key)

	a := qstate.NewBranch()
	a.Set(id, eint.New(1))
	a.Amp = 0.5

	b := qstate.NewBranch()
	b.Set(id, eint.New(1))
	b.Amp = 0.5

	c := qstate.NewBranch()
	c.Set(id, eint.New(2))
	c.Amp = 1

	merged := qstate.Merge([]*qstate.Branch{a, b, c})
	require.Len(t, merged, 2)

	var total complex128
	for _, m := range merged {
		v, _ := m.Get(id)
		if v.Int64() == 1 {
			total = m.Amp
		}
	}
	require.Equal(t, complex128(1), total)
}

func TestPruneDropsBelowThresholdAndRenormalizes(t *testing.T) {
	var reg qstate.Registry
	key := reg.NewKey()
	id := reg.Alloc(key)

	keep := qstate.NewBranch()
	keep.Set(id, eint.New(0))
	keep.Amp = complex(0.6, 0)

	drop := qstate.NewBranch()
	drop.Set(id, eint.New(1))
	drop.Amp = complex(1e-12, 0)

	kept, dropped := qstate.Prune([]*qstate.Branch{keep, drop}, 1e-10)
	require.Equal(t, 1, dropped)
	require.Len(t, kept, 1)
	require.InDelta(t, 1.0, real(kept[0].Amp), 1e-9)
}

func TestMergeAndPruneRoundTripNormalizes(t *testing.T) {
	var reg qstate.Registry
	key := reg.NewKey()
	id := reg.Alloc(key)

	branches := make([]*qstate.Branch, 0, 4)
	for i := 0; i < 4; i++ {
		b := qstate.NewBranch()
		b.Set(id, eint.New(int64(i%2)))
		b.Amp = complex(0.5, 0)
		branches = append(branches, b)
	}

	merged, dropped := qstate.MergeAndPrune(branches, 1e-10)
	require.Equal(t, 0, dropped)
	require.Len(t, merged, 2)

	var normSq float64
	for _, m := range merged {
		normSq += real(m.Amp)*real(m.Amp) + imag(m.Amp)*imag(m.Amp)
	}
	require.InDelta(t, 1.0, normSq, 1e-9)
}

func TestRegistryAllocDeallocNeverReusesIDs(t *testing.T) {
	var reg qstate.Registry
	key := reg.NewKey()
	id1 := reg.Alloc(key)
	_, err := reg.Dealloc(key)
	require.NoError(t, err)
	id2 := reg.Alloc(key)
	require.NotEqual(t, id1, id2)
}

func TestKeyIndexErrorsWhenUnallocated(t *testing.T) {
	var reg qstate.Registry
	key := reg.NewKey()
	_, err := key.Index()
	require.Error(t, err)
}
