package qexpr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qflow-sim/qflow/eint"
	"github.com/qflow-sim/qflow/qexpr"
	"github.com/qflow-sim/qflow/qstate"
)

func TestConstAndArithmetic(t *testing.T) {
	b := qstate.NewBranch()
	sum := qexpr.Add(qexpr.Const(3), qexpr.Const(4))
	v, err := sum.Eval(b)
	require.NoError(t, err)
	iv, err := v.Int()
	require.NoError(t, err)
	require.Equal(t, int64(7), iv.Int64())
}

func TestModIsEuclidean(t *testing.T) {
	b := qstate.NewBranch()
	m := qexpr.Mod(qexpr.Const(-1), qexpr.Const(4))
	v, err := m.Eval(b)
	require.NoError(t, err)
	iv, err := v.Int()
	require.NoError(t, err)
	require.Equal(t, int64(3), iv.Int64())
}

func TestRegReadsCurrentBranchValue(t *testing.T) {
	var reg qstate.Registry
	key := reg.NewKey()
	id := reg.Alloc(key)
	b := qstate.NewBranch()
	b.Set(id, eint.New(42))

	v, err := qexpr.Reg(key).Eval(b)
	require.NoError(t, err)
	iv, err := v.Int()
	require.NoError(t, err)
	require.Equal(t, int64(42), iv.Int64())
}

func TestKeysUnion(t *testing.T) {
	var reg qstate.Registry
	k1 := reg.NewKey()
	reg.Alloc(k1)
	k2 := reg.NewKey()
	reg.Alloc(k2)

	e := qexpr.Add(qexpr.Reg(k1), qexpr.Reg(k2))
	ks := e.Keys()
	require.True(t, ks.Contains(k1))
	require.True(t, ks.Contains(k2))
}

func TestCompareOperators(t *testing.T) {
	b := qstate.NewBranch()
	cases := []struct {
		name string
		e    qexpr.Expr
		want int64
	}{
		{"eq-true", qexpr.Eq(qexpr.Const(5), qexpr.Const(5)), 1},
		{"eq-false", qexpr.Eq(qexpr.Const(5), qexpr.Const(6)), 0},
		{"lt-true", qexpr.Lt(qexpr.Const(1), qexpr.Const(2)), 1},
		{"ge-false", qexpr.Ge(qexpr.Const(1), qexpr.Const(2)), 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v, err := c.e.Eval(b)
			require.NoError(t, err)
			iv, err := v.Int()
			require.NoError(t, err)
			require.Equal(t, c.want, iv.Int64())
		})
	}
}

func TestBooleanCombinators(t *testing.T) {
	b := qstate.NewBranch()
	and := qexpr.And(qexpr.Const(1), qexpr.Const(0))
	v, err := and.Eval(b)
	require.NoError(t, err)
	require.True(t, v.IsZero())

	or := qexpr.Or(qexpr.Const(1), qexpr.Const(0))
	v, err = or.Eval(b)
	require.NoError(t, err)
	require.False(t, v.IsZero())

	not := qexpr.Not(qexpr.Const(0))
	v, err = not.Eval(b)
	require.NoError(t, err)
	require.False(t, v.IsZero())
}

func TestBitReadsLSBIndexedBit(t *testing.T) {
	b := qstate.NewBranch()
	e := qexpr.Bit(qexpr.Const(0b101), qexpr.Const(2))
	v, err := e.Eval(b)
	require.NoError(t, err)
	iv, err := v.Int()
	require.NoError(t, err)
	require.Equal(t, int64(1), iv.Int64())
}

func TestFloatExpressionsRejectIntCoercion(t *testing.T) {
	b := qstate.NewBranch()
	f := qexpr.ConstFloat(1.5)
	require.True(t, f.Float())
	v, err := f.Eval(b)
	require.NoError(t, err)
	_, err = v.Int()
	require.Error(t, err)
}

func TestPhaseScalingHelpers(t *testing.T) {
	b := qstate.NewBranch()
	pi := qexpr.PhaseTimesPi(qexpr.Const(1))
	v, err := pi.Eval(b)
	require.NoError(t, err)
	require.InDelta(t, 3.14159265, v.Float(), 1e-6)

	neg := qexpr.NegFloat(qexpr.ConstFloat(2))
	v, err = neg.Eval(b)
	require.NoError(t, err)
	require.Equal(t, -2.0, v.Float())
}

func TestLabelEvalErrors(t *testing.T) {
	b := qstate.NewBranch()
	l := qexpr.Label{Text: "result"}
	_, err := l.Eval(b)
	require.Error(t, err)
	require.Empty(t, l.Keys())
	require.False(t, l.Float())
}
