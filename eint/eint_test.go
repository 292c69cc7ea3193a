package eint_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qflow-sim/qflow/eint"
)

func TestNewAndValue(t *testing.T) {
	require.Equal(t, int64(5), eint.New(5).Int64())
	require.Equal(t, int64(-5), eint.New(-5).Int64())
	require.True(t, eint.Zero().IsZero())
}

func TestBitReadWriteExtendsWidth(t *testing.T) {
	z := eint.Zero()
	require.Equal(t, uint(0), z.Bit(70))

	z = z.SetBit(70, 1)
	require.Equal(t, uint(1), z.Bit(70))
	require.True(t, z.BitLen() >= 71)
	require.Equal(t, uint(0), z.Bit(0))
}

func TestSignIndependentOfMagnitude(t *testing.T) {
	a := eint.New(3)
	b := a.SetSign(true)
	require.True(t, b.Sign())
	// Value() is driven purely by sign+magnitude, so SetSign does flip it.
	require.Equal(t, int64(-3), b.Value().Int64())

	// but two zero-valued ints with different sign flags are still Equal,
	// because Equal is a structural/value comparison (branch merging uses
	// this), not a representation comparison.
	z1 := eint.Zero()
	z2 := eint.Zero().SetSign(true)
	require.True(t, z1.Equal(z2))
}

func TestModMatchesPythonFloorSemantics(t *testing.T) {
	cases := []struct{ v, m, want int64 }{
		{7, 4, 3},
		{-1, 4, 3},
		{-5, 4, 3},
		{5, 4, 1},
	}
	for _, c := range cases {
		got := eint.New(c.v).Mod(eint.New(c.m)).Int64()
		require.Equal(t, c.want, got, "mod(%d,%d)", c.v, c.m)
	}
}

func TestAddSub(t *testing.T) {
	require.Equal(t, int64(7), eint.New(3).Add(eint.New(4)).Int64())
	require.Equal(t, int64(-1), eint.New(3).Sub(eint.New(4)).Int64())
}

func TestCopyIndependence(t *testing.T) {
	a := eint.New(1)
	b := a.Copy().SetBit(3, 1)
	require.Equal(t, int64(1), a.Int64())
	require.NotEqual(t, a.Int64(), b.Int64())
}

func TestFingerprintRoundTrip(t *testing.T) {
	v := eint.New(12345)
	mag, neg, ok := v.Fingerprint()
	require.True(t, ok)
	require.False(t, neg)
	require.Equal(t, "12345", mag.Dec())

	n := eint.New(-12345)
	mag, neg, ok = n.Fingerprint()
	require.True(t, ok)
	require.True(t, neg)
	require.Equal(t, "12345", mag.Dec())
}

func TestFingerprintOverflow(t *testing.T) {
	huge := eint.NewFromBig(new(big.Int).Lsh(big.NewInt(1), 300))
	_, _, ok := huge.Fingerprint()
	require.False(t, ok)
}
