package qflow

import "github.com/qflow-sim/qflow/qerr"

// valKind distinguishes init/perp_init's three argument shapes (spec.md
// §4.5/§4.6: "val may be an expression, a list of distinct integers for a
// uniform superposition, or a dict-like mapping for a weighted one").
type valKind int

const (
	valScalar valKind = iota
	valUniform
	valWeighted
)

// Val is the tagged argument init, init_inv, perp_init, and perp_init_inv
// all take in place of the Python reference's duck-typed val parameter
// (Expression | list | dict).
type Val struct {
	kind     valKind
	scalar   Expr
	uniform  []int64
	weighted map[int64]Expr
}

// ScalarVal builds the single-expression init variant.
func ScalarVal(e Expr) Val { return Val{kind: valScalar, scalar: e} }

// IntVal builds a scalar init variant from a plain integer.
func IntVal(v int64) Val { return ScalarVal(Const(v)) }

// KeyVal builds a scalar init variant that copies another register's value.
func KeyVal(k *Key) Val { return ScalarVal(Reg(k)) }

// UniformVal builds the uniform-superposition init variant over a list of
// distinct classical values.
func UniformVal(xs []int64) Val { return Val{kind: valUniform, uniform: xs} }

// WeightedVal builds the QRAM-style weighted init variant: amplitude for
// each key is proportional to its expression's value on the current
// branch, normalized across the whole map (spec.md §4.5 "dict").
func WeightedVal(m map[int64]Expr) Val { return Val{kind: valWeighted, weighted: m} }

func ensureDistinct(xs []int64) error {
	seen := make(map[int64]struct{}, len(xs))
	for _, x := range xs {
		if _, ok := seen[x]; ok {
			return qerr.Structuralf("uniform superposition list contains duplicate value %d", x)
		}
		seen[x] = struct{}{}
	}
	if len(xs) == 0 {
		return qerr.Structuralf("uniform superposition list must not be empty")
	}
	return nil
}
