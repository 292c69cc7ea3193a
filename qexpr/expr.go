// Package qexpr implements the expression contract spec.md §6 assigns to
// the (out-of-module, in the Python original) expression tree: a
// closed-form function of a branch, a set of referenced key ids, and a
// flag saying whether evaluation can produce a non-integer result.
//
// Go has no operator overloading, so expressions are built by composing
// constructor functions (Add(a, b), Eq(a, b), ...) rather than by writing
// ordinary arithmetic syntax the way the embedded DSL's host language
// allows.
package qexpr

import (
	"fmt"
	"math"
	"math/big"

	"github.com/qflow-sim/qflow/eint"
	"github.com/qflow-sim/qflow/qerr"
	"github.com/qflow-sim/qflow/qstate"
)

// KeySet is the set of key ids an expression reads (spec.md §3 "Key").
type KeySet map[uint64]struct{}

// Union returns the union of a and b, allocating a fresh set.
func (a KeySet) Union(b KeySet) KeySet {
	out := make(KeySet, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

// Contains reports whether key's id is in the set.
func (a KeySet) Contains(key *qstate.Key) bool {
	_, ok := a[key.ID()]
	return ok
}

func single(key *qstate.Key) KeySet { return KeySet{key.ID(): {}} }

// Value is the result of evaluating an expression against a branch: either
// an enriched integer or a float, per spec.md §6.
type Value struct {
	i       eint.Int
	f       float64
	isFloat bool
}

// IntValue wraps an enriched integer result.
func IntValue(v eint.Int) Value { return Value{i: v} }

// FloatValue wraps a floating-point result.
func FloatValue(f float64) Value { return Value{f: f, isFloat: true} }

// IsFloat reports whether this particular result is a float.
func (v Value) IsFloat() bool { return v.isFloat }

// Int returns the enriched-integer view, erroring if v holds a float.
func (v Value) Int() (eint.Int, error) {
	if v.isFloat {
		return eint.Int{}, qerr.Typef("expected integer result, got float %v", v.f)
	}
	return v.i, nil
}

// Float returns the floating-point view, widening an integer result.
func (v Value) Float() float64 {
	if v.isFloat {
		return v.f
	}
	bi := v.i.Value()
	f, _ := new(big.Float).SetInt(bi).Float64()
	return f
}

// IsZero reports whether v is the control-flow "false" value (spec.md §3
// "Controls": a branch is active when every control evaluates to nonzero).
func (v Value) IsZero() bool {
	if v.isFloat {
		return v.f == 0
	}
	return v.i.IsZero()
}

// Expr is the expression contract (spec.md §6): eval(branch) -> enriched
// integer or float, keys() -> set of referenced key ids, float flag.
type Expr interface {
	Eval(b *qstate.Branch) (Value, error)
	Keys() KeySet
	// Float reports whether evaluation may ever return a non-integer
	// result: statically known for every node in this package.
	Float() bool
}

// fn adapts a closure into an Expr; used internally by every constructor
// below so new node kinds are just a function literal plus a KeySet.
type fn struct {
	eval  func(*qstate.Branch) (Value, error)
	keys  KeySet
	float bool
}

func (e fn) Eval(b *qstate.Branch) (Value, error) { return e.eval(b) }
func (e fn) Keys() KeySet                         { return e.keys }
func (e fn) Float() bool                          { return e.float }

// Const lifts a plain integer literal into a constant expression.
func Const(v int64) Expr {
	val := IntValue(eint.New(v))
	return fn{eval: func(*qstate.Branch) (Value, error) { return val, nil }, keys: KeySet{}}
}

// ConstInt lifts an enriched integer literal into a constant expression.
func ConstInt(v eint.Int) Expr {
	val := IntValue(v)
	return fn{eval: func(*qstate.Branch) (Value, error) { return val, nil }, keys: KeySet{}}
}

// ConstFloat lifts a floating-point literal into a constant expression.
func ConstFloat(v float64) Expr {
	val := FloatValue(v)
	return fn{eval: func(*qstate.Branch) (Value, error) { return val, nil }, keys: KeySet{}, float: true}
}

// Label wraps a plain string as an Expr whose Eval always errors: it
// exists only so dist/print/print_amp can accept a raw string as a group
// label the way original_source/qumquat/main.py's `cast` helper does for
// its Python str arguments. The label text is read back from its Text field.
type Label struct {
	Text string
}

func (l Label) Eval(*qstate.Branch) (Value, error) {
	return Value{}, qerr.Typef("label expressions cannot be evaluated numerically")
}
func (l Label) Keys() KeySet { return KeySet{} }
func (l Label) Float() bool  { return false }

// Reg reads key's current register value.
func Reg(key *qstate.Key) Expr {
	return fn{
		eval: func(b *qstate.Branch) (Value, error) {
			id, err := key.Index()
			if err != nil {
				return Value{}, err
			}
			v, ok := b.Get(id)
			if !ok {
				return Value{}, qerr.Structuralf("register for key %d not present on branch", key.ID())
			}
			return IntValue(v), nil
		},
		keys: single(key),
	}
}

// Range expands to a uniform-superposition literal list [0..n).
func Range(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i)
	}
	return out
}

func binaryInt(a, b Expr, name string, op func(x, y eint.Int) eint.Int) Expr {
	return fn{
		eval: func(br *qstate.Branch) (Value, error) {
			av, err := evalInt(a, br)
			if err != nil {
				return Value{}, fmt.Errorf("%s: left operand: %w", name, err)
			}
			bv, err := evalInt(b, br)
			if err != nil {
				return Value{}, fmt.Errorf("%s: right operand: %w", name, err)
			}
			return IntValue(op(av, bv)), nil
		},
		keys: a.Keys().Union(b.Keys()),
	}
}

func evalInt(e Expr, b *qstate.Branch) (eint.Int, error) {
	v, err := e.Eval(b)
	if err != nil {
		return eint.Int{}, err
	}
	return v.Int()
}

// EvalInt evaluates e against b and requires an integer result, for use by
// the engine package's primitives (which operate on enriched integers, not
// raw Values).
func EvalInt(e Expr, b *qstate.Branch) (eint.Int, error) { return evalInt(e, b) }

// NegFloat builds the floating-point negation of a, used by phase_inv
// (spec.md §4.9: "phase_inv negates theta").
func NegFloat(a Expr) Expr { return scaleFloat(a, -1) }

// Add builds a+b.
func Add(a, b Expr) Expr { return binaryInt(a, b, "add", eint.Int.Add) }

// Sub builds a-b.
func Sub(a, b Expr) Expr { return binaryInt(a, b, "sub", eint.Int.Sub) }

// Mod builds a mod b (Euclidean, matching spec.md's QFT semantics).
func Mod(a, b Expr) Expr { return binaryInt(a, b, "mod", eint.Int.Mod) }

// Neg builds -a.
func Neg(a Expr) Expr {
	return fn{
		eval: func(br *qstate.Branch) (Value, error) {
			av, err := evalInt(a, br)
			if err != nil {
				return Value{}, err
			}
			return IntValue(eint.Zero().Sub(av)), nil
		},
		keys: a.Keys(),
	}
}

func compare(a, b Expr, name string, ok func(c int) bool) Expr {
	return fn{
		eval: func(br *qstate.Branch) (Value, error) {
			av, err := evalInt(a, br)
			if err != nil {
				return Value{}, fmt.Errorf("%s: left operand: %w", name, err)
			}
			bv, err := evalInt(b, br)
			if err != nil {
				return Value{}, fmt.Errorf("%s: right operand: %w", name, err)
			}
			return IntValue(eint.NewBool(ok(av.Cmp(bv)))), nil
		},
		keys: a.Keys().Union(b.Keys()),
	}
}

// Eq builds a==b as a {0,1} result.
func Eq(a, b Expr) Expr { return compare(a, b, "eq", func(c int) bool { return c == 0 }) }

// Ne builds a!=b.
func Ne(a, b Expr) Expr { return compare(a, b, "ne", func(c int) bool { return c != 0 }) }

// Lt builds a<b.
func Lt(a, b Expr) Expr { return compare(a, b, "lt", func(c int) bool { return c < 0 }) }

// Le builds a<=b.
func Le(a, b Expr) Expr { return compare(a, b, "le", func(c int) bool { return c <= 0 }) }

// Gt builds a>b.
func Gt(a, b Expr) Expr { return compare(a, b, "gt", func(c int) bool { return c > 0 }) }

// Ge builds a>=b.
func Ge(a, b Expr) Expr { return compare(a, b, "ge", func(c int) bool { return c >= 0 }) }

// And builds the boolean AND of a and b's truthiness, as a {0,1} result.
func And(a, b Expr) Expr {
	return fn{
		eval: func(br *qstate.Branch) (Value, error) {
			av, err := a.Eval(br)
			if err != nil {
				return Value{}, err
			}
			bv, err := b.Eval(br)
			if err != nil {
				return Value{}, err
			}
			return IntValue(eint.NewBool(!av.IsZero() && !bv.IsZero())), nil
		},
		keys: a.Keys().Union(b.Keys()),
	}
}

// Or builds the boolean OR of a and b's truthiness.
func Or(a, b Expr) Expr {
	return fn{
		eval: func(br *qstate.Branch) (Value, error) {
			av, err := a.Eval(br)
			if err != nil {
				return Value{}, err
			}
			bv, err := b.Eval(br)
			if err != nil {
				return Value{}, err
			}
			return IntValue(eint.NewBool(!av.IsZero() || !bv.IsZero())), nil
		},
		keys: a.Keys().Union(b.Keys()),
	}
}

// Not builds the boolean negation of a's truthiness.
func Not(a Expr) Expr {
	return fn{
		eval: func(br *qstate.Branch) (Value, error) {
			av, err := a.Eval(br)
			if err != nil {
				return Value{}, err
			}
			return IntValue(eint.NewBool(av.IsZero())), nil
		},
		keys: a.Keys(),
	}
}

// Bit reads the bitExpr'th bit (LSB=0) of a's current value, per spec.md's
// Hadamard/cnot primitives which index into a register's bits by
// expression.
func Bit(a, bitExpr Expr) Expr {
	return fn{
		eval: func(br *qstate.Branch) (Value, error) {
			av, err := evalInt(a, br)
			if err != nil {
				return Value{}, err
			}
			bitv, err := evalInt(bitExpr, br)
			if err != nil {
				return Value{}, err
			}
			n := bitv.Int64()
			if n < 0 {
				return Value{}, qerr.Semanticf("bit index %d is negative", n)
			}
			return IntValue(eint.New(int64(av.Bit(int(n))))), nil
		},
		keys: a.Keys().Union(bitExpr.Keys()),
	}
}

// PhaseTimesPi and PhaseTimes2Pi build theta*pi / theta*2*pi float
// expressions, grounded on original_source/qumquat/main.py's phase_pi and
// phase_2pi convenience wrappers.
func PhaseTimesPi(theta Expr) Expr  { return scaleFloat(theta, math.Pi) }
func PhaseTimes2Pi(theta Expr) Expr { return scaleFloat(theta, 2*math.Pi) }

func scaleFloat(a Expr, factor float64) Expr {
	return fn{
		eval: func(br *qstate.Branch) (Value, error) {
			v, err := a.Eval(br)
			if err != nil {
				return Value{}, err
			}
			return FloatValue(v.Float() * factor), nil
		},
		keys:  a.Keys(),
		float: true,
	}
}
