package qflow

import (
	"github.com/qflow-sim/qflow/eint"
	"github.com/qflow-sim/qflow/qexpr"
	"github.com/qflow-sim/qflow/qstate"
)

// These aliases let callers write qflow.Expr / qflow.Key / qflow.Int instead
// of reaching into the sub-packages directly, mirroring how the teacher's
// erigon-lib re-exports its low-level types from a handful of facade
// packages.
type (
	Expr  = qexpr.Expr
	Key   = qstate.Key
	Int   = eint.Int
	Label = qexpr.Label
)

var (
	Const      = qexpr.Const
	ConstInt   = qexpr.ConstInt
	ConstFloat = qexpr.ConstFloat
	Reg        = qexpr.Reg
	Range      = qexpr.Range
	Add        = qexpr.Add
	Sub        = qexpr.Sub
	Mod        = qexpr.Mod
	Neg        = qexpr.Neg
	Eq         = qexpr.Eq
	Ne         = qexpr.Ne
	Lt         = qexpr.Lt
	Le         = qexpr.Le
	Gt         = qexpr.Gt
	Ge         = qexpr.Ge
	And        = qexpr.And
	Or         = qexpr.Or
	Not        = qexpr.Not
	Bit        = qexpr.Bit
	PhasePi    = qexpr.PhaseTimesPi
	Phase2Pi   = qexpr.PhaseTimes2Pi
)
