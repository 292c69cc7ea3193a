package qflow

import (
	"math/cmplx"

	"github.com/qflow-sim/qflow/eint"
	"github.com/qflow-sim/qflow/qerr"
	"github.com/qflow-sim/qflow/qexpr"
	"github.com/qflow-sim/qflow/qstate"
)

// OperFunc computes a register's new value from the current branch and
// the register's current value. Oper/OperInv pass a branch's classical
// view, not the raw register id, so callers never need to re-derive the
// target key's id themselves (spec.md §4.9 "oper").
type OperFunc func(b *qstate.Branch, cur eint.Int) (eint.Int, error)

type operArgs struct {
	Key      *Key
	Expr     Expr
	Do, Undo OperFunc
}

// Oper applies do to key's register on every active branch, recording undo
// as its inverse (spec.md §4.9). expr must not reference key.
func (s *Simulator) Oper(key *Key, expr Expr, do, undo OperFunc) error {
	args := operArgs{Key: key, Expr: expr, Do: do, Undo: undo}
	if s.queueAction(opOper, args) {
		return nil
	}
	return s.dispatch(opOper, args)
}

// OperInv is Oper with do and undo swapped.
func (s *Simulator) OperInv(key *Key, expr Expr, do, undo OperFunc) error {
	return s.Oper(key, expr, undo, do)
}

func invertOper(a any) (opcode, any) {
	args := a.(operArgs)
	args.Do, args.Undo = args.Undo, args.Do
	return opOper, args
}

func execOper(s *Simulator, a any) error {
	args := a.(operArgs)
	if err := s.assertMutable(args.Key); err != nil {
		return err
	}
	if args.Expr.Keys().Contains(args.Key) {
		return qerr.Structuralf("oper: expression cannot depend on the register being modified")
	}
	id, err := args.Key.Index()
	if err != nil {
		return err
	}
	active, err := s.activeBranches()
	if err != nil {
		return err
	}
	for _, b := range active {
		cur, ok := b.Get(id)
		if !ok {
			return qerr.Structuralf("oper: register %d missing from branch", args.Key.ID())
		}
		nv, err := args.Do(b, cur)
		if err != nil {
			return err
		}
		b.Set(id, nv)
	}
	return nil
}

// PlusEq builds the do/undo pair for "register += expr", the increment
// form q_while uses internally and the one most user programs reach for.
func PlusEq(expr Expr) (do, undo OperFunc) {
	do = func(b *qstate.Branch, cur eint.Int) (eint.Int, error) {
		d, err := qexpr.EvalInt(expr, b)
		if err != nil {
			return eint.Int{}, err
		}
		return cur.Add(d), nil
	}
	undo = func(b *qstate.Branch, cur eint.Int) (eint.Int, error) {
		d, err := qexpr.EvalInt(expr, b)
		if err != nil {
			return eint.Int{}, err
		}
		return cur.Sub(d), nil
	}
	return do, undo
}

// MinusEq builds the do/undo pair for "register -= expr".
func MinusEq(expr Expr) (do, undo OperFunc) {
	do, undo = PlusEq(expr)
	return undo, do
}

type phaseArgs struct {
	Theta Expr
}

// Phase multiplies every active branch's amplitude by e^(i*theta), theta
// evaluated per-branch (spec.md §4.9 "phase").
func (s *Simulator) Phase(theta Expr) error {
	args := phaseArgs{Theta: theta}
	if s.queueAction(opPhase, args) {
		return nil
	}
	return s.dispatch(opPhase, args)
}

// PhaseInv applies the negated phase, per the Python reference's
// phase_inv.
func (s *Simulator) PhaseInv(theta Expr) error {
	return s.Phase(qexpr.NegFloat(theta))
}

func invertPhase(a any) (opcode, any) {
	args := a.(phaseArgs)
	return opPhase, phaseArgs{Theta: qexpr.NegFloat(args.Theta)}
}

// PhasePi and Phase2Pi are convenience wrappers multiplying theta by pi or
// 2*pi before applying it, grounded on original_source/qumquat/main.py's
// phase_pi/phase_2pi.
func (s *Simulator) PhasePi(theta Expr) error  { return s.Phase(qexpr.PhaseTimesPi(theta)) }
func (s *Simulator) Phase2Pi(theta Expr) error { return s.Phase(qexpr.PhaseTimes2Pi(theta)) }

func execPhase(s *Simulator, a any) error {
	args := a.(phaseArgs)
	active, err := s.activeBranches()
	if err != nil {
		return err
	}
	for _, b := range active {
		v, err := args.Theta.Eval(b)
		if err != nil {
			return err
		}
		b.Amp *= cmplx.Exp(complex(0, v.Float()))
	}
	return nil
}

type cnotArgs struct {
	Key  *Key
	I, J Expr
}

// CNot flips the bit at index j of key's register if the bit at index i is
// set, erroring if i and j evaluate equal on a branch (spec.md §4.9
// "cnot"). Self-inverse.
func (s *Simulator) CNot(key *Key, i, j Expr) error {
	args := cnotArgs{Key: key, I: i, J: j}
	if s.queueAction(opCNot, args) {
		return nil
	}
	return s.dispatch(opCNot, args)
}

func execCNot(s *Simulator, a any) error {
	args := a.(cnotArgs)
	if err := s.assertMutable(args.Key); err != nil {
		return err
	}
	id, err := args.Key.Index()
	if err != nil {
		return err
	}
	active, err := s.activeBranches()
	if err != nil {
		return err
	}
	for _, b := range active {
		iv, err := qexpr.EvalInt(args.I, b)
		if err != nil {
			return err
		}
		jv, err := qexpr.EvalInt(args.J, b)
		if err != nil {
			return err
		}
		if iv.Equal(jv) {
			return qerr.Structuralf("cnot: control and target bit indices must differ")
		}
		cur, _ := b.Get(id)
		ii := int(iv.Int64())
		jj := int(jv.Int64())
		if cur.Bit(ii) == 1 {
			cur = cur.SetBit(jj, 1-cur.Bit(jj))
			b.Set(id, cur)
		}
	}
	return nil
}
