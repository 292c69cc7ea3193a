package qflow

import (
	"github.com/qflow-sim/qflow/qerr"
	"github.com/qflow-sim/qflow/qstate"
)

// isActive reports whether every currently open control expression is
// nonzero on b (spec.md §4.10 C3: "a branch is active when every control
// expression evaluates to nonzero on it").
func (s *Simulator) isActive(b *qstate.Branch) (bool, error) {
	for _, c := range s.controls {
		v, err := c.expr.Eval(b)
		if err != nil {
			return false, err
		}
		if v.IsZero() {
			return false, nil
		}
	}
	return true, nil
}

// activeBranches returns the subset of s.branches currently active under
// every open control.
func (s *Simulator) activeBranches() ([]*qstate.Branch, error) {
	out := make([]*qstate.Branch, 0, len(s.branches))
	for _, b := range s.branches {
		ok, err := s.isActive(b)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// assertMutable errors if key is referenced by any currently open control
// expression: a controlling register can't be the target of a primitive,
// or every branch taking that control path would desynchronize from the
// branches that don't (spec.md §4.10 C3).
func (s *Simulator) assertMutable(key *Key) error {
	for _, c := range s.controls {
		if c.expr.Keys().Contains(key) {
			return qerr.Structuralf("register %d is referenced by an open q_if control and cannot be modified", key.ID())
		}
	}
	return nil
}

func (s *Simulator) doIf(expr Expr) error {
	args := doIfArgs{Expr: expr}
	if s.queueAction(opDoIf, args) {
		return nil
	}
	return s.dispatch(opDoIf, args)
}

func (s *Simulator) doIfInv(expr Expr) error {
	args := doIfArgs{Expr: expr}
	if s.queueAction(opDoIfInv, args) {
		return nil
	}
	return s.dispatch(opDoIfInv, args)
}

type doIfArgs struct {
	Expr Expr
}

func execDoIf(s *Simulator, a any) error {
	args := a.(doIfArgs)
	s.controls = append(s.controls, controlEntry{expr: args.Expr})
	return nil
}

func execDoIfInv(s *Simulator, a any) error {
	if len(s.controls) == 0 {
		return qerr.Structuralf("no open q_if scope to close")
	}
	s.controls = s.controls[:len(s.controls)-1]
	return nil
}

// QIf runs body with expr pushed as an active control, popping it again
// via do_if_inv once body returns; do_if_inv is queued or run exactly as
// do_if was, so an open queue records both ends of the scope. This is the scope form of the Python reference's
// q_if context manager (spec.md §4.10 C3, §4.12).
func (s *Simulator) QIf(expr Expr, body func() error) error {
	if err := s.doIf(expr); err != nil {
		return err
	}
	bodyErr := body()
	exitErr := s.doIfInv(expr)
	if bodyErr != nil {
		return bodyErr
	}
	return exitErr
}

// pushMode/popMode implement the mode stack that forbids measurement
// primitives while any scope that must see every branch (garbage, q_while,
// inv) is open (spec.md §4.10 C7).
func (s *Simulator) pushMode(mode string) { s.modeStack = append(s.modeStack, mode) }

func (s *Simulator) popMode() {
	if len(s.modeStack) == 0 {
		return
	}
	s.modeStack = s.modeStack[:len(s.modeStack)-1]
}

func (s *Simulator) assertMeasurable() error {
	if len(s.modeStack) > 0 {
		return qerr.Structuralf("cannot measure while inside a %q scope", s.modeStack[len(s.modeStack)-1])
	}
	return nil
}
