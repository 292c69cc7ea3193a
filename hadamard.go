package qflow

import (
	"math"

	"github.com/qflow-sim/qflow/qerr"
	"github.com/qflow-sim/qflow/qexpr"
	"github.com/qflow-sim/qflow/qstate"
)

type hadArgs struct {
	Key *Key
	Bit Expr
}

// Had applies a Hadamard rotation to the bit of key's register selected by
// bit, splitting every active branch into a pair with the bit cleared and
// set, the set branch carrying a sign flip when the original bit was 1
// (spec.md §4.7). Self-inverse.
func (s *Simulator) Had(key *Key, bit Expr) error {
	args := hadArgs{Key: key, Bit: bit}
	if s.queueAction(opHad, args) {
		return nil
	}
	return s.dispatch(opHad, args)
}

func execHad(s *Simulator, a any) error {
	args := a.(hadArgs)
	if err := s.assertMutable(args.Key); err != nil {
		return err
	}
	if args.Bit.Keys().Contains(args.Key) {
		return qerr.Structuralf("had: bit index cannot depend on the register it indexes")
	}
	id, err := args.Key.Index()
	if err != nil {
		return err
	}

	newBranches := make([]*qstate.Branch, 0, len(s.branches)*2)
	inv := complex(1/math.Sqrt2, 0)
	for _, b := range s.branches {
		active, err := s.isActive(b)
		if err != nil {
			return err
		}
		if !active {
			newBranches = append(newBranches, b)
			continue
		}
		bitv, err := qexpr.EvalInt(args.Bit, b)
		if err != nil {
			return err
		}
		idx := int(bitv.Int64())
		cur, _ := b.Get(id)

		b0 := b.Copy()
		b0.Amp *= inv
		b0.Set(id, cur.SetBit(idx, 0))

		b1 := b.Copy()
		b1.Amp *= inv
		b1.Set(id, cur.SetBit(idx, 1))
		if cur.Bit(idx) == 1 {
			b1.Amp *= -1
		}

		newBranches = append(newBranches, b0, b1)
	}
	s.mergeAndPrune(newBranches)
	return nil
}
