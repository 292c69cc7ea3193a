package qflow

import (
	"math"
	"math/cmplx"

	"github.com/qflow-sim/qflow/eint"
	"github.com/qflow-sim/qflow/qerr"
	"github.com/qflow-sim/qflow/qexpr"
	"github.com/qflow-sim/qflow/qstate"
)

type qftArgs struct {
	Key     *Key
	D       Expr
	Inverse bool
}

// QFT applies a quantum Fourier transform to key's register modulo d's
// current value on each branch, replacing the branch's value with every
// residue in [0, d) weighted by a phase proportional to the original value
// (spec.md §4.8). The register's value outside the current residue class
// (value - value mod d, using Euclidean/floor modulus) is preserved; the
// sign flag is carried over explicitly, matching the enriched integer's
// sign/magnitude split.
func (s *Simulator) QFT(key *Key, d Expr, inverse bool) error {
	args := qftArgs{Key: key, D: d, Inverse: inverse}
	if s.queueAction(opQFT, args) {
		return nil
	}
	return s.dispatch(opQFT, args)
}

// QFTInv is qft with its inverse flag toggled, consistent with the Python
// reference's qft_inv.
func (s *Simulator) QFTInv(key *Key, d Expr, inverse bool) error {
	return s.QFT(key, d, !inverse)
}

func invertQFT(a any) (opcode, any) {
	args := a.(qftArgs)
	args.Inverse = !args.Inverse
	return opQFT, args
}

func execQFT(s *Simulator, a any) error {
	args := a.(qftArgs)
	if err := s.assertMutable(args.Key); err != nil {
		return err
	}
	if args.D.Keys().Contains(args.Key) {
		return qerr.Structuralf("qft: modulus expression cannot depend on the register being transformed")
	}
	id, err := args.Key.Index()
	if err != nil {
		return err
	}

	newBranches := make([]*qstate.Branch, 0, len(s.branches))
	for _, b := range s.branches {
		active, err := s.isActive(b)
		if err != nil {
			return err
		}
		if !active {
			newBranches = append(newBranches, b)
			continue
		}
		dv, err := qexpr.EvalInt(args.D, b)
		if err != nil {
			return err
		}
		d := dv.Int64()
		if d <= 1 {
			return qerr.Semanticf("qft: modulus must be an integer >= 2, got %d", d)
		}
		cur, _ := b.Get(id)
		base := cur.Sub(cur.Mod(dv))
		scale := complex(1/math.Sqrt(float64(d)), 0)
		curF := float64(cur.Int64())

		for i := int64(0); i < d; i++ {
			nb := b.Copy()
			angle := 2 * math.Pi * curF * float64(i) / float64(d)
			if args.Inverse {
				angle = -angle
			}
			nb.Amp *= scale * cmplx.Exp(complex(0, angle))
			newVal := eint.New(i).Add(base)
			newVal = newVal.SetSign(cur.Sign())
			nb.Set(id, newVal)
			newBranches = append(newBranches, nb)
		}
	}
	s.mergeAndPrune(newBranches)
	return nil
}
