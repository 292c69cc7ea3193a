package qflow

import (
	"math/cmplx"

	"github.com/qflow-sim/qflow/eint"
	"github.com/qflow-sim/qflow/qerr"
	"github.com/qflow-sim/qflow/qexpr"
	"github.com/qflow-sim/qflow/qstate"
)

type perpInitArgs struct {
	Key  *Key
	Orth *Key
	Val  Val
}

// PerpInit sets orth's bit to reflect whether key's current value lies
// outside val's support (spec.md §4.6): for scalars, orth becomes
// key != val; for superpositions, orth becomes the reflection coefficient
// splitting the branch into its parallel and perpendicular components.
func (s *Simulator) PerpInit(key, orth *Key, val Val) error {
	args := perpInitArgs{Key: key, Orth: orth, Val: val}
	if s.queueAction(opPerpInit, args) {
		return nil
	}
	return s.dispatch(opPerpInit, args)
}

func execPerpInit(s *Simulator, a any) error {
	args := a.(perpInitArgs)
	if err := s.assertMutable(args.Orth); err != nil {
		return err
	}
	orthID, err := args.Orth.Index()
	if err != nil {
		return err
	}
	keyID, err := args.Key.Index()
	if err != nil {
		return err
	}

	for _, b := range s.branches {
		ok, err := s.isActive(b)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		v, _ := b.Get(orthID)
		if !v.IsZero() {
			return qerr.Semanticf("perp_init: register %d is already initialized", args.Orth.ID())
		}
	}

	switch args.Val.kind {
	case valScalar:
		if args.Val.scalar.Float() {
			return qerr.Typef("perp_init: can only reflect around integer values")
		}
		for _, b := range s.branches {
			ok, err := s.isActive(b)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			target, err := qexpr.EvalInt(args.Val.scalar, b)
			if err != nil {
				return err
			}
			cur, _ := b.Get(keyID)
			b.Set(orthID, eint.NewBool(!cur.Equal(target)))
		}
		return nil

	case valUniform:
		xs := args.Val.uniform
		if err := ensureDistinct(xs); err != nil {
			return err
		}
		n := len(xs)
		newBranches := make([]*qstate.Branch, 0, len(s.branches))
		for _, b := range s.branches {
			ok, err := s.isActive(b)
			if err != nil {
				return err
			}
			if !ok {
				newBranches = append(newBranches, b)
				continue
			}
			cur, _ := b.Get(keyID)
			inSupport := false
			for _, x := range xs {
				if cur.Equal(eint.New(x)) {
					inSupport = true
					break
				}
			}
			if !inSupport {
				nb := b.Copy()
				nb.Set(orthID, eint.New(1))
				newBranches = append(newBranches, nb)
				continue
			}
			for j := 0; j < n; j++ {
				var amp0, amp1 complex128
				for i := 0; i < n; i++ {
					if !cur.Equal(eint.New(xs[i])) {
						continue
					}
					amp0 += b.Amp / complex(float64(n), 0)
					ind := 0.0
					if i == j {
						ind = 1
					}
					amp1 += b.Amp * complex(ind-1/float64(n), 0)
				}
				br0 := b.Copy()
				br0.Amp = amp0
				br0.Set(keyID, eint.New(xs[j]))
				br1 := b.Copy()
				br1.Amp = amp1
				br1.Set(keyID, eint.New(xs[j]))
				br1.Set(orthID, eint.New(1))
				newBranches = append(newBranches, br0, br1)
			}
		}
		s.mergeAndPrune(newBranches)
		return nil

	case valWeighted:
		m := args.Val.weighted
		newBranches := make([]*qstate.Branch, 0, len(s.branches))
		for _, b := range s.branches {
			ok, err := s.isActive(b)
			if err != nil {
				return err
			}
			if !ok {
				newBranches = append(newBranches, b)
				continue
			}
			cur, _ := b.Get(keyID)
			k := cur.Int64()
			coeff, present := m[k]
			if !present {
				nb := b.Copy()
				nb.Set(orthID, eint.New(1))
				newBranches = append(newBranches, nb)
				continue
			}

			var normSq float64
			coeffs := make(map[int64]complex128, len(m))
			for kk, e := range m {
				v, err := e.Eval(b)
				if err != nil {
					return err
				}
				c := complex(v.Float(), 0)
				coeffs[kk] = c
				normSq += real(c)*real(c) + imag(c)*imag(c)
			}
			if normSq < s.cfg.Threshold {
				return qerr.Semanticf("perp_init: weighted state has norm 0")
			}

			cv, err := coeff.Eval(b)
			if err != nil {
				return err
			}
			myCoeff := complex(cv.Float(), 0)

			for kk, c := range coeffs {
				proj := c * complexConj(myCoeff) / complex(normSq, 0)
				amp0 := b.Amp * proj
				var amp1 complex128
				if kk == k {
					amp1 = b.Amp * (1 - proj)
				} else {
					amp1 = -b.Amp * proj
				}
				br0 := b.Copy()
				br0.Amp = amp0
				br0.Set(keyID, eint.New(kk))
				br1 := b.Copy()
				br1.Amp = amp1
				br1.Set(keyID, eint.New(kk))
				br1.Set(orthID, eint.New(1))
				newBranches = append(newBranches, br0, br1)
			}
		}
		s.mergeAndPrune(newBranches)
		return nil
	}
	return qerr.Structuralf("perp_init: unknown value kind")
}

func complexConj(c complex128) complex128 { return cmplx.Conj(c) }

// PerpInitInv undoes PerpInit: it verifies orth's value matches the
// reflection it should hold and leaves orth at 0 everywhere on success
// (spec.md §4.6). The scalar branch of original_source/qumquat/main.py
// zeroes `key` instead of `orth` here, which contradicts both the
// surrounding list/dict branches and the stated postcondition; this is
// treated as a transcription bug (see DESIGN.md) and corrected to zero
// orth, matching every other branch.
func (s *Simulator) PerpInitInv(key, orth *Key, val Val) error {
	args := perpInitArgs{Key: key, Orth: orth, Val: val}
	if s.queueAction(opPerpInitInv, args) {
		return nil
	}
	return s.dispatch(opPerpInitInv, args)
}

func execPerpInitInv(s *Simulator, a any) error {
	args := a.(perpInitArgs)
	if err := s.assertMutable(args.Key); err != nil {
		return err
	}
	orthID, err := args.Orth.Index()
	if err != nil {
		return err
	}
	keyID, err := args.Key.Index()
	if err != nil {
		return err
	}

	switch args.Val.kind {
	case valScalar:
		if args.Val.scalar.Float() {
			return qerr.Typef("perp_init_inv: can only reflect around integer values")
		}
		for _, b := range s.branches {
			ok, err := s.isActive(b)
			if err != nil {
				return err
			}
			var target eint.Int
			if ok {
				t, err := qexpr.EvalInt(args.Val.scalar, b)
				if err != nil {
					return err
				}
				cur, _ := b.Get(keyID)
				target = eint.NewBool(!cur.Equal(t))
			} else {
				target = eint.Zero()
			}
			curOrth, _ := b.Get(orthID)
			if !curOrth.Equal(target) {
				return qerr.Semanticf("perp_init_inv: failed to uncompute perpendicular bit %d", args.Orth.ID())
			}
			b.Set(orthID, eint.Zero())
		}
		return nil

	case valUniform:
		xs := args.Val.uniform
		if err := ensureDistinct(xs); err != nil {
			return err
		}
		n := len(xs)
		newBranches := make([]*qstate.Branch, 0, len(s.branches))
		for _, b := range s.branches {
			ok, err := s.isActive(b)
			if err != nil {
				return err
			}
			if !ok {
				curOrth, _ := b.Get(orthID)
				if !curOrth.IsZero() {
					return qerr.Semanticf("perp_init_inv: failed to uncompute perpendicular bit %d", args.Orth.ID())
				}
				newBranches = append(newBranches, b)
				continue
			}
			cur, _ := b.Get(keyID)
			idx := -1
			for i, x := range xs {
				if cur.Equal(eint.New(x)) {
					idx = i
					break
				}
			}
			if idx == -1 {
				curOrth, _ := b.Get(orthID)
				if !curOrth.Equal(eint.New(1)) {
					return qerr.Semanticf("perp_init_inv: failed to uncompute perpendicular bit %d", args.Orth.ID())
				}
				nb := b.Copy()
				nb.Set(orthID, eint.Zero())
				newBranches = append(newBranches, nb)
				continue
			}
			for j := 0; j < n; j++ {
				var amp0, amp1 complex128
				for i := 0; i < n; i++ {
					if !cur.Equal(eint.New(xs[i])) {
						continue
					}
					amp0 += b.Amp / complex(float64(n), 0)
					ind := 0.0
					if i == j {
						ind = 1
					}
					amp1 += b.Amp * complex(ind-1/float64(n), 0)
				}
				br0 := b.Copy()
				br0.Amp = amp0
				br0.Set(keyID, eint.New(xs[j]))
				br1 := b.Copy()
				br1.Amp = amp1
				br1.Set(keyID, eint.New(xs[j]))
				curOrth1, _ := br1.Get(orthID)
				br1.Set(orthID, eint.New(1).Sub(curOrth1))
				newBranches = append(newBranches, br0, br1)
			}
		}
		s.mergeAndPrune(newBranches)
		for _, b := range s.branches {
			v, ok := b.Get(orthID)
			if ok && !v.IsZero() {
				return qerr.Semanticf("perp_init_inv: failed to uncompute perpendicular bit %d", args.Orth.ID())
			}
		}
		return nil

	case valWeighted:
		m := args.Val.weighted
		newBranches := make([]*qstate.Branch, 0, len(s.branches))
		for _, b := range s.branches {
			ok, err := s.isActive(b)
			if err != nil {
				return err
			}
			if !ok {
				curOrth, _ := b.Get(orthID)
				if !curOrth.IsZero() {
					return qerr.Semanticf("perp_init_inv: failed to uncompute perpendicular bit %d", args.Orth.ID())
				}
				newBranches = append(newBranches, b)
				continue
			}
			cur, _ := b.Get(keyID)
			k := cur.Int64()
			coeff, present := m[k]
			if !present {
				curOrth, _ := b.Get(orthID)
				if !curOrth.Equal(eint.New(1)) {
					return qerr.Semanticf("perp_init_inv: failed to uncompute perpendicular bit %d", args.Orth.ID())
				}
				nb := b.Copy()
				nb.Set(orthID, eint.Zero())
				newBranches = append(newBranches, nb)
				continue
			}

			var normSq float64
			coeffs := make(map[int64]complex128, len(m))
			for kk, e := range m {
				v, err := e.Eval(b)
				if err != nil {
					return err
				}
				c := complex(v.Float(), 0)
				coeffs[kk] = c
				normSq += real(c)*real(c) + imag(c)*imag(c)
			}
			if normSq < s.cfg.Threshold {
				return qerr.Semanticf("perp_init_inv: weighted state has norm 0")
			}
			cv, err := coeff.Eval(b)
			if err != nil {
				return err
			}
			myCoeff := complex(cv.Float(), 0)

			for kk, c := range coeffs {
				proj := c * complexConj(myCoeff) / complex(normSq, 0)
				amp0 := b.Amp * proj
				var amp1 complex128
				if kk == k {
					amp1 = b.Amp * (1 - proj)
				} else {
					amp1 = -b.Amp * proj
				}
				br0 := b.Copy()
				br0.Amp = amp0
				br0.Set(keyID, eint.New(kk))
				br1 := b.Copy()
				br1.Amp = amp1
				br1.Set(keyID, eint.New(kk))
				curOrth1, _ := br1.Get(orthID)
				br1.Set(orthID, eint.New(1).Sub(curOrth1))
				newBranches = append(newBranches, br0, br1)
			}
		}
		s.mergeAndPrune(newBranches)
		for _, b := range s.branches {
			v, ok := b.Get(orthID)
			if ok && !v.IsZero() {
				return qerr.Semanticf("perp_init_inv: failed to uncompute perpendicular bit %d", args.Orth.ID())
			}
		}
		return nil
	}
	return qerr.Structuralf("perp_init_inv: unknown value kind")
}
