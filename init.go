package qflow

import (
	"math"
	"math/cmplx"

	"github.com/qflow-sim/qflow/eint"
	"github.com/qflow-sim/qflow/qerr"
	"github.com/qflow-sim/qflow/qexpr"
	"github.com/qflow-sim/qflow/qstate"
)

type initArgs struct {
	Key *Key
	Val Val
}

// Init assigns key's register a value, list of values (uniform
// superposition), or dictionary of weighted values (spec.md §4.5). key
// must already be zero on every active branch.
func (s *Simulator) Init(key *Key, val Val) error {
	args := initArgs{Key: key, Val: val}
	if s.queueAction(opInit, args) {
		return nil
	}
	return s.dispatch(opInit, args)
}

func execInit(s *Simulator, a any) error {
	args := a.(initArgs)
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
		v, ok := b.Get(id)
		if ok && !v.IsZero() {
			return qerr.Semanticf("init: register %d is already initialized", args.Key.ID())
		}
	}

	switch args.Val.kind {
	case valScalar:
		if args.Val.scalar.Float() {
			return qerr.Typef("init: registers can only hold integers, not float expressions")
		}
		for _, b := range active {
			iv, err := qexpr.EvalInt(args.Val.scalar, b)
			if err != nil {
				return err
			}
			b.Set(id, iv)
		}
		return nil

	case valUniform:
		xs := args.Val.uniform
		if err := ensureDistinct(xs); err != nil {
			return err
		}
		n := float64(len(xs))
		newBranches := make([]*qstate.Branch, 0, len(s.branches)*len(xs))
		for _, b := range s.branches {
			ok, err := s.isActive(b)
			if err != nil {
				return err
			}
			if !ok {
				newBranches = append(newBranches, b)
				continue
			}
			for _, x := range xs {
				nb := b.Copy()
				nb.Set(id, eint.New(x))
				nb.Amp /= complex(math.Sqrt(n), 0)
				newBranches = append(newBranches, nb)
			}
		}
		s.branches = newBranches
		return nil

	case valWeighted:
		m := args.Val.weighted
		newBranches := make([]*qstate.Branch, 0, len(s.branches)*len(m))
		for _, b := range s.branches {
			ok, err := s.isActive(b)
			if err != nil {
				return err
			}
			if !ok {
				newBranches = append(newBranches, b)
				continue
			}

			coeffs := make(map[int64]float64, len(m))
			var normSq float64
			for k, e := range m {
				v, err := e.Eval(b)
				if err != nil {
					return err
				}
				f := v.Float()
				coeffs[k] = f
				normSq += f * f
			}
			if normSq < s.cfg.Threshold {
				return qerr.Semanticf("init: weighted state has norm 0")
			}
			norm := math.Sqrt(normSq)
			for k, f := range coeffs {
				if f == 0 {
					continue
				}
				nb := b.Copy()
				nb.Set(id, eint.New(k))
				nb.Amp *= complex(f/norm, 0)
				newBranches = append(newBranches, nb)
			}
		}
		s.branches = newBranches
		return nil
	}
	return qerr.Structuralf("init: unknown value kind")
}

// InitInv is init's inverse: it verifies every active branch's current
// register value matches what init would have produced, then zeroes the
// register (spec.md §4.5 "init_inv", §2 resolved open question: the Python
// reference left the register unmodified on an unreachable success path;
// this reimplementation always zeroes it on success, matching alloc_inv's
// precondition that a cleaned register reads zero).
func (s *Simulator) InitInv(key *Key, val Val) error {
	args := initArgs{Key: key, Val: val}
	if s.queueAction(opInitInv, args) {
		return nil
	}
	return s.dispatch(opInitInv, args)
}

func execInitInv(s *Simulator, a any) error {
	args := a.(initArgs)
	if err := s.assertMutable(args.Key); err != nil {
		return err
	}
	id, err := args.Key.Index()
	if err != nil {
		return err
	}

	switch args.Val.kind {
	case valScalar:
		if args.Val.scalar.Float() {
			return qerr.Typef("init_inv: registers can only hold integers, not float expressions")
		}
		for _, b := range s.branches {
			ok, err := s.isActive(b)
			if err != nil {
				return err
			}
			var target eint.Int
			if ok {
				target, err = qexpr.EvalInt(args.Val.scalar, b)
				if err != nil {
					return err
				}
			} else {
				target = eint.Zero()
			}
			cur, _ := b.Get(id)
			if !cur.Equal(target) {
				return qerr.Semanticf("init_inv: register %d held %v, expected %v", args.Key.ID(), cur, target)
			}
		}
		for _, b := range s.branches {
			b.Set(id, eint.Zero())
		}
		return nil

	case valUniform:
		xs := args.Val.uniform
		if err := ensureDistinct(xs); err != nil {
			return err
		}
		n := len(xs)

		var untouched, grouped []*qstate.Branch
		for _, b := range s.branches {
			ok, err := s.isActive(b)
			if err != nil {
				return err
			}
			if !ok {
				untouched = append(untouched, b)
				continue
			}
			cur, _ := b.Get(id)
			if !cur.Equal(eint.New(xs[0])) {
				continue
			}
			nb := b.Copy()
			nb.Set(id, eint.Zero())
			grouped = append(grouped, nb)
		}

		activeCount := 0
		for _, b := range s.branches {
			ok, err := s.isActive(b)
			if err != nil {
				return err
			}
			if ok {
				activeCount++
			}
		}
		if activeCount != len(grouped)*n {
			return qerr.Semanticf("init_inv: failed to clean uniform superposition over register %d", args.Key.ID())
		}

		for i := 1; i < n; i++ {
			matched := make([]bool, len(grouped))
			for _, b := range s.branches {
				ok, err := s.isActive(b)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				cur, _ := b.Get(id)
				if !cur.Equal(eint.New(xs[i])) {
					continue
				}
				found := -1
				for j, g := range grouped {
					if matched[j] {
						continue
					}
					if !g.EqualExcept(b, id) {
						continue
					}
					if cmplx.Abs(g.Amp-b.Amp) > s.cfg.StructEps {
						continue
					}
					found = j
					break
				}
				if found == -1 {
					return qerr.Semanticf("init_inv: failed to clean uniform superposition over register %d", args.Key.ID())
				}
				matched[found] = true
			}
			for _, m := range matched {
				if !m {
					return qerr.Semanticf("init_inv: failed to clean uniform superposition over register %d", args.Key.ID())
				}
			}
		}

		for _, g := range grouped {
			g.Amp *= complex(math.Sqrt(float64(n)), 0)
		}
		s.branches = append(grouped, untouched...)
		return nil

	case valWeighted:
		m := args.Val.weighted
		var untouched, newBranches []*qstate.Branch
		var checkBranches []*qstate.Branch
		var checkAmps []complex128

		for _, b := range s.branches {
			ok, err := s.isActive(b)
			if err != nil {
				return err
			}
			if !ok {
				untouched = append(untouched, b)
				continue
			}

			cur, _ := b.Get(id)
			k := cur.Int64()
			e, present := m[k]
			if !present {
				return qerr.Semanticf("init_inv: register %d holds %d, not a key of the weighted map", args.Key.ID(), k)
			}
			dv, err := e.Eval(b)
			if err != nil {
				return err
			}
			coeff := dv.Float()
			if coeff == 0 {
				return qerr.Semanticf("init_inv: weighted map coefficient for %d is 0", k)
			}

			var normSq float64
			for _, e2 := range m {
				v2, err := e2.Eval(b)
				if err != nil {
					return err
				}
				f := v2.Float()
				normSq += f * f
			}
			if normSq < s.cfg.Threshold {
				return qerr.Semanticf("init_inv: weighted state has norm 0")
			}

			amp := (b.Amp / complex(coeff, 0)) * complex(math.Sqrt(normSq), 0)

			found := -1
			for i, cb := range checkBranches {
				if cb.EqualExcept(b, id) {
					found = i
					break
				}
			}
			if found >= 0 {
				if cmplx.Abs(checkAmps[found]-amp) > s.cfg.StructEps {
					return qerr.Semanticf("init_inv: inconsistent amplitude reconstructing weighted state on register %d", args.Key.ID())
				}
				continue
			}
			checkBranches = append(checkBranches, b)
			checkAmps = append(checkAmps, amp)
			nb := b.Copy()
			nb.Set(id, eint.Zero())
			nb.Amp = amp
			newBranches = append(newBranches, nb)
		}
		s.branches = append(newBranches, untouched...)
		return nil
	}
	return qerr.Structuralf("init_inv: unknown value kind")
}
