package qflow

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"
	"strconv"
	"strings"

	"github.com/qflow-sim/qflow/eint"
	"github.com/qflow-sim/qflow/qerr"
	"github.com/qflow-sim/qflow/qexpr"
	"github.com/qflow-sim/qflow/qmetrics"
	"github.com/qflow-sim/qflow/qstate"
)

// emit writes a print/print_amp result to the program's standard output:
// these are the embedded language's own print statements, not ambient
// diagnostic logging, so they bypass qlog.
func emit(s string) { fmt.Println(s) }

// Outcome is one component of a dist/measure/print tuple: either a literal
// label (spec.md §9's string-casting convenience, grounded on
// original_source/qumquat/main.py's dist() "cast" helper) or a numeric
// result, rounded to 10 decimal places if it came from a float expression
// (spec.md §4.10 "dist").
type Outcome struct {
	IsLabel bool
	Label   string
	IsFloat bool
	F       float64
	I       eint.Int
}

func roundTo(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}

func evalOutcome(e Expr, b *qstate.Branch) (Outcome, error) {
	if lbl, ok := e.(qexpr.Label); ok {
		return Outcome{IsLabel: true, Label: lbl.Text}, nil
	}
	v, err := e.Eval(b)
	if err != nil {
		return Outcome{}, err
	}
	if v.IsFloat() {
		return Outcome{IsFloat: true, F: roundTo(v.Float(), 10)}, nil
	}
	iv, err := v.Int()
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{I: iv}, nil
}

func (o Outcome) key() string {
	switch {
	case o.IsLabel:
		return "L:" + o.Label
	case o.IsFloat:
		return "F:" + strconv.FormatFloat(o.F, 'g', -1, 64)
	default:
		return "I:" + o.I.String()
	}
}

func rowKey(row []Outcome) string {
	var sb strings.Builder
	for _, o := range row {
		sb.WriteString(o.key())
		sb.WriteByte('|')
	}
	return sb.String()
}

func compareOutcome(a, b Outcome) int {
	switch {
	case a.IsLabel && b.IsLabel:
		return strings.Compare(a.Label, b.Label)
	case a.IsFloat && b.IsFloat:
		switch {
		case a.F < b.F:
			return -1
		case a.F > b.F:
			return 1
		default:
			return 0
		}
	case !a.IsLabel && !a.IsFloat && !b.IsLabel && !b.IsFloat:
		return a.I.Cmp(b.I)
	default:
		return strings.Compare(a.key(), b.key())
	}
}

func rowLess(a, b []Outcome) bool {
	for i := range a {
		if i >= len(b) {
			return false
		}
		if c := compareOutcome(a[i], b[i]); c != 0 {
			return c < 0
		}
	}
	return len(a) < len(b)
}

// DistRow is one outcome group from Dist: the tuple of outcome values, its
// aggregate probability, and (if requested) the branches contributing to
// it.
type DistRow struct {
	Outcomes []Outcome
	Prob     float64
	Branches []*qstate.Branch
}

func evalRow(exprs []Expr, b *qstate.Branch) ([]Outcome, error) {
	row := make([]Outcome, len(exprs))
	for i, e := range exprs {
		o, err := evalOutcome(e, b)
		if err != nil {
			return nil, err
		}
		row[i] = o
	}
	return row, nil
}

// Dist groups branches by the tuple of exprs' values on each branch
// (spec.md §4.10 "dist"), summing |amp|^2 per group, sorted lexicographically
// by value. withBranches additionally records the contributing branches,
// used internally by Measure.
func (s *Simulator) Dist(exprs []Expr, withBranches bool) ([]DistRow, error) {
	groups := make(map[string]*DistRow)
	var order []string
	for _, b := range s.branches {
		row, err := evalRow(exprs, b)
		if err != nil {
			return nil, err
		}
		k := rowKey(row)
		g, ok := groups[k]
		if !ok {
			g = &DistRow{Outcomes: row}
			groups[k] = g
			order = append(order, k)
		}
		g.Prob += real(b.Amp)*real(b.Amp) + imag(b.Amp)*imag(b.Amp)
		if withBranches {
			g.Branches = append(g.Branches, b)
		}
	}
	rows := make([]DistRow, 0, len(order))
	for _, k := range order {
		rows = append(rows, *groups[k])
	}
	sort.Slice(rows, func(i, j int) bool { return rowLess(rows[i].Outcomes, rows[j].Outcomes) })
	return rows, nil
}

// Measure performs a uniform random draw by cumulative probability over
// Dist's groups, collapses the branch store to the chosen outcome, and
// renormalizes (spec.md §4.10 "measure").
func (s *Simulator) Measure(exprs []Expr) ([]Outcome, error) {
	if err := s.assertMeasurable(); err != nil {
		return nil, err
	}
	rows, err := s.Dist(exprs, true)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, qerr.Semanticf("measure: no branches to measure")
	}

	r := s.rnd.Float64()
	var cumul float64
	pick := len(rows) - 1
	for i, row := range rows {
		if cumul+row.Prob > r {
			pick = i
			break
		}
		cumul += row.Prob
	}

	chosen := rows[pick]
	s.branches = chosen.Branches
	norm := math.Sqrt(chosen.Prob)
	for _, b := range s.branches {
		b.Amp /= complex(norm, 0)
	}
	return chosen.Outcomes, nil
}

// Postselect keeps only the branches where expr is nonzero, renormalizing,
// and returns the probability that survived (spec.md §4.10 "postselect").
// Fails if that probability is (effectively) zero.
func (s *Simulator) Postselect(expr Expr) (float64, error) {
	if err := s.assertMeasurable(); err != nil {
		return 0, err
	}
	kept := make([]*qstate.Branch, 0, len(s.branches))
	var prob float64
	for _, b := range s.branches {
		v, err := expr.Eval(b)
		if err != nil {
			return 0, err
		}
		if v.IsZero() {
			continue
		}
		kept = append(kept, b)
		prob += real(b.Amp)*real(b.Amp) + imag(b.Amp)*imag(b.Amp)
	}
	if len(kept) == 0 {
		return 0, qerr.Semanticf("postselect: probability is zero")
	}
	norm := math.Sqrt(prob)
	for _, b := range kept {
		b.Amp /= complex(norm, 0)
	}
	s.branches = kept
	return prob, nil
}

// MeasureStateResult is MeasureState's result: which way the projective
// measurement landed, and the probability of that outcome. The Python
// reference returns either the bare probability or the bare outcome
// depending on whether the caller supplied postselect=True; this
// reimplementation always returns both rather than varying its return
// type on an argument's runtime truthiness.
type MeasureStateResult struct {
	Outcome bool
	Prob    float64
}

// MeasureState projects key's current value onto the subspace described by
// val (Outcome true) or onto its complement (Outcome false), chosen
// stochastically unless force is non-nil, collapses the branch store onto
// that outcome, and returns the outcome with its probability: the
// projection probability when Outcome is true, one minus it when false
// (spec.md §4.10 "measure_state").
func (s *Simulator) MeasureState(key *Key, val Val, force *bool) (MeasureStateResult, error) {
	if err := s.assertMeasurable(); err != nil {
		return MeasureStateResult{}, err
	}
	if err := s.assertMutable(key); err != nil {
		return MeasureStateResult{}, err
	}
	id, err := key.Index()
	if err != nil {
		return MeasureStateResult{}, err
	}

	switch val.kind {
	case valScalar:
		if val.scalar.Float() {
			return MeasureStateResult{}, qerr.Typef("measure_state: registers can only hold integers")
		}
		if val.scalar.Keys().Contains(key) {
			return MeasureStateResult{}, qerr.Structuralf("measure_state: target state cannot depend on the register being measured")
		}

		var prob float64
		for _, b := range s.branches {
			target, err := qexpr.EvalInt(val.scalar, b)
			if err != nil {
				return MeasureStateResult{}, err
			}
			cur, _ := b.Get(id)
			if cur.Equal(target) {
				prob += real(b.Amp)*real(b.Amp) + imag(b.Amp)*imag(b.Amp)
			}
		}

		outcome, err := s.resolveOutcome(force, prob, s.cfg.Threshold)
		if err != nil {
			return MeasureStateResult{}, err
		}

		newBranches := make([]*qstate.Branch, 0, len(s.branches))
		for _, b := range s.branches {
			target, err := qexpr.EvalInt(val.scalar, b)
			if err != nil {
				return MeasureStateResult{}, err
			}
			cur, _ := b.Get(id)
			if cur.Equal(target) == outcome {
				newBranches = append(newBranches, b)
			}
		}
		finalProb := prob
		if !outcome {
			finalProb = 1 - prob
		}
		s.branches = newBranches
		norm := math.Sqrt(finalProb)
		for _, b := range s.branches {
			b.Amp /= complex(norm, 0)
		}
		return MeasureStateResult{Outcome: outcome, Prob: finalProb}, nil

	case valUniform:
		xs := val.uniform
		if err := ensureDistinct(xs); err != nil {
			return MeasureStateResult{}, err
		}
		n := complex(float64(len(xs)), 0)

		var prob complex128
		for _, b1 := range s.branches {
			for _, b2 := range s.branches {
				for _, xi := range xs {
					for _, xj := range xs {
						c1, _ := b1.Get(id)
						c2, _ := b2.Get(id)
						if c1.Equal(eint.New(xi)) && c2.Equal(eint.New(xj)) {
							prob += b1.Amp * cmplx.Conj(b2.Amp)
						}
					}
				}
			}
		}
		prob /= n
		p := real(prob)

		outcome, err := s.resolveOutcome(force, p, s.cfg.Threshold)
		if err != nil {
			return MeasureStateResult{}, err
		}

		newBranches := make([]*qstate.Branch, 0, len(s.branches))
		for _, b := range s.branches {
			cur, _ := b.Get(id)
			for _, xj := range xs {
				var amp complex128
				for _, xi := range xs {
					if !cur.Equal(eint.New(xi)) {
						continue
					}
					if outcome {
						amp += b.Amp / n
					} else {
						ind := 0.0
						if xi == xj {
							ind = 1
						}
						amp += b.Amp * (complex(ind, 0) - 1/n)
					}
				}
				if amp == 0 {
					continue
				}
				nb := b.Copy()
				nb.Amp = amp
				nb.Set(id, eint.New(xj))
				newBranches = mergeInto(newBranches, nb)
			}
		}
		finalProb := p
		if !outcome {
			finalProb = 1 - p
		}
		merged := qstate.Merge(newBranches)
		norm := math.Sqrt(finalProb)
		for _, b := range merged {
			b.Amp /= complex(norm, 0)
		}
		pruned, dropped := qstate.Prune(merged, s.cfg.Threshold)
		s.branches = pruned
		qmetrics.AddPruned(dropped)
		qmetrics.SetBranchCount(len(pruned))
		return MeasureStateResult{Outcome: outcome, Prob: finalProb}, nil

	case valWeighted:
		m := val.weighted
		controls := qexpr.KeySet{}
		for _, e := range m {
			if e.Keys().Contains(key) {
				return MeasureStateResult{}, qerr.Structuralf("measure_state: target state cannot depend on the register being measured")
			}
			controls = controls.Union(e.Keys())
		}
		controlKeys := keysOf(controls)

		var prob complex128
		for _, b1 := range s.branches {
			for _, b2 := range s.branches {
				if !agreeOn(b1, b2, controlKeys) {
					continue
				}
				norm, err := weightedNormAt(m, b1)
				if err != nil {
					return MeasureStateResult{}, err
				}
				if cmplx.Abs(norm) < s.cfg.Threshold {
					return MeasureStateResult{}, qerr.Semanticf("measure_state: state from dictionary has norm 0")
				}
				c1, _ := b1.Get(id)
				c2, _ := b2.Get(id)
				for k1, e1 := range m {
					for k2, e2 := range m {
						if !c1.Equal(eint.New(k1)) || !c2.Equal(eint.New(k2)) {
							continue
						}
						v1, err := e1.Eval(b1)
						if err != nil {
							return MeasureStateResult{}, err
						}
						v2, err := e2.Eval(b1)
						if err != nil {
							return MeasureStateResult{}, err
						}
						a1 := complex(v1.Float(), 0)
						a2 := complex(v2.Float(), 0)
						prob += b1.Amp * cmplx.Conj(b2.Amp) * a2 * cmplx.Conj(a1) / norm
					}
				}
			}
		}
		p := real(prob)

		outcome, err := s.resolveOutcome(force, p, s.cfg.Threshold)
		if err != nil {
			return MeasureStateResult{}, err
		}

		newBranches := make([]*qstate.Branch, 0, len(s.branches))
		for _, b := range s.branches {
			// Resolved open question (spec.md §9): compute the
			// normalization against the current branch, not a stale
			// outer-loop variable.
			norm, err := weightedNormAt(m, b)
			if err != nil {
				return MeasureStateResult{}, err
			}
			cur, _ := b.Get(id)
			for k1, e1 := range m {
				var amp complex128
				v1, err := e1.Eval(b)
				if err != nil {
					return MeasureStateResult{}, err
				}
				a1 := complex(v1.Float(), 0)
				for k2, e2 := range m {
					if !cur.Equal(eint.New(k2)) {
						continue
					}
					v2, err := e2.Eval(b)
					if err != nil {
						return MeasureStateResult{}, err
					}
					a2 := complex(v2.Float(), 0)
					proj := a2 * cmplx.Conj(a1) / norm
					if outcome {
						amp += b.Amp * proj
					} else {
						ind := 0.0
						if k1 == k2 {
							ind = 1
						}
						amp += b.Amp * (complex(ind, 0) - proj)
					}
				}
				if amp == 0 {
					continue
				}
				nb := b.Copy()
				nb.Amp = amp
				nb.Set(id, eint.New(k1))
				newBranches = mergeInto(newBranches, nb)
			}
		}
		finalProb := p
		if !outcome {
			finalProb = 1 - p
		}
		merged := qstate.Merge(newBranches)
		norm := math.Sqrt(finalProb)
		for _, b := range merged {
			b.Amp /= complex(norm, 0)
		}
		pruned, dropped := qstate.Prune(merged, s.cfg.Threshold)
		s.branches = pruned
		qmetrics.AddPruned(dropped)
		qmetrics.SetBranchCount(len(pruned))
		return MeasureStateResult{Outcome: outcome, Prob: finalProb}, nil
	}
	return MeasureStateResult{}, qerr.Structuralf("measure_state: unknown value kind")
}

func (s *Simulator) resolveOutcome(force *bool, prob, threshold float64) (bool, error) {
	if force == nil {
		return s.rnd.Float64() < prob, nil
	}
	if *force && prob < threshold {
		return false, qerr.Semanticf("measure_state: postselection failed (probability %.3g below threshold)", prob)
	}
	if !*force && prob > 1-threshold {
		return false, qerr.Semanticf("measure_state: postselection failed (complement probability below threshold)")
	}
	return *force, nil
}

func mergeInto(branches []*qstate.Branch, candidate *qstate.Branch) []*qstate.Branch {
	for _, existing := range branches {
		if existing.Equal(candidate) {
			existing.Amp += candidate.Amp
			return branches
		}
	}
	return append(branches, candidate)
}

func keysOf(ks qexpr.KeySet) []uint64 {
	out := make([]uint64, 0, len(ks))
	for k := range ks {
		out = append(out, k)
	}
	return out
}

func agreeOn(b1, b2 *qstate.Branch, regIDs []uint64) bool {
	for _, id := range regIDs {
		v1, ok1 := b1.Get(qstate.RegID(id))
		v2, ok2 := b2.Get(qstate.RegID(id))
		if ok1 != ok2 {
			return false
		}
		if ok1 && !v1.Equal(v2) {
			return false
		}
	}
	return true
}

func weightedNormAt(m map[int64]Expr, b *qstate.Branch) (complex128, error) {
	var normSq float64
	for _, e := range m {
		v, err := e.Eval(b)
		if err != nil {
			return 0, err
		}
		c := complex(v.Float(), 0)
		normSq += real(c)*real(c) + imag(c)*imag(c)
	}
	return complex(normSq, 0), nil
}

// --- print / print_amp ---------------------------------------------------

type printArgs struct {
	Exprs []Expr
}

// Print formats Dist's groups as "<val> w.p. <prob>" lines, one per group,
// and writes them to standard output via emit (spec.md §4.10 "print").
// Self-inverse: print_inv is identical.
func (s *Simulator) Print(exprs []Expr) error {
	args := printArgs{Exprs: exprs}
	if s.queueAction(opPrint, args) {
		return nil
	}
	return s.dispatch(opPrint, args)
}

// PrintInv is identical to Print (spec.md §9 "self-inverse operators").
func (s *Simulator) PrintInv(exprs []Expr) error { return s.Print(exprs) }

func execPrint(s *Simulator, a any) error {
	args := a.(printArgs)
	rows, err := s.Dist(args.Exprs, false)
	if err != nil {
		return err
	}
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = fmt.Sprintf("%s w.p. %v", formatRow(row.Outcomes), roundTo(row.Prob, 5))
	}
	emit(strings.Join(lines, "\n"))
	return nil
}

// PrintAmp is Print's per-branch-amplitude counterpart: "<val> w.a.
// <amp>[, <amp>]*", one line per group, amplitudes un-merged across
// contributing branches (spec.md §4.10, §6).
func (s *Simulator) PrintAmp(exprs []Expr) error {
	args := printArgs{Exprs: exprs}
	if s.queueAction(opPrintAmp, args) {
		return nil
	}
	return s.dispatch(opPrintAmp, args)
}

// PrintAmpInv is identical to PrintAmp.
func (s *Simulator) PrintAmpInv(exprs []Expr) error { return s.PrintAmp(exprs) }

func execPrintAmp(s *Simulator, a any) error {
	args := a.(printArgs)
	rows, err := s.Dist(args.Exprs, true)
	if err != nil {
		return err
	}
	lines := make([]string, len(rows))
	for i, row := range rows {
		amps := make([]string, len(row.Branches))
		for j, b := range row.Branches {
			amps[j] = showAmp(b.Amp)
		}
		lines[i] = fmt.Sprintf("%s w.a. %s", formatRow(row.Outcomes), strings.Join(amps, ", "))
	}
	emit(strings.Join(lines, "\n"))
	return nil
}

func formatOutcome(o Outcome) string {
	switch {
	case o.IsLabel:
		return o.Label
	case o.IsFloat:
		return strconv.FormatFloat(o.F, 'f', -1, 64)
	default:
		return o.I.String()
	}
}

func formatRow(row []Outcome) string {
	parts := make([]string, len(row))
	for i, o := range row {
		parts[i] = formatOutcome(o)
	}
	return strings.Join(parts, " ")
}

// showAmp formats a complex amplitude per spec.md §6's amplitude grammar:
// plain magnitude for phase 0, -<r> for phase pi, 1j*<r> / -1j*<r> for
// phase +-pi/2, <r>*e^(<k>*pi*i) for other commensurate phases, else
// <r>*e^(i*<phi>).
func showAmp(a complex128) string {
	r := roundTo(cmplx.Abs(a), 5)
	phi := cmplx.Phase(a)
	if phi == 0 {
		return formatFloat(r)
	}

	rounded := roundTo(phi/math.Pi, 10)
	if roundTo(rounded, 5) == rounded {
		switch {
		case int64(rounded) == -1 || int64(rounded) == 1:
			return "-" + formatFloat(r)
		case rounded == 0.5:
			return "1j*" + formatFloat(r)
		case rounded == -0.5:
			return "-1j*" + formatFloat(r)
		case rounded == 0:
			return formatFloat(r)
		default:
			return formatFloat(r) + "*e^(" + formatFloat(rounded) + "*pi*i)"
		}
	}
	return formatFloat(r) + "*e^(i*" + formatFloat(phi) + ")"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
