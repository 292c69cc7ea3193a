// Package qstate holds the simulator's data model: branches, the register
// registry, and the merge/pruning routines that keep the branch list
// canonical (spec.md §3-4.1, §4.2, §4.1/§4.10 C8).
package qstate

import (
	"math"
	"math/cmplx"
	"sort"
	"strconv"
	"strings"

	"github.com/qflow-sim/qflow/eint"
)

// Branch is one classical configuration in the superposition: a complex
// amplitude plus a value for every currently-allocated register
// (spec.md §3).
type Branch struct {
	Amp  complex128
	Regs map[RegID]eint.Int
}

// NewBranch returns the single branch any fresh simulator starts in:
// amp=1, no registers.
func NewBranch() *Branch {
	return &Branch{Amp: 1, Regs: make(map[RegID]eint.Int)}
}

// Copy returns a deep, independent copy: a new Regs map with independently
// copied enriched integers (spec.md §3 invariant 2 relies on every branch
// having its own value, not shared via aliasing).
func (b *Branch) Copy() *Branch {
	regs := make(map[RegID]eint.Int, len(b.Regs))
	for id, v := range b.Regs {
		regs[id] = v.Copy()
	}
	return &Branch{Amp: b.Amp, Regs: regs}
}

// Get returns the value at id and whether it was present.
func (b *Branch) Get(id RegID) (eint.Int, bool) {
	v, ok := b.Regs[id]
	return v, ok
}

// Set stores v at id.
func (b *Branch) Set(id RegID, v eint.Int) { b.Regs[id] = v }

// Delete removes id from the branch, called by alloc_inv once a register
// is deallocated (spec.md §4.2).
func (b *Branch) Delete(id RegID) { delete(b.Regs, id) }

// Equal reports whether a and b agree on every register value (spec.md
// §3: "Two branches are structurally equal when they agree on every
// register value"). Amplitude is deliberately excluded.
func (a *Branch) Equal(b *Branch) bool {
	if len(a.Regs) != len(b.Regs) {
		return false
	}
	for id, av := range a.Regs {
		bv, ok := b.Regs[id]
		if !ok || !av.Equal(bv) {
			return false
		}
	}
	return true
}

// EqualExcept reports whether a and b agree on every register value other
// than skip — used by init_inv's list/dict branches, which must compare
// branches "up to the register field" (spec.md §4.5).
func (a *Branch) EqualExcept(b *Branch, skip RegID) bool {
	if len(a.Regs) != len(b.Regs) {
		return false
	}
	for id, av := range a.Regs {
		if id == skip {
			continue
		}
		bv, ok := b.Regs[id]
		if !ok || !av.Equal(bv) {
			return false
		}
	}
	return true
}

// signature builds a fast, canonical string key for a's register contents,
// sorted by id, used to bucket candidate branches before an exact Equal
// check in Merge. It uses eint.Int.Fingerprint's uint256 fast path when a
// value fits in 256 bits (the overwhelmingly common case for simulated
// registers) and falls back to the arbitrary-precision decimal string
// otherwise.
func (b *Branch) signature() string {
	ids := make([]RegID, 0, len(b.Regs))
	for id := range b.Regs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var sb strings.Builder
	for _, id := range ids {
		v := b.Regs[id]
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
		sb.WriteByte(':')
		if mag, neg, ok := v.Fingerprint(); ok {
			if neg {
				sb.WriteByte('-')
			}
			sb.WriteString(mag.Dec())
		} else {
			sb.WriteString(v.Value().String())
		}
		sb.WriteByte(';')
	}
	return sb.String()
}

// Merge coalesces structurally-equal branches by summing their amplitudes,
// in append order, without pruning (spec.md §4.1 "Merging"). The input
// slice is not mutated.
func Merge(branches []*Branch) []*Branch {
	buckets := make(map[string][]*Branch, len(branches))
	out := make([]*Branch, 0, len(branches))

	for _, br := range branches {
		sig := br.signature()
		matched := false
		for _, existing := range buckets[sig] {
			if existing.Equal(br) {
				existing.Amp += br.Amp
				matched = true
				break
			}
		}
		if !matched {
			fresh := br.Copy()
			buckets[sig] = append(buckets[sig], fresh)
			out = append(out, fresh)
		}
	}
	return out
}

// Prune drops branches with |amp| below threshold and renormalizes the
// survivors so that sum(|amp|^2) == 1 (spec.md §4.1, invariant 1). It
// returns the surviving branches and the count of branches dropped.
func Prune(branches []*Branch, threshold float64) ([]*Branch, int) {
	kept := make([]*Branch, 0, len(branches))
	var normSq float64
	for _, br := range branches {
		if cmplx.Abs(br.Amp) > threshold {
			kept = append(kept, br)
			normSq += cmplx.Abs(br.Amp) * cmplx.Abs(br.Amp)
		}
	}
	dropped := len(branches) - len(kept)

	norm := math.Sqrt(normSq)
	if norm == 0 {
		return kept, dropped
	}
	for _, br := range kept {
		br.Amp /= complex(norm, 0)
	}
	return kept, dropped
}

// MergeAndPrune is the combined C8 routine most primitives call after
// producing a raw, possibly-duplicated, possibly-near-zero branch list.
func MergeAndPrune(branches []*Branch, threshold float64) ([]*Branch, int) {
	return Prune(Merge(branches), threshold)
}
