// Package qflow implements the embedded quantum-simulation DSL described by
// this repository's specification: superposition as a list of classical
// branches each carrying a complex amplitude, reversible primitives that
// mutate the branch store, and a deferred-execution action queue that lets
// entire scopes (inv, garbage, q_while) be replayed forwards or inverted.
//
// The Simulator type is the single entry point. It is not safe for
// concurrent use from multiple goroutines: like the branch store it guards,
// a simulation is an inherently sequential replay of a program.
package qflow

import (
	"math/rand"
	"time"

	"github.com/qflow-sim/qflow/qconfig"
	"github.com/qflow-sim/qflow/qstate"
)

// Simulator holds the full state of one simulation: the branch store, the
// register registry, the open control/queue/garbage-pile stacks, and the
// tunable thresholds from qconfig.
type Simulator struct {
	cfg qconfig.Config
	rnd *rand.Rand

	branches []*qstate.Branch
	registry qstate.Registry

	controls []controlEntry

	queueStack [][]action

	garbageStack []string
	keylessPiles []*[]*qstate.Key
	namedPiles   map[string]*[]*qstate.Key
	pileStack    []*[]*qstate.Key

	modeStack []string
}

// controlEntry is one entry of the control stack: the control expression
// pushed by do_if and popped by do_if_inv (spec.md §4.10 C3).
type controlEntry struct {
	expr Expr
}

// New returns a simulator in its initial state: a single branch of
// amplitude 1 and no registers, configured by cfg.
func New(cfg qconfig.Config) *Simulator {
	s := &Simulator{cfg: cfg}
	s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	s.Clear()
	return s
}

// Clear resets the simulator to its initial state: one branch of amplitude
// 1, no registers, no open controls/queues/garbage piles/modes. Grounded on
// the teacher's resettable-state convention for long-lived service types.
func (s *Simulator) Clear() {
	s.branches = []*qstate.Branch{qstate.NewBranch()}
	s.registry.Reset()
	s.controls = nil
	s.queueStack = nil
	s.garbageStack = nil
	s.keylessPiles = nil
	s.namedPiles = map[string]*[]*qstate.Key{}
	s.pileStack = nil
	s.modeStack = nil
}

// NewKey mints a fresh, unallocated register handle.
func (s *Simulator) NewKey() *qstate.Key { return s.registry.NewKey() }

// BranchCount returns the number of live branches, useful for tests and
// diagnostics without exposing the branch store itself.
func (s *Simulator) BranchCount() int { return len(s.branches) }

// SetRand overrides the simulator's random source, used by tests and by
// callers that want reproducible measurement outcomes.
func (s *Simulator) SetRand(r *rand.Rand) { s.rnd = r }
