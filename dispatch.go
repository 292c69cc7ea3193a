package qflow

import "github.com/qflow-sim/qflow/qerr"

// opcode names one of the primitive operations an action queue can record
// and replay (spec.md §4.10 C4: "Represent a queued action as a tagged
// union over primitive opcodes with their arguments by value; dispatch
// forward/inverse by an opcode table rather than by name-suffix string
// manipulation").
type opcode string

const (
	opAlloc       opcode = "alloc"
	opAllocInv    opcode = "alloc_inv"
	opInit        opcode = "init"
	opInitInv     opcode = "init_inv"
	opPerpInit    opcode = "perp_init"
	opPerpInitInv opcode = "perp_init_inv"
	opHad         opcode = "had"
	opQFT         opcode = "qft"
	opOper        opcode = "oper"
	opPhase       opcode = "phase"
	opCNot        opcode = "cnot"
	opPrint       opcode = "print"
	opPrintAmp    opcode = "print_amp"
	opDoIf        opcode = "do_if"
	opDoIfInv     opcode = "do_if_inv"
	opDoWhile     opcode = "do_while"
	opDoWhileInv  opcode = "do_while_inv"
	opDoGarbage   opcode = "do_garbage"
	opDoGarbageInv opcode = "do_garbage_inv"
	opAssertPileClean opcode = "assert_pile_clean"
)

// action is one recorded, not-yet-executed primitive call: an opcode plus
// its arguments by value. Queue stacks, q_while bodies, and garbage piles
// all store slices of action.
type action struct {
	op   opcode
	args any
}

// execFn runs args (already known not to be further deferred) against the
// simulator.
type execFn func(s *Simulator, args any) error

// invertFn maps an opcode+args pair onto the opcode+args pair that
// undoes it. Most primitives are "self-inverse by transformed argument"
// (oper swaps do/undo, phase negates theta, qft flips its inverse flag,
// had/cnot/print/print_amp/assert_pile_clean are unchanged); a few
// (alloc, init, perp_init, do_if, do_while, do_garbage) have a genuinely
// distinct paired opcode.
type invertFn func(args any) (opcode, any)

type opEntry struct {
	exec   execFn
	invert invertFn
}

var dispatchTable map[opcode]opEntry

func selfInvert(op opcode) invertFn {
	return func(args any) (opcode, any) { return op, args }
}

func init() {
	dispatchTable = map[opcode]opEntry{
		opAlloc:           {exec: execAlloc, invert: func(a any) (opcode, any) { return opAllocInv, a }},
		opAllocInv:        {exec: execAllocInv, invert: func(a any) (opcode, any) { return opAlloc, a }},
		opInit:            {exec: execInit, invert: func(a any) (opcode, any) { return opInitInv, a }},
		opInitInv:         {exec: execInitInv, invert: func(a any) (opcode, any) { return opInit, a }},
		opPerpInit:        {exec: execPerpInit, invert: func(a any) (opcode, any) { return opPerpInitInv, a }},
		opPerpInitInv:     {exec: execPerpInitInv, invert: func(a any) (opcode, any) { return opPerpInit, a }},
		opHad:             {exec: execHad, invert: selfInvert(opHad)},
		opQFT:             {exec: execQFT, invert: invertQFT},
		opOper:            {exec: execOper, invert: invertOper},
		opPhase:           {exec: execPhase, invert: invertPhase},
		opCNot:            {exec: execCNot, invert: selfInvert(opCNot)},
		opPrint:           {exec: execPrint, invert: selfInvert(opPrint)},
		opPrintAmp:        {exec: execPrintAmp, invert: selfInvert(opPrintAmp)},
		opDoIf:            {exec: execDoIf, invert: func(a any) (opcode, any) { return opDoIfInv, a }},
		opDoIfInv:         {exec: execDoIfInv, invert: func(a any) (opcode, any) { return opDoIf, a }},
		opDoWhile:         {exec: execDoWhile, invert: func(a any) (opcode, any) { return opDoWhileInv, a }},
		opDoWhileInv:      {exec: execDoWhileInv, invert: func(a any) (opcode, any) { return opDoWhile, a }},
		opDoGarbage:       {exec: execDoGarbage, invert: func(a any) (opcode, any) { return opDoGarbageInv, a }},
		opDoGarbageInv:    {exec: execDoGarbageInv, invert: func(a any) (opcode, any) { return opDoGarbage, a }},
		opAssertPileClean: {exec: execAssertPileClean, invert: selfInvert(opAssertPileClean)},
	}
}

// queueAction records (op, args) on the innermost open queue, if any, and
// reports whether it did so. Every primitive entry point calls this first
// and returns immediately if it reports true: this is what lets inv,
// q_while, and garbage scopes defer their bodies instead of running them.
func (s *Simulator) queueAction(op opcode, args any) bool {
	if len(s.queueStack) == 0 {
		return false
	}
	top := len(s.queueStack) - 1
	s.queueStack[top] = append(s.queueStack[top], action{op: op, args: args})
	return true
}

func (s *Simulator) pushQueue() { s.queueStack = append(s.queueStack, nil) }

func (s *Simulator) popQueue() []action {
	top := len(s.queueStack) - 1
	q := s.queueStack[top]
	s.queueStack = s.queueStack[:top]
	return q
}

// call executes a recorded action, forwards or inverted, by looking up its
// opcode's table entry rather than by inspecting the opcode's name.
func (s *Simulator) call(t action, invert bool) error {
	entry, ok := dispatchTable[t.op]
	if !ok {
		return qerr.Structuralf("no dispatch entry for opcode %q", t.op)
	}
	op, args := t.op, t.args
	if invert {
		op, args = entry.invert(args)
		entry, ok = dispatchTable[op]
		if !ok {
			return qerr.Structuralf("no dispatch entry for inverted opcode %q", op)
		}
	}
	observeDispatch(string(op), invert)
	return entry.exec(s, args)
}

// dispatch is the entry point every public primitive method funnels
// through once it has confirmed it is not being deferred onto an open
// queue.
func (s *Simulator) dispatch(op opcode, args any) error {
	return s.call(action{op: op, args: args}, false)
}

// invertAction maps a recorded action onto the action that undoes it,
// purely by table lookup: it never touches simulator state. execDoGarbageInv
// uses this to build a reversed, inverted replay queue without executing
// anything — actual execution happens later, when that queue is handed to
// doGarbage and replayed forward one action at a time via call(a, false).
func invertAction(t action) (action, error) {
	entry, ok := dispatchTable[t.op]
	if !ok {
		return action{}, qerr.Structuralf("no dispatch entry for opcode %q", t.op)
	}
	op, args := entry.invert(t.args)
	return action{op: op, args: args}, nil
}
