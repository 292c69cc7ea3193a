package qflow

import (
	"github.com/qflow-sim/qflow/eint"
)

type allocArgs struct {
	Key *Key
}

// Alloc allocates a fresh, zero-valued register backing key on every
// branch (spec.md §4.2). Queued like every other primitive if a scope is
// currently deferring.
func (s *Simulator) Alloc(key *Key) error {
	args := allocArgs{Key: key}
	if s.queueAction(opAlloc, args) {
		return nil
	}
	return s.dispatch(opAlloc, args)
}

func execAlloc(s *Simulator, a any) error {
	args := a.(allocArgs)
	if err := s.assertMutable(args.Key); err != nil {
		return err
	}
	id := s.registry.Alloc(args.Key)
	for _, b := range s.branches {
		b.Set(id, eint.Zero())
	}
	return nil
}

// AllocInv deallocates key's current register on every branch, without
// checking the register is zero first: that check belongs to the caller
// (Clean runs init_inv first, which verifies the register against its
// original value and zeroes it, then alloc_inv).
func (s *Simulator) AllocInv(key *Key) error {
	args := allocArgs{Key: key}
	if s.queueAction(opAllocInv, args) {
		return nil
	}
	return s.dispatch(opAllocInv, args)
}

func execAllocInv(s *Simulator, a any) error {
	args := a.(allocArgs)
	if err := s.assertMutable(args.Key); err != nil {
		return err
	}
	id, err := s.registry.Dealloc(args.Key)
	if err != nil {
		return err
	}
	for _, b := range s.branches {
		b.Delete(id)
	}
	if !args.Key.Allocated() {
		s.removeFromOpenPile(args.Key)
	}
	return nil
}

// removeFromOpenPile drops key from the garbage pile currently being
// replayed by do_garbage, if any (spec.md §4.13 "garbage": a key allocated
// and then cleaned up again inside the same garbage scope never shows up
// in the non-clean pile check").
func (s *Simulator) removeFromOpenPile(key *Key) {
	if len(s.pileStack) == 0 {
		return
	}
	pile := s.pileStack[len(s.pileStack)-1]
	for i, k := range *pile {
		if k == key {
			*pile = append((*pile)[:i], (*pile)[i+1:]...)
			return
		}
	}
}

// Reg allocates and initializes a fresh register in one call, the
// convenience most user programs actually use (spec.md §4.2 "reg").
// When called inside an open garbage scope the new key is appended to that
// scope's pile immediately, in program order, even though the underlying
// Alloc/Init calls may themselves be deferred onto a queue.
func (s *Simulator) Reg(val Val) (*Key, error) {
	key := s.NewKey()
	s.trackGarbageKey(key)
	if err := s.Alloc(key); err != nil {
		return nil, err
	}
	if err := s.Init(key, val); err != nil {
		return nil, err
	}
	return key, nil
}

// Clean is init_inv followed by alloc_inv (spec.md §4.2 "clean"): val is
// the same value init originally populated the register with, so init_inv
// can verify it and zero the register before it is deallocated. Composing
// it from two already-queueable primitives, rather than reading branch
// state directly, is what lets clean be called from inside an open inv,
// q_while, or garbage scope and still defer correctly instead of tripping
// over registers whose alloc/init haven't actually run yet.
func (s *Simulator) Clean(key *Key, val Val) error {
	if err := s.InitInv(key, val); err != nil {
		return err
	}
	return s.AllocInv(key)
}

func (s *Simulator) trackGarbageKey(key *Key) {
	if len(s.garbageStack) == 0 {
		return
	}
	name := s.garbageStack[len(s.garbageStack)-1]
	var pile *[]*Key
	if name == "keyless" {
		pile = s.keylessPiles[len(s.keylessPiles)-1]
	} else {
		pile = s.namedPiles[name]
	}
	*pile = append(*pile, key)
}
