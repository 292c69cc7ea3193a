package qstate

import "github.com/qflow-sim/qflow/qerr"

// RegID is a register identifier: a monotonically increasing integer,
// never reused (spec.md §3).
type RegID uint64

// Key is a user-visible handle onto a stack of register ids (spec.md §3).
// alloc pushes a new id; alloc_inv pops one. Multiple pushes model
// shadowed scopes, e.g. the same named temporary reallocated across loop
// iterations of a garbage scope.
//
// Unlike the Python reference, a Key here is always referenced through its
// single *Key pointer, so there is no separate "partner"/proxy handle: Go's
// pointer identity already gives every call site a stable handle on the
// same id stack.
type Key struct {
	id  uint64
	ids []RegID
}

// ID returns the key's stable identifier, used for garbage-pile bookkeeping
// and error messages.
func (k *Key) ID() uint64 { return k.id }

// Index returns the top of the id stack: the register currently backing
// this key.
func (k *Key) Index() (RegID, error) {
	if len(k.ids) == 0 {
		return 0, qerr.Structuralf("key %d has no allocated register", k.id)
	}
	return k.ids[len(k.ids)-1], nil
}

// Allocated reports whether this key currently owns a register.
func (k *Key) Allocated() bool { return len(k.ids) > 0 }

// push appends a freshly allocated register id, called by Registry.Alloc.
func (k *Key) push(id RegID) { k.ids = append(k.ids, id) }

// pop removes and returns the top register id, called by Registry.Dealloc.
func (k *Key) pop() (RegID, error) {
	id, err := k.Index()
	if err != nil {
		return 0, err
	}
	k.ids = k.ids[:len(k.ids)-1]
	return id, nil
}

// Registry allocates Keys and RegIDs (spec.md C2). Register ids are never
// reused across alloc_inv cycles; Reset (called by Simulator.Clear) starts
// both the key and register counters again from zero.
type Registry struct {
	nextKeyID uint64
	nextReg   RegID
}

// NewKey mints a fresh, unallocated Key.
func (r *Registry) NewKey() *Key {
	r.nextKeyID++
	return &Key{id: r.nextKeyID}
}

// Alloc mints a fresh register id and pushes it onto key's stack.
func (r *Registry) Alloc(key *Key) RegID {
	id := r.nextReg
	r.nextReg++
	key.push(id)
	return id
}

// Dealloc pops key's top register id.
func (r *Registry) Dealloc(key *Key) (RegID, error) {
	return key.pop()
}

// Reset reinitializes the id counters; used by Simulator.Clear.
func (r *Registry) Reset() {
	r.nextKeyID = 0
	r.nextReg = 0
}
