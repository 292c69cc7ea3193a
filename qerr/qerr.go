// Package qerr defines the three error kinds spec.md §7 assigns to the
// simulator: structural misuse of the embedded language, semantic
// (run-time) conditions the engine cannot satisfy, and type mismatches.
// All are synchronous: a primitive that fails aborts immediately and
// leaves the simulator in an undefined state (spec.md §5), so none of
// these are meant to be retried.
package qerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind distinguishes the three error categories from spec.md §7.
type Kind int

const (
	// Structural covers misuse of the embedded language: modifying a
	// control register, measuring inside a reversible scope, mismatched
	// scope delimiters, a non-integer QRAM key, a target referenced by
	// its own value expression, cnot with equal indices, and garbage
	// pile naming violations.
	Structural Kind = iota
	// Semantic covers run-time conditions the engine cannot satisfy:
	// init target not zero, failed uncompute separations, QFT modulus
	// <= 1, zero-norm dictionaries, below-threshold postselection, and
	// dirty named garbage piles.
	Semantic
	// Type covers value-category mismatches: a floating expression fed
	// to an integer-only primitive, non-integer superposition literals,
	// or an unsupported value category.
	Type
)

func (k Kind) String() string {
	switch k {
	case Structural:
		return "structural"
	case Semantic:
		return "semantic"
	case Type:
		return "type"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every primitive in this
// module. Use errors.As to recover the Kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("qflow: %s error: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("qflow: %s error: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Structuralf builds a Structural error with a formatted message.
func Structuralf(format string, args ...any) *Error {
	return &Error{Kind: Structural, Msg: fmt.Sprintf(format, args...)}
}

// Semanticf builds a Semantic error with a formatted message.
func Semanticf(format string, args ...any) *Error {
	return &Error{Kind: Semantic, Msg: fmt.Sprintf(format, args...)}
}

// Typef builds a Type error with a formatted message.
func Typef(format string, args ...any) *Error {
	return &Error{Kind: Type, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to an existing Error, preserving its Kind.
func Wrap(err *Error, cause error) *Error {
	return &Error{Kind: err.Kind, Msg: err.Msg, Err: cause}
}

// WrapStack annotates err (the failure of a single queued action replayed
// deep inside inv/q_while/garbage) with a stack trace and the name of the
// opcode that failed, so a caller debugging a failed uncompute can see
// which nested scope it came from. Using pkg/errors here (rather than
// fmt.Errorf's plain %w) is deliberate: replay failures are the one place
// in this engine where the call site is several scopes removed from the
// primitive that actually failed, and a stack trace is worth the extra
// allocation.
func WrapStack(opcode string, cause error) error {
	if cause == nil {
		return nil
	}
	return errors.Wrapf(cause, "replaying %s", opcode)
}
