package kfmt

import (
	"github.com/chriscruz06/MiniOS/kernel"
	"github.com/chriscruz06/MiniOS/kernel/cpu"
)

var (
	// haltFn stops the processor. Tests replace it so a simulated panic
	// doesn't block the test binary in cpu.Halt's infinite select{}.
	haltFn = cpu.Halt

	// errUnknownCause is reused (never allocated fresh) for panics that
	// didn't arrive as a *kernel.Error, since Panic must not allocate.
	errUnknownCause = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// Panic reports e and halts the processor. It never returns, and doubles as
// the redirect target the runtime's own panic path is patched to call
// instead of unwinding a stack this kernel has no recovery story for.
//
//go:redirect-from runtime.gopanic
func Panic(e interface{}) {
	report(errorOf(e))
	haltFn()
}

// errorOf normalizes whatever reached Panic into a *kernel.Error. Kernel
// code that calls Panic directly already passes one; a bare panic("msg")
// arrives as a string, and anything satisfying the error interface (from a
// package this kernel doesn't control) is folded in by its Error() text.
// A nil e (an explicit Panic(nil)) reports with no attached module.
func errorOf(e interface{}) *kernel.Error {
	switch t := e.(type) {
	case *kernel.Error:
		return t
	case string:
		errUnknownCause.Message = t
		return errUnknownCause
	case error:
		errUnknownCause.Message = t.Error()
		return errUnknownCause
	default:
		return nil
	}
}

// report prints the one-line halt banner this kernel uses for every fatal
// condition, whether it reached Panic through kernel.Error or a bare
// runtime panic.
func report(err *kernel.Error) {
	if err == nil {
		Printf("\nPANIC: halting\n")
		return
	}
	Printf("\nPANIC [%s]: %s - halting\n", err.Module, err.Message)
}

// panicString is the redirect target for runtime.throw, which only ever
// hands it a string.
//
//go:redirect-from runtime.throw
func panicString(msg string) {
	Panic(msg)
}
