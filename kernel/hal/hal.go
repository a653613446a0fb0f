// Package hal holds the one interface the memory/storage core consumes from
// hardware it does not itself own: a text output sink (Terminal). It defines
// no keyboard or tick-source interface. The VGA text-mode console that
// implements Terminal on real hardware is an external collaborator (see the
// out-of-scope list); this package only holds whichever terminal boot wiring
// attaches, and a hosted stand-in for testing.
package hal

import (
	"io"

	"github.com/chriscruz06/MiniOS/kernel/kfmt"
)

// Terminal is the output surface Kmain clears and writes early diagnostics
// to before any shell is running.
type Terminal interface {
	io.Writer
	Clear()
}

// ActiveTerminal is the terminal currently receiving kfmt.Printf output.
var ActiveTerminal Terminal = &ringTerminal{}

// InitTerminal attaches kfmt's output sink to the active terminal. Real boot
// wiring replaces ActiveTerminal with a VGA-backed implementation before
// calling this.
func InitTerminal() {
	ActiveTerminal.Clear()
	kfmt.SetOutputSink(ActiveTerminal)
}

// ModuleWriter returns a writer that tags every line written through it with
// "[name] " before forwarding it to the active terminal. Kmain hands one to
// each subsystem whose init diagnostics should be attributable at a glance.
func ModuleWriter(name string) io.Writer {
	return &kfmt.PrefixWriter{Sink: ActiveTerminal, Prefix: []byte("[" + name + "] ")}
}

// ringTerminal is the hosted terminal used when no real console driver has
// been wired in: it just accumulates bytes, which is enough for tests to
// assert against the kernel's early output.
type ringTerminal struct {
	buf []byte
}

func (t *ringTerminal) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	return len(p), nil
}

func (t *ringTerminal) Clear() { t.buf = t.buf[:0] }
