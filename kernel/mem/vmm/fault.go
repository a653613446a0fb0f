package vmm

import (
	"github.com/chriscruz06/MiniOS/kernel"
	"github.com/chriscruz06/MiniOS/kernel/cpu"
	"github.com/chriscruz06/MiniOS/kernel/irq"
	"github.com/chriscruz06/MiniOS/kernel/kfmt"
)

// Page-fault error code bits, pushed by the CPU alongside vector 14.
const (
	faultPresent = 1 << 0 // 0: fault was due to a not-present page, 1: protection violation
	faultWrite   = 1 << 1 // 0: read, 1: write
	faultUser    = 1 << 2 // 0: supervisor mode, 1: user mode
)

// readCR2Fn is swapped out in tests so a fault can be simulated without a
// real CPU.
var readCR2Fn = cpu.ReadCR2

// handlePageFault is registered against irq.PageFaultException by Init. This
// kernel has no demand paging or copy-on-write, so every page fault is
// unrecoverable: it disables interrupts, reports the faulting address and
// cause and halts.
func handlePageFault(errorCode uint32, frame *irq.Frame, regs *irq.Regs) {
	cpu.DisableInterrupts()
	addr := readCR2Fn()

	cause := "page not present"
	if errorCode&faultPresent != 0 {
		cause = "protection violation"
	}
	access := "read"
	if errorCode&faultWrite != 0 {
		access = "write"
	}
	mode := "supervisor"
	if errorCode&faultUser != 0 {
		mode = "user"
	}

	kfmt.Printf("page fault: %s on %s access to 0x%x from %s mode (eip=0x%x)\n",
		cause, access, addr, mode, frame.EIP)

	kfmt.Panic(&kernel.Error{Module: "vmm", Message: "unrecoverable page fault"})
}
