// Package kmain wires the memory/storage core together in the order the
// design requires: physical frames before paging, paging before the heap,
// the ATA driver before the filesystem it backs.
package kmain

import (
	"github.com/chriscruz06/MiniOS/kernel"
	"github.com/chriscruz06/MiniOS/kernel/hal"
	"github.com/chriscruz06/MiniOS/kernel/heap"
	"github.com/chriscruz06/MiniOS/kernel/kfmt"
	"github.com/chriscruz06/MiniOS/kernel/mem/pmm"
	"github.com/chriscruz06/MiniOS/kernel/mem/vmm"
	"github.com/chriscruz06/MiniOS/kernel/multiboot"
	"github.com/chriscruz06/MiniOS/kernel/storage/ata"
	"github.com/chriscruz06/MiniOS/kernel/storage/fat16"
)

var errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

// Kmain is the only Go symbol the rt0 boot trampoline calls. It is not
// expected to return; if it does, the trampoline halts the CPU.
//
//go:noinline
func Kmain() {
	hal.InitTerminal()
	kfmt.Printf("starting kernel\n")

	multiboot.Load(multiboot.InfoAddr)
	pmm.Init()

	vmm.SetFrameAllocator(pmm.AllocFrame)
	if err := vmm.Init(); err != nil {
		kfmt.Panic(err)
	}

	if err := heap.Init(); err != nil {
		kfmt.Panic(err)
	}

	fsLog := hal.ModuleWriter("fat16")
	if st := ata.Identify(); st != ata.StatusOK {
		kfmt.Fprintf(fsLog, "no ATA drive present; filesystem not mounted (status %d)\n", int(st))
	} else if err := fat16.Mount(); err != nil {
		kfmt.Fprintf(fsLog, "mount failed: %s\n", err.Message)
	} else {
		kfmt.Fprintf(fsLog, "volume mounted\n")
	}

	kfmt.Panic(errKmainReturned)
}
