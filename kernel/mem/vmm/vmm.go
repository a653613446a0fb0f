// Package vmm implements the kernel's virtual memory manager: a two-level
// x86 page directory/page table scheme, an identity-mapped first 4 MiB used
// during early boot, and a fatal page-fault handler.
package vmm

import (
	"github.com/chriscruz06/MiniOS/kernel"
	"github.com/chriscruz06/MiniOS/kernel/cpu"
	"github.com/chriscruz06/MiniOS/kernel/irq"
	"github.com/chriscruz06/MiniOS/kernel/mem"
)

// identityMapBytes is the size of the low region mapped 1:1 during Init: one
// full page table's worth of pages, so the bootstrap loop below never has to
// cross into a second PDE.
const identityMapBytes = entriesPerTable * uintptr(mem.PageSize)

// kernelPDT is the directory installed by Init and used by Map/Translate
// once paging is active.
var kernelPDT PageDirectory

// activatePDTFn and enablePagingFn are the hooks into the control-register
// layer. The hosted cpu package models those registers as plain state, so
// tests run Init with the defaults.
var (
	activatePDTFn  = cpu.SwitchPDT
	enablePagingFn = cpu.EnablePaging
)

// Init builds the kernel's page directory, identity-maps the first 4 MiB of
// physical memory (covering the kernel image, the PMM bitmap and the
// bootstrap page tables themselves), registers the page-fault handler and
// switches the CPU into the new address space.
//
// It must run after pmm.Init and after SetFrameAllocator has been called
// with the PMM's AllocFrame.
func Init() *kernel.Error {
	if err := kernelPDT.Init(); err != nil {
		return err
	}

	for addr := uintptr(0); addr < identityMapBytes; addr += uintptr(mem.PageSize) {
		page := mem.PageFromAddress(addr)
		frame := mem.FrameFromAddress(addr)
		if err := kernelPDT.Map(page, frame, FlagPresent|FlagWritable); err != nil {
			return err
		}
	}

	// The directory's own frame may fall outside the identity-mapped range
	// if a large amount of low memory was already consumed before Init ran;
	// mapping it again here is a harmless no-op otherwise.
	pdPage := mem.PageFromAddress(kernelPDT.Frame.Address())
	if err := kernelPDT.Map(pdPage, kernelPDT.Frame, FlagPresent|FlagWritable); err != nil {
		return err
	}

	irq.HandleExceptionWithCode(irq.PageFaultException, handlePageFault)

	activatePDTFn(kernelPDT.Frame.Address())
	enablePagingFn()

	return nil
}

// Map installs a mapping in the kernel's page directory.
func Map(page mem.Page, frame mem.Frame, flags Flag) *kernel.Error {
	return kernelPDT.Map(page, frame, flags)
}

// Translate resolves a virtual address through the kernel's page directory.
func Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	return kernelPDT.Translate(virtAddr)
}

// KernelDirectory returns the page directory installed by Init.
func KernelDirectory() *PageDirectory { return &kernelPDT }
