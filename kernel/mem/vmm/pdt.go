package vmm

import (
	"github.com/chriscruz06/MiniOS/kernel"
	"github.com/chriscruz06/MiniOS/kernel/cpu"
	"github.com/chriscruz06/MiniOS/kernel/mem"
)

const (
	entriesPerTable = 1024
	pdeShift        = 22
	pteShift        = 12
	tableIndexMask  = entriesPerTable - 1
)

var (
	// frameAllocator is registered via SetFrameAllocator and is used
	// whenever Map needs to instantiate a new page table.
	frameAllocator FrameAllocatorFn

	// flushTLBEntryFn is the TLB-invalidation hook Map calls; it defaults to
	// cpu.FlushTLBEntry.
	flushTLBEntryFn = cpu.FlushTLBEntry

	errNoFrameAllocator = &kernel.Error{Module: "vmm", Message: "no frame allocator registered"}
)

// FrameAllocatorFn allocates a single physical frame.
type FrameAllocatorFn func() (mem.Frame, *kernel.Error)

// SetFrameAllocator registers the function Map uses to obtain fresh page
// table frames.
func SetFrameAllocator(fn FrameAllocatorFn) { frameAllocator = fn }

// PageDirectory is a two-level x86 page directory: 1024 PDEs, each either
// empty or pointing at a page table of 1024 PTEs, each mapping one 4 KiB
// page.
type PageDirectory struct {
	Frame mem.Frame
}

func pdeIndex(virtAddr uintptr) uint32 { return uint32((virtAddr >> pdeShift) & tableIndexMask) }
func pteIndex(virtAddr uintptr) uint32 { return uint32((virtAddr >> pteShift) & tableIndexMask) }

func (pd *PageDirectory) pdeAddr(index uint32) uintptr {
	return pd.Frame.Address() + uintptr(index)*4
}

func (pd *PageDirectory) readPDE(index uint32) entry {
	return entry(ActiveMemory.ReadU32(pd.pdeAddr(index)))
}

func (pd *PageDirectory) writePDE(index uint32, e entry) {
	ActiveMemory.WriteU32(pd.pdeAddr(index), uint32(e))
}

// Init allocates and zeroes the frame backing this page directory.
func (pd *PageDirectory) Init() *kernel.Error {
	if frameAllocator == nil {
		return errNoFrameAllocator
	}
	f, err := frameAllocator()
	if err != nil {
		return err
	}
	pd.Frame = f
	zeroFrame(f.Address())
	return nil
}

// Map establishes a mapping from page to frame with the given flags,
// allocating a new page table (via the registered frame allocator) if the
// relevant PDE is not yet present. Its only TLB invalidation is one call to
// flushTLBEntryFn for the mapped address after the PTE is written.
func (pd *PageDirectory) Map(page mem.Page, frame mem.Frame, flags Flag) *kernel.Error {
	if frameAllocator == nil {
		return errNoFrameAllocator
	}

	virtAddr := page.Address()
	pi := pdeIndex(virtAddr)
	ti := pteIndex(virtAddr)

	pde := pd.readPDE(pi)
	var ptFrame mem.Frame
	if !pde.HasFlags(FlagPresent) {
		newFrame, err := frameAllocator()
		if err != nil {
			return err
		}
		zeroFrame(newFrame.Address())

		userFlag := Flag(0)
		if flags&FlagUser != 0 {
			userFlag = FlagUser
		}
		pde = encode(newFrame, FlagPresent|FlagWritable|userFlag)
		pd.writePDE(pi, pde)
		ptFrame = newFrame
	} else {
		ptFrame = pde.Frame()
	}

	pteAddr := ptFrame.Address() + uintptr(ti)*4
	ActiveMemory.WriteU32(pteAddr, uint32(encode(frame, flags)))
	flushTLBEntryFn(virtAddr)

	return nil
}

// Translate returns the physical address that virtAddr currently maps to,
// or ErrNotMapped if the relevant PDE or PTE is not present.
func (pd *PageDirectory) Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	pi := pdeIndex(virtAddr)
	pde := pd.readPDE(pi)
	if !pde.HasFlags(FlagPresent) {
		return 0, ErrNotMapped
	}

	ti := pteIndex(virtAddr)
	pteAddr := pde.Frame().Address() + uintptr(ti)*4
	pte := entry(ActiveMemory.ReadU32(pteAddr))
	if !pte.HasFlags(FlagPresent) {
		return 0, ErrNotMapped
	}

	offset := virtAddr & (uintptr(mem.PageSize) - 1)
	return pte.Frame().Address() + offset, nil
}

// ErrNotMapped is returned when a virtual address has no present mapping.
var ErrNotMapped = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page"}
