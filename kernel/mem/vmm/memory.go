package vmm

import (
	"unsafe"

	"github.com/chriscruz06/MiniOS/kernel"
	"github.com/chriscruz06/MiniOS/kernel/mem"
)

// Memory abstracts access to the bytes backing a physical address. On real
// hardware, writing a page-table entry means dereferencing a pointer: since
// every frame the PMM hands the VMM during the boot-time setup described by
// the design falls inside the identity-mapped low 4 MiB (see the design's
// notes on why this works before paging is enabled), a production Memory
// simply casts the physical address to a pointer. The hosted build used for
// testing backs physical memory with a sparse map instead, which lets tests
// exercise arbitrarily large frame numbers without allocating real RAM.
type Memory interface {
	ReadU32(physAddr uintptr) uint32
	WriteU32(physAddr uintptr, val uint32)
}

// ActiveMemory is the physical memory backend used by the paging code.
var ActiveMemory Memory = newHostedMemory()

// directMemory is the production Memory: it dereferences physical addresses
// directly, valid because this kernel only ever touches physical memory
// through the VMM while it is still inside the identity-mapped low 4 MiB.
type directMemory struct{}

func (directMemory) ReadU32(physAddr uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(physAddr))
}

func (directMemory) WriteU32(physAddr uintptr, val uint32) {
	*(*uint32)(unsafe.Pointer(physAddr)) = val
}

type hostedMemory struct {
	words map[uintptr]uint32
}

func newHostedMemory() *hostedMemory {
	return &hostedMemory{words: make(map[uintptr]uint32)}
}

func (m *hostedMemory) ReadU32(physAddr uintptr) uint32 {
	return m.words[physAddr]
}

func (m *hostedMemory) WriteU32(physAddr uintptr, val uint32) {
	if val == 0 {
		delete(m.words, physAddr)
		return
	}
	m.words[physAddr] = val
}

// ResetHostedMemory clears the hosted physical memory backend. Tests call
// this between cases so that frame numbers can be reused without leaking
// page-table contents from a previous case.
func ResetHostedMemory() {
	if hm, ok := ActiveMemory.(*hostedMemory); ok {
		hm.words = make(map[uintptr]uint32)
	}
}

// zeroFrame clears every byte of the frame starting at physAddr. On the
// direct-memory backend this is a single kernel.Memset call; the hosted
// sparse-map backend has no contiguous byte range to hand Memset, so it
// falls back to one WriteU32 per word.
func zeroFrame(physAddr uintptr) {
	if _, hosted := ActiveMemory.(*hostedMemory); !hosted {
		kernel.Memset(physAddr, 0, uintptr(mem.PageSize))
		return
	}
	for off := uintptr(0); off < uintptr(mem.PageSize); off += 4 {
		ActiveMemory.WriteU32(physAddr+off, 0)
	}
}
