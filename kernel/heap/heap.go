// Package heap implements the kernel's byte-granular allocator: a single
// doubly-linked list of blocks in strict address order, first-fit search,
// splitting on allocation and address-adjacency coalescing on free. It draws
// its backing pages from the physical frame allocator through the virtual
// memory manager, growing the heap region a few pages at a time as demand
// requires.
package heap

import (
	"unsafe"

	"github.com/chriscruz06/MiniOS/kernel"
	"github.com/chriscruz06/MiniOS/kernel/kfmt"
	"github.com/chriscruz06/MiniOS/kernel/mem"
	"github.com/chriscruz06/MiniOS/kernel/mem/pmm"
	"github.com/chriscruz06/MiniOS/kernel/mem/vmm"
)

const (
	// baseVirtAddr is the first byte of the heap region: the 4 MiB boundary
	// immediately above the identity-mapped low memory the VMM sets up.
	baseVirtAddr = uintptr(0x400000)

	initialPages = 4
	maxPages     = 256
	minPages     = 2

	// minBlockSize is the smallest remainder split() will carve off into a
	// new free block; a smaller remainder is left attached to the
	// allocation instead of becoming unusable debris.
	minBlockSize = 8

	blockMagic = uint32(0xDEADBEEF)
)

// blockHeader precedes every block, free or allocated, on the heap's single
// address-ordered list. next/prev are zero at the ends of the list; zero is
// never a valid block address because it precedes baseVirtAddr.
type blockHeader struct {
	size  uint32
	free  bool
	magic uint32
	next  uintptr
	prev  uintptr
}

var headerSize = uint32(unsafe.Sizeof(blockHeader{}))

var (
	errOutOfMemory = &kernel.Error{Module: "heap", Message: "out of memory"}

	// arena backs the whole heap region. A hosted build cannot place real
	// memory at an arbitrary virtual address the way a mapped page on real
	// hardware can be dereferenced directly, so it pre-reserves enough Go
	// memory for the largest heap this design ever grows to and indexes
	// into it by offset from baseVirtAddr; see vmm.Memory's doc comment for
	// the same reasoning applied to physical memory.
	arena       = make([]byte, maxPages*uint32(mem.PageSize))
	mappedBytes uint32
	headAddr    uintptr
)

// Init reserves the initial heap pages and makes the region one large free
// block. It must run after pmm.Init and vmm.Init.
func Init() *kernel.Error {
	mappedBytes = 0
	headAddr = baseVirtAddr

	if err := mapPages(initialPages); err != nil {
		return err
	}

	head := headerAt(headAddr)
	*head = blockHeader{
		size:  mappedBytes - headerSize,
		free:  true,
		magic: blockMagic,
	}
	return nil
}

func headerAt(addr uintptr) *blockHeader {
	off := addr - baseVirtAddr
	return (*blockHeader)(unsafe.Pointer(&arena[off]))
}

func mapPages(n int) *kernel.Error {
	if uint32(n)+mappedBytes/uint32(mem.PageSize) > maxPages {
		return errOutOfMemory
	}
	for i := 0; i < n; i++ {
		frame, err := pmm.AllocFrame()
		if err != nil {
			return errOutOfMemory
		}
		virt := baseVirtAddr + uintptr(mappedBytes)
		if err := vmm.Map(mem.PageFromAddress(virt), frame, vmm.FlagPresent|vmm.FlagWritable); err != nil {
			return err
		}
		mappedBytes += uint32(mem.PageSize)
	}
	return nil
}

func roundUp4(size uint32) uint32 {
	return (size + 3) &^ 3
}

func pagesNeeded(size uint32) int {
	total := size + headerSize
	pages := int((total + uint32(mem.PageSize) - 1) / uint32(mem.PageSize))
	if pages < minPages {
		pages = minPages
	}
	return pages
}

// Kmalloc returns the address of a size-byte payload. A size of 0 returns 0
// and a nil error; if no free frame is available to grow the heap it returns
// 0 and a non-nil error.
func Kmalloc(size uint32) (uintptr, *kernel.Error) {
	if size == 0 {
		return 0, nil
	}
	size = roundUp4(size)

	for {
		if addr, ok := firstFit(size); ok {
			split(addr, size)
			headerAt(addr).free = false
			return addr + uintptr(headerSize), nil
		}

		oldEnd := baseVirtAddr + uintptr(mappedBytes)
		lastHeader, lastAddr := lastBlock()

		if err := mapPages(pagesNeeded(size)); err != nil {
			return 0, err
		}
		grown := uint32(baseVirtAddr+uintptr(mappedBytes)) - uint32(oldEnd)

		if lastHeader.free && lastAddr+uintptr(headerSize)+uintptr(lastHeader.size) == oldEnd {
			lastHeader.size += grown
		} else {
			newBlock := headerAt(oldEnd)
			*newBlock = blockHeader{size: grown - headerSize, free: true, magic: blockMagic, prev: lastAddr}
			if lastAddr != 0 {
				headerAt(lastAddr).next = oldEnd
			} else {
				headAddr = oldEnd
			}
		}
	}
}

func lastBlock() (*blockHeader, uintptr) {
	addr := headAddr
	var header *blockHeader
	for addr != 0 {
		header = headerAt(addr)
		if header.next == 0 {
			return header, addr
		}
		addr = header.next
	}
	return header, addr
}

func firstFit(size uint32) (uintptr, bool) {
	for addr := headAddr; addr != 0; {
		header := headerAt(addr)
		if header.free && header.size >= size {
			return addr, true
		}
		addr = header.next
	}
	return 0, false
}

func split(addr uintptr, size uint32) {
	header := headerAt(addr)
	if header.size-size < headerSize+minBlockSize {
		return
	}

	newAddr := addr + uintptr(headerSize) + uintptr(size)
	newHeader := headerAt(newAddr)
	*newHeader = blockHeader{
		size:  header.size - size - headerSize,
		free:  true,
		magic: blockMagic,
		next:  header.next,
		prev:  addr,
	}
	if header.next != 0 {
		headerAt(header.next).prev = newAddr
	}
	header.next = newAddr
	header.size = size
}

// Kfree releases a block previously returned by Kmalloc. A nil pointer, a
// bad magic word or a double-free are all silently ignored: the design
// tolerates heap corruption rather than panicking on it (see the design
// notes on why kfree never raises an error).
func Kfree(ptr uintptr) {
	if ptr == 0 {
		return
	}
	addr := ptr - uintptr(headerSize)
	header := headerAt(addr)
	if header.magic != blockMagic || header.free {
		return
	}
	header.free = true

	coalesceNext(addr)
	coalescePrev(addr)
}

func coalesceNext(addr uintptr) {
	header := headerAt(addr)
	if header.next == 0 {
		return
	}
	next := headerAt(header.next)
	if !next.free || addr+uintptr(headerSize)+uintptr(header.size) != header.next {
		return
	}

	header.size += headerSize + next.size
	header.next = next.next
	if next.next != 0 {
		headerAt(next.next).prev = addr
	}
}

func coalescePrev(addr uintptr) {
	header := headerAt(addr)
	if header.prev == 0 {
		return
	}
	prev := headerAt(header.prev)
	if !prev.free || header.prev+uintptr(headerSize)+uintptr(prev.size) != addr {
		return
	}

	prev.size += headerSize + header.size
	prev.next = header.next
	if header.next != 0 {
		headerAt(header.next).prev = header.prev
	}
}

// BlockCount returns the number of blocks (free or allocated) on the list.
func BlockCount() int {
	count := 0
	for addr := headAddr; addr != 0; addr = headerAt(addr).next {
		count++
	}
	return count
}

// FreeBytes returns the sum of the payload sizes of every free block.
func FreeBytes() uint32 {
	var total uint32
	for addr := headAddr; addr != 0; addr = headerAt(addr).next {
		if header := headerAt(addr); header.free {
			total += header.size
		}
	}
	return total
}

// TotalBytes returns the heap's total payload capacity: every mapped byte
// minus the one header the region always carries.
func TotalBytes() uint32 { return mappedBytes - headerSize }

// UsedBytes returns the sum of payload-plus-header sizes of every allocated
// block.
func UsedBytes() uint32 {
	var total uint32
	for addr := headAddr; addr != 0; addr = headerAt(addr).next {
		if header := headerAt(addr); !header.free {
			total += header.size + headerSize
		}
	}
	return total
}

// HeaderSize returns the byte size of a block header, the amount split and
// coalesce add or remove per block boundary.
func HeaderSize() uint32 { return headerSize }

// Dump prints every block on the list in address order: its address, size
// and free/used state. Intended for interactive debugging from the shell.
func Dump() {
	i := 0
	for addr := headAddr; addr != 0; addr = headerAt(addr).next {
		header := headerAt(addr)
		state := "USED"
		if header.free {
			state = "FREE"
		}
		kfmt.Printf("#%d 0x%x size=%d %s\n", i, addr, header.size, state)
		i++
	}
}
