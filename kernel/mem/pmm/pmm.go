// Package pmm implements the kernel's physical frame allocator: it turns the
// firmware memory map into a bitmap of 4 KiB frames and hands them out to
// the paging and heap layers.
package pmm

import (
	"github.com/chriscruz06/MiniOS/kernel"
	"github.com/chriscruz06/MiniOS/kernel/mem"
	"github.com/chriscruz06/MiniOS/kernel/multiboot"
)

const (
	// reservedFrames is the number of frames at the bottom of physical
	// memory (the first megabyte) that are never handed out, regardless of
	// what the memory map claims: IVT, BIOS data area, the bootloader's own
	// data, the IDT and this bitmap all live there.
	reservedFrames = 256 // 256 * 4KiB = 1MiB

	// maxManagedMemory bounds the amount of physical memory this allocator
	// will track, so that a firmware report of an implausibly large usable
	// region cannot blow up the bitmap.
	maxManagedMemory = 256 * uint64(mem.Mb)
)

var (
	errOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of physical memory"}

	bitmapAllocator allocator
)

// allocator is the bitmap-backed physical frame allocator described in the
// design: every bit starts out used; Usable regions reported by the memory
// map are cleared frame-by-frame, after which the first megabyte is
// re-marked used unconditionally.
type allocator struct {
	bits       bitset
	usedFrames uint64
}

// Init rebuilds the bitmap from the currently loaded firmware memory map
// (see the multiboot package). It must be called exactly once, before any
// call to AllocFrame/FreeFrame/IsAllocated.
func Init() {
	bitmapAllocator.init()
}

func (a *allocator) init() {
	var maxEnd uint64
	multiboot.VisitRegions(func(e *multiboot.Entry) bool {
		if end := e.Base + e.Length; end > maxEnd {
			maxEnd = end
		}
		return true
	})
	if maxEnd > maxManagedMemory {
		maxEnd = maxManagedMemory
	}

	totalFrames := uint32(maxEnd / uint64(mem.PageSize))
	if totalFrames == 0 {
		totalFrames = reservedFrames
	}

	a.bits = newBitset(totalFrames)
	a.bits.SetAll()
	// Every frame starts marked used; the passes below clear the ones the
	// memory map reports as usable and then re-reserve the first megabyte,
	// keeping usedFrames in step with the bitmap rather than the bitmap
	// summarizing a counter nobody updated.
	a.usedFrames = uint64(totalFrames)

	multiboot.VisitRegions(func(e *multiboot.Entry) bool {
		if e.Type != multiboot.Usable {
			return true
		}

		base, length := e.Base, e.Length
		pageSizeMinus1 := uint64(mem.PageSize) - 1
		if off := base & pageSizeMinus1; off != 0 {
			roundUp := uint64(mem.PageSize) - off
			if roundUp > length {
				return true
			}
			base += roundUp
			length -= roundUp
		}

		frames := length / uint64(mem.PageSize)
		startFrame := uint32(base / uint64(mem.PageSize))
		for i := uint32(0); i < uint32(frames) && startFrame+i < a.bits.Len(); i++ {
			idx := startFrame + i
			if a.bits.Test(idx) {
				a.bits.Clear(idx)
				a.usedFrames--
			}
		}
		return true
	})

	// The first megabyte is never usable, no matter what the memory map
	// claims: it holds the IVT, BIOS data area, the loaded bitmap and (once
	// installed) the IDT.
	for i := uint32(0); i < reservedFrames && i < a.bits.Len(); i++ {
		if !a.bits.Test(i) {
			a.bits.Set(i)
			a.usedFrames++
		}
	}
}

// AllocFrame scans the bitmap from frame 0 and returns the first unused
// frame, marking it used. It returns mem.InvalidFrame if no frame is free.
func (a *allocator) AllocFrame() (mem.Frame, *kernel.Error) {
	bit, ok := a.bits.FirstClear(0)
	if !ok {
		return mem.InvalidFrame, errOutOfMemory
	}
	a.bits.Set(bit)
	a.usedFrames++
	return mem.Frame(bit), nil
}

// FreeFrame releases a previously allocated frame. Frames below
// reservedFrames, frames outside the managed range and frames that are
// already free are silently ignored: this makes free(alloc()) sound and a
// double-free a harmless no-op.
func (a *allocator) FreeFrame(f mem.Frame) {
	idx := uint32(f)
	if idx < reservedFrames || idx >= a.bits.Len() {
		return
	}
	if !a.bits.Test(idx) {
		return
	}
	a.bits.Clear(idx)
	// saturating decrement: a Usable region that the memory map reported as
	// already clear would otherwise underflow this counter. The design
	// tolerates that rather than treating it as fatal.
	if a.usedFrames > 0 {
		a.usedFrames--
	}
}

// IsAllocated reports whether frame f is currently in use. Frames outside
// the managed range are reported as in use.
func (a *allocator) IsAllocated(f mem.Frame) bool {
	idx := uint32(f)
	if idx >= a.bits.Len() {
		return true
	}
	return a.bits.Test(idx)
}

// TotalFrames returns the number of frames tracked by the allocator.
func (a *allocator) TotalFrames() uint32 { return a.bits.Len() }

// UsedFrames returns the number of frames currently marked in use.
func (a *allocator) UsedFrames() uint64 { return a.usedFrames }

// AllocFrame allocates a physical frame using the package's singleton
// allocator.
func AllocFrame() (mem.Frame, *kernel.Error) { return bitmapAllocator.AllocFrame() }

// FreeFrame releases f back to the package's singleton allocator.
func FreeFrame(f mem.Frame) { bitmapAllocator.FreeFrame(f) }

// IsAllocated reports whether frame f is currently in use.
func IsAllocated(f mem.Frame) bool { return bitmapAllocator.IsAllocated(f) }

// TotalFrames returns the number of physical frames under management.
func TotalFrames() uint32 { return bitmapAllocator.TotalFrames() }

// UsedFrames returns the number of frames currently allocated.
func UsedFrames() uint64 { return bitmapAllocator.UsedFrames() }
