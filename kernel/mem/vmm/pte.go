package vmm

import "github.com/chriscruz06/MiniOS/kernel/mem"

// Flag is a bit of a page-directory or page-table entry.
type Flag uint32

// Page table / directory entry flags, bits 0-7 of the 32-bit entry.
const (
	FlagPresent      Flag = 1 << 0
	FlagWritable     Flag = 1 << 1
	FlagUser         Flag = 1 << 2
	FlagWritethrough Flag = 1 << 3
	FlagNocache      Flag = 1 << 4
	FlagAccessed     Flag = 1 << 5
	FlagDirty        Flag = 1 << 6
	// FlagFourMiB marks a PDE as mapping a 4MiB page directly instead of
	// pointing at a page table. This kernel never sets it but preserves the
	// bit for completeness of the on-disk/in-memory format.
	FlagFourMiB Flag = 1 << 7

	flagMask      = uint32(0xFFF)
	frameAddrMask = ^uint32(0xFFF)
)

// entry is a 32-bit page-directory or page-table entry: bits 31-12 hold the
// physical frame of the target page (PTE) or child table (PDE); bits 11-0
// hold flags.
type entry uint32

func (e entry) HasFlags(flags Flag) bool {
	return uint32(e)&uint32(flags) == uint32(flags)
}

func (e *entry) SetFlags(flags Flag) {
	*e = entry(uint32(*e) | uint32(flags))
}

func (e *entry) ClearFlags(flags Flag) {
	*e = entry(uint32(*e) &^ uint32(flags))
}

func (e entry) Frame() mem.Frame {
	return mem.Frame((uint32(e) & frameAddrMask) >> mem.PageShift)
}

func (e *entry) SetFrame(f mem.Frame) {
	*e = entry((uint32(*e) &^ frameAddrMask) | (uint32(f.Address()) & frameAddrMask))
}

// encode builds a raw entry from a target frame and flag set. It mirrors
// the wire format directly: P & ~0xFFF | (flags & 0xFFF).
func encode(f mem.Frame, flags Flag) entry {
	return entry((uint32(f.Address()) &^ flagMask) | (uint32(flags) & flagMask))
}
