package ata

// MemDevice is the hosted stand-in for the primary-master drive: an
// in-memory sector image, sized by NewMemDevice, that FAT16 tests run
// against instead of real hardware.
type MemDevice struct {
	sectors [][SectorSize]byte
}

// NewMemDevice allocates an in-memory image of the given sector count.
func NewMemDevice(sectorCount int) *MemDevice {
	return &MemDevice{sectors: make([][SectorSize]byte, sectorCount)}
}

func (m *MemDevice) ReadSector(lba uint32, buf *[SectorSize]byte) Status {
	if buf == nil {
		return StatusInvalidArgument
	}
	if int(lba) >= len(m.sectors) {
		return StatusInvalidArgument
	}
	*buf = m.sectors[lba]
	return StatusOK
}

func (m *MemDevice) WriteSector(lba uint32, buf *[SectorSize]byte) Status {
	if buf == nil {
		return StatusInvalidArgument
	}
	if int(lba) >= len(m.sectors) {
		return StatusInvalidArgument
	}
	m.sectors[lba] = *buf
	return StatusOK
}
