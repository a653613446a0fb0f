package fat16

import "github.com/chriscruz06/MiniOS/kernel"

// scanRoot reads the root directory one sector at a time into primaryBuf,
// invoking visit for every entry that is neither free, deleted, a
// long-filename entry nor a volume label. It stops at the first free
// entry (first byte 0x00), which marks the end of the directory, or when
// visit returns false.
func scanRoot(visit func(sector uint32, index int, entry DirEntry) bool) *kernel.Error {
	entriesPerSector := bytesPerSector / direntrySize

	for s := uint32(0); s < vol.rootDirSectorCount; s++ {
		sector := vol.rootDirStartLBA + s
		if err := readSector(sector, &primaryBuf); err != nil {
			return err
		}

		for i := 0; i < entriesPerSector; i++ {
			off := i * direntrySize
			switch primaryBuf[off] {
			case freeEntryMarker:
				return nil
			case deletedEntryMarker:
				continue
			}

			entry := decodeDirEntry(primaryBuf[off : off+direntrySize])
			if entry.Attr == longNameAttr || entry.Attr&attrVolumeID != 0 {
				continue
			}
			if !visit(sector, i, entry) {
				return nil
			}
		}
	}
	return nil
}

func findInRoot(name string) (entry DirEntry, sector uint32, index int, found bool, err *kernel.Error) {
	target := canonicalize(name)
	err = scanRoot(func(s uint32, i int, e DirEntry) bool {
		if entryMatchesName(e, target) {
			entry, sector, index, found = e, s, i, true
			return false
		}
		return true
	})
	return
}

func entryMatchesName(e DirEntry, target [11]byte) bool {
	for i := 0; i < 8; i++ {
		if e.Name[i] != target[i] {
			return false
		}
	}
	for i := 0; i < 3; i++ {
		if e.Ext[i] != target[8+i] {
			return false
		}
	}
	return true
}

// findFreeRootSlot returns the (sector, index) of the first free or
// deleted entry in the root directory without modifying it.
func findFreeRootSlot() (sector uint32, index int, found bool, err *kernel.Error) {
	entriesPerSector := bytesPerSector / direntrySize

	for s := uint32(0); s < vol.rootDirSectorCount; s++ {
		lba := vol.rootDirStartLBA + s
		if err = readSector(lba, &primaryBuf); err != nil {
			return 0, 0, false, err
		}
		for i := 0; i < entriesPerSector; i++ {
			b := primaryBuf[i*direntrySize]
			if b == freeEntryMarker || b == deletedEntryMarker {
				return lba, i, true, nil
			}
		}
	}
	return 0, 0, false, nil
}
