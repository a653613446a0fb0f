package fat16

import "github.com/chriscruz06/MiniOS/kernel"

const (
	firstUsableCluster = 2
	endOfChainMin       = 0xFFF8
	endOfChainValue     = 0xFFFF
	fatEntrySize        = 2
)

func isEndOfChain(c uint16) bool { return c >= endOfChainMin }
func isDataCluster(c uint16) bool { return c >= firstUsableCluster }

func fatSectorAndOffset(cluster uint16) (uint32, uint32) {
	byteOff := uint32(cluster) * fatEntrySize
	return vol.fatStartLBA + byteOff/bytesPerSector, byteOff % bytesPerSector
}

func readFATEntry(cluster uint16) (uint16, *kernel.Error) {
	sector, off := fatSectorAndOffset(cluster)
	if err := readSector(sector, &primaryBuf); err != nil {
		return 0, err
	}
	return readU16(primaryBuf[:], int(off)), nil
}

// writeFATEntry writes value into every mirror copy of the FAT, using
// auxBuf so a FAT mutation never disturbs a directory scan that is using
// primaryBuf.
func writeFATEntry(cluster uint16, value uint16) *kernel.Error {
	sector, off := fatSectorAndOffset(cluster)
	if err := readSector(sector, &auxBuf); err != nil {
		return err
	}
	writeU16(auxBuf[:], int(off), value)

	fatOffsetSectors := sector - vol.fatStartLBA
	for fat := uint32(0); fat < uint32(vol.bpb.numFATs); fat++ {
		mirror := vol.fatStartLBA + fat*uint32(vol.bpb.sectorsPerFAT) + fatOffsetSectors
		if err := writeSector(mirror, &auxBuf); err != nil {
			return err
		}
	}
	return nil
}

// allocCluster scans the FAT from cluster 2 for the first entry marked
// free and returns it without yet writing anything into it.
func allocCluster() (uint16, *kernel.Error) {
	for c := uint16(firstUsableCluster); uint32(c) < vol.totalClusters+firstUsableCluster; c++ {
		entry, err := readFATEntry(c)
		if err != nil {
			return 0, err
		}
		if entry == 0 {
			return c, nil
		}
	}
	return 0, errDiskFull
}

// freeChain walks a cluster chain starting at start, reading each entry's
// successor before zeroing it, stopping at the first end-of-chain or
// invalid cluster value.
func freeChain(start uint16) *kernel.Error {
	c := start
	for isDataCluster(c) && !isEndOfChain(c) {
		next, err := readFATEntry(c)
		if err != nil {
			return err
		}
		if err := writeFATEntry(c, 0); err != nil {
			return err
		}
		c = next
	}
	return nil
}

func clusterLBA(cluster uint16) uint32 {
	return vol.dataStartLBA + uint32(cluster-firstUsableCluster)*uint32(vol.bpb.sectorsPerCluster)
}
