package fat16

import "github.com/chriscruz06/MiniOS/kernel"

// ReadFile locates name in the root directory and copies min(file size,
// len(out)) bytes into out, returning the number of bytes copied.
func ReadFile(name string, out []byte) (int, *kernel.Error) {
	if err := requireMounted(); err != nil {
		return 0, err
	}

	entry, _, _, found, err := findInRoot(name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, errNotFound
	}
	if entry.Attr&attrDirectory != 0 {
		return 0, errIsDirectory
	}

	toRead := int(entry.FileSize)
	if toRead > len(out) {
		toRead = len(out)
	}

	var buf [bytesPerSector]byte
	written := 0
	cluster := entry.ClusterLow
	for isDataCluster(cluster) && !isEndOfChain(cluster) && written < toRead {
		lba := clusterLBA(cluster)
		for s := uint32(0); s < uint32(vol.bpb.sectorsPerCluster) && written < toRead; s++ {
			if err := readSector(lba+s, &buf); err != nil {
				return written, err
			}
			written += copy(out[written:toRead], buf[:])
		}

		next, err := readFATEntry(cluster)
		if err != nil {
			return written, err
		}
		cluster = next
	}

	return written, nil
}

// Exists reports whether name is present in the root directory.
func Exists(name string) (bool, *kernel.Error) {
	if err := requireMounted(); err != nil {
		return false, err
	}
	_, _, _, found, err := findInRoot(name)
	return found, err
}

// CreateFile deletes any existing entry named name, allocates a cluster
// chain sized to hold data and writes both the payload and the directory
// entry. Creating a zero-length file leaves cluster_low at 0.
func CreateFile(name string, data []byte) *kernel.Error {
	if err := requireMounted(); err != nil {
		return err
	}

	if err := DeleteFile(name); err != nil && err != errNotFound {
		return err
	}

	sector, index, found, err := findFreeRootSlot()
	if err != nil {
		return err
	}
	if !found {
		return errDiskFull
	}

	var firstCluster uint16
	size := uint32(len(data))
	if size > 0 {
		if firstCluster, err = writeClusterChain(data); err != nil {
			return err
		}
	}

	return writeRootEntry(sector, index, canonicalize(name), attrArchive, firstCluster, size)
}

func writeClusterChain(data []byte) (uint16, *kernel.Error) {
	clusterBytes := uint32(vol.bpb.sectorsPerCluster) * bytesPerSector
	size := uint32(len(data))
	clustersNeeded := (size + clusterBytes - 1) / clusterBytes

	var firstCluster, prev uint16
	var sectorBuf [bytesPerSector]byte

	for i := uint32(0); i < clustersNeeded; i++ {
		c, err := allocCluster()
		if err != nil {
			return 0, err
		}
		if i == 0 {
			firstCluster = c
		} else if err := writeFATEntry(prev, c); err != nil {
			return 0, err
		}
		if err := writeFATEntry(c, endOfChainValue); err != nil {
			return 0, err
		}

		lba := clusterLBA(c)
		clusterStart := i * clusterBytes
		for s := uint32(0); s < uint32(vol.bpb.sectorsPerCluster); s++ {
			sectorBuf = [bytesPerSector]byte{}
			start := clusterStart + s*bytesPerSector
			if start < size {
				copy(sectorBuf[:], data[start:])
			}
			if err := writeSector(lba+s, &sectorBuf); err != nil {
				return 0, err
			}
		}

		prev = c
	}

	return firstCluster, nil
}

// writeRootEntry re-reads sector (the bounce buffer may have been clobbered
// by cluster-chain I/O since the slot was chosen) and installs the entry at
// index.
func writeRootEntry(sector uint32, index int, name [11]byte, attr byte, cluster uint16, size uint32) *kernel.Error {
	if err := readSector(sector, &primaryBuf); err != nil {
		return err
	}

	entry := DirEntry{Attr: attr, ClusterLow: cluster, FileSize: size}
	copy(entry.Name[:], name[:8])
	copy(entry.Ext[:], name[8:])

	off := index * direntrySize
	encodeDirEntry(entry, primaryBuf[off:off+direntrySize])

	return writeSector(sector, &primaryBuf)
}

// DeleteFile frees the cluster chain (if any) and marks the directory
// entry deleted. Returns errNotFound if name is absent.
func DeleteFile(name string) *kernel.Error {
	if err := requireMounted(); err != nil {
		return err
	}

	entry, sector, index, found, err := findInRoot(name)
	if err != nil {
		return err
	}
	if !found {
		return errNotFound
	}

	if isDataCluster(entry.ClusterLow) {
		if err := freeChain(entry.ClusterLow); err != nil {
			return err
		}
	}

	if err := readSector(sector, &primaryBuf); err != nil {
		return err
	}
	primaryBuf[index*direntrySize] = deletedEntryMarker
	return writeSector(sector, &primaryBuf)
}

// Mkdir creates an empty directory in the root: one cluster holding "."
// (pointing at itself) and ".." (cluster_low 0, denoting the root).
func Mkdir(name string) *kernel.Error {
	if err := requireMounted(); err != nil {
		return err
	}

	if _, _, _, found, err := findInRoot(name); err != nil {
		return err
	} else if found {
		return errAlreadyExists
	}

	sector, index, found, err := findFreeRootSlot()
	if err != nil {
		return err
	}
	if !found {
		return errDiskFull
	}

	cluster, err := allocCluster()
	if err != nil {
		return err
	}
	if err := writeFATEntry(cluster, endOfChainValue); err != nil {
		freeChain(cluster)
		return err
	}

	if err := initDirCluster(cluster); err != nil {
		freeChain(cluster)
		return err
	}

	if err := writeRootEntry(sector, index, canonicalize(name), attrDirectory, cluster, 0); err != nil {
		freeChain(cluster)
		return err
	}
	return nil
}

func initDirCluster(cluster uint16) *kernel.Error {
	lba := clusterLBA(cluster)

	var firstSector [bytesPerSector]byte
	dot := DirEntry{Attr: attrDirectory, ClusterLow: cluster}
	dotdot := DirEntry{Attr: attrDirectory, ClusterLow: 0}
	copy(dot.Name[:], dotName[:8])
	copy(dot.Ext[:], dotName[8:])
	copy(dotdot.Name[:], dotdotName[:8])
	copy(dotdot.Ext[:], dotdotName[8:])

	encodeDirEntry(dot, firstSector[0:direntrySize])
	encodeDirEntry(dotdot, firstSector[direntrySize:2*direntrySize])
	if err := writeSector(lba, &firstSector); err != nil {
		return err
	}

	var zeroSector [bytesPerSector]byte
	for s := uint32(1); s < uint32(vol.bpb.sectorsPerCluster); s++ {
		if err := writeSector(lba+s, &zeroSector); err != nil {
			return err
		}
	}
	return nil
}
