package fat16

import (
	"testing"

	"github.com/chriscruz06/MiniOS/kernel"
	"github.com/chriscruz06/MiniOS/kernel/storage/ata"
	"github.com/stretchr/testify/require"
)

// requireNoKernelError checks a *kernel.Error for nil directly, avoiding the
// typed-nil trap that would occur if a nil *kernel.Error were boxed into an
// error interface (e.g. by passing it straight to require.NoError).
func requireNoKernelError(t *testing.T, err *kernel.Error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		require.Fail(t, "unexpected error: "+err.Error(), msgAndArgs...)
	}
}

// mountFreshVolume formats an in-memory 16 MiB image with the layout used
// throughout this file's scenarios: 512-byte sectors, 1 sector/cluster, 1
// reserved sector, 2 FATs of 16 sectors each, 512 root entries.
func mountFreshVolume(t *testing.T) *ata.MemDevice {
	t.Helper()

	const totalSectors = 16 * 1024 * 1024 / bytesPerSector
	dev := ata.NewMemDevice(totalSectors)
	ata.ActiveDevice = dev

	var sector0 [bytesPerSector]byte
	writeU16(sector0[:], 11, bytesPerSector)
	sector0[13] = 1                      // sectors per cluster
	writeU16(sector0[:], 14, 1)          // reserved sectors
	sector0[16] = 2                      // number of FATs
	writeU16(sector0[:], 17, 512)        // root entry count
	writeU16(sector0[:], 19, totalSectors)
	writeU16(sector0[:], 22, 16) // sectors per FAT
	sector0[510] = 0x55
	sector0[511] = 0xAA
	dev.WriteSector(0, &sector0)

	requireNoKernelError(t, Mount())
	return dev
}

func TestCreateThenReadRoundTrip(t *testing.T) {
	mountFreshVolume(t)

	requireNoKernelError(t, CreateFile("HELLO.TXT", []byte("hi")))

	out := make([]byte, 16)
	n, err := ReadFile("hello.txt", out)
	requireNoKernelError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "hi", string(out[:n]))

	entry, _, _, found, err := findInRoot("HELLO.TXT")
	requireNoKernelError(t, err)
	require.True(t, found)
	require.Equal(t, "HELLO   ", string(entry.Name[:]))
	require.Equal(t, "TXT", string(entry.Ext[:]))
	require.Equal(t, byte(attrArchive), entry.Attr)
	require.GreaterOrEqual(t, entry.ClusterLow, uint16(firstUsableCluster))
	require.EqualValues(t, 2, entry.FileSize)
}

func TestCreateFileSpanningMultipleClusters(t *testing.T) {
	mountFreshVolume(t)

	buf := make([]byte, 1500)
	for i := range buf {
		buf[i] = byte(i)
	}

	requireNoKernelError(t, CreateFile("A", buf))

	entry, _, _, found, err := findInRoot("A")
	requireNoKernelError(t, err)
	require.True(t, found)

	// 1500 bytes at 512 bytes/cluster needs 3 clusters, chained to EOC.
	c1 := entry.ClusterLow
	c2, err := readFATEntry(c1)
	requireNoKernelError(t, err)
	c3, err := readFATEntry(c2)
	requireNoKernelError(t, err)
	tail, err := readFATEntry(c3)
	requireNoKernelError(t, err)
	require.True(t, isEndOfChain(tail), "expected the third cluster to terminate the chain, got 0x%x", tail)

	out := make([]byte, 1500)
	n, err := ReadFile("A", out)
	requireNoKernelError(t, err)
	require.Equal(t, 1500, n)
	require.Equal(t, buf, out)
}

func TestCreateEmptyFileThenDelete(t *testing.T) {
	mountFreshVolume(t)

	requireNoKernelError(t, CreateFile("X", nil))
	requireNoKernelError(t, DeleteFile("X"))

	_, err := ReadFile("X", make([]byte, 16))
	require.Equal(t, errNotFound, err)
}

func TestDeleteFreesClustersForReuse(t *testing.T) {
	mountFreshVolume(t)

	requireNoKernelError(t, CreateFile("A", make([]byte, 600)))
	entry, _, _, _, _ := findInRoot("A")
	usedCluster := entry.ClusterLow

	requireNoKernelError(t, DeleteFile("A"))

	reused, err := allocCluster()
	requireNoKernelError(t, err)
	require.Equal(t, usedCluster, reused, "expected the freed cluster to be reused")

	found, err := Exists("A")
	requireNoKernelError(t, err)
	require.False(t, found)
}

func TestMkdirCreatesDotEntries(t *testing.T) {
	mountFreshVolume(t)

	requireNoKernelError(t, Mkdir("DOCS"))

	entry, _, _, found, err := findInRoot("DOCS")
	requireNoKernelError(t, err)
	require.True(t, found)
	require.Equal(t, byte(attrDirectory), entry.Attr)

	var clusterSector [bytesPerSector]byte
	requireNoKernelError(t, readSector(clusterLBA(entry.ClusterLow), &clusterSector))

	dot := decodeDirEntry(clusterSector[0:direntrySize])
	dotdot := decodeDirEntry(clusterSector[direntrySize : 2*direntrySize])
	require.Equal(t, entry.ClusterLow, dot.ClusterLow, "expected \".\" to point at its own cluster")
	require.EqualValues(t, 0, dotdot.ClusterLow, "expected \"..\" to point at the root (cluster 0)")
}

func TestFATMirrorConsistency(t *testing.T) {
	mountFreshVolume(t)

	requireNoKernelError(t, CreateFile("A", make([]byte, 2000)))

	for s := uint32(0); s < uint32(vol.bpb.sectorsPerFAT); s++ {
		var fat1, fat2 [bytesPerSector]byte
		requireNoKernelError(t, readSector(vol.fatStartLBA+s, &fat1))
		requireNoKernelError(t, readSector(vol.fatStartLBA+uint32(vol.bpb.sectorsPerFAT)+s, &fat2))
		require.Equal(t, fat1, fat2, "FAT mirror sector %d diverges from the primary copy", s)
	}
}

func TestCreateFileOverwritesExisting(t *testing.T) {
	mountFreshVolume(t)

	requireNoKernelError(t, CreateFile("A", []byte("first")))
	requireNoKernelError(t, CreateFile("A", []byte("second-version")))

	out := make([]byte, 32)
	n, err := ReadFile("A", out)
	requireNoKernelError(t, err)
	require.Equal(t, "second-version", string(out[:n]))
}
