package ata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDeviceReadWriteRoundTrip(t *testing.T) {
	dev := NewMemDevice(32 * 1024 * 1024 / SectorSize)

	var want [SectorSize]byte
	for i := range want {
		want[i] = byte(i)
	}

	require.Equal(t, StatusOK, dev.WriteSector(10, &want))

	var got [SectorSize]byte
	require.Equal(t, StatusOK, dev.ReadSector(10, &got))
	require.Equal(t, want, got, "read back different bytes than were written")
}

func TestMemDeviceRejectsOutOfRangeLBA(t *testing.T) {
	dev := NewMemDevice(16)
	var buf [SectorSize]byte
	require.Equal(t, StatusInvalidArgument, dev.ReadSector(100, &buf))
}

func TestMemDeviceRejectsNilBuffer(t *testing.T) {
	dev := NewMemDevice(16)
	require.Equal(t, StatusInvalidArgument, dev.ReadSector(0, nil))
	require.Equal(t, StatusInvalidArgument, dev.WriteSector(0, nil))
}
