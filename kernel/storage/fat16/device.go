package fat16

import (
	"github.com/chriscruz06/MiniOS/kernel"
	"github.com/chriscruz06/MiniOS/kernel/storage/ata"
)

// primaryBuf and auxBuf are the filesystem's two bounce buffers: primaryBuf
// carries directory scans and FAT entry reads (file payload I/O uses local
// sector buffers), auxBuf is reserved for FAT
// entry writes so that a mutation never clobbers a directory scan in
// progress on primaryBuf.
var (
	primaryBuf [bytesPerSector]byte
	auxBuf     [bytesPerSector]byte
)

func readSector(lba uint32, buf *[bytesPerSector]byte) *kernel.Error {
	if st := ata.ActiveDevice.ReadSector(lba, buf); st != ata.StatusOK {
		return ioError(st)
	}
	return nil
}

func writeSector(lba uint32, buf *[bytesPerSector]byte) *kernel.Error {
	if st := ata.ActiveDevice.WriteSector(lba, buf); st != ata.StatusOK {
		return ioError(st)
	}
	return nil
}

func ioError(st ata.Status) *kernel.Error {
	switch st {
	case ata.StatusNoDrive:
		return &kernel.Error{Module: "fat16", Message: "no drive present"}
	case ata.StatusNotATA:
		return &kernel.Error{Module: "fat16", Message: "device is not an ATA drive"}
	case ata.StatusDriveError:
		return &kernel.Error{Module: "fat16", Message: "drive reported a command error"}
	case ata.StatusDeviceFault:
		return &kernel.Error{Module: "fat16", Message: "drive reported a device fault"}
	case ata.StatusNoData:
		return &kernel.Error{Module: "fat16", Message: "drive did not assert data request"}
	case ata.StatusInvalidArgument:
		return &kernel.Error{Module: "fat16", Message: "invalid sector I/O argument"}
	default:
		return &kernel.Error{Module: "fat16", Message: "unknown disk I/O error"}
	}
}
