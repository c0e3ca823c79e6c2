//go:build linux

// Package blockdev implements the capacity-oracle contract of spec.md
// §6 ("Capacity oracle contract (consumed)"): given an open block
// device, report its sector count and logical sector size.
package blockdev

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/yiyiyouwo/ddpt/internal/ioctlnum"
)

var (
	blkGetSize64 = int(ioctlnum.IOR(0x12, 114, unsafe.Sizeof(uint64(0))))
	blkSSZGet    = int(ioctlnum.IO(0x12, 104))
)

// Capacity issues BLKGETSIZE64/BLKSSZGET against an already-open block
// device file, grounded on the ioctl-pair idiom used throughout the
// pack's device-facing code (e.g. mendersoftware-mender's
// GetBlockDeviceSize/GetBlockDeviceSectorSize helpers).
func Capacity(f *os.File) (numSectors uint64, sectorSize int, err error) {
	fd := f.Fd()
	sizeBytes, err := unix.IoctlGetUint64(int(fd), blkGetSize64)
	if err != nil {
		return 0, 0, err
	}
	ssz, err := unix.IoctlGetInt(int(fd), blkSSZGet)
	if err != nil {
		return 0, 0, err
	}
	if ssz <= 0 {
		ssz = 512
	}
	return sizeBytes / uint64(ssz), ssz, nil
}
