//go:build !linux

package blockdev

import (
	"errors"
	"os"
)

// ErrUnsupported is returned on platforms without a block-device
// capacity ioctl wired up; the capacity calculator then treats the
// endpoint's capacity as unknown (there is no os.Stat fallback for
// BLOCK endpoints).
var ErrUnsupported = errors.New("blockdev: capacity query unsupported on this platform")

func Capacity(f *os.File) (numSectors uint64, sectorSize int, err error) {
	return 0, 0, ErrUnsupported
}
