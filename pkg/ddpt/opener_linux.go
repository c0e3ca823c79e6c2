//go:build linux

package ddpt

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func odirectFlag() int       { return unix.O_DIRECT }
func osyscallExclFlag() int  { return unix.O_EXCL }
func osyscallSyncFlag() int  { return unix.O_SYNC }

func flockShared(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_SH|unix.LOCK_NB)
}

func flockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

func adviseSequential(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}

// preAllocIsKeepSize is true on Linux: fallocate() does not change the
// apparent file size reported by stat(2), so oflag=resume still works
// after pre-allocation. See spec.md §9's preserved Open Question.
const preAllocIsKeepSize = true

func preallocate(f *os.File, sizeBytes int64) error {
	if sizeBytes <= 0 {
		return nil
	}
	return syscall.Fallocate(int(f.Fd()), unix.FALLOC_FL_KEEP_SIZE, 0, sizeBytes)
}
