//go:build !linux

package ddpt

import "os"

func odirectFlag() int      { return 0 }
func osyscallExclFlag() int { return os.O_EXCL }
func osyscallSyncFlag() int { return os.O_SYNC }

func flockShared(f *os.File) error    { return nil }
func flockExclusive(f *os.File) error { return nil }
func adviseSequential(f *os.File)     {}

// preAllocIsKeepSize is false on the non-Linux fallback path: growing
// the file with Truncate changes its apparent size, which defeats
// oflag=resume. See spec.md §9's preserved Open Question.
const preAllocIsKeepSize = false

func preallocate(f *os.File, sizeBytes int64) error {
	if sizeBytes <= 0 {
		return nil
	}
	return f.Truncate(sizeBytes)
}
