// Package errblk writes the append-only errblk.txt log named in
// spec.md §6. It is an external collaborator to the copy loop (out of
// core scope per §1) kept deliberately small: open, log a block or
// range, close.
package errblk

import (
	"fmt"
	"os"
	"time"
)

type Log struct {
	f *os.File
}

// Open appends to (or creates) path and writes a "# start:" marker.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	l := &Log{f: f}
	if _, err := fmt.Fprintf(f, "# start: %s\n", timestamp()); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

// LogBlock records a single bad LBA.
func (l *Log) LogBlock(lba uint64) error {
	_, err := fmt.Fprintf(l.f, "0x%x\n", lba)
	return err
}

// LogRange records an inclusive LBA range.
func (l *Log) LogRange(lba, lbaEnd uint64) error {
	_, err := fmt.Fprintf(l.f, "0x%x-0x%x\n", lba, lbaEnd)
	return err
}

// Close writes the "# stop:" marker and closes the file.
func (l *Log) Close() error {
	_, err := fmt.Fprintf(l.f, "# stop: %s\n", timestamp())
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}
