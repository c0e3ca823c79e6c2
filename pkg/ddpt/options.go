// Package ddpt implements a block-oriented copy engine modelled on dd,
// specialised for SCSI pass-through storage devices: a read-compare-write
// loop coupling mismatched input/output block sizes, sparse/sparing
// writes, continue-on-error recovery, and a signal-driven progress and
// interruption subsystem.
package ddpt

import (
	"os"
	"time"

	"github.com/yiyiyouwo/ddpt/pkg/ddpt/scsipt"
)

// defaultBlockSize is the historical dd default block size.
const defaultBlockSize = 512

// Endpoint is one side of the copy (IFILE, OFILE or OFILE2): either a
// regular *os.File (covers REG/BLOCK/CHAR/FIFO/TAPE) or a pass-through
// session through a scsipt.Provider.
type Endpoint struct {
	Path string
	Type FileType

	File *os.File

	PTProvider scsipt.Provider
	PTHandle   scsipt.Handle

	// filepos is the believed byte offset of this descriptor, used to
	// skip redundant seeks (spec.md §3, §4.9).
	filepos int64
	// posValid is false until the first read/write establishes filepos.
	posValid bool
}

func (e *Endpoint) IsPT() bool { return e.Type.Has(PT) }

// Options is the process-wide options record of spec.md §3: user
// parameters plus the mutable counters the copy loop updates in place.
type Options struct {
	// Block and batch sizes.
	IBS, OBS       int
	IBSPI, OBSPI   int
	BptI           int
	Obpc           int

	// Protection fields.
	RDProtect, WRProtect int
	PIExpIn, PIExpOut    int

	// Positional cursors, in block units. DDCount == -1 means "derive".
	Skip, Seek int64
	DDCount    int64

	// Endpoints.
	In, Out, Out2   Endpoint
	InPath, OutPath string
	Out2Path        string

	OutTypeHold FileType

	IFlags InputFlags
	OFlags OutputFlags

	CDBSize int

	// SyncPad implements conv=sync: zero-pad a short input block up to a
	// full ibs rather than passing a partial block downstream.
	SyncPad bool

	Retries   int
	CoeLimit  int
	IntIO     bool
	ErrBlkPath string
	ConfPath   string

	Verbose int
	StatusNoXfer bool
	StatusProgress bool

	// Counters (spec.md §3).
	InFull, InPartial               int64
	OutFull, OutPartial             int64
	OutSparse, OutSparsePartial     int64
	RecoveredErrs, UnrecoveredErrs  int64
	WrRecoveredErrs, WrUnrecoveredErrs int64
	TrimErrs                        int64
	NumRetries, InterruptedRetries  int64
	CoeCount                        int64
	LowestUnrecovered, HighestUnrecovered int64
	LowestSkip, LowestSeek           int64

	StartTime      time.Time
	StartTimeValid bool

	// Working buffers, allocated once Options is ready to run.
	Buf       []byte // primary transfer buffer, ibs_pi*bpt_i bytes
	SpareBuf  []byte // sparing read-back buffer, same size as Buf
	ZeroBuf   []byte // all-zeros compare/write buffer, obpt*obs bytes

	// ErrToReport holds a non-fatal read error observed mid-copy so it
	// can be surfaced on otherwise-clean termination (spec.md §7).
	ErrToReport error

	broker *signalBroker
	errLog errBlockLogger
}

// errBlockLogger is the narrow interface the copy loop needs from
// internal/errblk, kept as an interface here so tests can substitute a
// recorder without touching the filesystem.
type errBlockLogger interface {
	LogBlock(lba uint64) error
	LogRange(lba, lbaEnd uint64) error
	Close() error
}

// NewOptions returns a zero-initialised Options record with the
// historical dd defaults.
func NewOptions() *Options {
	return &Options{
		IBS:      defaultBlockSize,
		OBS:      defaultBlockSize,
		IBSPI:    defaultBlockSize,
		OBSPI:    defaultBlockSize,
		DDCount:  -1,
		CDBSize:  10,
		Retries:  3,
		CoeLimit: 0,
		LowestUnrecovered: -1,
		HighestUnrecovered: -1,
	}
}

// piExtra is the extra per-block byte count contributed by protection
// information, per spec.md §3: extra = 8 * 2^PI_EXP.
func piExtra(piExp int) int {
	return 8 << uint(piExp)
}

// DefaultBptI computes the default input Blocks Per Transfer for a given
// ibs, per the table in spec.md §3.
func DefaultBptI(ibs int) int {
	switch {
	case ibs < 8:
		return 8192
	case ibs < 64:
		return 1024
	case ibs < 1024:
		return 128
	case ibs < 8192:
		return 16
	case ibs < 32768:
		return 4
	default:
		return 1
	}
}

// Finalize derives the fields that depend on others once IBS/OBS/
// protection settings are all known: IBSPI/OBSPI, BptI (if unset), and
// validates the block-size alignment invariant.
func (o *Options) Finalize() error {
	if o.RDProtect != 0 {
		o.IBSPI = o.IBS + piExtra(o.PIExpIn)
	} else {
		o.IBSPI = o.IBS
	}
	if o.WRProtect != 0 {
		o.OBSPI = o.OBS + piExtra(o.PIExpOut)
	} else {
		o.OBSPI = o.OBS
	}
	if o.BptI <= 0 {
		o.BptI = DefaultBptI(o.IBS)
	}
	if o.IBS != o.OBS && (o.IBS*o.BptI)%o.OBS != 0 {
		return errkf(SYNTAX, "(ibs=%d * bpt=%d) mod obs=%d != 0", o.IBS, o.BptI, o.OBS)
	}
	return nil
}

// AllocateBuffers sizes the working buffers. Call after Finalize.
func (o *Options) AllocateBuffers() {
	bufSize := o.IBSPI * o.BptI
	o.Buf = make([]byte, bufSize)
	if o.OFlags.Sparing {
		o.SpareBuf = make([]byte, bufSize)
	}
	obpt := (o.IBS * o.BptI) / o.OBS
	o.ZeroBuf = make([]byte, obpt*o.OBS)
}
