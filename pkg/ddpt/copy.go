package ddpt

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/yiyiyouwo/ddpt/internal/errblk"
)

// iterState is the per-iteration copy-state record of spec.md §3: the
// plan for one trip around the loop, reset at the top of every
// iteration and consumed by each step in turn.
type iterState struct {
	icbpt int // input blocks planned this iteration
	ocbpt int // output blocks planned this iteration

	bytesRead          int
	bytesOf            int
	bytesOf2           int
	partialWriteBytes int

	// leaveAfterWrite marks a short read (EOF, tape short read, PT short
	// transfer): the loop writes out what it has, then stops.
	leaveAfterWrite bool
	// leaveReason carries tapeShortRead when the short read came from a
	// tape device, 0 otherwise; consumed by writeBlockOrRegular to decide
	// whether to re-seek.
	leaveReason int

	// countedIn is set by a read path (coeRecoverPT) that already updated
	// InFull/InPartial itself, so the main loop must not double-count.
	countedIn bool
}

func (st *iterState) reset(o *Options, remaining int64) {
	icbpt := o.BptI
	if remaining >= 0 && int64(icbpt) > remaining {
		icbpt = int(remaining)
	}
	*st = iterState{
		icbpt: icbpt,
		ocbpt: (icbpt * o.IBS) / o.OBS,
	}
}

// Run executes one full copy per spec.md §4: open, plan, the
// READ/WRITE loop, and finalisation. It returns nil on a clean copy, or
// a *CopyError classifying the failure.
func Run(o *Options) (err error) {
	if err := o.Finalize(); err != nil {
		return err
	}
	o.AllocateBuffers()

	if err := OpenInput(o); err != nil {
		return err
	}
	if err := OpenOutput(o); err != nil {
		return err
	}
	if err := OpenOutput2(o); err != nil {
		return err
	}
	if err := ResolveCount(o); err != nil {
		return err
	}
	if o.ErrBlkPath != "" {
		lg, oerr := errblk.Open(o.ErrBlkPath)
		if oerr != nil {
			return errk(FILE_ERROR, oerr)
		}
		o.errLog = lg
	}

	o.broker = installSignalBroker(o.IntIO)
	defer o.broker.stop()

	o.StartTime = time.Now()
	o.StartTimeValid = true

	defer func() {
		if cerr := finalizeOutput(o); cerr != nil && err == nil {
			err = cerr
		}
	}()

	st := &iterState{}
	var highestByteWritten int64

	for {
		remaining := int64(-1)
		if o.DDCount >= 0 {
			remaining = o.DDCount - (o.InFull + o.InPartial)
			if remaining <= 0 {
				break
			}
		}

		if o.drain() {
			return errk(CAT_OTHER, errInterrupted)
		}

		st.reset(o, remaining)
		if st.icbpt <= 0 {
			break
		}

		if rerr := readDispatch(o, st); rerr != nil {
			if recovered := maybeNonPTCoe(o, st, rerr); recovered {
				rerr = nil
			} else {
				return rerr
			}
		}

		if !st.countedIn {
			accountRead(o, st)
		}

		isLast := st.leaveAfterWrite
		if !isLast && o.DDCount >= 0 && (o.InFull+o.InPartial) >= o.DDCount {
			isLast = true
		}

		if err := mirrorOF2(o, st); err != nil {
			return err
		}

		done, serr := sparingCompare(o, st)
		if serr != nil {
			return serr
		}
		if !done {
			done, serr = sparseCompare(o, st, isLast)
			if serr != nil {
				return serr
			}
		}
		if !done {
			if o.drain() {
				return errk(CAT_OTHER, errInterrupted)
			}
			if err := writeDispatch(o, st); err != nil {
				return err
			}
		}

		o.Skip += int64(st.icbpt)
		o.Seek += int64(st.ocbpt)
		writtenTo := o.Seek * int64(o.OBS)
		if writtenTo > highestByteWritten {
			highestByteWritten = writtenTo
		}

		if st.leaveAfterWrite {
			break
		}
	}

	if err := applyStruncPolicy(o, highestByteWritten); err != nil {
		return err
	}

	o.printStats("done")
	if o.ErrToReport != nil {
		return o.ErrToReport
	}
	return nil
}

func accountRead(o *Options, st *iterState) {
	full := st.bytesRead / o.IBSPI
	rem := st.bytesRead - full*o.IBSPI
	o.InFull += int64(full)
	if rem > 0 {
		o.InPartial++
	}
}

// maybeNonPTCoe implements continue-on-error recovery for non
// pass-through inputs: zero-fill the failed iteration's span and treat
// it as a single unrecovered block, per spec.md §4.4's coe policy
// generalised beyond SCSI pass-through.
func maybeNonPTCoe(o *Options, st *iterState, cause error) bool {
	if !o.IFlags.COE || o.In.IsPT() {
		return false
	}
	log.Warnf("read error, coe recovering one block: %v", cause)
	for i := range o.Buf[:st.icbpt*o.IBSPI] {
		o.Buf[i] = 0
	}
	o.UnrecoveredErrs++
	o.bumpCoeCount()
	st.bytesRead = st.icbpt * o.IBSPI
	o.ErrToReport = cause
	return true
}

func (o *Options) bumpCoeCount() { o.CoeCount++ }

var errInterrupted = &interruptedErr{}

type interruptedErr struct{}

func (*interruptedErr) Error() string { return "interrupted by signal" }
