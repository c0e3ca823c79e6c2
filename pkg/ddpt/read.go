package ddpt

import (
	"errors"
	"io"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/yiyiyouwo/ddpt/pkg/ddpt/scsipt"
)

// tapeShortRead is the leaveReason marker for a short tape read: normal
// and recoverable, distinguishable from a real EOF or medium error
// (spec.md §4.4).
const tapeShortRead = -1

// readDispatch performs the READ step of the copy loop for one
// iteration, filling o.Buf[:st.icbpt*o.IBSPI] and updating st.
func readDispatch(o *Options, st *iterState) error {
	switch {
	case o.In.IsPT():
		return readPT(o, st)
	case o.In.Type.Has(FIFO):
		return readFifo(o, st)
	case o.In.Type.Has(TAPE):
		return readTape(o, st)
	default:
		return readBlockOrRegular(o, st)
	}
}

func readPT(o *Options, st *iterState) error {
	buf := o.Buf[:st.icbpt*o.IBSPI]
	lba := uint64(o.Skip)
	n, status, err := o.In.PTProvider.Read(o.In.PTHandle, lba, buf, st.icbpt, o.RDProtect)
	if err != nil {
		if o.IFlags.COE {
			return coeRecoverPT(o, st, lba, err)
		}
		return classifyPTErr(status, err)
	}
	st.bytesRead = n * o.IBSPI
	if n < st.icbpt {
		st.icbpt = n
		st.ocbpt = (n * o.IBS) / o.OBS // rounded down; no partials from PT reads
		st.leaveAfterWrite = true
		st.leaveReason = 0
	}
	return nil
}

func classifyPTErr(status scsipt.Status, err error) error {
	switch status {
	case scsipt.StatusUnitAttention:
		return errk(UNIT_ATTENTION, err)
	case scsipt.StatusAbortedCommand:
		return errk(ABORTED_COMMAND, err)
	case scsipt.StatusInvalidOp:
		return errk(INVALID_OP, err)
	case scsipt.StatusNotReady:
		return errk(NOT_READY, err)
	default:
		return errk(MEDIUM_HARD, err)
	}
}

// coeRecoverPT implements the continue-on-error sub-protocol of
// spec.md §4.4 for a pass-through endpoint: re-read the failed transfer
// one block at a time starting from its first block (the bulk read's
// block count is not used, so no successful prefix is kept),
// substituting zero-filled blocks for any single-block read that still
// fails.
func coeRecoverPT(o *Options, st *iterState, lba uint64, bulkErr error) error {
	log.Warnf("bulk read failed at lba %d (%v), falling back to coe single-block recovery", lba, bulkErr)
	consecutiveBad := 0
	blockSize := o.IBSPI
	good := 0
	for i := 0; i < st.icbpt; i++ {
		off := i * blockSize
		one := o.Buf[off : off+blockSize]
		n, status, err := o.In.PTProvider.Read(o.In.PTHandle, lba+uint64(i), one, 1, o.RDProtect)
		if err != nil || n != 1 {
			for b := range one {
				one[b] = 0
			}
			o.UnrecoveredErrs++
			recordUnrecoveredLBA(o, lba+uint64(i))
			if o.errLog != nil {
				_ = o.errLog.LogBlock(lba + uint64(i))
			}
			consecutiveBad++
			if o.CoeLimit > 0 && consecutiveBad > o.CoeLimit {
				return classifyPTErr(status, errkf(MEDIUM_HARD,
					"coe limit %d exceeded at lba %d", o.CoeLimit, lba+uint64(i)))
			}
			continue
		}
		consecutiveBad = 0
		good++
	}
	// Every block in this transfer is accounted for, good or zero-filled;
	// in_partial absorbs the substituted ones per the invariant in §3.
	o.InPartial += int64(st.icbpt - good)
	o.InFull += int64(good)
	st.countedIn = true
	st.ocbpt = (st.icbpt * o.IBS) / o.OBS
	st.bytesRead = st.icbpt * blockSize
	return nil
}

func recordUnrecoveredLBA(o *Options, lba uint64) {
	l := int64(lba)
	if o.LowestUnrecovered < 0 || l < o.LowestUnrecovered {
		o.LowestUnrecovered = l
	}
	if l > o.HighestUnrecovered {
		o.HighestUnrecovered = l
	}
}

func readFifo(o *Options, st *iterState) error {
	want := st.icbpt * o.IBS
	got := 0
	for got < want {
		n, err := o.In.File.Read(o.Buf[got:want])
		if n > 0 {
			got += n
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			if errors.Is(err, syscall.EINTR) {
				o.InterruptedRetries++
				continue
			}
			return errk(CAT_OTHER, err)
		}
		if n == 0 {
			break
		}
	}
	st.bytesRead = got
	full := got / o.IBS
	rem := got % o.IBS
	if full < st.icbpt || rem > 0 {
		if o.SyncPad && rem > 0 {
			for i := got; i < (full+1)*o.IBS; i++ {
				o.Buf[i] = 0
			}
			full++
			rem = 0
			st.bytesRead = full * o.IBS
		}
		st.icbpt = full
		if rem > 0 {
			st.partialWriteBytes = rem
		}
		st.leaveAfterWrite = true
		st.leaveReason = 0
	}
	st.ocbpt = ((st.icbpt * o.IBS) + st.partialWriteBytes) / o.OBS
	return nil
}

func readTape(o *Options, st *iterState) error {
	buf := o.Buf[:st.icbpt*o.IBS]
	n, err := o.In.File.Read(buf)
	if err != nil && err != io.EOF {
		if errors.Is(err, syscall.EINTR) {
			o.InterruptedRetries++
			return readTape(o, st)
		}
		return errk(CAT_OTHER, err)
	}
	st.bytesRead = n
	full := n / o.IBS
	if full < st.icbpt {
		if o.SyncPad && n%o.IBS > 0 {
			for i := n; i < (full+1)*o.IBS; i++ {
				buf[i] = 0
			}
			full++
			st.bytesRead = full * o.IBS
		}
		st.icbpt = full
		st.ocbpt = (full * o.IBS) / o.OBS
		st.leaveAfterWrite = true
		st.leaveReason = tapeShortRead
	}
	o.In.filepos += int64(n)
	o.In.posValid = true
	return nil
}

func readBlockOrRegular(o *Options, st *iterState) error {
	want := int64(st.icbpt) * int64(o.IBSPI)
	pos := o.Skip * int64(o.IBSPI)
	if !o.In.posValid || o.In.filepos != pos {
		if _, err := o.In.File.Seek(pos, io.SeekStart); err != nil {
			return errk(FILE_ERROR, err)
		}
		o.In.filepos = pos
		o.In.posValid = true
	}
	n, err := io.ReadFull(o.In.File, o.Buf[:want])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		if errors.Is(err, syscall.EINTR) {
			o.InterruptedRetries++
			return readBlockOrRegular(o, st)
		}
		return errk(CAT_OTHER, err)
	}
	o.In.filepos += int64(n)
	st.bytesRead = n
	full := n / o.IBSPI
	if full < st.icbpt {
		// Probe one more block to distinguish EOF from a latent medium
		// error, per spec.md §4.4.
		probe := make([]byte, o.IBSPI)
		pn, perr := o.In.File.Read(probe)
		if pn > 0 || (perr != nil && perr != io.EOF) {
			if perr != nil && perr != io.EOF {
				return errk(MEDIUM_HARD, perr)
			}
		}
		o.In.posValid = false // position after the probe is now indeterminate
		if o.SyncPad && n%o.IBSPI > 0 {
			for i := n; i < (full+1)*o.IBSPI; i++ {
				o.Buf[i] = 0
			}
			full++
			n = full * o.IBSPI
			st.bytesRead = n
		}
		st.icbpt = full
		st.ocbpt = (full * o.IBS) / o.OBS
		st.leaveAfterWrite = true
		st.leaveReason = 0
	}
	return nil
}
