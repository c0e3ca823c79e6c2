package ddpt

import (
	"errors"
	"io"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"
)

var ewWarnOnce sync.Once

// writeDispatch performs the WRITE step for the planned o.Buf[:st.ocbpt*o.OBS]
// span, honouring oflag=nowrite.
func writeDispatch(o *Options, st *iterState) error {
	if o.OFlags.NoWrite {
		st.bytesOf = st.ocbpt * o.OBS
		advanceWriteCursor(o, st)
		return nil
	}
	switch {
	case o.Out.IsPT():
		return writePT(o, st)
	case o.Out.Type.Has(TAPE):
		return writeTape(o, st)
	case o.Out.Type.Has(FIFO):
		return writeFifo(o, st)
	case o.Out.Type == NULLTYPE:
		st.bytesOf = st.ocbpt * o.OBS
		advanceWriteCursor(o, st)
		return nil
	default:
		return writeBlockOrRegular(o, st)
	}
}

// advanceWriteCursor accounts a span that was not written through the
// descriptor (nowrite, null sink, sparse skip, sparing match). The
// descriptor's offset did not move, so its believed position is
// dropped and the next real write seeks to its own target.
func advanceWriteCursor(o *Options, st *iterState) {
	o.Out.posValid = false
}

func writePT(o *Options, st *iterState) error {
	blocks := st.ocbpt
	buf := o.Buf[:blocks*o.OBSPI]
	if st.partialWriteBytes > 0 {
		if o.OFlags.Pad {
			padded := make([]byte, (blocks+1)*o.OBSPI)
			copy(padded, o.Buf[:blocks*o.OBSPI+st.partialWriteBytes])
			buf = padded
			blocks++
		} else {
			log.Warnf("dropping partial tail of %d bytes: pad not set", st.partialWriteBytes)
		}
	}
	lba := uint64(o.Seek)
	status, err := o.Out.PTProvider.Write(o.Out.PTHandle, lba, buf, blocks, o.WRProtect)
	if err != nil {
		return classifyPTErr(status, err)
	}
	o.OutFull += int64(blocks)
	st.bytesOf = blocks * o.OBSPI
	return nil
}

func writeTape(o *Options, st *iterState) error {
	buf := o.Buf[:st.ocbpt*o.OBS+st.partialWriteBytes]
	n, err := o.Out.File.Write(buf)
	if err != nil {
		if errors.Is(err, syscall.ENOSPC) && o.OFlags.IgnoreEW {
			ewWarnOnce.Do(func() {
				log.Warn("tape early warning encountered, retrying once (ignoreew)")
			})
			n, err = o.Out.File.Write(buf[n:])
		}
		if err != nil {
			return errkf(CAT_OTHER, "tape write failed: %w", err)
		}
	}
	if n < len(buf) {
		return errkf(CAT_OTHER, "short write to tape (%d of %d bytes)", n, len(buf))
	}
	st.bytesOf = n
	o.Out.filepos += int64(n)
	o.Out.posValid = true
	return nil
}

func writeFifo(o *Options, st *iterState) error {
	buf := o.Buf[:st.ocbpt*o.OBS+st.partialWriteBytes]
	written := 0
	for written < len(buf) {
		n, err := o.Out.File.Write(buf[written:])
		if n > 0 {
			written += n
		}
		if err != nil {
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
	st.bytesOf = written
	return writeAccount(o, st, written)
}

func writeBlockOrRegular(o *Options, st *iterState) error {
	buf := o.Buf[:st.ocbpt*o.OBS+st.partialWriteBytes]
	pos := o.Seek * int64(o.OBSPI)
	// After a TAPE_SHORT_READ the existing position is kept rather than
	// re-seeked, per spec.md §4.5.
	if st.leaveReason != tapeShortRead {
		if !o.Out.posValid || o.Out.filepos != pos {
			if _, err := o.Out.File.Seek(pos, io.SeekStart); err != nil {
				return errk(FILE_ERROR, err)
			}
			o.Out.filepos = pos
			o.Out.posValid = true
		}
	}
	n, err := o.Out.File.Write(buf)
	if err != nil {
		if errors.Is(err, syscall.EINTR) {
			o.InterruptedRetries++
			return writeBlockOrRegular(o, st)
		}
		return errk(CAT_OTHER, err)
	}
	o.Out.filepos += int64(n)
	st.bytesOf = n
	return writeAccount(o, st, n)
}

func writeAccount(o *Options, st *iterState, n int) error {
	full := n / o.OBS
	rem := n - full*o.OBS
	o.OutFull += int64(full)
	if rem > 0 {
		o.OutPartial++
	}
	return nil
}

// mirrorOF2 writes the same span to the optional secondary output.
func mirrorOF2(o *Options, st *iterState) error {
	if o.Out2.File == nil {
		return nil
	}
	buf := o.Buf[:st.icbpt*o.IBS+st.partialWriteBytes]
	written := 0
	for written < len(buf) {
		n, err := o.Out2.File.Write(buf[written:])
		if n > 0 {
			written += n
		}
		if err != nil {
			return errk(CAT_OTHER, err)
		}
		if n == 0 {
			break
		}
	}
	st.bytesOf2 = written
	return nil
}
