package ddpt

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/yiyiyouwo/ddpt/pkg/ddpt/blockdev"
	"github.com/yiyiyouwo/ddpt/pkg/ddpt/scsipt"
)

// endpointCapacity resolves the sector count and sector size of one
// endpoint per spec.md §4.3.
func endpointCapacity(e *Endpoint, dir scsipt.Direction, blockSize int, norcap, force bool, retries int) (sectors uint64, sectorSize int, err error) {
	switch {
	case e.Type.Has(PT) && !norcap:
		sectors, sectorSize, err = readCapacityWithRetry(e, dir, retries)
		if err != nil {
			return 0, 0, err
		}
		if sectorSize != blockSize && !force {
			return 0, 0, errkf(SYNTAX,
				"pass-through reports logical block size %d, differs from requested %d (use force to override)",
				sectorSize, blockSize)
		}
		return sectors, sectorSize, nil

	case e.Type.Has(BLOCK) && !e.Type.Has(PT):
		sectors, sectorSize, err = blockdev.Capacity(e.File)
		if err != nil {
			return 0, 0, err
		}
		return sectors, sectorSize, nil

	case e.Type.Has(REG):
		fi, err := e.File.Stat()
		if err != nil {
			return 0, 0, err
		}
		size := fi.Size()
		sectors := uint64(size / int64(blockSize))
		if size%int64(blockSize) != 0 {
			sectors++ // account the tail as one partial block
		}
		return sectors, blockSize, nil

	default:
		return 0, 0, errNoCapacity
	}
}

var errNoCapacity = errkf(CAT_OTHER, "endpoint has no queryable capacity")

func readCapacityWithRetry(e *Endpoint, dir scsipt.Direction, retries int) (uint64, int, error) {
	// READ CAPACITY is retried at most once on UNIT ATTENTION or ABORTED
	// COMMAND, whatever the configured pass-through retry count.
	if retries > 1 {
		retries = 1
	}
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		n, sz, status, err := e.PTProvider.ReadCapacity(e.PTHandle, dir)
		if err == nil {
			return n, sz, nil
		}
		lastErr = err
		if status == scsipt.StatusUnitAttention || status == scsipt.StatusAbortedCommand {
			log.Debugf("READ CAPACITY retry after %s", status)
			continue
		}
		return 0, 0, err
	}
	return 0, 0, lastErr
}

// ResolveCount implements the count/skip/seek reconciliation of
// spec.md §4.3.
func ResolveCount(o *Options) error {
	if o.OFlags.Resume && o.Out.Type.Has(REG) {
		if err := applyResume(o); err != nil {
			return err
		}
	}
	if o.DDCount >= 0 {
		return nil
	}

	readingFifo := o.In.Type.Has(FIFO) || o.In.Type.Has(CHAR) || o.In.Type.Has(TAPE)

	var inSectors uint64
	haveIn := false
	if !readingFifo {
		n, sz, err := endpointCapacity(&o.In, scsipt.DirIn, o.IBS, o.IFlags.NoRCap, o.IFlags.Force, o.Retries)
		if err == nil {
			inSectors = n
			haveIn = true
			_ = sz
		}
	}

	var outSectors uint64
	haveOut := false
	if o.Out.Type != NULLTYPE {
		n, sz, err := endpointCapacity(&o.Out, scsipt.DirOut, o.OBS, o.OFlags.NoRCap, o.OFlags.Force, o.Retries)
		if err == nil {
			outSectors = n
			haveOut = true
			_ = sz
		}
	}

	switch {
	case haveIn && int64(inSectors) <= o.Skip:
		o.DDCount = 0
	case haveIn:
		inSectors -= uint64(o.Skip)
	}

	if haveOut && int64(outSectors) > o.Seek {
		outSectors -= uint64(o.Seek)
	} else if haveOut {
		outSectors = 0
	}

	inBytes := int64(-1)
	if haveIn {
		inBytes = int64(inSectors) * int64(o.IBS)
	}
	// A regular-file output never overflows, it grows: only a
	// fixed-size sink (BLOCK or PT) bounds the count (spec.md §4.3).
	outBytes := int64(-1)
	if haveOut && !o.Out.Type.Has(REG) {
		outBytes = int64(outSectors) * int64(o.OBS)
	}

	switch {
	case inBytes < 0 && outBytes < 0:
		if !readingFifo {
			return errkf(FILE_ERROR, "cannot determine copy length: neither side reports a capacity")
		}
		o.DDCount = -1 // fifo input with no count: copy until EOF
		return nil
	case inBytes < 0:
		o.DDCount = outBytes / int64(o.IBS)
	case outBytes < 0:
		o.DDCount = inBytes / int64(o.IBS)
	default:
		chosen := inBytes
		if outBytes < chosen {
			chosen = outBytes
		}
		o.DDCount = chosen / int64(o.IBS)
	}
	return nil
}

// applyResume advances skip/seek/dd_count by whole bpt_i multiples of
// already-written output, per spec.md §4.3.
func applyResume(o *Options) error {
	fi, err := os.Stat(o.OutPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // nothing written yet
		}
		return errk(FILE_ERROR, err)
	}
	writtenBlocks := fi.Size() / int64(o.OBS)
	chunks := writtenBlocks * int64(o.OBS) / (int64(o.BptI) * int64(o.IBS))
	if o.BptI == 0 {
		return nil
	}
	advance := chunks * int64(o.BptI)
	o.Skip += advance
	o.Seek += advance
	if o.DDCount > 0 {
		o.DDCount -= advance
		if o.DDCount < 0 {
			o.DDCount = 0
		}
	}
	o.LowestSkip = o.Skip
	o.LowestSeek = o.Seek
	return nil
}
