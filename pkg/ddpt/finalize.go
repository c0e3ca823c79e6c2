package ddpt

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// finalizeOutput applies the end-of-run sync policy and closes every
// open endpoint, per spec.md §7: fdatasync/fsync/SCSI synchronize-cache
// on the primary output, tape filemark policy, then an orderly close of
// IFILE, OFILE and OFILE2 in that order.
func finalizeOutput(o *Options) error {
	var syncErr error
	switch {
	case o.Out.IsPT():
		if err := o.Out.PTProvider.SyncCache(o.Out.PTHandle); err != nil {
			syncErr = errk(CAT_OTHER, err)
		}
	case o.Out.Type.Has(TAPE):
		syncErr = writeFilemark(o)
	case o.Out.File != nil:
		syncErr = syncRegularOutput(o)
	}
	closeErr := closeEndpoints(o)
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}

func syncRegularOutput(o *Options) error {
	if o.OFlags.FDataSync {
		if err := o.Out.File.Sync(); err != nil {
			return errk(CAT_OTHER, err)
		}
	}
	if o.OFlags.FSync {
		if err := o.Out.File.Sync(); err != nil {
			return errk(CAT_OTHER, err)
		}
	}
	return nil
}

// writeFilemark is the tape close step: with oflag=nofm it does
// nothing; otherwise it issues a zero-length write to the tape before
// close. It sends no write-filemark (MTWEOF) request, so it does not
// itself write a filemark.
func writeFilemark(o *Options) error {
	if o.OFlags.NoFM {
		return nil
	}
	if _, err := o.Out.File.Write(nil); err != nil {
		return errk(CAT_OTHER, err)
	}
	return nil
}

func closeEndpoints(o *Options) error {
	var first error
	record := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if o.In.PTProvider != nil {
		record(o.In.PTProvider.Close(o.In.PTHandle))
	} else if o.In.File != nil && o.In.File != os.Stdin {
		record(o.In.File.Close())
	}
	if o.Out.PTProvider != nil {
		record(o.Out.PTProvider.Close(o.Out.PTHandle))
	} else if o.Out.File != nil && o.Out.File != os.Stdout {
		record(o.Out.File.Close())
	}
	if o.Out2.File != nil {
		record(o.Out2.File.Close())
	}
	if o.errLog != nil {
		record(o.errLog.Close())
	}
	if first != nil {
		log.Warnf("error while closing endpoints: %v", first)
	}
	return first
}

// applyStruncPolicy implements the sparse post-pass of spec.md §4.6 once
// the loop has finished: oflag=strunc sets a regular OFILE's length to
// highestByteWritten, the final output position (seek*obs) including
// spans skipped as sparse, so a trailing skipped run becomes a hole
// instead of leaving the file short; bare sparse=1 already materialised
// its last span during the loop so needs no further action; without
// strunc the length stays where the last real write ended.
func applyStruncPolicy(o *Options, highestByteWritten int64) error {
	if !o.OFlags.STrunc || !o.Out.Type.Has(REG) {
		return nil
	}
	if err := o.Out.File.Truncate(highestByteWritten); err != nil {
		return errk(CAT_OTHER, err)
	}
	return nil
}
