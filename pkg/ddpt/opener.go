package ddpt

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/yiyiyouwo/ddpt/pkg/ddpt/scsipt"
)

// OpenInput opens IFILE per spec.md §4.2: read-only, with optional
// direct/exclusive/sync bits. FIFO, CHAR or TAPE inputs additionally
// disable capacity-based count inference (handled by the capacity
// calculator, which checks Type directly).
func OpenInput(o *Options) error {
	if o.InPath == "-" {
		o.In = Endpoint{Path: o.InPath, Type: REG, File: os.Stdin}
		return nil
	}
	t, err := Classify(o.InPath, o.IFlags.PT)
	if err != nil {
		return errk(FILE_ERROR, err)
	}
	o.In.Type = t
	o.In.Path = o.InPath

	if t.Has(PT) {
		prov, h, err := scsipt.Open("sgio", scsipt.DirIn, o.InPath)
		if err != nil {
			return errk(FILE_ERROR, err)
		}
		o.In.PTProvider = prov
		o.In.PTHandle = h
		return nil
	}

	mode := os.O_RDONLY
	var flags int
	if o.IFlags.Direct {
		flags |= odirectFlag()
	}
	if o.IFlags.Excl {
		flags |= osyscallExclFlag()
	}
	if o.IFlags.Sync {
		flags |= osyscallSyncFlag()
	}
	f, err := os.OpenFile(o.InPath, mode|flags, 0)
	if err != nil {
		return errk(FILE_ERROR, err)
	}
	o.In.File = f
	if o.IFlags.FLock {
		if err := flockShared(f); err != nil {
			return errk(FLOCK_ERR, err)
		}
	}
	if o.IFlags.NoCache {
		adviseSequential(f)
	}
	return nil
}

// OpenOutput opens OFILE per spec.md §4.2: read-write when sparing is
// active (sparing must read the destination first), else write-only;
// create-if-absent unless the file already exists; append/sync honoured;
// trunc ignored with resume/append, rejected with sparing; trunc+seek on
// an existing larger regular file truncates it to seek*obs first.
func OpenOutput(o *Options) error {
	if o.OutPath == "" || o.OutPath == "." {
		o.Out.Type = NULLTYPE
		return nil
	}
	if o.OutPath == "-" {
		o.Out = Endpoint{Path: o.OutPath, Type: REG, File: os.Stdout}
		return nil
	}

	existed := fileExists(o.OutPath)

	t, err := classifyForCreate(o.OutPath, o.OFlags.PT, existed)
	if err != nil {
		return errk(FILE_ERROR, err)
	}
	o.Out.Type = t
	o.OutTypeHold = t
	o.Out.Path = o.OutPath

	if t.Has(PT) {
		prov, h, err := scsipt.Open("sgio", scsipt.DirOut, o.OutPath)
		if err != nil {
			return errk(FILE_ERROR, err)
		}
		o.Out.PTProvider = prov
		o.Out.PTHandle = h
		return nil
	}

	mode := os.O_WRONLY
	if o.OFlags.Sparing {
		mode = os.O_RDWR
	}
	var flags int
	if !existed {
		flags |= os.O_CREATE
	}
	if o.OFlags.Append {
		flags |= os.O_APPEND
	}
	if o.OFlags.Excl {
		flags |= osyscallExclFlag()
	}
	if (o.OFlags.Sync || o.OFlags.SSync) && !o.OFlags.FDataSync {
		flags |= osyscallSyncFlag()
	}
	if o.OFlags.Direct {
		flags |= odirectFlag()
	}

	if o.OFlags.Trunc && o.OFlags.Sparing {
		return errkf(SYNTAX, "oflag=trunc is incompatible with oflag=sparing")
	}
	if o.OFlags.Trunc && !o.OFlags.Resume && !o.OFlags.Append && o.Seek == 0 {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(o.OutPath, mode|flags, 0644)
	if err != nil {
		return errk(FILE_ERROR, err)
	}
	o.Out.File = f

	// trunc combined with a nonzero seek on an existing regular file
	// larger than seek*obs trims to exactly that length, per §4.2.
	if t.Has(REG) && o.OFlags.Trunc && !o.OFlags.Resume && !o.OFlags.Append && o.Seek > 0 {
		fi, err := f.Stat()
		if err == nil {
			target := o.Seek * int64(o.OBS)
			if fi.Size() > target {
				if err := f.Truncate(target); err != nil {
					return errk(FILE_ERROR, err)
				}
			}
		}
	}

	if o.OFlags.FLock {
		if err := flockExclusive(f); err != nil {
			return errk(FLOCK_ERR, err)
		}
	}
	if o.OFlags.PreAlloc && t.Has(REG) {
		if err := preallocate(f, (o.Seek+int64(ocbptHint(o)))*int64(o.OBS)); err != nil {
			log.Warnf("pre-allocation failed: %v", err)
		}
	}
	return nil
}

func ocbptHint(o *Options) int64 {
	if o.DDCount <= 0 {
		return 0
	}
	return (int64(o.IBS) * o.DDCount) / int64(o.OBS)
}

// OpenOutput2 opens OFILE2, which spec.md §1 restricts to a regular file
// or a pipe.
func OpenOutput2(o *Options) error {
	if o.Out2Path == "" {
		return nil
	}
	t, err := Classify(o.Out2Path, false)
	if err != nil && !os.IsNotExist(err) {
		return errk(FILE_ERROR, err)
	}
	if err == nil && !t.Has(REG) && !t.Has(FIFO) {
		return errkf(SYNTAX, "of2 must be a regular file or fifo, got %s", t)
	}
	f, err := os.OpenFile(o.Out2Path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return errk(FILE_ERROR, err)
	}
	o.Out2 = Endpoint{Path: o.Out2Path, Type: REG, File: f}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// classifyForCreate is like Classify but tolerates a not-yet-existing
// OFILE path, which is then a REG target to be created.
func classifyForCreate(path string, forcePT bool, existed bool) (FileType, error) {
	if !existed {
		return REG, nil
	}
	return Classify(path, forcePT)
}
