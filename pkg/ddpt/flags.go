package ddpt

import (
	"strings"
)

// InputFlags holds the per-side iflag= vocabulary plus the flags that
// conv= can also set on the input side (coe).
type InputFlags struct {
	COE     bool
	Direct  bool
	DPO     bool
	ErrBlk  bool
	Excl    bool
	FLock   bool
	Force   bool
	NoCache bool
	NoRCap  bool
	Null    bool
	PT      bool
	RARC    bool
	Self    bool
	Sync    bool
}

// OutputFlags holds the per-side oflag= vocabulary plus the flags that
// conv= can also set on the output side.
type OutputFlags struct {
	Append    bool
	COE       bool
	Direct    bool
	DPO       bool
	Excl      bool
	FDataSync bool
	FLock     bool
	Force     bool
	FSync     bool
	FUA       bool
	FUANV     bool
	IgnoreEW  bool
	NoCache   bool
	NoFM      bool
	NoRCap    bool
	NoWrite   bool
	Null      bool
	Pad       bool
	PreAlloc  bool
	PT        bool
	Resume    bool
	Self      bool
	Sparing   bool
	Sparse    int // 0 = off, 1 = bare sparse, >1 = sparse with no terminal fill
	SSync     bool
	STrunc    bool
	Sync      bool
	Trim      bool
	Trunc     bool
}

var inputFlagNames = map[string]func(*InputFlags){
	"coe":     func(f *InputFlags) { f.COE = true },
	"direct":  func(f *InputFlags) { f.Direct = true },
	"dpo":     func(f *InputFlags) { f.DPO = true },
	"errblk":  func(f *InputFlags) { f.ErrBlk = true },
	"excl":    func(f *InputFlags) { f.Excl = true },
	"flock":   func(f *InputFlags) { f.FLock = true },
	"force":   func(f *InputFlags) { f.Force = true },
	"nocache": func(f *InputFlags) { f.NoCache = true },
	"norcap":  func(f *InputFlags) { f.NoRCap = true },
	"null":    func(f *InputFlags) { f.Null = true },
	"pt":      func(f *InputFlags) { f.PT = true },
	"rarc":    func(f *InputFlags) { f.RARC = true },
	"self":    func(f *InputFlags) { f.Self = true },
	"sync":    func(f *InputFlags) { f.Sync = true },
}

var outputFlagNames = map[string]func(*OutputFlags){
	"append":    func(f *OutputFlags) { f.Append = true },
	"coe":       func(f *OutputFlags) { f.COE = true },
	"direct":    func(f *OutputFlags) { f.Direct = true },
	"dpo":       func(f *OutputFlags) { f.DPO = true },
	"excl":      func(f *OutputFlags) { f.Excl = true },
	"fdatasync": func(f *OutputFlags) { f.FDataSync = true },
	"flock":     func(f *OutputFlags) { f.FLock = true },
	"force":     func(f *OutputFlags) { f.Force = true },
	"fsync":     func(f *OutputFlags) { f.FSync = true },
	"fua":       func(f *OutputFlags) { f.FUA = true },
	"fua_nv":    func(f *OutputFlags) { f.FUANV = true },
	"ignoreew":  func(f *OutputFlags) { f.IgnoreEW = true },
	"nocache":   func(f *OutputFlags) { f.NoCache = true },
	"nofm":      func(f *OutputFlags) { f.NoFM = true },
	"norcap":    func(f *OutputFlags) { f.NoRCap = true },
	"nowrite":   func(f *OutputFlags) { f.NoWrite = true },
	"null":      func(f *OutputFlags) { f.Null = true },
	"pad":       func(f *OutputFlags) { f.Pad = true },
	"pre-alloc": func(f *OutputFlags) { f.PreAlloc = true },
	"pt":        func(f *OutputFlags) { f.PT = true },
	"resume":    func(f *OutputFlags) { f.Resume = true },
	"self":      func(f *OutputFlags) { f.Self = true },
	"sparing":   func(f *OutputFlags) { f.Sparing = true },
	"sparse":    func(f *OutputFlags) { bumpSparse(f) },
	"ssync":     func(f *OutputFlags) { f.SSync = true },
	"strunc":    func(f *OutputFlags) { f.STrunc = true },
	"sync":      func(f *OutputFlags) { f.Sync = true },
	"trim":      func(f *OutputFlags) { f.Trim = true },
	"unmap":     func(f *OutputFlags) { f.Trim = true },
	"trunc":     func(f *OutputFlags) { f.Trunc = true },
}

func bumpSparse(f *OutputFlags) { f.Sparse++ }

// ParseIFlag parses a comma list of iflag= tokens.
func ParseIFlag(csv string) (InputFlags, error) {
	var f InputFlags
	for _, tok := range splitCSV(csv) {
		setter, ok := inputFlagNames[tok]
		if !ok {
			return f, errkf(SYNTAX, "unknown iflag: %q", tok)
		}
		setter(&f)
	}
	return f, nil
}

// ParseOFlag parses a comma list of oflag= tokens.
func ParseOFlag(csv string) (OutputFlags, error) {
	var f OutputFlags
	for _, tok := range splitCSV(csv) {
		setter, ok := outputFlagNames[tok]
		if !ok {
			return f, errkf(SYNTAX, "unknown oflag: %q", tok)
		}
		setter(&f)
	}
	return f, nil
}

// ConvFlags is the conv= shortcut list, applied as its own layer on top
// of the iflag/oflag vectors (it addresses the same underlying bits,
// but is the only way to reach fdatasync/fsync/noerror/notrunc/null/
// resume/sparing/sparse/sync/trunc conveniently).
type ConvFlags struct {
	FDataSync bool
	FSync     bool
	NoError   bool // conv=noerror is the historical spelling of coe
	NoTrunc   bool
	Null      bool
	Resume    bool
	Sparing   bool
	Sparse    bool
	Sync      bool // conv=sync pads short input blocks, distinct from iflag/oflag sync
	Trunc     bool
}

func ParseConv(csv string) (ConvFlags, error) {
	var c ConvFlags
	for _, tok := range splitCSV(csv) {
		switch tok {
		case "fdatasync":
			c.FDataSync = true
		case "fsync":
			c.FSync = true
		case "noerror":
			c.NoError = true
		case "notrunc":
			c.NoTrunc = true
		case "null":
			c.Null = true
		case "resume":
			c.Resume = true
		case "sparing":
			c.Sparing = true
		case "sparse":
			c.Sparse = true
		case "sync":
			c.Sync = true
		case "trunc":
			c.Trunc = true
		default:
			return c, errkf(SYNTAX, "unknown conv token: %q", tok)
		}
	}
	return c, nil
}

// ApplyConv folds conv= tokens into the input/output flag vectors and
// validates the cross-flag policy table.
//
// conv=notrunc interacting with oflag=trunc is a documented no-op: the
// source dd family quietly accepts conv=notrunc as a no-op regardless of
// what oflag carries, and ddpt preserves that rather than guessing at a
// "corrected" precedence (see spec.md §9, Open Question).
func ApplyConv(opts *Options, c ConvFlags) error {
	if c.FDataSync {
		opts.OFlags.FDataSync = true
	}
	if c.FSync {
		opts.OFlags.FSync = true
	}
	if c.NoError {
		opts.IFlags.COE = true
	}
	if c.Null {
		opts.OFlags.Null = true
	}
	if c.Resume {
		opts.OFlags.Resume = true
	}
	if c.Sparing {
		opts.OFlags.Sparing = true
	}
	if c.Sparse {
		if opts.OFlags.Sparse == 0 {
			opts.OFlags.Sparse = 1
		}
	}
	if c.Sync {
		// conv=sync zero-pads a short input block to ibs; it is distinct
		// from the iflag=sync/oflag=sync O_SYNC descriptor bit (spec.md
		// §6), which ApplyConv deliberately leaves untouched here.
		opts.SyncPad = true
	}
	if c.Trunc {
		opts.OFlags.Trunc = true
	}
	// c.NoTrunc is intentionally not wired to anything: it is accepted
	// and otherwise ignored, matching the inherited dd ambiguity.
	return validateFlagPolicy(opts)
}

// validateFlagPolicy enforces the documented incompatibilities between
// flags that would otherwise silently corrupt a copy.
func validateFlagPolicy(opts *Options) error {
	if opts.OFlags.Trunc && opts.OFlags.Sparing {
		return errkf(SYNTAX, "conv=trunc is incompatible with oflag=sparing")
	}
	if opts.OFlags.Trunc && opts.OFlags.Resume {
		// trunc is silently ignored when combined with resume or append,
		// per §4.2 — not an error.
		opts.OFlags.Trunc = false
	}
	if opts.OFlags.Trunc && opts.OFlags.Append {
		opts.OFlags.Trunc = false
	}
	return nil
}

func splitCSV(csv string) []string {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
