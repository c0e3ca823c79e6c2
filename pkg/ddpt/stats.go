package ddpt

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Report is a snapshot of the counters in Options, formatted the way
// §4.8's drain-point progress reports and the final summary both need.
type Report struct {
	InFull, InPartial   int64
	OutFull, OutPartial int64
	OutSparse           int64
	Recovered           int64
	Unrecovered         int64
	Elapsed             time.Duration
	BytesMoved          int64
	MBPerSec            float64
	ETA                 time.Duration
	ETAKnown            bool
}

// Snapshot builds a Report from the current counters.
func (o *Options) Snapshot() Report {
	r := Report{
		InFull:      o.InFull,
		InPartial:   o.InPartial,
		OutFull:     o.OutFull,
		OutPartial:  o.OutPartial,
		OutSparse:   o.OutSparse,
		Recovered:   o.RecoveredErrs,
		Unrecovered: o.UnrecoveredErrs,
	}
	if o.StartTimeValid {
		r.Elapsed = time.Since(o.StartTime)
	}
	r.BytesMoved = int64(o.OBS) * (o.OutFull + o.OutPartial)
	if r.Elapsed > 0 {
		r.MBPerSec = float64(r.BytesMoved) / (1024 * 1024) / r.Elapsed.Seconds()
	}
	if o.DDCount > 0 && r.MBPerSec > 0 {
		totalBytes := int64(o.IBS) * o.DDCount
		remaining := totalBytes - int64(o.IBS)*(o.InFull+o.InPartial)
		if remaining > 0 {
			bytesPerSec := r.MBPerSec * 1024 * 1024
			r.ETA = time.Duration(float64(remaining)/bytesPerSec) * time.Second
			r.ETAKnown = true
		}
	}
	return r
}

// String formats a Report the way a verbose progress line or final
// summary is printed.
func (r Report) String() string {
	s := fmt.Sprintf("records in: %d+%d, records out: %d+%d, sparse %d",
		r.InFull, r.InPartial, r.OutFull, r.OutPartial, r.OutSparse)
	if r.Recovered > 0 || r.Unrecovered > 0 {
		s += fmt.Sprintf(", recovered errs %d, unrecovered errs %d", r.Recovered, r.Unrecovered)
	}
	if r.Elapsed > 0 {
		s += fmt.Sprintf(", %s elapsed, %.2f MB/s", r.Elapsed.Round(time.Second), r.MBPerSec)
	}
	if r.ETAKnown {
		s += fmt.Sprintf(", ETA %s", r.ETA.Round(time.Second))
	}
	return s
}

// printStats emits the current report at the given reason ("interrupted",
// "progress" or "done"), honouring status=noxfer.
func (o *Options) printStats(reason string) {
	if o.StatusNoXfer {
		return
	}
	log.Infof("[%s] %s", reason, o.Snapshot())
}
