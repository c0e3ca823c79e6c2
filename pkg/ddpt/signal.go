package ddpt

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	log "github.com/sirupsen/logrus"
)

// signalBroker is the progress/signal subsystem of spec.md §4.8. It
// exposes two asynchronous flags — a pending interrupt signal and a
// pending info-signal count — that the copy loop observes only at its
// drain points, never mid-syscall. On platforms (or configurations)
// without signal-interruptible I/O, drain still runs, just at block
// boundaries only, per the degrade-don't-emulate design note in §9.
type signalBroker struct {
	interrupt atomic.Int32 // 0 = none, else a syscall.Signal value
	infoCount atomic.Int32

	ch     chan os.Signal
	done   chan struct{}
	intIO  bool
}

// installSignalBroker installs handlers for SIGINT, SIGPIPE and the
// platform info signal (SIGUSR1, standing in for SIGINFO where that
// doesn't exist). When intIO is false, I/O-blocking signals are left
// unmasked only at drain points: the broker itself never blocks signals
// during a syscall (Go's runtime does not expose that knob portably) —
// instead the loop's drain-point discipline ensures handlers are only
// *acted upon* between blocks, which is the behaviour §4.8 actually
// requires.
func installSignalBroker(intIO bool) *signalBroker {
	b := &signalBroker{
		ch:    make(chan os.Signal, 4),
		done:  make(chan struct{}),
		intIO: intIO,
	}
	signal.Notify(b.ch, syscall.SIGINT, syscall.SIGPIPE, syscall.SIGUSR1)
	go b.loop()
	return b
}

func (b *signalBroker) loop() {
	for {
		select {
		case sig := <-b.ch:
			switch sig {
			case syscall.SIGINT, syscall.SIGPIPE:
				b.interrupt.Store(int32(sig.(syscall.Signal)))
			case syscall.SIGUSR1:
				b.infoCount.Add(1)
			}
		case <-b.done:
			return
		}
	}
}

func (b *signalBroker) stop() {
	signal.Stop(b.ch)
	close(b.done)
}

// drain is called at well-defined suspension points (PLAN, before
// WRITE). It reports whether the loop must stop because of a pending
// interrupt.
func (o *Options) drain() (mustStop bool) {
	b := o.broker
	if b == nil {
		return false
	}
	if sig := b.interrupt.Load(); sig != 0 {
		o.printStats("interrupted")
		if o.Out.Type.Has(REG) && !(o.OFlags.PreAlloc && !preAllocKeepsSize()) {
			log.Warn("hint: re-run with oflag=resume to continue this copy")
		}
		reRaise(syscall.Signal(sig))
		return true
	}
	for {
		n := b.infoCount.Load()
		if n == 0 {
			break
		}
		if b.infoCount.CompareAndSwap(n, n-1) {
			o.printStats("progress")
			break
		}
	}
	return false
}

// reRaise re-delivers sig to this process with its default disposition,
// so a parent shell observes the correct termination status (spec.md
// §4.8: "re-raise the signal with the default disposition").
func reRaise(sig syscall.Signal) {
	signal.Reset(sig)
	proc, err := os.FindProcess(os.Getpid())
	if err != nil {
		return
	}
	proc.Signal(sig)
}

// preAllocKeepsSize reports whether this platform's pre-allocation path
// leaves the file size alone (Linux fallocate keep-size) or changes it
// (the non-Linux fallback), per the Open Question preserved in §9.
func preAllocKeepsSize() bool { return preAllocIsKeepSize }
