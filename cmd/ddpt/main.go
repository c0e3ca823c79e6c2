// Command ddpt is a block-oriented copy tool specialised for SCSI
// pass-through storage devices, in the spirit of dd but aware of
// logical block size mismatches, protection information and sparing/
// sparse writes.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/yiyiyouwo/ddpt/pkg/ddpt"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := ddpt.ParseArgs(args)
	if err != nil {
		return reportAndExit(err)
	}

	configureLogging(opts.Verbose)

	if err := ddpt.Run(opts); err != nil {
		return reportAndExit(err)
	}
	return 0
}

func configureLogging(verbose int) {
	switch {
	case verbose <= 0:
		log.SetLevel(log.WarnLevel)
	case verbose == 1:
		log.SetLevel(log.InfoLevel)
	default:
		log.SetLevel(log.DebugLevel)
	}
}

// reportAndExit logs the terminal error and maps its ErrKind to a
// process exit code, per the CLI contract in spec.md §6.
func reportAndExit(err error) int {
	kind := ddpt.KindOf(err)
	fmt.Fprintf(os.Stderr, "ddpt: %v\n", err)
	return exitCodeFor(kind)
}

func exitCodeFor(kind ddpt.ErrKind) int {
	switch kind {
	case ddpt.OK:
		return 0
	case ddpt.SYNTAX:
		return 1
	case ddpt.FILE_ERROR:
		return 2
	case ddpt.CAT_OTHER:
		return 3
	case ddpt.MEDIUM_HARD:
		return 4
	case ddpt.UNIT_ATTENTION:
		return 5
	case ddpt.ABORTED_COMMAND:
		return 6
	case ddpt.INVALID_OP:
		return 7
	case ddpt.NOT_READY:
		return 8
	case ddpt.PROTECTION:
		return 9
	case ddpt.PROTECTION_WITH_INFO:
		return 10
	case ddpt.FLOCK_ERR:
		return 11
	default:
		return 3
	}
}
