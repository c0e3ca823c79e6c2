package ddpt

import "fmt"

// ErrKind classifies a terminal copy outcome into the exit-code
// categories named by the CLI contract.
type ErrKind int

const (
	OK ErrKind = iota
	SYNTAX
	FILE_ERROR
	CAT_OTHER
	MEDIUM_HARD
	UNIT_ATTENTION
	ABORTED_COMMAND
	INVALID_OP
	NOT_READY
	PROTECTION
	PROTECTION_WITH_INFO
	FLOCK_ERR
)

var errKindDescriptions = map[ErrKind]string{
	OK:                   "success",
	SYNTAX:               "option syntax error",
	FILE_ERROR:           "open/seek/lock failure",
	CAT_OTHER:            "other I/O error",
	MEDIUM_HARD:          "unrecovered medium error",
	UNIT_ATTENTION:       "unit attention",
	ABORTED_COMMAND:      "aborted command",
	INVALID_OP:           "invalid operation code",
	NOT_READY:            "logical unit not ready",
	PROTECTION:           "protection information error",
	PROTECTION_WITH_INFO: "protection information error with sense data",
	FLOCK_ERR:            "advisory lock failed",
}

func (k ErrKind) String() string {
	if d, ok := errKindDescriptions[k]; ok {
		return d
	}
	return "unknown error kind"
}

// CopyError wraps an ErrKind with the underlying cause, the way the
// teacher's SDOAbortCode carries a description alongside a raw code.
type CopyError struct {
	Kind  ErrKind
	Cause error
}

func (e *CopyError) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *CopyError) Unwrap() error { return e.Cause }

func errk(kind ErrKind, cause error) *CopyError {
	return &CopyError{Kind: kind, Cause: cause}
}

func errkf(kind ErrKind, format string, args ...any) *CopyError {
	return &CopyError{Kind: kind, Cause: fmt.Errorf(format, args...)}
}

// KindOf extracts the ErrKind from err, defaulting to CAT_OTHER for any
// error that did not originate as a CopyError.
func KindOf(err error) ErrKind {
	if err == nil {
		return OK
	}
	var ce *CopyError
	if ok := asCopyError(err, &ce); ok {
		return ce.Kind
	}
	return CAT_OTHER
}

func asCopyError(err error, target **CopyError) bool {
	for err != nil {
		if ce, ok := err.(*CopyError); ok {
			*target = ce
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
