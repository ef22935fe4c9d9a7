package sim

import (
	"errors"
	"fmt"
)

// Kind classifies every failure this package can produce.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindAlreadyRunning
	KindNotRunning
	KindInvalidDeviceType
	KindInvalidRuntime
	KindBundleNotFound
	KindToolNotInstalled
	KindExecutionFailed
	KindTimeout
	KindMalformedOutput
)

// Error is the only error type surfaced by this package. Each Kind carries
// just the context needed to render a message; presentation stays with the
// caller.
type Error struct {
	Kind       Kind
	Identifier string // offending device/type/runtime input, if any
	Path       string // offending filesystem path, if any
	Preview    string // truncated raw backend output, if any
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	msg := ""
	switch e.Kind {
	case KindNotFound:
		msg = fmt.Sprintf("no device matches %q", e.Identifier)
	case KindAlreadyRunning:
		msg = fmt.Sprintf("device %q is already running", e.Identifier)
	case KindNotRunning:
		msg = fmt.Sprintf("device %q is not running", e.Identifier)
	case KindInvalidDeviceType:
		msg = fmt.Sprintf("unknown device type %q", e.Identifier)
	case KindInvalidRuntime:
		msg = fmt.Sprintf("unknown runtime %q", e.Identifier)
	case KindBundleNotFound:
		msg = fmt.Sprintf("app bundle %q: %s", e.Path, e.Detail)
	case KindToolNotInstalled:
		msg = "simctl not found; install Xcode or the command line tools"
	case KindExecutionFailed:
		msg = "simctl failed"
	case KindTimeout:
		msg = "timed out"
	case KindMalformedOutput:
		msg = "could not parse simctl output"
	default:
		msg = "simctl error"
	}
	if e.Detail != "" && e.Kind != KindBundleNotFound {
		msg += ": " + e.Detail
	}
	if e.Preview != "" {
		msg += fmt.Sprintf(" (output: %s)", e.Preview)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two *Error values by Kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// KindOf returns the kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func notFound(identifier string) error {
	return &Error{Kind: KindNotFound, Identifier: identifier}
}

func alreadyRunning(identifier string) error {
	return &Error{Kind: KindAlreadyRunning, Identifier: identifier}
}

func notRunning(identifier string) error {
	return &Error{Kind: KindNotRunning, Identifier: identifier}
}

func malformed(detail string, payload []byte) error {
	return &Error{Kind: KindMalformedOutput, Detail: detail, Preview: Preview(payload)}
}

// Preview truncates raw backend output for inclusion in error text and
// debug logs. Full multi-kilobyte payloads never reach the user.
func Preview(b []byte) string {
	const max = 200
	s := string(b)
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
