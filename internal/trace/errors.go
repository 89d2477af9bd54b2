package trace

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a TracerError per the engine's error taxonomy: some
// kinds are transient (the engine continues), others are fatal (the engine
// returns and the caller should exit).
type ErrorKind int

const (
	// ConfigErrorKind marks an out-of-range or otherwise invalid
	// TracerConfig value.
	ConfigErrorKind ErrorKind = iota
	// ResolutionErrorKind marks a hostname that failed to resolve.
	ResolutionErrorKind
	// SocketErrorKind marks a rejected socket creation or bind, carrying
	// the OS error code in the wrapped error.
	SocketErrorKind
	// IoErrorKind marks a transient send/recv failure; a probe whose
	// send fails this way is abandoned and counted as Awaited.
	IoErrorKind
	// ProtocolErrorKind marks a malformed inbound packet or checksum
	// mismatch; discarded silently by the codec.
	ProtocolErrorKind
	// ChannelFullKind marks a TCP probe backlog at MaxTCPProbes
	// capacity; the engine skips that send.
	ChannelFullKind
	// FatalErrorKind marks an unrecoverable condition, such as the
	// receive socket being closed out from under the engine.
	FatalErrorKind
	// InsufficientPrivilegeKind marks a missing raw-socket capability
	// (CAP_NET_RAW on Linux, administrator on Windows).
	InsufficientPrivilegeKind
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigErrorKind:
		return "config"
	case ResolutionErrorKind:
		return "resolution"
	case SocketErrorKind:
		return "socket"
	case IoErrorKind:
		return "io"
	case ProtocolErrorKind:
		return "protocol"
	case ChannelFullKind:
		return "channel_full"
	case FatalErrorKind:
		return "fatal"
	case InsufficientPrivilegeKind:
		return "insufficient_privilege"
	default:
		return "unknown"
	}
}

// TracerError is the sum-type error every codec, platform, and channel
// failure is normalized into at the channel boundary, per the engine's
// error-handling design. It wraps an underlying error where one exists.
type TracerError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *TracerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *TracerError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a TracerError of the same Kind, so callers
// can use errors.Is(err, &TracerError{Kind: ChannelFullKind}) to dispatch on
// category without caring about the message.
func (e *TracerError) Is(target error) bool {
	var t *TracerError
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

func newError(kind ErrorKind, msg string, err error) *TracerError {
	return &TracerError{Kind: kind, Msg: msg, Err: err}
}

func newConfigError(msg string, err error) *TracerError {
	return newError(ConfigErrorKind, msg, err)
}

func newResolutionError(msg string, err error) *TracerError {
	return newError(ResolutionErrorKind, msg, err)
}

func newSocketError(msg string, err error) *TracerError {
	return newError(SocketErrorKind, msg, err)
}

func newIoError(msg string, err error) *TracerError {
	return newError(IoErrorKind, msg, err)
}

func newProtocolError(msg string, err error) *TracerError {
	return newError(ProtocolErrorKind, msg, err)
}

func newChannelFullError(msg string) *TracerError {
	return newError(ChannelFullKind, msg, nil)
}

func newFatalError(msg string, err error) *TracerError {
	return newError(FatalErrorKind, msg, err)
}

func newInsufficientPrivilegeError(msg string, err error) *TracerError {
	return newError(InsufficientPrivilegeKind, msg, err)
}

// IsTransient reports whether err should let the tracer engine continue
// rather than abort the trace.
func IsTransient(err error) bool {
	var te *TracerError
	if !errors.As(err, &te) {
		return false
	}
	switch te.Kind {
	case IoErrorKind, ProtocolErrorKind, ChannelFullKind:
		return true
	default:
		return false
	}
}
