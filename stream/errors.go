package stream

import (
	"errors"
	"strings"
)

// Errors returned by the engine and the controller. Every failure surfaced
// to a caller matches exactly one of these via errors.Is.
var (
	// ErrInvalidFormat is returned for malformed PCM input, e.g. an odd
	// byte length or a sample count that is not a multiple of the channel
	// count. The previously loaded buffer stays active.
	ErrInvalidFormat = errors.New("invalid PCM format")
	// ErrInvalidConfig is returned when the requested stream parameters are
	// malformed or not supported by the device.
	ErrInvalidConfig = errors.New("invalid stream configuration")
	// ErrDeviceUnavailable is returned when no playback device exists.
	ErrDeviceUnavailable = errors.New("no playback device available")
	// ErrNoBufferLoaded is returned by Start when nothing has been loaded.
	ErrNoBufferLoaded = errors.New("no sample buffer loaded")
	// ErrAlreadyRunning is returned by Start while the stream is running.
	ErrAlreadyRunning = errors.New("stream is already running")
	// ErrEngineBusy is returned for operations that are not allowed while
	// the stream is running, such as replacing the buffer.
	ErrEngineBusy = errors.New("engine is busy")
	// ErrDeviceLost is returned by the first control call after the device
	// was disconnected. Initialize must be called again to recover.
	ErrDeviceLost = errors.New("playback device lost")
	// ErrNotInitialized is returned by Start before Initialize.
	ErrNotInitialized = errors.New("engine is not initialized")
)

// Error describes a failed control operation.
type Error struct {
	Op    string // Operation being performed, e.g. "start"
	Err   error  // One of the package sentinel errors
	Cause error  // Underlying device or decode error, if any
	State State  // Engine state when the operation failed
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString("unknown stream error")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the sentinel and the cause so errors.Is matches both.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func newError(op string, sentinel, cause error, state State) *Error {
	return &Error{Op: op, Err: sentinel, Cause: cause, State: state}
}

// withOp re-labels err with the controller operation name while keeping its
// sentinel, cause and state.
func withOp(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		cp := *se
		cp.Op = op
		return &cp
	}
	return err
}

// IsRecoverableError reports whether err was recovered locally, leaving the
// engine usable without re-initialization.
func IsRecoverableError(err error) bool {
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, ErrDeviceLost),
		errors.Is(err, ErrDeviceUnavailable),
		errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrNotInitialized):
		return false
	}
	return true
}

// NeedsReinitialize reports whether the caller must call Initialize again
// before the engine can play.
func NeedsReinitialize(err error) bool {
	return errors.Is(err, ErrDeviceLost) || errors.Is(err, ErrNotInitialized)
}
