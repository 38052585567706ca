package stream

// RenderFunc fills dst with interleaved samples. It runs on the device's
// real-time goroutine and must not block, allocate or perform I/O.
type RenderFunc func(dst []int16)

// Callbacks are the hooks a device stream invokes.
type Callbacks struct {
	// Render is called once per hardware period.
	Render RenderFunc
	// Error reports an asynchronous device failure, e.g. a disconnect.
	// Implementations call it from a non-render goroutine.
	Error func(err error)
	// Underrun reports a device-detected output underflow. It may be
	// called from the render goroutine.
	Underrun func()
}

// Device opens hardware playback streams.
type Device interface {
	// Name identifies the backend, e.g. "oto".
	Name() string
	// OpenStream opens, but does not start, a playback stream. It returns
	// ErrDeviceUnavailable when there is no output device and
	// ErrInvalidConfig when the parameters cannot be satisfied.
	OpenStream(cfg StreamConfig, cb Callbacks) (Stream, error)
}

// Stream is an open hardware playback stream.
type Stream interface {
	// Config returns the negotiated stream parameters.
	Config() StreamConfig
	// Start begins invoking the render callback.
	Start() error
	// Stop pauses the stream. It returns once the device is paused and no
	// render callback is in progress.
	Stop() error
	// Close releases the stream. It is valid in any state.
	Close() error
}
