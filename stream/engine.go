package stream

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Stats is a snapshot of the engine diagnostics counters.
type Stats struct {
	StreamID       string
	State          State
	Cursor         int // playback position in frames
	Callbacks      uint64
	FramesRendered uint64
	Underruns      uint64
	Drains         uint64
	DeviceErrors   uint64
}

// Engine owns the hardware stream, its configuration and its lifecycle.
//
// Control methods (Initialize, Start, Stop, Shutdown) must not be called
// concurrently; Controller serializes them. The render path only touches
// atomics.
type Engine struct {
	device Device
	store  *SampleStore
	logger *log.Logger

	// Control-owned. Written before the state becomes Running, read by the
	// render goroutine only after it observed Running.
	stream     Stream
	config     StreamConfig
	hwStarted  bool
	nsPerFrame int64

	state    atomic.Int32
	active   atomic.Pointer[SampleBuffer]
	cursor   atomic.Int64
	rewind   atomic.Bool
	inFlight atomic.Int32
	fault    atomic.Pointer[deviceFault]
	streamID atomic.Value // string

	callbacks      atomic.Uint64
	framesRendered atomic.Uint64
	underruns      atomic.Uint64
	drains         atomic.Uint64
	deviceErrors   atomic.Uint64
}

type deviceFault struct{ err error }

// NewEngine creates an engine in the Uninitialized state.
func NewEngine(device Device, store *SampleStore, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		device: device,
		store:  store,
		logger: logger.WithPrefix("engine"),
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// id returns the identifier of the current stream, or "" if none is open.
func (e *Engine) id() string {
	id, _ := e.streamID.Load().(string)
	return id
}

// Config returns the negotiated stream configuration.
func (e *Engine) Config() StreamConfig {
	return e.config
}

// Stats returns a snapshot of the diagnostics counters.
func (e *Engine) Stats() Stats {
	s := Stats{
		State:          e.State(),
		Cursor:         int(e.cursor.Load()),
		Callbacks:      e.callbacks.Load(),
		FramesRendered: e.framesRendered.Load(),
		Underruns:      e.underruns.Load(),
		Drains:         e.drains.Load(),
		DeviceErrors:   e.deviceErrors.Load(),
	}
	s.StreamID = e.id()
	return s
}

// Initialize opens the device stream without starting it. It moves the
// engine from Uninitialized, Idle or Error to Idle.
func (e *Engine) Initialize(cfg StreamConfig) error {
	e.reconcile()

	state := e.State()
	if state.IsActive() {
		return newError("initialize", ErrEngineBusy, nil, state)
	}
	if err := cfg.Validate(); err != nil {
		return newError("initialize", ErrInvalidConfig, err, state)
	}

	// Re-arm: release whatever stream is left from a previous session.
	if e.stream != nil {
		if err := e.closeStream(); err != nil {
			e.logger.Warn("Error closing previous stream", "err", err)
		}
	}

	stream, err := e.open(cfg)
	if err != nil && cfg.AllowFallback && errors.Is(err, ErrInvalidConfig) {
		fallback := DefaultStreamConfig()
		fallback.EndPolicy = cfg.EndPolicy
		e.logger.Warn("Requested stream parameters rejected, falling back to defaults",
			"requested_rate", cfg.SampleRate,
			"requested_channels", cfg.Channels,
			"err", err)
		stream, err = e.open(fallback)
	}
	if err != nil {
		e.moveTo(StateUninitialized)
		var se *Error
		if errors.As(err, &se) {
			return err
		}
		return newError("initialize", classifyOpenError(err), err, StateUninitialized)
	}

	e.stream = stream
	e.config = stream.Config()
	e.config.EndPolicy = cfg.EndPolicy
	e.config.AllowFallback = cfg.AllowFallback
	e.streamID.Store(uuid.NewString())
	e.nsPerFrame = int64(time.Second) / int64(e.config.SampleRate)
	e.fault.Store(nil)
	e.resetCounters()
	if e.store != nil {
		e.store.Reconfigure(e.config.Channels, e.config.SampleRate)
	}
	e.moveTo(StateIdle)

	e.logger.Info("Playback stream opened",
		"id", e.id(),
		"device", e.device.Name(),
		"sample_rate", e.config.SampleRate,
		"channels", e.config.Channels,
		"format", e.config.Format,
		"frames_per_burst", e.config.FramesPerBurst,
		"end_policy", e.config.EndPolicy)
	e.warnIfNotLowLatency()
	return nil
}

func (e *Engine) open(cfg StreamConfig) (Stream, error) {
	return e.device.OpenStream(cfg, Callbacks{
		Render:   e.render,
		Error:    e.deviceError,
		Underrun: e.noteUnderrun,
	})
}

func classifyOpenError(err error) error {
	switch {
	case errors.Is(err, ErrDeviceUnavailable):
		return ErrDeviceUnavailable
	case errors.Is(err, ErrInvalidConfig):
		return ErrInvalidConfig
	}
	return ErrDeviceUnavailable
}

func (e *Engine) warnIfNotLowLatency() {
	burst := e.config.BurstDuration()
	if e.config.IsLowLatency() {
		e.logger.Debug("Stream is low latency", "burst", burst)
		return
	}
	e.logger.Warn("Stream is NOT low latency, check the requested sample rate and burst size",
		"burst", burst,
		"limit", LowLatencyBurstLimit)
}

// Start begins playback of the loaded buffer from its first frame.
func (e *Engine) Start() error {
	e.reconcile()

	for {
		state := e.State()
		switch state {
		case StateUninitialized:
			return newError("start", ErrNotInitialized, nil, state)
		case StateError:
			return newError("start", ErrDeviceLost, e.faultCause(), state)
		case StateStarting, StateRunning:
			return newError("start", ErrAlreadyRunning, nil, state)
		case StateStopping:
			return newError("start", ErrEngineBusy, nil, state)
		}

		buf, ok := e.currentBuffer()
		if !ok {
			return newError("start", ErrNoBufferLoaded, nil, state)
		}
		if buf.Channels() != e.config.Channels {
			return newError("start", ErrInvalidFormat,
				fmt.Errorf("buffer has %d channels, stream has %d", buf.Channels(), e.config.Channels),
				state)
		}
		if buf.SampleRate() != e.config.SampleRate {
			e.logger.Warn("Buffer sample rate differs from stream rate",
				"buffer_rate", buf.SampleRate(),
				"stream_rate", e.config.SampleRate)
		}

		// Publish before the render goroutine can observe Running.
		e.active.Store(buf)
		e.rewind.Store(true)

		if !e.transition(StateIdle, StateStarting) {
			// A device error raced us; re-evaluate.
			continue
		}

		if err := e.stream.Start(); err != nil {
			sentinel := classifyStartError(err)
			if sentinel == ErrDeviceLost {
				e.recordFault(err)
				e.transition(StateStarting, StateError)
			} else {
				e.transition(StateStarting, StateIdle)
			}
			return newError("start", sentinel, err, e.State())
		}
		e.hwStarted = true

		if !e.transition(StateStarting, StateRunning) {
			e.reconcile()
			return newError("start", ErrDeviceLost, e.faultCause(), e.State())
		}

		e.logger.Debug("Playback started",
			"id", e.id(),
			"frames", buf.Frames(),
			"duration", buf.Duration())
		return nil
	}
}

func classifyStartError(err error) error {
	if errors.Is(err, ErrDeviceLost) {
		return ErrDeviceLost
	}
	return ErrDeviceUnavailable
}

func (e *Engine) currentBuffer() (*SampleBuffer, bool) {
	if e.store == nil {
		return nil, false
	}
	return e.store.Current()
}

// Stop halts playback. It blocks until the render goroutine has finished
// any in-flight callback and the device stream is paused; no render
// callback touches the buffer after Stop returns. Stop is a no-op while
// Idle.
func (e *Engine) Stop() error {
	e.reconcile()

	for {
		state := e.State()
		switch state {
		case StateUninitialized, StateIdle:
			return nil
		case StateError:
			return newError("stop", ErrDeviceLost, e.faultCause(), state)
		case StateStarting, StateStopping:
			return newError("stop", ErrEngineBusy, nil, state)
		}

		if e.transition(StateRunning, StateStopping) {
			break
		}
		// The render goroutine drained the buffer or the device failed.
		e.reconcile()
	}

	e.waitRenderIdle()

	var stopErr error
	if e.hwStarted {
		stopErr = e.stream.Stop()
		e.hwStarted = false
	}

	if stopErr != nil {
		e.recordFault(stopErr)
		e.moveTo(StateError)
		return newError("stop", ErrDeviceLost, stopErr, StateError)
	}
	if !e.transition(StateStopping, StateIdle) {
		return newError("stop", ErrDeviceLost, e.faultCause(), e.State())
	}

	e.logger.Debug("Playback stopped", "id", e.id(), "cursor", e.cursor.Load())
	return nil
}

// Shutdown releases the device stream unconditionally. The final state is
// Uninitialized.
func (e *Engine) Shutdown() error {
	e.moveTo(StateUninitialized)
	e.waitRenderIdle()

	var errs []error
	if e.stream != nil {
		if e.hwStarted {
			if err := e.stream.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("stop stream: %w", err))
			}
		}
		if err := e.closeStream(); err != nil {
			errs = append(errs, err)
		}
	}
	e.hwStarted = false
	e.active.Store(nil)
	e.fault.Store(nil)
	if e.store != nil {
		e.store.Clear()
	}

	e.logger.Debug("Engine shut down", "id", e.id())
	e.streamID.Store("")
	return errors.Join(errs...)
}

func (e *Engine) closeStream() error {
	err := e.stream.Close()
	e.stream = nil
	e.hwStarted = false
	if err != nil {
		return fmt.Errorf("close stream: %w", err)
	}
	return nil
}

// transition moves the engine from one state to another if the lifecycle
// table allows it and no other goroutine changed the state first.
func (e *Engine) transition(from, to State) bool {
	if !CanTransition(from, to) {
		return false
	}
	return e.state.CompareAndSwap(int32(from), int32(to))
}

// moveTo moves the engine to a state from whatever state it is in. It
// returns false if the table does not allow the move from the current
// state.
func (e *Engine) moveTo(to State) bool {
	for {
		from := e.State()
		if !CanTransition(from, to) {
			return false
		}
		if e.state.CompareAndSwap(int32(from), int32(to)) {
			return true
		}
	}
}

func (e *Engine) resetCounters() {
	e.cursor.Store(0)
	e.callbacks.Store(0)
	e.framesRendered.Store(0)
	e.underruns.Store(0)
	e.drains.Store(0)
	e.deviceErrors.Store(0)
}

// reconcile pauses the hardware stream after the render goroutine moved
// the engine out of Running on its own (buffer drained or device lost).
func (e *Engine) reconcile() {
	if !e.hwStarted {
		return
	}
	switch e.State() {
	case StateIdle:
		e.waitRenderIdle()
		if err := e.stream.Stop(); err != nil {
			e.logger.Warn("Error pausing drained stream", "err", err)
		}
		e.hwStarted = false
		e.logger.Debug("Playback finished", "id", e.id())
	case StateError:
		_ = e.stream.Stop()
		e.hwStarted = false
		e.logger.Error("Playback stream lost", "id", e.id(), "err", e.faultCause())
	}
}

// waitRenderIdle spins until no render callback is executing. Callers have
// already moved the state out of Running, so new callbacks render silence
// without touching the cursor.
func (e *Engine) waitRenderIdle() {
	for e.inFlight.Load() != 0 {
		runtime.Gosched()
	}
}

func (e *Engine) faultCause() error {
	if f := e.fault.Load(); f != nil {
		return f.err
	}
	return nil
}

func (e *Engine) recordFault(err error) {
	e.fault.Store(&deviceFault{err: err})
	e.deviceErrors.Add(1)
}

// deviceError is the asynchronous device failure hook. It never blocks.
func (e *Engine) deviceError(err error) {
	e.recordFault(err)
	e.moveTo(StateError)
}

func (e *Engine) noteUnderrun() {
	e.underruns.Add(1)
}

// render is the real-time callback handed to the device. It only touches
// atomics and the immutable published buffer.
func (e *Engine) render(dst []int16) {
	e.inFlight.Add(1)
	if State(e.state.Load()) != StateRunning {
		clear(dst)
		e.inFlight.Add(-1)
		return
	}

	begin := time.Now()
	cursor := e.cursor.Load()
	if e.rewind.Swap(false) {
		cursor = 0
	}

	res := Render(dst, e.active.Load(), int(cursor), e.config.EndPolicy)
	e.cursor.Store(int64(res.Cursor))
	e.callbacks.Add(1)
	e.framesRendered.Add(uint64(res.Frames))

	if res.Exhausted && e.transition(StateRunning, StateIdle) {
		e.drains.Add(1)
	}

	if ch := e.config.Channels; ch > 0 {
		budget := time.Duration(int64(len(dst)/ch) * e.nsPerFrame)
		if time.Since(begin) > budget {
			e.underruns.Add(1)
		}
	}
	e.inFlight.Add(-1)
}
