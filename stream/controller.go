package stream

import (
	"encoding/binary"
	"sync"

	"github.com/charmbracelet/log"
)

// Controller is the only entry point for callers outside the engine. It
// serializes control calls with a mutex that the render path never takes.
type Controller struct {
	mu     sync.Mutex
	engine *Engine
	store  *SampleStore
	cfg    StreamConfig
	order  binary.ByteOrder
	logger *log.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the logger used by the controller and its engine.
func WithLogger(l *log.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// WithByteOrder sets the byte order used by LoadBuffer.
func WithByteOrder(order binary.ByteOrder) ControllerOption {
	return func(c *Controller) { c.order = order }
}

// NewController creates a controller around a fresh engine bound to device.
// The engine stays Uninitialized until Init is called.
func NewController(device Device, cfg StreamConfig, opts ...ControllerOption) *Controller {
	c := &Controller{
		cfg:    cfg,
		order:  binary.LittleEndian,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.store = NewSampleStore(cfg.Channels, cfg.SampleRate)
	c.engine = NewEngine(device, c.store, c.logger)
	return c
}

// Init opens the playback stream. It also re-arms the engine after a
// device loss.
func (c *Controller) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return withOp("init", c.engine.Initialize(c.cfg))
}

// LoadBuffer decodes raw PCM bytes and makes them the active buffer. It is
// rejected with ErrEngineBusy while playing.
func (c *Controller) LoadBuffer(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.engine.reconcile()
	if state := c.engine.State(); state.IsActive() {
		return newError("load", ErrEngineBusy, nil, state)
	}

	buf, err := c.store.Load(data, c.order)
	if err != nil {
		c.logger.Warn("Rejected sample buffer", "bytes", len(data), "err", err)
		return withOp("load", err)
	}

	c.logger.Debug("Sample buffer loaded",
		"samples", buf.Len(),
		"frames", buf.Frames(),
		"channels", buf.Channels(),
		"duration", buf.Duration())
	return nil
}

// Start begins playback of the loaded buffer.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return withOp("start", c.engine.Start())
}

// Stop halts playback and waits for the render goroutine to drain. It is
// a no-op while idle.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return withOp("stop", c.engine.Stop())
}

// Toggle starts playback when idle and stops it when running. It returns
// whether the engine is playing afterwards.
func (c *Controller) Toggle() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.engine.reconcile()
	if c.engine.State() == StateRunning {
		if err := c.engine.Stop(); err != nil {
			return false, withOp("stop", err)
		}
		return false, nil
	}
	if err := c.engine.Start(); err != nil {
		return false, withOp("start", err)
	}
	return true, nil
}

// Shutdown releases the playback stream and the loaded buffer.
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.engine.Shutdown()
}

// State returns the engine state.
func (c *Controller) State() State {
	return c.engine.State()
}

// Stats returns the engine diagnostics.
func (c *Controller) Stats() Stats {
	return c.engine.Stats()
}

// Config returns the negotiated stream configuration.
func (c *Controller) Config() StreamConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Config()
}

// Current returns the loaded buffer, if any.
func (c *Controller) Current() (*SampleBuffer, bool) {
	return c.store.Current()
}
