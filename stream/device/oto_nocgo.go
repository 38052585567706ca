//go:build nocgo
// +build nocgo

package device

import (
	"fmt"

	"github.com/aliassadi/pcmplay/stream"
)

// OtoDevice stub for builds without cgo.
type OtoDevice struct{}

// NewOtoDevice returns the stub backend.
func NewOtoDevice() *OtoDevice {
	return &OtoDevice{}
}

// Name returns "oto".
func (d *OtoDevice) Name() string { return "oto" }

// OpenStream always fails: audio output is not available in nocgo builds.
func (d *OtoDevice) OpenStream(stream.StreamConfig, stream.Callbacks) (stream.Stream, error) {
	return nil, fmt.Errorf("%w: audio not available in nocgo build", stream.ErrDeviceUnavailable)
}

func otoAvailable() bool { return false }
