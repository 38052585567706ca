// Package device provides the playback backends for the stream engine:
// oto for the system output, PortAudio for a callback stream when built
// with the portaudio tag, and an in-memory manual device used by tests
// and CI.
package device
