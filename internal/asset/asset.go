package asset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/mitchellh/go-homedir"
)

// MaxSize is the largest decoded asset accepted, 64 MiB. A stereo 48 kHz
// buffer of that size plays for almost six minutes.
const MaxSize = 64 << 20

// ErrTooLarge is returned for assets larger than MaxSize.
var ErrTooLarge = errors.New("asset too large")

// ExpandPath expands a leading ~ and environment variables and returns an
// absolute path.
func ExpandPath(path string) (string, error) {
	p, err := homedir.Expand(os.ExpandEnv(path))
	if err != nil {
		return "", fmt.Errorf("failed to expand path %q: %w", path, err)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	return abs, nil
}

// IsCompressed reports whether path names a zstd compressed asset.
func IsCompressed(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zst")
}

// ReadFile reads the raw PCM bytes at path.
func ReadFile(path string) ([]byte, error) {
	p, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("failed to stat asset: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("asset %s is a directory", p)
	}
	if !IsCompressed(p) && info.Size() > MaxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, p, info.Size())
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset: %w", err)
	}
	if !IsCompressed(p) {
		return data, nil
	}
	return Decompress(data)
}

// Decompress decodes a zstd frame.
func Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTooLarge, err)
		}
		return nil, fmt.Errorf("failed to decompress asset: %w", err)
	}
	return out, nil
}

// Compress encodes data as a zstd frame.
func Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}
