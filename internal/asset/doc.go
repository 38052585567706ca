// Package asset loads raw PCM files for playback. Files ending in .zst
// are decompressed transparently, and Watch reloads a file when it
// changes on disk.
package asset
