package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/aliassadi/pcmplay/internal/asset"
	"github.com/aliassadi/pcmplay/stream"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	toneFreq     float64
	toneLength   time.Duration
	toneGain     float64
	toneOutput   string
	toneRate     int
	toneChannels int

	toneCmd = &cobra.Command{
		Use:     "tone",
		Short:   "Write a sine test tone as raw PCM",
		Long:    paragraph(fmt.Sprintf("\n%s a 16-bit little-endian sine tone. Files ending in .zst are compressed.", keyword("Generate"))),
		Example: paragraph("pcmplay tone -o a440.raw\npcmplay tone --freq 1000 --length 500ms -o click.raw.zst"),
		Args:    cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			data, err := sineTone(toneFreq, toneLength, toneGain, toneRate, toneChannels)
			if err != nil {
				return err
			}
			if asset.IsCompressed(toneOutput) {
				if data, err = asset.Compress(data); err != nil {
					return err
				}
			}
			if err := os.WriteFile(toneOutput, data, 0o644); err != nil { //nolint:gosec
				return fmt.Errorf("unable to write tone: %w", err)
			}
			log.Info("Wrote tone", "file", toneOutput, "size", humanize.IBytes(uint64(len(data))))
			fmt.Println("Wrote tone to:", toneOutput)
			return nil
		},
	}
)

// sineTone renders an interleaved s16le sine, the same value on every
// channel. The length is rounded down to whole periods so the tone loops
// without a click.
func sineTone(freq float64, length time.Duration, gain float64, rate, channels int) ([]byte, error) {
	if freq <= 0 || freq >= float64(rate)/2 {
		return nil, fmt.Errorf("frequency %.1f Hz must be between 0 and %d Hz", freq, rate/2)
	}
	if gain < 0 || gain > 1 {
		return nil, fmt.Errorf("gain %.2f must be between 0 and 1", gain)
	}
	if channels < 1 {
		return nil, errors.New("channels must be at least 1")
	}

	frames := int(length.Seconds() * float64(rate))
	if period := float64(rate) / freq; float64(frames) > period {
		frames = int(math.Floor(float64(frames)/period) * period)
	}
	if frames <= 0 {
		return nil, fmt.Errorf("length %v is too short", length)
	}

	out := make([]byte, 0, frames*channels*stream.BytesPerSample)
	for i := range frames {
		v := int16(math.Round(gain * math.MaxInt16 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))))
		for range channels {
			out = binary.LittleEndian.AppendUint16(out, uint16(v))
		}
	}
	return out, nil
}

func init() {
	toneCmd.Flags().Float64VarP(&toneFreq, "freq", "f", 440, "frequency in Hz")
	toneCmd.Flags().DurationVarP(&toneLength, "length", "l", time.Second, "tone length")
	toneCmd.Flags().Float64VarP(&toneGain, "gain", "g", 0.5, "amplitude from 0 to 1")
	toneCmd.Flags().StringVarP(&toneOutput, "output", "o", "tone.raw", "output file")
	toneCmd.Flags().IntVar(&toneRate, "sample-rate", stream.DefaultSampleRate, "sample rate in Hz")
	toneCmd.Flags().IntVarP(&toneChannels, "channels", "c", stream.DefaultChannels, "channels")
}
