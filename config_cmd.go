package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/aliassadi/pcmplay/stream"
	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configComments documents each key of the generated config file.
var configComments = map[string]string{
	"device":                "audio backend: auto, oto, portaudio or mock",
	"sample_rate":           "stream sample rate in Hz",
	"channels":              "interleaved channels in the PCM file",
	"frames_per_burst":      "frames per hardware period; smaller is lower latency",
	"byte_order":            "sample byte order of the PCM file: little or big",
	"end_policy":            "at the end of the buffer: loop or drain",
	"allow_fallback":        "fall back to 48 kHz stereo if the device rejects the format",
	"metrics_addr":          "serve Prometheus metrics on this address, e.g. \":9464\"",
	"underrun_log_interval": "log underruns at most this often",
}

// defaultConfig renders stream.DefaultConfig as commented YAML.
func defaultConfig() ([]byte, error) {
	cfg := stream.DefaultConfig()
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("unable to encode default config: %w", err)
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, val := doc.Content[i], doc.Content[i+1]
		if c, ok := configComments[key.Value]; ok {
			key.HeadComment = c
		}
		// Durations encode as nanoseconds otherwise.
		if key.Value == "underrun_log_interval" {
			val.Tag, val.Value = "!!str", cfg.UnderrunEvery.String()
		}
	}
	return yaml.Marshal(&doc) //nolint:wrapcheck
}

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the pcmplay config file",
	Long:    paragraph(fmt.Sprintf("\n%s the pcmplay config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("pcmplay config\npcmplay config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("pcmplay", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		content, err := defaultConfig()
		if err != nil {
			return err
		}
		if _, err := f.Write(content); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
