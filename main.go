// Package main provides the entry point for the pcmplay CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aliassadi/pcmplay/internal/asset"
	"github.com/aliassadi/pcmplay/internal/metrics"
	"github.com/aliassadi/pcmplay/stream"
	"github.com/aliassadi/pcmplay/stream/device"
	"github.com/aliassadi/pcmplay/ui"
	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	gap "github.com/muesli/go-app-paths"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	duration   time.Duration
	watch      bool
	match      string
	showAll    bool
	mouse      bool
	headless   bool

	rootCmd = &cobra.Command{
		Use:   "pcmplay [FILE|DIR]",
		Short: "Play raw PCM audio with low latency",
		Long: paragraph(
			fmt.Sprintf("\nPlay a raw %s buffer on the default output device, looping or draining at the end.", keyword("16-bit PCM")),
		),
		Example: paragraph("pcmplay tone.raw\npcmplay --end-policy drain --duration 5s tone.raw.zst\ncat tone.raw | pcmplay -"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return asset.Extensions, cobra.ShellCompDirectiveFilterFileExt
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
		log.Debug("Using configuration file", "path", configFile)
	}

	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	mouse = viper.GetBool("mouse")

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	if !isTerminal {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	// Without a terminal there is nothing to press, so play for a fixed
	// time instead.
	headless = !isTerminal || cmd.Flags().Changed("duration")
	if headless {
		logToStderr()
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// resolveSource returns the asset path for arg and whether it can be
// watched. "-" and an empty argument with piped stdin mean stdin.
func resolveSource(arg string) (string, error) {
	if arg == "" || arg == "-" {
		return "-", nil
	}

	p, err := asset.ExpandPath(arg)
	if err != nil {
		return "", err
	}
	st, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("unable to open file: %w", err)
	}
	if !st.IsDir() {
		return p, nil
	}

	paths, err := asset.Find(p, showAll)
	if err != nil {
		return "", err
	}
	return asset.Pick(p, paths, match)
}

func readSource(path string) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("unable to read from stdin: %w", err)
		}
		return b, nil
	}
	return asset.ReadFile(path)
}

func execute(cmd *cobra.Command, args []string) error {
	var arg string
	if len(args) > 0 {
		arg = args[0]
	} else if yes, err := stdinIsPipe(); err != nil {
		return err
	} else if !yes {
		return cmd.Help()
	}

	path, err := resolveSource(arg)
	if err != nil {
		return err
	}

	cfg, err := stream.LoadConfigFromViper()
	if err != nil {
		return err
	}
	return play(cmd.Context(), cfg, path)
}

func play(ctx context.Context, cfg stream.Config, path string) error {
	data, err := readSource(path)
	if err != nil {
		return err
	}

	sc, err := cfg.StreamConfig()
	if err != nil {
		return err
	}
	order, err := stream.ParseByteOrder(cfg.ByteOrder)
	if err != nil {
		return err
	}

	dev, err := device.New(cfg.Device)
	if err != nil {
		return err
	}

	ctrl := stream.NewController(dev, sc,
		stream.WithLogger(log.Default()),
		stream.WithByteOrder(order),
	)
	if err := ctrl.Init(); err != nil {
		return fmt.Errorf("unable to open audio device: %w", err)
	}
	defer func() {
		if err := ctrl.Shutdown(); err != nil {
			log.Warn("Error shutting down audio engine", "error", err)
		}
	}()

	if err := ctrl.LoadBuffer(data); err != nil {
		return fmt.Errorf("unable to load %s: %w", displayName(path), err)
	}
	if buf, ok := ctrl.Current(); ok {
		log.Info("Loaded sample buffer",
			"file", displayName(path),
			"size", humanize.IBytes(uint64(buf.SizeBytes())),
			"duration", buf.Duration())
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		shutdown, err := metrics.InitProvider(gctx, metrics.ProviderConfig{ServiceVersion: Version})
		if err != nil {
			return fmt.Errorf("unable to set up metrics: %w", err)
		}
		defer func() { _ = shutdown(context.Background()) }()

		reg, err := metrics.Register(otel.GetMeterProvider(), ctrl)
		if err != nil {
			return fmt.Errorf("unable to register metrics: %w", err)
		}
		defer func() { _ = reg.Unregister() }()

		g.Go(func() error { return metrics.Serve(gctx, cfg.MetricsAddr) })
	}

	reporter := metrics.NewUnderrunReporter(ctrl, cfg.UnderrunEvery, log.Default())
	g.Go(func() error { return reporter.Run(gctx) })

	if watch && path != "-" {
		g.Go(func() error { return asset.Watch(gctx, path, ctrl.LoadBuffer) })
	}

	g.Go(func() error {
		defer cancel()
		if headless {
			return runHeadless(gctx, ctrl, duration)
		}
		return runTUI(gctx, ctrl, path)
	})

	return g.Wait()
}

// runHeadless plays until d elapsed, the buffer drained or ctx is done.
func runHeadless(ctx context.Context, ctrl *stream.Controller, d time.Duration) error {
	if err := ctrl.Start(); err != nil {
		return err
	}

	var timeout <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		timeout = t.C
	}
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctrl.Stop()
		case <-timeout:
			return ctrl.Stop()
		case <-poll.C:
			switch ctrl.State() {
			case stream.StateIdle:
				log.Debug("Playback drained")
				return ctrl.Stop()
			case stream.StateError:
				// Stop surfaces the device error.
				return ctrl.Stop()
			}
		}
	}
}

func runTUI(ctx context.Context, ctrl *stream.Controller, path string) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	if path != "-" {
		cfg.Path = path
	}
	cfg.EnableMouse = mouse

	p := ui.NewProgram(cfg, ctrl)
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func displayName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return filepath.Base(path)
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().Bool("debug", false, "write debug logs")
	rootCmd.Flags().String("device", "auto", "audio backend: auto, oto, portaudio or mock")
	rootCmd.Flags().Int("sample-rate", stream.DefaultSampleRate, "stream sample rate in Hz")
	rootCmd.Flags().IntP("channels", "c", stream.DefaultChannels, "interleaved channels in the file")
	rootCmd.Flags().Int("frames-per-burst", stream.DefaultFramesPerBurst, "frames per hardware period")
	rootCmd.Flags().String("byte-order", "little", "sample byte order: little or big")
	rootCmd.Flags().StringP("end-policy", "e", "loop", "at the end of the buffer: loop or drain")
	rootCmd.Flags().Bool("allow-fallback", false, "fall back to 48 kHz stereo if the device rejects the format")
	rootCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9464")
	rootCmd.Flags().DurationVarP(&duration, "duration", "d", 0, "play without the TUI for this long (0 plays until the buffer drains)")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload the file when it changes")
	rootCmd.Flags().StringVar(&match, "match", "", "fuzzy-pick a file when a directory is given")
	rootCmd.Flags().BoolVarP(&showAll, "all", "a", false, "include files ignored by .gitignore when searching a directory")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "click to play/stop (TUI-mode only)")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("device", rootCmd.Flags().Lookup("device"))
	_ = viper.BindPFlag("sample_rate", rootCmd.Flags().Lookup("sample-rate"))
	_ = viper.BindPFlag("channels", rootCmd.Flags().Lookup("channels"))
	_ = viper.BindPFlag("frames_per_burst", rootCmd.Flags().Lookup("frames-per-burst"))
	_ = viper.BindPFlag("byte_order", rootCmd.Flags().Lookup("byte-order"))
	_ = viper.BindPFlag("end_policy", rootCmd.Flags().Lookup("end-policy"))
	_ = viper.BindPFlag("allow_fallback", rootCmd.Flags().Lookup("allow-fallback"))
	_ = viper.BindPFlag("metrics_addr", rootCmd.Flags().Lookup("metrics-addr"))

	stream.SetDefaults()

	rootCmd.AddCommand(configCmd, devicesCmd, toneCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "pcmplay")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "pcmplay")}, dirs...)
	}

	if c := os.Getenv("PCMPLAY_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("pcmplay")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("pcmplay")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "pcmplay.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
