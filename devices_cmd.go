package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aliassadi/pcmplay/stream/device"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the audio backends compiled into pcmplay",
	Long:  paragraph(fmt.Sprintf("\n%s the audio backends and which one %s picks.", keyword("List"), keyword("auto"))),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		style := styles.AutoStyle
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			style = styles.NoTTYStyle
		}

		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(80),
		)
		if err != nil {
			return fmt.Errorf("unable to create renderer: %w", err)
		}

		out, err := r.Render(devicesMarkdown(device.Available(), device.IsCI()))
		if err != nil {
			return fmt.Errorf("unable to render device list: %w", err)
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err //nolint:wrapcheck
	},
}

func devicesMarkdown(infos []device.Info, ci bool) string {
	var b strings.Builder
	b.WriteString("# Audio backends\n\n")
	b.WriteString("| Backend | Available | Notes |\n")
	b.WriteString("|---------|-----------|-------|\n")
	for _, info := range infos {
		avail := "no"
		if info.Available {
			avail = "yes"
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s |\n", info.Name, avail, info.Note)
	}

	auto := device.Mock
	if !ci {
		for _, info := range infos {
			if info.Available && info.Name != device.Mock {
				auto = info.Name
				break
			}
		}
	}
	fmt.Fprintf(&b, "\n`auto` selects **%s**", auto)
	if ci {
		b.WriteString(" because a CI environment was detected")
	}
	b.WriteString(".\n")
	return b.String()
}
