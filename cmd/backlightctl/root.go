package main

import (
	"fmt"
	"io"

	"codeberg.org/mutker/backlightd/internal/ipc"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

type options struct {
	brightness string
	auto       bool
	refresh    bool
	off        bool
	on         bool
	socketPath string
	json       bool
}

func newRootCommand(out io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "backlightctl",
		Short:         "Control the brightness of every monitor through backlightd",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			commands, err := opts.commands()
			if err != nil {
				return err
			}

			return run(out, opts, commands)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.brightness, "brightness", "b", "",
		"Set the brightness of all monitors (valid values examples: 50% +10% -10%)")
	flags.BoolVarP(&opts.auto, "auto", "a", false,
		"Set backlightd mode to auto (the daemon will automatically adjust brightness)")
	flags.BoolVarP(&opts.refresh, "refresh", "r", false,
		"Refresh the list of known monitors (called by the udev rule)")
	flags.BoolVar(&opts.off, "off", false, "Turn every monitor off")
	flags.BoolVar(&opts.on, "on", false, "Turn every monitor on")
	flags.StringVarP(&opts.socketPath, "unix-socket-path", "u", ipc.DefaultSocketPath, "UNIX socket path")
	flags.BoolVar(&opts.json, "json", false, "Output will be JSON")

	cmd.MarkFlagsMutuallyExclusive("auto", "brightness")
	cmd.MarkFlagsMutuallyExclusive("off", "on")

	return cmd
}

// commands lists what to send before asking for the current brightness.
func (o *options) commands() ([]ipc.Command, error) {
	var commands []ipc.Command

	if o.refresh {
		commands = append(commands, ipc.Refresh())
	}
	if o.auto {
		commands = append(commands, ipc.SetMode(ipc.ModeAuto))
	}
	if o.off {
		commands = append(commands, ipc.TurnOffMonitors())
	}
	if o.on {
		commands = append(commands, ipc.TurnOnMonitors())
	}
	if o.brightness != "" {
		cmd, err := parseBrightness(o.brightness)
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
	}

	return commands, nil
}

func run(out io.Writer, opts *options, commands []ipc.Command) error {
	client, err := ipc.Dial(opts.socketPath)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.socketPath, err)
	}

	for _, cmd := range commands {
		if err := client.Send(cmd); err != nil {
			client.Close()
			return err
		}
	}

	info, err := client.Info()
	if err != nil {
		client.Close()
		return err
	}

	if opts.json {
		encoded, err := json.Marshal(info)
		if err != nil {
			client.Close()
			return fmt.Errorf("cannot serialize brightness info to json: %w", err)
		}
		fmt.Fprintln(out, string(encoded))
	} else {
		fmt.Fprintf(out, "Current brightness: %d%%\n", info.BrightnessPercent)
	}

	return client.Close()
}
