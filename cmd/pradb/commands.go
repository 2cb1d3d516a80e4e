package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pradb/pradb/internal/adb"
	"github.com/pradb/pradb/internal/browse"
	"github.com/pradb/pradb/internal/events"
	"github.com/pradb/pradb/internal/ui"
	"github.com/pradb/pradb/internal/watch"
	"github.com/pradb/pradb/internal/wire"
	"github.com/spf13/cobra"
)

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the daemon protocol version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd.Context(), func(session *adb.Session) error {
				out, err := session.Version(cmd.Context())
				if err != nil {
					return err
				}
				out.Body = "daemon version " + formatVersion(out.Body)
				_, err = fmt.Fprintln(cmd.OutOrStdout(), ui.Outcome(out))
				return err
			})
		},
	}
}

// formatVersion decodes the daemon's hex version, falling back to the raw body.
func formatVersion(body string) string {
	trimmed := strings.TrimSpace(body)
	if v, err := strconv.ParseUint(trimmed, 16, 32); err == nil {
		return strconv.FormatUint(v, 10)
	}
	return trimmed
}

func newDevicesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List attached devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd.Context(), func(session *adb.Session) error {
				records, err := session.ListDevices(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), ui.DeviceTable(records))
				return err
			})
		},
	}
}

func newShellCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell SERIAL -- COMMAND...",
		Short: "Run a shell command on a device",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			serial, command := args[0], strings.Join(args[1:], " ")
			return a.withDevice(cmd.Context(), serial, func(device *adb.Device) error {
				output, err := device.Shell(cmd.Context(), command)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), output)
				return err
			})
		},
	}
}

func newPropsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "props SERIAL [NAME]",
		Short: "Show device properties",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDevice(cmd.Context(), args[0], func(device *adb.Device) error {
				if len(args) == 2 {
					value, err := device.Property(cmd.Context(), args[1])
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
					return err
				}
				props, err := device.Properties(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), ui.PropertyTable(props))
				return err
			})
		},
	}
}

func newPackagesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "packages SERIAL",
		Short: "List installed package identifiers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDevice(cmd.Context(), args[0], func(device *adb.Device) error {
				packages, err := device.Packages(cmd.Context())
				if err != nil {
					return err
				}
				for _, name := range packages {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newInstallCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install SERIAL PATH",
		Short: "Install a package with pm after checking the path exists locally",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			serial, path := args[0], args[1]
			return a.withDevice(cmd.Context(), serial, func(device *adb.Device) error {
				if err := device.Install(cmd.Context(), path); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s installed %s\n", ui.StatusBadge(wire.StatusOK), path)
				return err
			})
		},
	}
}

func newBrowseCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse attached devices interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			model := browse.New(cmd.Context(), browse.SessionSource{Options: a.options()})
			program := tea.NewProgram(model,
				tea.WithContext(cmd.Context()),
				tea.WithAltScreen(),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			_, err := program.Run()
			return err
		},
	}
}

func newWatchCommand(a *app) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print device attach and detach events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bus := events.New(events.WithLogger(a.logger))
			defer bus.Close()
			out := cmd.OutOrStdout()
			bus.SubscribeAll(func(event events.Event) {
				fmt.Fprintln(out, ui.DeviceEvent(event))
			})

			watcher, err := watch.New(browse.SessionSource{Options: a.options()}, bus, watch.Config{
				Interval: interval,
				Logger:   a.logger,
			})
			if err != nil {
				return err
			}
			watcher.Start(ctx)
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "time between device listings")
	return cmd
}
