package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pradb/pradb/internal/adb"
	"github.com/pradb/pradb/internal/config"
	"github.com/pradb/pradb/internal/logging"
	"github.com/pradb/pradb/internal/telemetry"
	"github.com/pradb/pradb/internal/ui"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, ui.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(ctx, logging.WithDir(cfg.LogDir), logging.WithLevel(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() {
		if closeErr := logger.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "failed to close logger: %v\n", closeErr)
		}
	}()

	shutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint)
	if err != nil {
		logger.Logger.Warn("tracing disabled", "err", err)
		shutdown = func() {}
	}
	defer shutdown()

	cmd := newRootCommand(ctx, cfg, logger.Logger)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// app carries the resolved settings shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

func newRootCommand(ctx context.Context, cfg *config.Config, logger *log.Logger) *cobra.Command {
	a := &app{cfg: cfg, logger: logger}

	var (
		addr      string
		ioTimeout time.Duration
		logLevel  string
	)

	root := &cobra.Command{
		Use:           "pradb",
		Short:         "Client for the Android debug bridge daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	flags := root.PersistentFlags()
	flags.StringVar(&addr, "addr", "", "daemon address as host:port")
	flags.DurationVar(&ioTimeout, "io-timeout", 0, "deadline for each daemon exchange (0 disables)")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newVersionCommand(a),
		newDevicesCommand(a),
		newShellCommand(a),
		newPropsCommand(a),
		newPackagesCommand(a),
		newInstallCommand(a),
		newBrowseCommand(a),
		newWatchCommand(a),
		newBugreportCommand(a),
	)

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		if logger == nil {
			return errors.New("logger is required")
		}
		if cfg == nil {
			return errors.New("config is required")
		}
		if cmd.Flags().Changed("addr") {
			cfg.Address = addr
		}
		if cmd.Flags().Changed("io-timeout") {
			cfg.IOTimeout = ioTimeout
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
			logger.SetLevel(level)
		}
		logger.With("command", cmd.Name(), "addr", cfg.Address).Debug("command invocation")
		return nil
	}

	_ = ctx
	return root
}

func (a *app) options() adb.Options {
	return adb.Options{
		Address:     a.cfg.Address,
		DialTimeout: a.cfg.DialTimeout,
		IOTimeout:   a.cfg.IOTimeout,
		Logger:      a.logger,
	}
}

// withSession dials the daemon, runs fn and closes the session.
func (a *app) withSession(ctx context.Context, fn func(*adb.Session) error) (err error) {
	session, err := adb.Dial(ctx, a.options())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closeQuietly(session))
	}()
	return fn(session)
}

// withDevice resolves serial, selects it as transport and runs fn on it.
func (a *app) withDevice(ctx context.Context, serial string, fn func(*adb.Device) error) error {
	return a.withSession(ctx, func(session *adb.Session) (err error) {
		device, err := session.Device(ctx, serial)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, closeQuietly(device))
		}()
		if err := device.UseDevice(ctx); err != nil {
			return err
		}
		return fn(device)
	})
}

type closer interface {
	Close() error
}

func closeQuietly(c closer) error {
	if err := c.Close(); err != nil && !errors.Is(err, adb.ErrSessionClosed) {
		return err
	}
	return nil
}
