package adb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pradb/pradb/internal/wire"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultAddress is the daemon's conventional loopback endpoint.
	DefaultAddress = "127.0.0.1:5037"

	versionCommand = "host:version"

	defaultDialTimeout = 5 * time.Second
	tracerName         = "pradb/adb"
)

// Dialer opens the TCP connection to the daemon.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Executor runs one framed command and returns the classified reply.
// *Session is the production implementation.
type Executor interface {
	Execute(ctx context.Context, command string, framing wire.Framing) (wire.Outcome, error)
	Close() error
}

// Options configures how a Session reaches the daemon.
type Options struct {
	Address     string
	DialTimeout time.Duration
	// IOTimeout bounds each Execute call. Zero leaves the socket without a
	// deadline unless the context carries one.
	IOTimeout time.Duration
	Dialer    Dialer
	Logger    *log.Logger
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Address) == "" {
		o.Address = DefaultAddress
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = defaultDialTimeout
	}
	if o.Dialer == nil {
		o.Dialer = &net.Dialer{Timeout: o.DialTimeout}
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// Session owns one connection to the daemon.
type Session struct {
	conn   net.Conn
	opts   Options
	logger *log.Logger
	closed bool
}

// New connects to the daemon at DefaultAddress.
func New(ctx context.Context) (*Session, error) {
	return Dial(ctx, Options{})
}

// Dial connects to the daemon. It does not retry and does not start the daemon.
func Dial(ctx context.Context, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	logger := opts.Logger.With("addr", opts.Address)

	logger.Info("connecting to daemon")
	conn, err := opts.Dialer.DialContext(ctx, "tcp", opts.Address)
	if err != nil {
		logger.Error("daemon connection failed", "err", err)
		return nil, &ConnectError{Addr: opts.Address, Err: err}
	}
	logger.Info("connected to daemon")

	return &Session{conn: conn, opts: opts, logger: logger}, nil
}

// Address returns the daemon endpoint this session is connected to.
func (s *Session) Address() string {
	return s.opts.Address
}

// Execute sends command and reads the reply according to framing. Any error
// leaves the stream in an undefined state; discard the Session.
func (s *Session) Execute(ctx context.Context, command string, framing wire.Framing) (wire.Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := otel.Tracer(tracerName).Start(
		ctx,
		"adb.execute",
		trace.WithAttributes(
			attribute.String("command", command),
			attribute.String("framing", framing.String()),
			attribute.String("addr", s.opts.Address),
		),
	)
	defer span.End()

	started := time.Now()
	out, err := s.execute(ctx, command, framing)
	span.SetAttributes(attribute.Int64("duration_ms", time.Since(started).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return wire.Outcome{}, err
	}

	span.SetAttributes(
		attribute.String("status", out.Status.String()),
		attribute.Int("body_bytes", len(out.Body)),
	)
	span.SetStatus(codes.Ok, "command completed")
	return out, nil
}

func (s *Session) execute(ctx context.Context, command string, framing wire.Framing) (wire.Outcome, error) {
	if s.closed {
		return wire.Outcome{}, &wire.TransportError{Op: "write request", Err: net.ErrClosed}
	}

	if err := ctx.Err(); err != nil {
		return wire.Outcome{}, &wire.TransportError{Op: "write request", Err: err}
	}
	if deadline, ok := s.deadline(ctx); ok {
		if err := s.conn.SetDeadline(deadline); err != nil {
			return wire.Outcome{}, &wire.TransportError{Op: "set deadline", Err: err}
		}
	}
	// Cancellation expires the deadline so a blocked read or write returns.
	cancelled := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetDeadline(time.Now())
		close(cancelled)
	})
	defer func() {
		if !stop() {
			<-cancelled
		}
		_ = s.conn.SetDeadline(time.Time{})
	}()

	logger := s.logger.With("command", command)
	logger.Debug("sending request", "bytes", len(command), "framing", framing.String())
	if err := wire.WriteRequest(s.conn, command); err != nil {
		return wire.Outcome{}, interrupted(ctx, err)
	}

	token := ""
	if framing.Status == wire.StatusPresent {
		var err error
		token, err = wire.ReadStatus(s.conn)
		if err != nil {
			return wire.Outcome{}, interrupted(ctx, err)
		}
		logger.Debug("status received", "token", token)
	}

	body, err := wire.ReadBody(s.conn, framing.Body)
	if err != nil {
		return wire.Outcome{}, interrupted(ctx, err)
	}
	logger.Debug("body received", "bytes", len(body))

	return wire.Classify(token, body), nil
}

// interrupted attaches the context's error when cancellation cut the exchange
// short, so callers can match context.Canceled as well as *wire.TransportError.
func interrupted(ctx context.Context, err error) error {
	ctxErr := ctx.Err()
	if ctxErr == nil || errors.Is(err, ctxErr) {
		return err
	}
	return fmt.Errorf("%w: %w", err, ctxErr)
}

func (s *Session) deadline(ctx context.Context) (time.Time, bool) {
	deadline, ok := ctx.Deadline()
	if s.opts.IOTimeout > 0 {
		timeout := time.Now().Add(s.opts.IOTimeout)
		if !ok || timeout.Before(deadline) {
			return timeout, true
		}
	}
	return deadline, ok
}

type halfCloser interface {
	CloseRead() error
	CloseWrite() error
}

// Close shuts down both directions of the connection and releases it.
// Closing twice returns ErrSessionClosed.
func (s *Session) Close() error {
	if s == nil || s.conn == nil {
		return ErrSessionClosed
	}
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true

	var errs []error
	if hc, ok := s.conn.(halfCloser); ok {
		for _, shutdown := range []func() error{hc.CloseWrite, hc.CloseRead} {
			if err := shutdown(); err != nil && !errors.Is(err, syscall.ENOTCONN) {
				errs = append(errs, err)
			}
		}
	}
	if err := s.conn.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("adb: close session: %w", err)
	}
	s.logger.Debug("session closed")
	return nil
}

// Version asks the daemon for its protocol version. The body is the version
// as four hex digits. A non-OKAY reply is returned as a *ResponseError
// alongside the outcome.
func (s *Session) Version(ctx context.Context) (wire.Outcome, error) {
	out, err := s.Execute(ctx, versionCommand, wire.HostQuery)
	if err != nil {
		return out, err
	}
	if !out.OK() {
		return out, responseError(versionCommand, out)
	}
	return out, nil
}
