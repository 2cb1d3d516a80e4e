package test

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/pradb/pradb/internal/wire"
	"github.com/stretchr/testify/require"
)

// Reply is one scripted daemon answer.
type Reply struct {
	Data []byte
	// Close hangs up after writing Data, which ends a to-EOF body.
	Close bool
}

// Okay answers OKAY with a length-prefixed body.
func Okay(body string) Reply {
	return Reply{Data: []byte(wire.TokenOkay + lengthPrefixed(body))}
}

// OkayStream answers OKAY, writes body raw and hangs up.
func OkayStream(body string) Reply {
	return Reply{Data: []byte(wire.TokenOkay + body), Close: true}
}

// Fail answers FAIL with a length-prefixed reason.
func Fail(reason string) Reply {
	return Reply{Data: []byte(wire.TokenFail + lengthPrefixed(reason))}
}

// FailStream answers FAIL, writes reason raw and hangs up.
func FailStream(reason string) Reply {
	return Reply{Data: []byte(wire.TokenFail + reason), Close: true}
}

// Status answers with a bare status token.
func Status(token string) Reply {
	return Reply{Data: []byte(token)}
}

// Hangup closes the connection without answering.
func Hangup() Reply {
	return Reply{Close: true}
}

func lengthPrefixed(body string) string {
	return fmt.Sprintf("%04X%s", len(body), body)
}

// Handler produces the reply for one decoded request.
type Handler func(request string) Reply

// Script answers from a fixed request table and FAILs anything else.
func Script(replies map[string]Reply) Handler {
	return func(request string) Reply {
		reply, ok := replies[request]
		if !ok {
			return Fail("unknown command: " + request)
		}
		return reply
	}
}

// FakeDaemon is a loopback listener that decodes smart-socket requests and
// answers them from a Handler. Each accepted connection is served on its own
// goroutine so device sessions can be dialed while the listing one is open.
type FakeDaemon struct {
	listener net.Listener
	handler  Handler

	mu          sync.Mutex
	requests    []string
	connections int
	active      map[net.Conn]struct{}

	wg sync.WaitGroup
}

// NewFakeDaemon starts a fake daemon stopped automatically on test cleanup.
func NewFakeDaemon(t *testing.T, handler Handler) *FakeDaemon {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "listen for fake daemon")

	daemon := &FakeDaemon{
		listener: listener,
		handler:  handler,
		active:   map[net.Conn]struct{}{},
	}
	daemon.wg.Add(1)
	go daemon.acceptLoop()

	t.Cleanup(daemon.Stop)
	return daemon
}

// Addr is the host:port clients should dial.
func (d *FakeDaemon) Addr() string {
	return d.listener.Addr().String()
}

// Requests returns every decoded request in arrival order.
func (d *FakeDaemon) Requests() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.requests...)
}

// Connections returns the number of accepted connections.
func (d *FakeDaemon) Connections() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connections
}

// Stop closes the listener and any open connections, then waits for the
// serving goroutines.
func (d *FakeDaemon) Stop() {
	_ = d.listener.Close()
	d.mu.Lock()
	for conn := range d.active {
		_ = conn.Close()
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *FakeDaemon) acceptLoop() {
	defer d.wg.Done()
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			return
		}
		d.mu.Lock()
		d.connections++
		d.active[conn] = struct{}{}
		d.mu.Unlock()

		d.wg.Add(1)
		go d.serve(conn)
	}
}

func (d *FakeDaemon) serve(conn net.Conn) {
	defer d.wg.Done()
	defer func() {
		_ = conn.Close()
		d.mu.Lock()
		delete(d.active, conn)
		d.mu.Unlock()
	}()

	for {
		request, err := readRequest(conn)
		if err != nil {
			return
		}
		d.mu.Lock()
		d.requests = append(d.requests, request)
		d.mu.Unlock()

		reply := d.handler(request)
		if len(reply.Data) > 0 {
			if _, err := conn.Write(reply.Data); err != nil {
				return
			}
		}
		if reply.Close {
			return
		}
	}
}

func readRequest(r io.Reader) (string, error) {
	header := make([]byte, wire.HeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return "", err
	}
	n, err := wire.DecodeLength(header)
	if err != nil {
		return "", err
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return string(payload), nil
}
