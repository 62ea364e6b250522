package connection

import (
	"context"
	"errors"
	"sync"
)

// MockDialer is an in-memory Dialer for tests and offline development.
type MockDialer struct {
	mu       sync.Mutex
	failures []error
	hold     bool
	attempts int
	conns    []*MockConn
}

// NewMockDialer creates a MockDialer whose dials succeed.
func NewMockDialer() *MockDialer {
	return &MockDialer{}
}

// FailNext makes the next n dials fail with err.
func (d *MockDialer) FailNext(n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < n; i++ {
		d.failures = append(d.failures, err)
	}
}

// Hold makes dials block until their context is canceled.
func (d *MockDialer) Hold(hold bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hold = hold
}

// Dial implements Dialer.
func (d *MockDialer) Dial(ctx context.Context) (Conn, error) {
	d.mu.Lock()
	d.attempts++
	if d.hold {
		d.mu.Unlock()
		<-ctx.Done()
		return nil, NewConnectionError("handshake", ctx.Err(), true)
	}
	if len(d.failures) > 0 {
		err := d.failures[0]
		d.failures = d.failures[1:]
		d.mu.Unlock()
		return nil, err
	}
	conn := NewMockConn()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

// Attempts returns how many times Dial was called.
func (d *MockDialer) Attempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

// Conns returns every connection handed out so far.
func (d *MockDialer) Conns() []*MockConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*MockConn(nil), d.conns...)
}

// LastConn returns the most recent connection, or nil.
func (d *MockDialer) LastConn() *MockConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

var errMockConnClosed = errors.New("mock conn closed")

// MockConn is an in-memory Conn.
type MockConn struct {
	inbound chan []byte
	done    chan struct{}

	mu       sync.Mutex
	written  [][]byte
	writeErr error
	closeErr error
	closed   bool
}

// NewMockConn creates an open MockConn.
func NewMockConn() *MockConn {
	return &MockConn{
		inbound: make(chan []byte, 64),
		done:    make(chan struct{}),
	}
}

// Push queues an inbound payload.
func (c *MockConn) Push(data string) {
	c.inbound <- []byte(data)
}

// CloseWith ends the session from the service side. Reads return err
// once pending payloads are drained.
func (c *MockConn) CloseWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeErr = err
	close(c.done)
}

// SetWriteErr makes subsequent writes fail with err. nil restores writes.
func (c *MockConn) SetWriteErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

// Written returns a copy of every payload written so far.
func (c *MockConn) Written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.written))
	copy(out, c.written)
	return out
}

// Closed reports whether the connection was closed by either side.
func (c *MockConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ReadMessage implements Conn.
func (c *MockConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.done:
	}
	select {
	case data := <-c.inbound:
		return data, nil
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return nil, c.closeErr
}

// WriteMessage implements Conn.
func (c *MockConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errMockConnClosed
	}
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

// Close implements Conn.
func (c *MockConn) Close() error {
	c.CloseWith(NewConnectionError("read", errMockConnClosed, true))
	return nil
}

var (
	_ Dialer = (*MockDialer)(nil)
	_ Conn   = (*MockConn)(nil)
)
