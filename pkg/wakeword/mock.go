package wakeword

import (
	"context"
	"sync"
	"time"
)

// MockSource is an in-memory transcript Source for tests and development.
type MockSource struct {
	mu        sync.Mutex
	running   bool
	starts    int
	stops     int
	startErrs []error
	segments  chan Segment
	errs      chan error
}

// NewMockSource creates a MockSource.
func NewMockSource() *MockSource {
	return &MockSource{
		segments: make(chan Segment, 32),
		errs:     make(chan error, 8),
	}
}

// FailStarts makes the next Start calls return errs in order.
func (m *MockSource) FailStarts(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErrs = append(m.startErrs, errs...)
}

// Start implements Source.
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	if len(m.startErrs) > 0 {
		err := m.startErrs[0]
		m.startErrs = m.startErrs[1:]
		if err != nil {
			return err
		}
	}
	m.running = true
	return nil
}

// Stop implements Source.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.running = false
	return nil
}

// Segments implements Source.
func (m *MockSource) Segments() <-chan Segment {
	return m.segments
}

// Errors implements Source.
func (m *MockSource) Errors() <-chan error {
	return m.errs
}

// Say pushes a finalized transcript.
func (m *MockSource) Say(text string) {
	m.segments <- Segment{Text: text, Final: true, Timestamp: time.Now()}
}

// Partial pushes an interim transcript.
func (m *MockSource) Partial(text string) {
	m.segments <- Segment{Text: text, Timestamp: time.Now()}
}

// Fail pushes a source error.
func (m *MockSource) Fail(err error) {
	m.errs <- err
}

// Running reports whether the source is started.
func (m *MockSource) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Starts returns how many times Start was called.
func (m *MockSource) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

var _ Source = (*MockSource)(nil)
