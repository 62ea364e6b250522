package connection

import "context"

// Dialer opens a duplex session to the inference service. Dial must
// return once the handshake has completed or ctx is done.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// Conn is one established session.
//
// ReadMessage blocks for the next text payload. A service-initiated
// normal closure is reported as an error wrapping ErrClosedNormally; any
// other read error is an abnormal closure. WriteMessage is called by one
// goroutine at a time. Close is idempotent.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}
