package connection

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketDialer dials the inference service over WebSocket.
type WebSocketDialer struct {
	URL              string
	APIKey           string
	ConfigID         string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	// Tokens, when set, authenticates with an access token instead of the
	// API key.
	Tokens *TokenSource
}

// NewWebSocketDialer builds a dialer from cfg. A secret key switches the
// dialer to token authentication.
func NewWebSocketDialer(cfg *Config) *WebSocketDialer {
	d := &WebSocketDialer{
		URL:              cfg.URL,
		APIKey:           cfg.APIKey,
		ConfigID:         cfg.ConfigID,
		HandshakeTimeout: cfg.HandshakeTimeout,
		WriteTimeout:     cfg.WriteTimeout,
	}
	if cfg.SecretKey != "" {
		d.Tokens = NewTokenSource(cfg.APIKey, cfg.SecretKey, cfg.TokenURL)
	}
	return d
}

// Dial performs the handshake. A rejected upgrade becomes an *APIError
// carrying the HTTP status; anything else is a retryable *ConnectionError.
func (d *WebSocketDialer) Dial(ctx context.Context) (Conn, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, NewConnectionError("parse service url", err, false)
	}

	if d.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.HandshakeTimeout)
		defer cancel()
	}

	header := http.Header{}
	q := u.Query()
	if d.Tokens != nil {
		token, err := d.Tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		q.Set("access_token", token)
	} else {
		q.Set("api_key", d.APIKey)
		header.Set("X-Hume-Api-Key", d.APIKey)
	}
	if d.ConfigID != "" {
		q.Set("config_id", d.ConfigID)
	}
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	ws, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			apiErr := NewAPIError(resp.StatusCode, "", http.StatusText(resp.StatusCode))
			apiErr.Details = string(body)
			return nil, apiErr
		}
		return nil, NewConnectionError("handshake", err, true)
	}

	return &wsConn{ws: ws, writeTimeout: d.WriteTimeout}, nil
}

type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	closeOnce    sync.Once
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			return nil, fmt.Errorf("%w: %v", ErrClosedNormally, err)
		}
		return nil, NewConnectionError("read", err, true)
	}
	return data, nil
}

func (c *wsConn) WriteMessage(data []byte) error {
	if c.writeTimeout > 0 {
		c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return NewConnectionError("write", err, true)
	}
	return nil
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}
