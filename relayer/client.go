// Package relayer hands withdrawal proofs to a relayer over a websocket and
// follows the relayed transaction until it is finalized or fails.
package relayer

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const handshakeTimeout = 45 * time.Second

// DefaultErrorGrace is how long a session waits for a withdraw message after
// the relayer reports an error on a connection it keeps open.
const DefaultErrorGrace = 10 * time.Second

type Client struct {
	url        string
	dialer     *websocket.Dialer
	errorGrace time.Duration
	log        zerolog.Logger
}

type Option func(*Client)

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithErrorGrace sets how long a reported error may go unanswered before the
// session fails. Zero keeps the session open until the relayer hangs up.
func WithErrorGrace(d time.Duration) Option {
	return func(c *Client) {
		c.errorGrace = d
	}
}

func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
		errorGrace: DefaultErrorGrace,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Relay opens a connection, sends cmd and returns the session following it.
func (c *Client) Relay(ctx context.Context, cmd *Command) (*Session, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relayer %s: %w", c.url, err)
	}
	if err := conn.WriteJSON(cmd); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send relay command: %w", err)
	}

	s := newSession(conn, c.errorGrace, c.log.With().Str("relayer", c.url).Logger())
	go s.readLoop()
	return s, nil
}
