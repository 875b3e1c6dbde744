package relayer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kysee/zk-mixer/types"
	"github.com/rs/zerolog"
)

type State uint8

const (
	StateConnecting State = iota
	StateConnected
	StateFinalized
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFinalized:
		return "finalized"
	case StateErrored:
		return "errored"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

func (s State) Terminal() bool {
	return s == StateFinalized || s == StateErrored
}

// RelayError is the terminal failure of a relayed withdrawal.
type RelayError struct {
	Code   int
	Reason string
}

func (e *RelayError) Error() string {
	return e.Reason
}

// Session follows one relayed withdrawal over its own connection. It resolves
// exactly once, to Finalized or Errored, and closes the connection when it
// does.
type Session struct {
	conn *websocket.Conn

	mtx         sync.Mutex
	state       State
	network     string
	txHash      string
	err         *RelayError
	provisional *RelayError

	// errorGrace is how long an error message may stay unanswered on an open
	// connection before it becomes final. Zero waits for the connection to end.
	errorGrace time.Duration
	graceTimer *time.Timer

	done chan struct{}
	log  zerolog.Logger
}

func newSession(conn *websocket.Conn, errorGrace time.Duration, log zerolog.Logger) *Session {
	return &Session{
		conn:       conn,
		state:      StateConnecting,
		errorGrace: errorGrace,
		done:       make(chan struct{}),
		log:        log,
	}
}

func (s *Session) State() State {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state
}

// Outcome returns the lifecycle outcome so far.
func (s *Session) Outcome() types.TxOutcome {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	switch s.state {
	case StateFinalized:
		return types.Succeeded(s.txHash)
	case StateErrored:
		return types.Failed(s.err.Reason)
	}
	return types.Pending()
}

// Provisional returns the error reported by the relayer that has not been
// superseded by a withdraw message, or nil.
func (s *Session) Provisional() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.provisional == nil {
		return nil
	}
	return s.provisional
}

// Done is closed once the session is terminal.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session is terminal and returns the finalized
// transaction hash or a *RelayError.
func (s *Session) Wait(ctx context.Context) (string, error) {
	select {
	case <-s.done:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.txHash, nil
}

// Close abandons the session. A session still pending resolves as errored.
func (s *Session) Close() error {
	if s.conn == nil {
		s.closed(nil)
		return nil
	}
	return s.conn.Close()
}

func (s *Session) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.closed(err)
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn().Err(err).Bytes("data", data).Msg("skip relayer message")
			continue
		}
		if s.handle(&msg) {
			return
		}
	}
}

// handle applies msg and reports whether the session is terminal.
func (s *Session) handle(msg *Message) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.state.Terminal() {
		return true
	}

	switch msg.Kind {
	case KindNetwork:
		s.network = msg.Network
		if msg.Network == "connected" {
			s.state = StateConnected
		} else {
			s.state = StateConnecting
		}
		s.log.Debug().Str("network", msg.Network).Msg("relayer network")
	case KindError:
		// final once the connection ends or the grace period passes
		// without a withdraw message
		p := &RelayError{Reason: msg.Error}
		s.provisional = p
		s.stopGrace()
		if s.errorGrace > 0 {
			s.graceTimer = time.AfterFunc(s.errorGrace, func() { s.expire(p) })
		}
		s.log.Debug().Str("error", msg.Error).Msg("relayer error")
	case KindWithdraw:
		s.provisional = nil
		s.stopGrace()
		w := msg.Withdraw
		s.log.Debug().Stringer("withdraw", w.Kind).Str("tx", w.TxHash).Msg("relayer withdraw")
		switch w.Kind {
		case WithdrawFinalized:
			s.txHash = w.TxHash
			s.finish(StateFinalized)
		case WithdrawErrored:
			s.err = &RelayError{Code: w.Code, Reason: w.Reason}
			s.finish(StateErrored)
		case WithdrawDropped:
			s.err = &RelayError{Reason: "transaction dropped from mempool"}
			s.finish(StateErrored)
		case WithdrawSubmitted:
			s.txHash = w.TxHash
		}
	}
	return s.state.Terminal()
}

// expire settles the session on p if p is still the unanswered error.
func (s *Session) expire(p *RelayError) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.state.Terminal() || s.provisional != p {
		return
	}
	s.err = p
	s.finish(StateErrored)
}

// stopGrace must be called with mtx held.
func (s *Session) stopGrace() {
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
}

// closed resolves a session whose connection ended before it was terminal.
func (s *Session) closed(cause error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.state.Terminal() {
		return
	}
	switch {
	case s.provisional != nil:
		s.err = s.provisional
	case cause != nil:
		s.err = &RelayError{Reason: "connection closed: " + cause.Error()}
	default:
		s.err = &RelayError{Reason: "connection closed"}
	}
	s.finish(StateErrored)
}

// finish must be called with mtx held.
func (s *Session) finish(state State) {
	s.state = state
	s.stopGrace()
	close(s.done)
	if state == StateFinalized {
		s.log.Info().Str("tx", s.txHash).Msg("relayed withdrawal finalized")
	} else {
		s.log.Info().Str("reason", s.err.Reason).Msg("relayed withdrawal errored")
	}
	if s.conn != nil {
		s.conn.Close()
	}
}
