package prover

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/kysee/zk-mixer/types"
	"github.com/rs/zerolog"
)

var (
	ErrWorkerTerminated = errors.New("proving worker terminated")
	ErrProofFailed      = errors.New("proof generation failed")
)

// Result settles one submitted ProofRequest.
type Result struct {
	Proof *types.ProofResult
	Err   error
}

// Coordinator owns one proving worker and matches its responses to the
// requests that caused them.
//
// Destroy terminates the worker from any state. Requests still outstanding at
// that point are abandoned: their result channels are never written to or
// closed.
type Coordinator struct {
	inbox  chan []byte
	outbox chan []byte

	mtx        sync.Mutex
	nextID     uint64
	pending    map[uint64]chan Result
	terminated bool

	destroyOnce sync.Once
	quit        chan struct{}
	done        chan struct{}

	concurrency int
	log         zerolog.Logger
}

type Option func(*Coordinator)

func WithLogger(log zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.log = log
	}
}

// WithConcurrency sets how many proofs the worker computes at the same time.
func WithConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func NewCoordinator(backend Backend, opts ...Option) *Coordinator {
	c := &Coordinator{
		inbox:       make(chan []byte),
		outbox:      make(chan []byte),
		pending:     make(map[uint64]chan Result),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		concurrency: 1,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	w := newWorker(backend, c.inbox, c.outbox, c.concurrency, c.log.With().Str("module", "prover").Logger())
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		c.dispatch()
	}()
	go func() {
		w.run()
		w.jobs.Wait()
		<-dispatched
		close(c.done)
	}()
	return c
}

// Submit hands req to the worker. The returned channel receives exactly one
// Result, unless the coordinator is destroyed first.
func (c *Coordinator) Submit(req *types.ProofRequest) (<-chan Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c.mtx.Lock()
	if c.terminated {
		c.mtx.Unlock()
		return nil, ErrWorkerTerminated
	}
	c.nextID++
	id := c.nextID
	ch := make(chan Result, 1)
	c.pending[id] = ch
	c.mtx.Unlock()

	frame, err := encodeProofRequest(id, req)
	if err != nil {
		c.forget(id)
		return nil, err
	}

	select {
	case c.inbox <- frame:
	case <-c.quit:
		c.forget(id)
		return nil, ErrWorkerTerminated
	}
	c.log.Debug().Uint64("id", id).Uint64("leafIndex", req.LeafIndex).Int("leaves", len(req.Leaves)).Msg("proof submitted")
	return ch, nil
}

// Prove submits req and waits for its result. A ctx that ends first only stops
// the wait; the job itself keeps running.
func (c *Coordinator) Prove(ctx context.Context, req *types.ProofRequest) (*types.ProofResult, error) {
	ch, err := c.Submit(req)
	if err != nil {
		return nil, err
	}
	select {
	case r := <-ch:
		return r.Proof, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Destroy terminates the worker. It does not wait for running jobs; use Done
// for that.
func (c *Coordinator) Destroy() {
	c.destroyOnce.Do(func() {
		c.mtx.Lock()
		c.terminated = true
		n := len(c.pending)
		c.pending = make(map[uint64]chan Result)
		c.mtx.Unlock()

		frame, err := encodeDestroy()
		if err != nil {
			panic(err)
		}
		c.inbox <- frame
		close(c.quit)
		c.log.Debug().Int("abandoned", n).Msg("coordinator destroyed")
	})
}

// Done is closed once the worker has exited and every job it started has
// returned.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Pending returns the number of submitted requests not yet settled.
func (c *Coordinator) Pending() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return len(c.pending)
}

func (c *Coordinator) forget(id uint64) {
	c.mtx.Lock()
	delete(c.pending, id)
	c.mtx.Unlock()
}

func (c *Coordinator) dispatch() {
	for {
		select {
		case frame := <-c.outbox:
			c.deliver(frame)
		case <-c.quit:
			return
		}
	}
}

func (c *Coordinator) deliver(frame []byte) {
	resp, err := decodeResponse(frame)
	if err != nil {
		c.log.Error().Err(err).Msg("bad response frame")
		return
	}
	if resp.Kind != KindProof {
		c.log.Warn().Stringer("kind", resp.Kind).Msg("unexpected response frame")
		return
	}

	c.mtx.Lock()
	if c.terminated {
		c.mtx.Unlock()
		return
	}
	ch, ok := c.pending[resp.ID]
	delete(c.pending, resp.ID)
	c.mtx.Unlock()
	if !ok {
		c.log.Warn().Uint64("id", resp.ID).Msg("response without pending request")
		return
	}

	var r Result
	if resp.Err != "" {
		r.Err = fmt.Errorf("%w: %s", ErrProofFailed, resp.Err)
	} else {
		r.Proof = new(types.ProofResult)
		if err := rlp.DecodeBytes(resp.Payload, r.Proof); err != nil {
			r.Proof, r.Err = nil, fmt.Errorf("decode proof result: %w", err)
		}
	}
	c.log.Debug().Uint64("id", resp.ID).Err(r.Err).Msg("proof settled")
	ch <- r
}
