package prover

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/kysee/zk-mixer/types"
	"github.com/rs/zerolog"
)

// worker is the isolated proving context. It only sees encoded frames: it
// reads requests from inbox and writes responses to outbox.
type worker struct {
	backend Backend
	inbox   <-chan []byte
	outbox  chan<- []byte

	quit chan struct{}
	sem  chan struct{}
	jobs sync.WaitGroup
	log  zerolog.Logger
}

func newWorker(backend Backend, inbox <-chan []byte, outbox chan<- []byte, concurrency int, log zerolog.Logger) *worker {
	return &worker{
		backend: backend,
		inbox:   inbox,
		outbox:  outbox,
		quit:    make(chan struct{}),
		sem:     make(chan struct{}, concurrency),
		log:     log,
	}
}

// run serves frames until a destroy frame arrives. Jobs still running at that
// point are abandoned: their results are never posted.
func (w *worker) run() {
	for frame := range w.inbox {
		req, err := decodeRequest(frame)
		if err != nil {
			w.log.Error().Err(err).Msg("bad worker frame")
			continue
		}
		switch req.Kind {
		case KindDestroy:
			w.log.Debug().Msg("worker destroyed")
			close(w.quit)
			return
		case KindProof:
			w.jobs.Add(1)
			go w.prove(req)
		default:
			w.log.Warn().Stringer("kind", req.Kind).Msg("unknown worker frame")
		}
	}
}

func (w *worker) prove(req *request) {
	defer w.jobs.Done()

	select {
	case w.sem <- struct{}{}:
	case <-w.quit:
		return
	}
	defer func() { <-w.sem }()

	res, perr := w.compute(req.Payload)
	if perr != nil {
		w.log.Debug().Uint64("id", req.ID).Err(perr).Msg("proof failed")
	}
	frame, err := encodeProofResponse(req.ID, res, perr)
	if err != nil {
		w.log.Error().Uint64("id", req.ID).Err(err).Msg("encode proof response")
		return
	}

	select {
	case w.outbox <- frame:
	case <-w.quit:
	}
}

func (w *worker) compute(payload []byte) (*types.ProofResult, error) {
	req := new(types.ProofRequest)
	if err := rlp.DecodeBytes(payload, req); err != nil {
		return nil, fmt.Errorf("decode proof request: %w", err)
	}
	in, err := NewProofInput(req)
	if err != nil {
		return nil, err
	}
	return w.backend.Prove(in)
}
