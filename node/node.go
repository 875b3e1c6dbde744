// Package node is an in-process development chain hosting mixer trees. It
// serves the leaf RPC, applies signed deposit and withdraw extrinsics and
// reports their lifecycle the way a substrate node does.
package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/consensys/gnark/backend/plonk"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gorilla/websocket"
	"github.com/holiman/uint256"
	"github.com/kysee/zk-mixer/prover"
	"github.com/kysee/zk-mixer/types"
	"github.com/rs/zerolog"
)

type TreeConfig struct {
	ID          uint32
	DepositSize *uint256.Int
}

type Endowment struct {
	AccountID []byte
	Balance   *uint256.Int
}

type Config struct {
	// Depth of every mixer tree. It must match the circuit VerifyingKey was
	// set up for.
	Depth        int
	VerifyingKey plonk.VerifyingKey
	Trees        []TreeConfig
	Endowments   []Endowment

	// ListenAddr, when set, serves JSON-RPC over http and websocket.
	ListenAddr string
	Log        zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		Depth: prover.DefaultTreeDepth,
		Trees: []TreeConfig{{ID: 0, DepositSize: uint256.NewInt(1_000_000_000_000)}},
		Log:   zerolog.Nop(),
	}
}

type Node struct {
	mtx      sync.Mutex
	ledger   *Ledger
	balances map[string]*uint256.Int
	nonces   map[string]uint64
	frozen   map[string]struct{}
	blockNum uint64
	vk       plonk.VerifyingKey

	server   *rpc.Server
	listener net.Listener
	http     *http.Server
	log      zerolog.Logger
}

// Start creates the chain described by cfg and, if cfg.ListenAddr is set,
// starts serving it.
func Start(cfg Config) (*Node, error) {
	if cfg.Depth <= 0 || cfg.Depth > prover.MaxTreeDepth {
		return nil, fmt.Errorf("%w: %d", prover.ErrTreeDepth, cfg.Depth)
	}
	n := &Node{
		ledger:   NewLedger(cfg.Depth),
		balances: make(map[string]*uint256.Int),
		nonces:   make(map[string]uint64),
		frozen:   make(map[string]struct{}),
		vk:       cfg.VerifyingKey,
		server:   rpc.NewServer(),
		log:      cfg.Log.With().Str("module", "node").Logger(),
	}
	for _, t := range cfg.Trees {
		if err := n.ledger.CreateTree(t.ID, t.DepositSize); err != nil {
			return nil, err
		}
	}
	for _, e := range cfg.Endowments {
		n.credit(e.AccountID, e.Balance)
	}
	for _, api := range n.apis() {
		if err := n.server.RegisterName(api.Namespace, api.Service); err != nil {
			return nil, err
		}
	}

	if cfg.ListenAddr != "" {
		l, err := net.Listen("tcp", cfg.ListenAddr)
		if err != nil {
			n.server.Stop()
			return nil, err
		}
		n.listener = l
		n.http = &http.Server{
			Handler:           n.handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := n.http.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				n.log.Error().Err(err).Msg("rpc server")
			}
		}()
		n.log.Info().Str("addr", l.Addr().String()).Msg("rpc server started")
	}
	return n, nil
}

// Stop shuts the node down. In-process clients are disconnected.
func Stop(n *Node) {
	if n.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.http.Shutdown(ctx); err != nil {
			n.log.Warn().Err(err).Msg("rpc server shutdown")
		}
	}
	n.server.Stop()
	n.log.Info().Msg("node stopped")
}

// Client returns an in-process RPC client of the node.
func (n *Node) Client() *rpc.Client {
	return rpc.DialInProc(n.server)
}

// Endpoint returns the websocket url of the node, or "" when it is not
// listening.
func (n *Node) Endpoint() string {
	if n.listener == nil {
		return ""
	}
	return "ws://" + n.listener.Addr().String()
}

func (n *Node) handler() http.Handler {
	ws := n.server.WebsocketHandler([]string{"*"})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			ws.ServeHTTP(w, r)
			return
		}
		n.server.ServeHTTP(w, r)
	})
}

func (n *Node) Leaves(treeID uint32, from, to uint64) ([]types.Leaf, error) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	t, err := n.ledger.tree(treeID)
	if err != nil {
		return nil, err
	}
	return t.leavesIn(from, to), nil
}

func (n *Node) Root(treeID uint32) (hexutil.Bytes, error) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	t, err := n.ledger.tree(treeID)
	if err != nil {
		return nil, err
	}
	return t.root(), nil
}

func (n *Node) Balance(accountID []byte) *uint256.Int {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	return n.balance(accountID).Clone()
}

// Freeze makes every later transfer or deposit from accountID fail with a
// Token.Frozen dispatch error.
func (n *Node) Freeze(accountID []byte) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.frozen[string(accountID)] = struct{}{}
}
