package relayer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/holiman/uint256"
	"github.com/kysee/zk-mixer/types"
	"github.com/stretchr/testify/require"
)

// fakeRelayer records the command it receives and replies with script.
func fakeRelayer(t *testing.T, script []string, hangUp bool) (*httptest.Server, <-chan map[string]json.RawMessage) {
	received := make(chan map[string]json.RawMessage, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var cmd map[string]json.RawMessage
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		received <- cmd
		for _, raw := range script {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
				return
			}
		}
		if hangUp {
			return
		}
		// wait for the client to close
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, received
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

var testResult = &types.ProofResult{
	Proof:         []byte{0xde, 0xad},
	Root:          []byte{0x01},
	NullifierHash: []byte{0x02},
}

func mixerCommand(t *testing.T) *Command {
	alice := common.FromHex("d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d")
	cmd, err := NewMixerRelayCommand("webb", 0, testResult, alice, alice, uint256.NewInt(10), nil)
	require.NoError(t, err)
	return cmd
}

func TestRelayFinalized(t *testing.T) {
	srv, received := fakeRelayer(t, []string{
		`{"network":"connecting"}`,
		`{"network":"connected"}`,
		`{"withdraw":"sent"}`,
		`{"withdraw":{"submitted":{"txHash":"0xabc"}}}`,
		`{"withdraw":{"finalized":{"txHash":"0xabc"}}}`,
	}, false)

	s, err := NewClient(wsURL(srv)).Relay(context.Background(), mixerCommand(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	txHash, err := s.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "0xabc", txHash)
	require.Equal(t, StateFinalized, s.State())

	cmd := <-received
	require.Contains(t, cmd, "substrate")
	var sub struct {
		MixerRelayTx map[string]interface{} `json:"mixerRelayTx"`
	}
	require.NoError(t, json.Unmarshal(cmd["substrate"], &sub))
	tx := sub.MixerRelayTx
	require.Equal(t, "webb", tx["chain"])
	require.Equal(t, "0xdead", tx["proof"])
	require.Equal(t, "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", tx["recipient"])
	require.Equal(t, "10", tx["fee"])
	require.Equal(t, "0", tx["refund"])
}

func TestRelayErrored(t *testing.T) {
	srv, _ := fakeRelayer(t, []string{
		`{"network":"connected"}`,
		`{"withdraw":{"errored":{"code":2,"reason":"insufficient funds"}}}`,
	}, false)

	s, err := NewClient(wsURL(srv)).Relay(context.Background(), mixerCommand(t))
	require.NoError(t, err)
	_, err = s.Wait(context.Background())
	require.EqualError(t, err, "insufficient funds")
	require.Equal(t, types.Failed("insufficient funds"), s.Outcome())
}

func TestRelayErrorThenHangUp(t *testing.T) {
	srv, _ := fakeRelayer(t, []string{
		`{"network":"connected"}`,
		`{"not":"a relayer message"}`,
		`{"error":"unsupported chain"}`,
	}, true)

	s, err := NewClient(wsURL(srv)).Relay(context.Background(), mixerCommand(t))
	require.NoError(t, err)
	_, err = s.Wait(context.Background())
	var rerr *RelayError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, "unsupported chain", rerr.Reason)
}

func TestRelayErrorOnOpenConnection(t *testing.T) {
	srv, _ := fakeRelayer(t, []string{
		`{"network":"connected"}`,
		`{"error":"unsupported chain"}`,
	}, false)

	s, err := NewClient(wsURL(srv), WithErrorGrace(50*time.Millisecond)).Relay(context.Background(), mixerCommand(t))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = s.Wait(ctx)
	require.EqualError(t, err, "unsupported chain")
	require.Equal(t, types.Failed("unsupported chain"), s.Outcome())
}

func TestRelayEVMCommand(t *testing.T) {
	srv, received := fakeRelayer(t, []string{`{"withdraw":{"finalized":{"txHash":"0x1"}}}`}, false)

	recipient := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	cmd := NewTornadoRelayCommand("ganache", common.Address{0x1}, testResult, recipient, recipient, nil, uint256.NewInt(1))
	s, err := NewClient(wsURL(srv)).Relay(context.Background(), cmd)
	require.NoError(t, err)
	_, err = s.Wait(context.Background())
	require.NoError(t, err)

	raw := <-received
	var evm struct {
		TornadoRelayTx struct {
			Recipient string `json:"recipient"`
			Root      string `json:"root"`
			Refund    string `json:"refund"`
		} `json:"tornadoRelayTx"`
	}
	require.NoError(t, json.Unmarshal(raw["evm"], &evm))
	require.Equal(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", strings.ToLower(evm.TornadoRelayTx.Recipient))
	require.Equal(t, common.BytesToHash([]byte{0x01}).Hex(), evm.TornadoRelayTx.Root)
	require.Equal(t, "1", evm.TornadoRelayTx.Refund)
}

func TestRelayInvalidCommand(t *testing.T) {
	_, err := NewClient("ws://127.0.0.1:1").Relay(context.Background(), &Command{})
	require.ErrorIs(t, err, ErrInvalidCommand)

	_, err = NewClient("ws://127.0.0.1:1").Relay(context.Background(), mixerCommand(t))
	require.Error(t, err)
}
