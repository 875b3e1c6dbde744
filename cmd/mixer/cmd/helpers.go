package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/consensys/gnark-crypto/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/kysee/zk-mixer/crypto"
	"github.com/kysee/zk-mixer/submitter"
	"github.com/kysee/zk-mixer/types"
	"github.com/spf13/cobra"
)

type noteFlags struct {
	note       string
	file       string
	passphrase string
}

func (f *noteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.note, "note", "", "Serialized note")
	cmd.Flags().StringVar(&f.file, "note-file", "", "File holding a sealed note")
	cmd.Flags().StringVar(&f.passphrase, "passphrase", os.Getenv("MIXER_NOTE_PASSPHRASE"), "Passphrase of the sealed note")
}

func (f *noteFlags) load() (*types.Note, error) {
	raw := f.note
	if f.file != "" {
		sealed, err := os.ReadFile(f.file)
		if err != nil {
			return nil, err
		}
		if raw, err = crypto.OpenNote([]byte(f.passphrase), sealed); err != nil {
			return nil, err
		}
	}
	if raw == "" {
		return nil, fmt.Errorf("one of --note and --note-file is required")
	}
	return types.ParseNote(strings.TrimSpace(raw))
}

func readKey(path string) (signature.Signer, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := hexutil.Decode(strings.TrimSpace(string(bz)))
	if err != nil {
		return nil, fmt.Errorf("key file %s: %w", path, err)
	}
	return crypto.KeyFromBytes(raw)
}

// dialChain connects to the node at cfg.RPCURL. The caller closes the client.
func dialChain(ctx context.Context) (*rpc.Client, *submitter.RPCChain, error) {
	client, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}
	chain, err := submitter.NewRPCChain(ctx, client)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return client, chain, nil
}

func decodeAddress(addr string) ([]byte, error) {
	accountID, _, err := types.DecodeSS58(addr)
	if err != nil {
		return nil, fmt.Errorf("address %q: %w", addr, err)
	}
	return accountID, nil
}
