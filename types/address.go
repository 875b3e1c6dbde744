package types

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

// SubstratePrefix is the generic substrate SS58 network prefix.
const SubstratePrefix = 42

const AccountIDSize = 32

var ss58Pre = []byte("SS58PRE")

var (
	ErrInvalidAddress  = errors.New("invalid ss58 address")
	ErrInvalidChecksum = errors.New("invalid ss58 checksum")
)

// EncodeSS58 encodes a 32 byte account id with a simple (single byte) network
// prefix.
func EncodeSS58(accountID []byte, prefix uint8) (string, error) {
	if len(accountID) != AccountIDSize {
		return "", fmt.Errorf("%w: account id must be %d bytes, got %d", ErrInvalidAddress, AccountIDSize, len(accountID))
	}
	if prefix > 63 {
		return "", fmt.Errorf("%w: unsupported prefix %d", ErrInvalidAddress, prefix)
	}
	payload := append([]byte{prefix}, accountID...)
	sum := ss58Checksum(payload)
	return base58.Encode(append(payload, sum[:2]...)), nil
}

// DecodeSS58 returns the account id and the network prefix of addr.
func DecodeSS58(addr string) ([]byte, uint8, error) {
	raw := base58.Decode(addr)
	if len(raw) != 1+AccountIDSize+2 {
		return nil, 0, fmt.Errorf("%w: wrong length %d", ErrInvalidAddress, len(raw))
	}
	payload, checksum := raw[:1+AccountIDSize], raw[1+AccountIDSize:]
	if payload[0] > 63 {
		return nil, 0, fmt.Errorf("%w: unsupported prefix %d", ErrInvalidAddress, payload[0])
	}
	sum := ss58Checksum(payload)
	if !bytes.Equal(sum[:2], checksum) {
		return nil, 0, ErrInvalidChecksum
	}
	return payload[1:], payload[0], nil
}

func ss58Checksum(payload []byte) [blake2b.Size]byte {
	return blake2b.Sum512(append(append([]byte{}, ss58Pre...), payload...))
}
