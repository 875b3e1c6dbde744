package types

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	aliceHex  = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceSS58 = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
)

func TestSS58Codec(t *testing.T) {
	alice, err := hex.DecodeString(aliceHex)
	require.NoError(t, err)

	addr, err := EncodeSS58(alice, SubstratePrefix)
	require.NoError(t, err)
	require.Equal(t, aliceSS58, addr)

	id, prefix, err := DecodeSS58(addr)
	require.NoError(t, err)
	require.Equal(t, uint8(SubstratePrefix), prefix)
	require.Equal(t, alice, id)
}

func TestSS58Errors(t *testing.T) {
	_, err := EncodeSS58([]byte{1, 2, 3}, SubstratePrefix)
	require.ErrorIs(t, err, ErrInvalidAddress)

	_, _, err = DecodeSS58("not-an-address")
	require.ErrorIs(t, err, ErrInvalidAddress)

	// flip the last character so the checksum no longer matches
	broken := aliceSS58[:len(aliceSS58)-1] + "Z"
	_, _, err = DecodeSS58(broken)
	require.Error(t, err)
}
