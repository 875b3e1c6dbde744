package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMiMCHashDeterministic(t *testing.T) {
	a, err := RandField()
	require.NoError(t, err)
	b, err := RandField()
	require.NoError(t, err)

	h0 := MiMCHash(a, b)
	h1 := MiMCHash(a, b)
	require.Equal(t, h0, h1)
	require.Len(t, h0, FieldSize)
	require.NotEqual(t, h0, MiMCHash(b, a))
}

func TestToFieldReduces(t *testing.T) {
	over := bytes.Repeat([]byte{0xff}, FieldSize)
	reduced := ToField(over)
	require.Len(t, reduced, FieldSize)
	require.NotEqual(t, over, reduced)

	// canonical inputs are left untouched
	require.Equal(t, reduced, ToField(reduced))

	// hashing the raw and the reduced block gives the same digest
	require.Equal(t, MiMCHash(over), MiMCHash(reduced))
}

func TestMiMCHasherRegistered(t *testing.T) {
	require.NotPanics(t, func() {
		h := MiMCHasher()
		require.Equal(t, FieldSize, h.Size())
	})
	require.NotPanics(t, func() { MiMCHash([]byte{0x1}) })
}
