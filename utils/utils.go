package utils

import (
	"hash"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	_ "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	gnark_hash "github.com/consensys/gnark-crypto/hash"
)

// FieldSize is the byte length of a canonical BN254 scalar field element.
const FieldSize = fr.Bytes

func MiMCHasher() hash.Hash {
	return gnark_hash.MIMC_BN254.New()
}

// MiMCHash hashes each input as a sequence of 32 byte blocks. Blocks that are
// not canonical field elements are reduced first, so that the native hash
// matches the one computed in-circuit over the same variables.
func MiMCHash(ins ...[]byte) []byte {
	hasher := MiMCHasher()

	blockSize := hasher.Size()

	hasher.Reset()
	for _, in := range ins {

		for i := 0; i < len(in); i += blockSize {
			end := i + blockSize
			if end > len(in) {
				end = len(in)
			}
			chunk := in[i:end]

			if len(chunk) == blockSize {
				chunk = ToField(chunk)
			}
			if _, err := hasher.Write(chunk); err != nil {
				panic(err)
			}
		}
	}
	return hasher.Sum(nil)
}

// ToField reduces bz modulo the scalar field and returns the canonical
// big-endian encoding.
func ToField(bz []byte) []byte {
	var elem fr.Element
	elem.SetBytes(bz)
	ret := elem.Bytes()
	return ret[:]
}

// RandField returns the encoding of a uniformly random field element.
func RandField() ([]byte, error) {
	var elem fr.Element
	if _, err := elem.SetRandom(); err != nil {
		return nil, err
	}
	ret := elem.Bytes()
	return ret[:], nil
}
