package crypto

import (
	crand "crypto/rand"
	"fmt"

	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/consensys/gnark-crypto/signature"
	"github.com/kysee/zk-mixer/utils"
	"golang.org/x/crypto/blake2b"
)

//
// GenerateKey

func NewKey() (signature.Signer, error) {
	return jubjub.GenerateKey(crand.Reader)
}

// KeyFromBytes restores a signer serialized with its Bytes method.
func KeyFromBytes(bz []byte) (signature.Signer, error) {
	key := new(jubjub.PrivateKey)
	if _, err := key.SetBytes(bz); err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

func NewPub() signature.PublicKey {
	return new(jubjub.PublicKey)
}

// AccountID is the on-chain identity of a signer: its compressed public key.
func AccountID(signer signature.Signer) []byte {
	return signer.Public().Bytes()
}

// Digest maps an arbitrary payload to a single canonical field element, which
// is what the MiMC based signature scheme signs.
func Digest(payload []byte) []byte {
	sum := blake2b.Sum256(payload)
	return utils.ToField(sum[:])
}

func Sign(signer signature.Signer, payload []byte) ([]byte, error) {
	return signer.Sign(Digest(payload), utils.MiMCHasher())
}

// Verify checks sig over payload against the account id (compressed public key).
func Verify(accountID, sig, payload []byte) (bool, error) {
	pub := NewPub()
	if _, err := pub.SetBytes(accountID); err != nil {
		return false, fmt.Errorf("invalid account id: %w", err)
	}
	return pub.Verify(sig, Digest(payload), utils.MiMCHasher())
}
