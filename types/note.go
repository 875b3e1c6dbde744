package types

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kysee/zk-mixer/utils"
)

const NoteScheme = "webb"

var (
	ErrInvalidNoteLength    = errors.New("invalid note length")
	ErrInvalidNoteScheme    = errors.New("invalid note scheme")
	ErrInvalidNoteVersion   = errors.New("invalid note version")
	ErrInvalidNoteProtocol  = errors.New("invalid note protocol")
	ErrInvalidNoteMiscData  = errors.New("invalid note misc data")
	ErrInvalidNoteSecrets   = errors.New("invalid note secrets")
	ErrUnsupportedProtocol  = errors.New("protocol isn't supported yet")
	ErrInvalidNoteChainData = errors.New("invalid note chain data")
)

var (
	noteVersions  = []string{"v1", "v2"}
	noteProtocols = []string{"mixer", "anchor", "vanchor"}
	curves        = []string{"Bn254", "Bls381"}
	hashFunctions = []string{"Poseidon", "MiMCSponge", "MiMC"}
	backends      = []string{"Arkworks", "Circom", "Gnark"}
)

// Note is the secret a depositor keeps to later withdraw. It serializes to a
// URI of the form
//
//	webb://<version>:<protocol>/<src chain>:<dst chain>/<src id>:<dst id>/<secrets>/?<misc>
type Note struct {
	Version  string
	Protocol string

	SourceChainID string
	TargetChainID string

	// SourceIdentifyingData and TargetIdentifyingData hold the tree ids.
	SourceIdentifyingData string
	TargetIdentifyingData string

	Secrets []string

	Curve          string
	Width          string
	Exponentiation string
	HashFunction   string
	Backend        string
	TokenSymbol    string
	Denomination   string
	Amount         string
}

// GenerateMixerNote creates a mixer note with a fresh secret and nullifier.
func GenerateMixerNote(chainID string, treeID uint32, token, amount string) (*Note, error) {
	secret, err := utils.RandField()
	if err != nil {
		return nil, err
	}
	nullifier, err := utils.RandField()
	if err != nil {
		return nil, err
	}
	id := strconv.FormatUint(uint64(treeID), 10)
	return &Note{
		Version:               "v2",
		Protocol:              "mixer",
		SourceChainID:         chainID,
		TargetChainID:         chainID,
		SourceIdentifyingData: id,
		TargetIdentifyingData: id,
		Secrets:               []string{hex.EncodeToString(secret), hex.EncodeToString(nullifier)},
		Curve:                 "Bn254",
		Width:                 "3",
		Exponentiation:        "5",
		HashFunction:          "MiMC",
		Backend:               "Gnark",
		TokenSymbol:           token,
		Denomination:          "18",
		Amount:                amount,
	}, nil
}

// ParseNote decodes a serialized note.
func ParseNote(s string) (*Note, error) {
	schemeAndParts := strings.SplitN(s, "://", 2)
	if len(schemeAndParts) != 2 {
		return nil, ErrInvalidNoteLength
	}
	if schemeAndParts[0] != NoteScheme {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNoteScheme, schemeAndParts[0])
	}

	parts := strings.Split(schemeAndParts[1], "/")
	if len(parts) < 5 {
		return nil, ErrInvalidNoteLength
	}

	n := &Note{}

	authority := strings.Split(parts[0], ":")
	if len(authority) != 2 {
		return nil, fmt.Errorf("%w: authority %q", ErrInvalidNoteLength, parts[0])
	}
	if !oneOf(authority[0], noteVersions) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNoteVersion, authority[0])
	}
	if !oneOf(authority[1], noteProtocols) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNoteProtocol, authority[1])
	}
	n.Version, n.Protocol = authority[0], authority[1]

	chainIDs := strings.Split(parts[1], ":")
	if len(chainIDs) != 2 {
		return nil, fmt.Errorf("%w: chain ids %q", ErrInvalidNoteChainData, parts[1])
	}
	n.SourceChainID, n.TargetChainID = chainIDs[0], chainIDs[1]

	ids := strings.Split(parts[2], ":")
	if len(ids) != 2 {
		return nil, fmt.Errorf("%w: identifying data %q", ErrInvalidNoteChainData, parts[2])
	}
	n.SourceIdentifyingData, n.TargetIdentifyingData = ids[0], ids[1]

	if parts[3] == "" {
		return nil, ErrInvalidNoteSecrets
	}
	n.Secrets = strings.Split(parts[3], ":")

	misc := strings.TrimPrefix(parts[4], "?")
	if misc == "" {
		return n, nil
	}
	for _, kv := range strings.Split(misc, "&") {
		pair := strings.Split(kv, "=")
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidNoteMiscData, kv)
		}
		if err := n.setMisc(pair[0], pair[1]); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (n *Note) setMisc(key, value string) error {
	switch key {
	case "curve":
		if !oneOf(value, curves) {
			return fmt.Errorf("%w: curve %q", ErrInvalidNoteMiscData, value)
		}
		n.Curve = value
	case "width":
		if _, err := strconv.ParseUint(value, 10, 32); err != nil {
			return fmt.Errorf("%w: width %q", ErrInvalidNoteMiscData, value)
		}
		n.Width = value
	case "exp":
		if _, err := strconv.ParseInt(value, 10, 8); err != nil {
			return fmt.Errorf("%w: exp %q", ErrInvalidNoteMiscData, value)
		}
		n.Exponentiation = value
	case "hf":
		if !oneOf(value, hashFunctions) {
			return fmt.Errorf("%w: hf %q", ErrInvalidNoteMiscData, value)
		}
		n.HashFunction = value
	case "backend":
		if !oneOf(value, backends) {
			return fmt.Errorf("%w: backend %q", ErrInvalidNoteMiscData, value)
		}
		n.Backend = value
	case "token":
		n.TokenSymbol = value
	case "denom":
		if _, err := strconv.ParseUint(value, 10, 8); err != nil {
			return fmt.Errorf("%w: denom %q", ErrInvalidNoteMiscData, value)
		}
		n.Denomination = value
	case "amount":
		n.Amount = value
	default:
		return fmt.Errorf("%w: unknown key %q", ErrInvalidNoteMiscData, key)
	}
	return nil
}

func (n *Note) String() string {
	authority := n.Version + ":" + n.Protocol
	chainIDs := n.SourceChainID + ":" + n.TargetChainID
	ids := n.SourceIdentifyingData + ":" + n.TargetIdentifyingData
	secrets := strings.Join(n.Secrets, ":")

	var misc []string
	for _, kv := range [][2]string{
		{"curve", n.Curve},
		{"width", n.Width},
		{"exp", n.Exponentiation},
		{"hf", n.HashFunction},
		{"backend", n.Backend},
		{"token", n.TokenSymbol},
		{"denom", n.Denomination},
		{"amount", n.Amount},
	} {
		if kv[1] != "" {
			misc = append(misc, kv[0]+"="+kv[1])
		}
	}

	return NoteScheme + "://" + strings.Join([]string{
		authority, chainIDs, ids, secrets, "?" + strings.Join(misc, "&"),
	}, "/")
}

// TreeID returns the target tree id of the note.
func (n *Note) TreeID() (uint32, error) {
	id, err := strconv.ParseUint(n.TargetIdentifyingData, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: tree id %q", ErrInvalidNoteChainData, n.TargetIdentifyingData)
	}
	return uint32(id), nil
}

// MixerSecrets returns the secret and the nullifier of a mixer note.
func (n *Note) MixerSecrets() (secret, nullifier []byte, err error) {
	if n.Protocol != "mixer" {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, n.Protocol)
	}
	raw, err := hex.DecodeString(strings.Join(n.Secrets, ""))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidNoteSecrets, err)
	}
	if len(raw) != 2*utils.FieldSize {
		return nil, nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidNoteSecrets, 2*utils.FieldSize, len(raw))
	}
	return raw[:utils.FieldSize], raw[utils.FieldSize:], nil
}

// Commitment returns the leaf this note was deposited as.
func (n *Note) Commitment() (Leaf, error) {
	secret, nullifier, err := n.MixerSecrets()
	if err != nil {
		return nil, err
	}
	return utils.MiMCHash(secret, nullifier), nil
}

func (n *Note) NullifierHash() ([]byte, error) {
	_, nullifier, err := n.MixerSecrets()
	if err != nil {
		return nil, err
	}
	return utils.MiMCHash(nullifier), nil
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
