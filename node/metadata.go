package node

import (
	"github.com/kysee/zk-mixer/submitter"
)

const (
	systemIndex   uint8 = 0
	balancesIndex uint8 = 5
	mixerIndex    uint8 = 40
)

const (
	SectionBalances = "Balances"
	SectionMixer    = "Mixer"
)

// Metadata describes the modules of the development chain.
var Metadata = &submitter.Metadata{
	Modules: []submitter.ModuleMetadata{
		{
			Index: systemIndex,
			Name:  "System",
		},
		{
			Index: balancesIndex,
			Name:  SectionBalances,
			Errors: []submitter.ErrorMetadata{
				{Name: "InsufficientBalance", Docs: []string{"Balance too low to send value"}},
				{Name: "ExistentialDeposit", Docs: []string{"Value too low to create account"}},
			},
		},
		{
			Index: mixerIndex,
			Name:  SectionMixer,
			Errors: []submitter.ErrorMetadata{
				{Name: "UnknownTree", Docs: []string{"No mixer tree with this id"}},
				{Name: "TreeFull", Docs: []string{"The mixer tree has no room for another leaf"}},
				{Name: "UnknownRoot", Docs: []string{"Root is not in the recent root history"}},
				{Name: "AlreadyRevealedNullifier", Docs: []string{"Nullifier has already been spent"}},
				{Name: "InvalidWithdrawProof", Docs: []string{"Withdraw proof failed to verify"}},
				{Name: "InvalidFee", Docs: []string{"Fee exceeds the deposit size"}},
			},
		},
	},
}

func moduleError(section, name string) *submitter.DispatchError {
	me, ok := Metadata.ModuleError(section, name)
	if !ok {
		panic("no module error " + section + "." + name)
	}
	return &submitter.DispatchError{Type: "Module", Module: &me}
}

var (
	errInsufficientBalance      = moduleError(SectionBalances, "InsufficientBalance")
	errUnknownTree              = moduleError(SectionMixer, "UnknownTree")
	errTreeFull                 = moduleError(SectionMixer, "TreeFull")
	errUnknownRoot              = moduleError(SectionMixer, "UnknownRoot")
	errAlreadyRevealedNullifier = moduleError(SectionMixer, "AlreadyRevealedNullifier")
	errInvalidWithdrawProof     = moduleError(SectionMixer, "InvalidWithdrawProof")
	errInvalidFee               = moduleError(SectionMixer, "InvalidFee")

	errFrozen       = &submitter.DispatchError{Type: "Token", Token: "Frozen"}
	errCannotLookup = &submitter.DispatchError{Type: "CannotLookup"}
	errBadParams    = &submitter.DispatchError{Type: "Other"}
)
