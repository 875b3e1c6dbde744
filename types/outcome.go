package types

import "fmt"

type OutcomeStatus uint8

const (
	OutcomePending OutcomeStatus = iota
	OutcomeSuccess
	OutcomeFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomePending:
		return "pending"
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("OutcomeStatus(%d)", uint8(s))
}

// TxOutcome is the lifecycle result of a submission. Only one of TxHash and
// Reason is set, depending on Status; a pending outcome carries neither.
type TxOutcome struct {
	Status OutcomeStatus
	TxHash string
	Reason string
}

func Pending() TxOutcome {
	return TxOutcome{Status: OutcomePending}
}

func Succeeded(txHash string) TxOutcome {
	return TxOutcome{Status: OutcomeSuccess, TxHash: txHash}
}

func Failed(reason string) TxOutcome {
	return TxOutcome{Status: OutcomeFailed, Reason: reason}
}

func (o TxOutcome) Terminal() bool {
	return o.Status != OutcomePending
}

func (o TxOutcome) String() string {
	switch o.Status {
	case OutcomeSuccess:
		return "success(" + o.TxHash + ")"
	case OutcomeFailed:
		return "failed(" + o.Reason + ")"
	}
	return o.Status.String()
}
