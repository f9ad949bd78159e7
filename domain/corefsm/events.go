package corefsm

import (
	"liquidctl/core/events"
	"liquidctl/core/types"
)

// BondEvent fires once a deposit has been matched to a provider, priced at
// the frozen exchange rate, and its receipt tokens minted.
type BondEvent struct {
	Bonder        string
	Denom         string
	Amount        string
	ReceiptTokens string
}

func (e BondEvent) EventType() string { return "core.bond" }

func (e BondEvent) Event() types.Event {
	return types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"bonder":         e.Bonder,
			"denom":          e.Denom,
			"amount":         e.Amount,
			"receipt_tokens": e.ReceiptTokens,
		},
	}
}

// UnbondEvent fires once a user's receipt tokens have been burned and a
// withdrawal voucher minted against the currently open batch.
type UnbondEvent struct {
	Owner     string
	Amount    string
	VoucherID string
	BatchID   string
}

func (e UnbondEvent) EventType() string { return "core.unbond" }

func (e UnbondEvent) Event() types.Event {
	return types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"owner":      e.Owner,
			"amount":     e.Amount,
			"voucher_id": e.VoucherID,
			"batch_id":   e.BatchID,
		},
	}
}

// TickTransitionEvent fires whenever Tick moves Core out of or back into
// Idle, mirroring puppeteer.TxSubmittedEvent/TxResolvedEvent's shape.
type TickTransitionEvent struct {
	From FsmState
	To   FsmState
}

func (e TickTransitionEvent) EventType() string { return "core.tick_transition" }

func (e TickTransitionEvent) Event() types.Event {
	return types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"from": e.From.String(),
			"to":   e.To.String(),
		},
	}
}

var (
	_ events.Event = BondEvent{}
	_ events.Event = UnbondEvent{}
	_ events.Event = TickTransitionEvent{}
)
