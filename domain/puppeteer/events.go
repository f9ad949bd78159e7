package puppeteer

import (
	"liquidctl/core/events"
	"liquidctl/core/types"
)

// TxSubmittedEvent fires when a transaction moves Idle -> InProgress.
type TxSubmittedEvent struct {
	CorrelationID string
	Kind          TransactionKind
}

func (e TxSubmittedEvent) EventType() string { return "puppeteer.tx_submitted" }

func (e TxSubmittedEvent) Event() types.Event {
	return types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"correlation_id": e.CorrelationID,
			"kind":           string(e.Kind),
		},
	}
}

// TxResolvedEvent fires when a transaction leaves WaitingForAck, either
// by ack, error, or timeout.
type TxResolvedEvent struct {
	CorrelationID string
	Kind          TransactionKind
	Success       bool
	Timeout       bool
}

func (e TxResolvedEvent) EventType() string { return "puppeteer.tx_resolved" }

func (e TxResolvedEvent) Event() types.Event {
	outcome := "error"
	if e.Success {
		outcome = "success"
	} else if e.Timeout {
		outcome = "timeout"
	}
	return types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"correlation_id": e.CorrelationID,
			"kind":           string(e.Kind),
			"outcome":        outcome,
		},
	}
}

// ICAStateChangedEvent fires whenever the ICA lifecycle phase changes.
type ICAStateChangedEvent struct {
	Phase   ICAPhase
	Address string
}

func (e ICAStateChangedEvent) EventType() string { return "puppeteer.ica_state_changed" }

func (e ICAStateChangedEvent) Event() types.Event {
	return types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"phase":   e.Phase.String(),
			"address": e.Address,
		},
	}
}

var (
	_ events.Event = TxSubmittedEvent{}
	_ events.Event = TxResolvedEvent{}
	_ events.Event = ICAStateChangedEvent{}
)
