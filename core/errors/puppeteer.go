package errors

import stderrors "errors"

// Puppeteer tx-state and ICA errors, per spec.md section 7.
var (
	ErrInvalidTxState  = stderrors.New("puppeteer: invalid tx state")
	ErrICANotRegistered = stderrors.New("puppeteer: ica not registered")
	ErrICATimeout       = stderrors.New("puppeteer: ica timeout")
	ErrSudoOutOfBand    = stderrors.New("puppeteer: sudo callback received outside WaitingForAck")
	ErrSenderNotAllowed = stderrors.New("puppeteer: sender not in allowed_senders")
)
