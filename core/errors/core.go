package errors

import stderrors "errors"

// Core entry-point errors, per spec.md section 7.
var (
	ErrInvalidDenom       = stderrors.New("core: invalid denom")
	ErrPaymentNoFunds     = stderrors.New("core: payment error: no funds")
	ErrPaymentMultiDenom  = stderrors.New("core: payment error: multiple denoms")
	ErrPaymentMissingDenom = stderrors.New("core: payment error: missing denom")
	ErrPaused             = stderrors.New("core: paused")
	ErrBondLimitExceeded  = stderrors.New("core: bond limit exceeded")
	ErrBatchNotReady      = stderrors.New("core: batch not ready")
	ErrUnauthorized       = stderrors.New("core: unauthorized")
	ErrTickTooSoon        = stderrors.New("core: idle_min_interval not elapsed")
)
