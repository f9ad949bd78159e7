package errors

import stderrors "errors"

// Bond provider errors, per spec.md section 4.3.
var (
	ErrUnsupportedDenom    = stderrors.New("bondprovider: unsupported denom")
	ErrDenomTracePath      = stderrors.New("bondprovider: denom trace path mismatch")
	ErrUnknownValidator    = stderrors.New("bondprovider: validator not found in set")
	ErrNothingToProcess    = stderrors.New("bondprovider: nothing to process on idle")
	ErrBelowMinIBCTransfer = stderrors.New("bondprovider: below minimum ibc transfer amount")
)
