package errors

import stderrors "errors"

// ValidatorSet/Strategy errors, per spec.md section 4.5.
var (
	ErrValidatorNotFound  = stderrors.New("validatorset: validator not found")
	ErrNoActiveValidators = stderrors.New("validatorset: no validator has positive weight")
	ErrZeroDelta          = stderrors.New("strategy: target delta must be non-zero")
)
