package errors

import stderrors "errors"

// Withdrawal batch/voucher errors, per spec.md section 4.4.
var (
	ErrVoucherNotFound         = stderrors.New("withdrawal: voucher not found")
	ErrBatchNotFound           = stderrors.New("withdrawal: batch not found")
	ErrPayoutExceeds           = stderrors.New("withdrawal: payout would exceed voucher amount")
	ErrInsufficientFunds       = stderrors.New("withdrawal: manager balance insufficient for payout")
	ErrNotVoucherOwner         = stderrors.New("withdrawal: caller does not own this voucher")
	ErrInvalidStatusTransition = stderrors.New("withdrawal: invalid batch status transition")
)
