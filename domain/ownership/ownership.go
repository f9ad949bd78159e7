// Package ownership implements the two-step owner transfer shared by every
// admin-gated domain component (Core, Puppeteer, ValidatorSet, Strategy).
// A pending transfer only takes effect once the new owner accepts it, so a
// typo'd address can never lock an owner out.
package ownership

import (
	"errors"
	"sync"

	"liquidctl/crypto"
)

var (
	ErrNotOwner        = errors.New("ownership: caller is not the current owner")
	ErrNoPendingOwner  = errors.New("ownership: no transfer is pending")
	ErrNotPendingOwner = errors.New("ownership: caller is not the pending owner")
	ErrSameOwner       = errors.New("ownership: new owner matches current owner")
)

// Owned guards a resource behind a single current owner plus an optional
// pending owner awaiting acceptance. Safe for concurrent use.
type Owned struct {
	mu      sync.RWMutex
	owner   crypto.Address
	pending *crypto.Address
}

// New returns an Owned initialised to the given owner.
func New(owner crypto.Address) *Owned {
	return &Owned{owner: owner}
}

// Owner returns the current owner.
func (o *Owned) Owner() crypto.Address {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.owner
}

// PendingOwner returns the address awaiting acceptance, if any.
func (o *Owned) PendingOwner() (crypto.Address, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.pending == nil {
		return crypto.Address{}, false
	}
	return *o.pending, true
}

// RequireOwner returns ErrNotOwner if caller does not match the current owner.
func (o *Owned) RequireOwner(caller crypto.Address) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !caller.Equal(o.owner) {
		return ErrNotOwner
	}
	return nil
}

// TransferOwnership begins a two-step transfer: caller must be the current
// owner, and the transfer only completes once newOwner calls AcceptOwnership.
func (o *Owned) TransferOwnership(caller, newOwner crypto.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !caller.Equal(o.owner) {
		return ErrNotOwner
	}
	if newOwner.Equal(o.owner) {
		return ErrSameOwner
	}
	o.pending = &newOwner
	return nil
}

// AcceptOwnership finalises a pending transfer. Caller must match the
// pending owner exactly.
func (o *Owned) AcceptOwnership(caller crypto.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending == nil {
		return ErrNoPendingOwner
	}
	if !caller.Equal(*o.pending) {
		return ErrNotPendingOwner
	}
	o.owner = caller
	o.pending = nil
	return nil
}

// RenounceOwnership clears the current owner and any pending transfer,
// leaving the resource permanently unowned. Irreversible.
func (o *Owned) RenounceOwnership(caller crypto.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !caller.Equal(o.owner) {
		return ErrNotOwner
	}
	o.owner = crypto.Address{}
	o.pending = nil
	return nil
}

// CancelTransfer clears a pending transfer without completing it. Caller
// must be the current owner.
func (o *Owned) CancelTransfer(caller crypto.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !caller.Equal(o.owner) {
		return ErrNotOwner
	}
	o.pending = nil
	return nil
}
