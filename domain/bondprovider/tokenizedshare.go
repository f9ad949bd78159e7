package bondprovider

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	coreerrors "liquidctl/core/errors"
	"liquidctl/core/types"
	"liquidctl/crypto"
	"liquidctl/domain/validatorset"
	"liquidctl/ibcmsg"
)

// DenomTraceResolver resolves an ibc/<hash> denom to its IBC path and base
// denom, mirroring the stargate DenomTrace query (spec.md §4.3.2 step 1).
type DenomTraceResolver interface {
	ResolveDenomTrace(ctx context.Context, ibcDenom string) (ibcmsg.DenomTrace, error)
}

// ValidatorLookup is the subset of validatorset.Set this provider needs to
// confirm a tokenized-share deposit names a validator in the active set.
type ValidatorLookup interface {
	Get(operator string) (validatorset.Validator, bool)
}

// ShareRatioSource supplies the most recently observed share_ratio for a
// validator, sourced from the Puppeteer's latest complete delegations
// snapshot.
type ShareRatioSource interface {
	LatestShareRatio(operator string) (*big.Rat, bool)
}

// RedeemTransport is the Puppeteer surface this provider drives once
// pending LSM shares are ready to be redeemed for the underlying delegation.
type RedeemTransport interface {
	RedeemShares(ctx context.Context, sender crypto.Address, items []ibcmsg.MsgRedeemTokensForShares) error
}

// TokenizedShareConfig configures a TokenizedShareBondProvider.
type TokenizedShareConfig struct {
	TransferChannel          string
	LSMRedeemThreshold       int
	LSMRedeemMaximumInterval time.Duration
}

// pendingShare is one tokenized-share deposit awaiting redemption for the
// underlying delegation.
type pendingShare struct {
	IBCDenom           string
	BaseDenom          string
	Validator          string
	ReceivedIBCAmount  *big.Int
	ComputedBaseAmount *big.Int
}

// redeemEntry is a pendingShare promoted to shares_to_redeem, ready to be
// submitted as a MsgRedeemTokensForShares on the next idle visit.
type redeemEntry struct {
	IBCDenom string
	Amount   *big.Int
}

// TokenizedShareBondProvider accepts LSM-tokenized-share deposits: an
// ibc-denom whose denom trace resolves to "<valoper>/<record_id>" over our
// own transfer channel. Bond records the deposit against the validator's
// current share_ratio; ProcessOnIdle periodically redeems accumulated
// shares back into ordinary delegations on the host chain.
type TokenizedShareBondProvider struct {
	mu sync.Mutex

	cfg         TokenizedShareConfig
	denomTraces DenomTraceResolver
	validators  ValidatorLookup
	shareRatios ShareRatioSource
	transport   RedeemTransport
	sender      crypto.Address

	pendingLSMShares map[string]pendingShare
	sharesToRedeem   []redeemEntry
	lastLSMRedeem    time.Time
}

// NewTokenizedShareBondProvider constructs an empty TokenizedShareBondProvider.
func NewTokenizedShareBondProvider(cfg TokenizedShareConfig, sender crypto.Address, denomTraces DenomTraceResolver, validators ValidatorLookup, shareRatios ShareRatioSource, transport RedeemTransport) *TokenizedShareBondProvider {
	return &TokenizedShareBondProvider{
		cfg:              cfg,
		denomTraces:      denomTraces,
		validators:       validators,
		shareRatios:      shareRatios,
		transport:        transport,
		sender:           sender,
		pendingLSMShares: make(map[string]pendingShare),
	}
}

// CanBond accepts only IBC-denominated deposits; denom-trace resolution in
// Bond rejects anything whose path or base denom doesn't fit the
// "<valoper>/<record_id>" tokenized-share shape.
func (t *TokenizedShareBondProvider) CanBond(denom string) bool {
	return strings.HasPrefix(denom, "ibc/")
}

// TokenAmount returns floor(bondedFunds / exchangeRate) for a denom already
// recorded by Bond. Bond must be called first: it is what resolves the
// denom trace and computes bondedFunds via the validator's share_ratio,
// so TokenAmount need not repeat that resolution on every call.
func (t *TokenizedShareBondProvider) TokenAmount(coin types.Coin, exchangeRate *big.Rat) (*big.Int, error) {
	if exchangeRate == nil || exchangeRate.Sign() <= 0 {
		return nil, fmt.Errorf("bondprovider: invalid exchange rate")
	}
	t.mu.Lock()
	pending, ok := t.pendingLSMShares[coin.Denom]
	t.mu.Unlock()
	if !ok {
		return nil, coreerrors.ErrUnsupportedDenom
	}
	amountRat := new(big.Rat).SetInt(pending.ComputedBaseAmount)
	tokens := new(big.Rat).Quo(amountRat, exchangeRate)
	quotient := new(big.Int).Quo(tokens.Num(), tokens.Denom())
	return quotient, nil
}

// Remaining always reports unlimited: tokenized-share deposits are capped
// by the host chain's own LSM module (record count, validator bond factor),
// not by a liquidctl-side bond limit.
func (t *TokenizedShareBondProvider) Remaining(denom string) *big.Int {
	return nil
}

// AssetAmount sums the base-asset-equivalent value of every deposit still
// awaiting redemption, pending or already promoted to shares_to_redeem.
func (t *TokenizedShareBondProvider) AssetAmount() *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := big.NewInt(0)
	for _, p := range t.pendingLSMShares {
		total.Add(total, p.ComputedBaseAmount)
	}
	for _, r := range t.sharesToRedeem {
		total.Add(total, r.Amount)
	}
	return total
}

// Bond resolves coin's denom trace, asserts it was minted over our own
// transfer channel, parses its base denom as "<valoper>/<record_id>",
// confirms the validator is in the active set, and records the deposit
// against the validator's latest observed share_ratio (1:1 if none has
// been observed yet, the par value a freshly tokenized share starts at).
func (t *TokenizedShareBondProvider) Bond(ctx context.Context, coin types.Coin) error {
	trace, err := t.denomTraces.ResolveDenomTrace(ctx, coin.Denom)
	if err != nil {
		return fmt.Errorf("bondprovider: resolve denom trace: %w", err)
	}
	if trace.Path != "transfer/"+t.cfg.TransferChannel {
		return coreerrors.ErrDenomTracePath
	}
	parts := strings.SplitN(trace.BaseDenom, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return coreerrors.ErrUnsupportedDenom
	}
	validatorAddr := parts[0]
	if _, ok := t.validators.Get(validatorAddr); !ok {
		return coreerrors.ErrUnknownValidator
	}

	shareRatio, ok := t.shareRatios.LatestShareRatio(validatorAddr)
	if !ok {
		shareRatio = big.NewRat(1, 1)
	}
	bondedRat := new(big.Rat).Mul(new(big.Rat).SetInt(coin.Amount), shareRatio)
	bondedFunds := new(big.Int).Quo(bondedRat.Num(), bondedRat.Denom())

	t.mu.Lock()
	defer t.mu.Unlock()
	t.pendingLSMShares[coin.Denom] = pendingShare{
		IBCDenom:           coin.Denom,
		BaseDenom:          trace.BaseDenom,
		Validator:          validatorAddr,
		ReceivedIBCAmount:  new(big.Int).Set(coin.Amount),
		ComputedBaseAmount: bondedFunds,
	}
	return nil
}

// CanProcessOnIdle reports whether there are freshly pending shares to
// promote, or accumulated shares_to_redeem have reached the configured
// threshold or interval.
func (t *TokenizedShareBondProvider) CanProcessOnIdle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pendingLSMShares) > 0 {
		return true
	}
	if len(t.sharesToRedeem) == 0 {
		return false
	}
	if len(t.sharesToRedeem) >= t.cfg.LSMRedeemThreshold {
		return true
	}
	return !t.lastLSMRedeem.IsZero() && time.Since(t.lastLSMRedeem) >= t.cfg.LSMRedeemMaximumInterval
}

// ProcessOnIdle promotes every pending share to shares_to_redeem, then, once
// the threshold or interval condition holds, submits a MsgRedeemTokensForShares
// per accumulated denom and clears shares_to_redeem.
func (t *TokenizedShareBondProvider) ProcessOnIdle(ctx context.Context) error {
	t.mu.Lock()
	for denom, pending := range t.pendingLSMShares {
		t.sharesToRedeem = append(t.sharesToRedeem, redeemEntry{IBCDenom: denom, Amount: pending.ReceivedIBCAmount})
		delete(t.pendingLSMShares, denom)
	}
	ready := len(t.sharesToRedeem) > 0 && (len(t.sharesToRedeem) >= t.cfg.LSMRedeemThreshold ||
		(!t.lastLSMRedeem.IsZero() && time.Since(t.lastLSMRedeem) >= t.cfg.LSMRedeemMaximumInterval))
	if !ready {
		t.mu.Unlock()
		return nil
	}
	items := make([]ibcmsg.MsgRedeemTokensForShares, 0, len(t.sharesToRedeem))
	for _, r := range t.sharesToRedeem {
		items = append(items, ibcmsg.MsgRedeemTokensForShares{Amount: ibcmsg.Coin{Denom: r.IBCDenom, Amount: r.Amount}})
	}
	t.sharesToRedeem = nil
	t.mu.Unlock()

	if err := t.transport.RedeemShares(ctx, t.sender, items); err != nil {
		t.mu.Lock()
		for _, item := range items {
			t.sharesToRedeem = append(t.sharesToRedeem, redeemEntry{IBCDenom: item.Amount.Denom, Amount: item.Amount.Amount})
		}
		t.mu.Unlock()
		return fmt.Errorf("bondprovider: dispatch redeem shares: %w", err)
	}
	t.mu.Lock()
	t.lastLSMRedeem = time.Now()
	t.mu.Unlock()
	return nil
}

var _ Provider = (*TokenizedShareBondProvider)(nil)
