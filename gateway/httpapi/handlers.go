package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	coreerrors "liquidctl/core/errors"
	"liquidctl/core/types"
	"liquidctl/crypto"
	"liquidctl/domain/corefsm"
	"liquidctl/domain/ownership"
	"liquidctl/domain/pause"
	"liquidctl/domain/validatorset"
)

// --- query handlers ---

func (h *handlers) getExchangeRate(w http.ResponseWriter, r *http.Request) {
	rate := h.cfg.Core.ExchangeRate()
	writeJSON(w, http.StatusOK, map[string]string{
		"exchange_rate": rate.FloatString(18),
		"state":         h.cfg.Core.State().String(),
	})
}

func (h *handlers) listValidators(w http.ResponseWriter, r *http.Request) {
	list := h.cfg.Validators.List()
	out := make([]validatorWire, 0, len(list))
	for _, v := range list {
		out = append(out, toValidatorWire(v))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"validators": out})
}

func (h *handlers) getBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := new(big.Int).SetString(chi.URLParam(r, "id"), 10)
	if !ok {
		writeBadRequest(w, errors.New("httpapi: batch id must be a base-10 integer"))
		return
	}
	batch, found := h.cfg.Withdrawal.Batch(id)
	if !found {
		writeJSONError(w, http.StatusNotFound, coreerrors.ErrBatchNotFound)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (h *handlers) getVoucher(w http.ResponseWriter, r *http.Request) {
	voucher, found := h.cfg.Withdrawal.Voucher(chi.URLParam(r, "id"))
	if !found {
		writeJSONError(w, http.StatusNotFound, coreerrors.ErrVoucherNotFound)
		return
	}
	writeJSON(w, http.StatusOK, voucher)
}

// --- user-facing write handlers ---

type bondRequest struct {
	Caller   string `json:"caller"`
	Receiver string `json:"receiver"`
	Denom    string `json:"denom"`
	Amount   string `json:"amount"`
}

func (h *handlers) postBond(w http.ResponseWriter, r *http.Request) {
	var req bondRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("httpapi: decode caller: %w", err))
		return
	}
	receiver := caller
	if strings.TrimSpace(req.Receiver) != "" {
		receiver, err = crypto.DecodeAddress(req.Receiver)
		if err != nil {
			writeBadRequest(w, fmt.Errorf("httpapi: decode receiver: %w", err))
			return
		}
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		writeBadRequest(w, errors.New("httpapi: amount must be a base-10 integer"))
		return
	}
	coin := types.NewCoin(req.Denom, amount)
	if err := h.cfg.Core.Bond(r.Context(), caller, receiver, coin); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

type unbondRequest struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
	Now    int64  `json:"now"`
}

func (h *handlers) postUnbond(w http.ResponseWriter, r *http.Request) {
	var req unbondRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("httpapi: decode caller: %w", err))
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		writeBadRequest(w, errors.New("httpapi: amount must be a base-10 integer"))
		return
	}
	voucher, err := h.cfg.Core.Unbond(r.Context(), caller, amount, req.Now)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, voucher)
}

type withdrawRequest struct {
	Caller    string `json:"caller"`
	VoucherID string `json:"voucher_id"`
	Receiver  string `json:"receiver"`
}

func (h *handlers) postWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("httpapi: decode caller: %w", err))
		return
	}
	receiver := caller
	if strings.TrimSpace(req.Receiver) != "" {
		receiver, err = crypto.DecodeAddress(req.Receiver)
		if err != nil {
			writeBadRequest(w, fmt.Errorf("httpapi: decode receiver: %w", err))
			return
		}
	}
	if err := h.cfg.Core.Withdraw(r.Context(), caller, req.VoucherID, receiver); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// --- owner-only admin handlers ---

type updateConfigRequest struct {
	Caller string      `json:"caller"`
	Config configWire `json:"config"`
}

func (h *handlers) postUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req updateConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("httpapi: decode caller: %w", err))
		return
	}
	cfg, err := req.Config.toCoreConfig()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := h.cfg.Core.UpdateConfig(caller, cfg); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type setPauseRequest struct {
	Caller string `json:"caller"`
	Tick   bool   `json:"tick"`
	Bond   bool   `json:"bond"`
	Unbond bool   `json:"unbond"`
}

func (h *handlers) postSetPause(w http.ResponseWriter, r *http.Request) {
	var req setPauseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("httpapi: decode caller: %w", err))
		return
	}
	flags := pause.Flags{Tick: req.Tick, Bond: req.Bond, Unbond: req.Unbond}
	if err := h.cfg.Core.SetPause(caller, flags); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type updateValidatorsRequest struct {
	Caller     string             `json:"caller"`
	Validators []validatorUpdate `json:"validators"`
}

type validatorUpdate struct {
	Operator string `json:"operator"`
	Weight   uint64 `json:"weight"`
	OnTop    string `json:"on_top,omitempty"`
}

func (h *handlers) postUpdateValidators(w http.ResponseWriter, r *http.Request) {
	var req updateValidatorsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("httpapi: decode caller: %w", err))
		return
	}
	updates := make([]validatorset.Update, 0, len(req.Validators))
	for _, u := range req.Validators {
		update := validatorset.Update{Operator: u.Operator, Weight: u.Weight}
		if strings.TrimSpace(u.OnTop) != "" {
			onTop, ok := new(big.Int).SetString(u.OnTop, 10)
			if !ok {
				writeBadRequest(w, fmt.Errorf("httpapi: on_top for %s must be a base-10 integer", u.Operator))
				return
			}
			update.OnTop = onTop
		}
		updates = append(updates, update)
	}
	if err := h.cfg.Validators.UpdateValidators(caller, updates); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type editOnTopRequest struct {
	Caller        string `json:"caller"`
	RefAuthority  string `json:"ref_authority,omitempty"`
	Operator      string `json:"operator"`
	Op            string `json:"op"`
	Amount        string `json:"amount"`
}

func (h *handlers) postEditOnTop(w http.ResponseWriter, r *http.Request) {
	var req editOnTopRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("httpapi: decode caller: %w", err))
		return
	}
	var refAuthority *crypto.Address
	if strings.TrimSpace(req.RefAuthority) != "" {
		addr, err := crypto.DecodeAddress(req.RefAuthority)
		if err != nil {
			writeBadRequest(w, fmt.Errorf("httpapi: decode ref_authority: %w", err))
			return
		}
		refAuthority = &addr
	}
	var op validatorset.OnTopOp
	switch strings.ToLower(strings.TrimSpace(req.Op)) {
	case "add":
		op = validatorset.OnTopAdd
	case "set":
		op = validatorset.OnTopSet
	default:
		writeBadRequest(w, fmt.Errorf("httpapi: op must be \"add\" or \"set\", got %q", req.Op))
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		writeBadRequest(w, errors.New("httpapi: amount must be a base-10 integer"))
		return
	}
	if err := h.cfg.Validators.EditOnTop(caller, refAuthority, req.Operator, op, amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type emergencyWithdrawalRequest struct {
	Caller  string `json:"caller"`
	BatchID string `json:"batch_id"`
	Amount  string `json:"amount"`
	Now     int64  `json:"now"`
}

func (h *handlers) postEmergencyWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req emergencyWithdrawalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("httpapi: decode caller: %w", err))
		return
	}
	batchID, ok := new(big.Int).SetString(req.BatchID, 10)
	if !ok {
		writeBadRequest(w, errors.New("httpapi: batch_id must be a base-10 integer"))
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		writeBadRequest(w, errors.New("httpapi: amount must be a base-10 integer"))
		return
	}
	batch, err := h.cfg.Withdrawal.FundEmergencyWithdrawal(caller, batchID, amount, req.Now)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

type creditRewardRequest struct {
	Caller string `json:"caller"`
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// postCreditReward folds a claimed non-base reward coin into the
// RewardsPump's balance. Until a dedicated ICQ-based reward observation
// pipeline exists (see DESIGN.md's open-question entry for this handler),
// an operator reports claimed non-native rewards through this endpoint
// rather than Core reporting them automatically off its own claim
// dispatch, which today returns no information about what was actually
// claimed.
func (h *handlers) postCreditReward(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Pump == nil {
		writeJSONError(w, http.StatusNotImplemented, errors.New("httpapi: rewards pump not configured"))
		return
	}
	var req creditRewardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if _, err := crypto.DecodeAddress(req.Caller); err != nil {
		writeBadRequest(w, fmt.Errorf("httpapi: decode caller: %w", err))
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		writeBadRequest(w, errors.New("httpapi: amount must be a base-10 integer"))
		return
	}
	if err := h.cfg.Pump.CreditReward(r.Context(), types.NewCoin(req.Denom, amount)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pump_balance": h.cfg.Pump.Balance().String()})
}

type splitRewardsRequest struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

// postSplitRewards divides amount (typically the Splitter's own settled
// balance once RewardsPump's transfer lands) across the configured
// weighted receivers and pays each out immediately.
func (h *handlers) postSplitRewards(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Splitter == nil {
		writeJSONError(w, http.StatusNotImplemented, errors.New("httpapi: splitter not configured"))
		return
	}
	var req splitRewardsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if _, err := crypto.DecodeAddress(req.Caller); err != nil {
		writeBadRequest(w, fmt.Errorf("httpapi: decode caller: %w", err))
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		writeBadRequest(w, errors.New("httpapi: amount must be a base-10 integer"))
		return
	}
	allocations, err := h.cfg.Splitter.Split(amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.cfg.Splitter.Distribute(r.Context(), amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"allocations": allocations})
}

type transferOwnershipRequest struct {
	Caller   string `json:"caller"`
	NewOwner string `json:"new_owner"`
}

// postTransferOwnership begins UpdateOwnership's TransferOwnership step
// (spec.md §6): caller must be the current owner; the transfer only takes
// effect once new_owner calls postAcceptOwnership.
func (h *handlers) postTransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req transferOwnershipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("httpapi: decode caller: %w", err))
		return
	}
	newOwner, err := crypto.DecodeAddress(req.NewOwner)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("httpapi: decode new_owner: %w", err))
		return
	}
	if err := h.cfg.Owned.TransferOwnership(caller, newOwner); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pending"})
}

type ownershipCallerRequest struct {
	Caller string `json:"caller"`
}

// postAcceptOwnership completes UpdateOwnership's AcceptOwnership step:
// caller must match the pending owner exactly.
func (h *handlers) postAcceptOwnership(w http.ResponseWriter, r *http.Request) {
	var req ownershipCallerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("httpapi: decode caller: %w", err))
		return
	}
	if err := h.cfg.Owned.AcceptOwnership(caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted", "owner": h.cfg.Owned.Owner().String()})
}

// postRenounceOwnership runs UpdateOwnership's RenounceOwnership step.
// Irreversible: the resource becomes permanently unowned.
func (h *handlers) postRenounceOwnership(w http.ResponseWriter, r *http.Request) {
	var req ownershipCallerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("httpapi: decode caller: %w", err))
		return
	}
	if err := h.cfg.Owned.RenounceOwnership(caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "renounced"})
}

// postCancelOwnershipTransfer clears a pending TransferOwnership without
// completing it, letting the current owner retract a typo'd new_owner.
func (h *handlers) postCancelOwnershipTransfer(w http.ResponseWriter, r *http.Request) {
	var req ownershipCallerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("httpapi: decode caller: %w", err))
		return
	}
	if err := h.cfg.Owned.CancelTransfer(caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// postRegisterICA begins (or, idempotently, re-begins after a Timeout)
// interchain-account registration — the S4 scenario's "owner invokes ICA
// re-registration" recovery step (spec.md §9).
func (h *handlers) postRegisterICA(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Puppeteer == nil {
		writeJSONError(w, http.StatusNotImplemented, errors.New("httpapi: puppeteer not configured"))
		return
	}
	var req ownershipCallerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("httpapi: decode caller: %w", err))
		return
	}
	if err := h.cfg.Puppeteer.RegisterICA(r.Context(), caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "registering"})
}

// --- wire helpers ---

type validatorWire struct {
	Operator                  string `json:"operator"`
	Weight                    uint64 `json:"weight"`
	OnTop                     string `json:"on_top"`
	LastProcessedRemoteHeight uint64 `json:"last_processed_remote_height"`
	Uptime                    string `json:"uptime,omitempty"`
	Tombstoned                bool   `json:"tombstoned"`
	JailedCount               uint64 `json:"jailed_count"`
	ProposalsSigned           uint64 `json:"proposals_signed"`
	ProposalsMissed           uint64 `json:"proposals_missed"`
}

func toValidatorWire(v validatorset.Validator) validatorWire {
	wire := validatorWire{
		Operator:                  v.Operator,
		Weight:                    v.Weight,
		LastProcessedRemoteHeight: v.LastProcessedRemoteHeight,
		Tombstoned:                v.Tombstoned,
		JailedCount:               v.JailedCount,
		ProposalsSigned:           v.ProposalsSigned,
		ProposalsMissed:           v.ProposalsMissed,
	}
	if v.OnTop != nil {
		wire.OnTop = v.OnTop.String()
	}
	if v.Uptime != nil {
		wire.Uptime = v.Uptime.FloatString(6)
	}
	return wire
}

// configWire is corefsm.Config with amounts and durations expressed as
// strings, the same over-the-wire shape config.Global uses on disk (TOML
// string amounts, second-denominated durations) rather than corefsm.Config's
// already-parsed *big.Int/time.Duration fields.
type configWire struct {
	BaseDenom             string `json:"base_denom"`
	ICADelegator          string `json:"ica_delegator"`
	WithdrawalAddr        string `json:"withdrawal_addr"`
	TransferChannel       string `json:"transfer_channel"`
	TransferTimeout       string `json:"transfer_timeout"`
	IdleMinInterval       string `json:"idle_min_interval"`
	UnbondBatchSwitchTime string `json:"unbond_batch_switch_time"`
	UnbondingPeriod       string `json:"unbonding_period"`
	UnbondingSafePeriod   string `json:"unbonding_safe_period"`
	RewardsClaimEpoch     string `json:"rewards_claim_epoch"`
	MinNonNativeRewards   string `json:"min_non_native_rewards"`
	ICQUpdateDelayBlocks  uint64 `json:"icq_update_delay_blocks"`
}

func (w configWire) toCoreConfig() (corefsm.Config, error) {
	durations := make(map[string]time.Duration, 6)
	for name, raw := range map[string]string{
		"transfer_timeout":         w.TransferTimeout,
		"idle_min_interval":        w.IdleMinInterval,
		"unbond_batch_switch_time": w.UnbondBatchSwitchTime,
		"unbonding_period":         w.UnbondingPeriod,
		"unbonding_safe_period":    w.UnbondingSafePeriod,
		"rewards_claim_epoch":      w.RewardsClaimEpoch,
	} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return corefsm.Config{}, fmt.Errorf("httpapi: parse %s: %w", name, err)
		}
		durations[name] = d
	}
	minRewards := big.NewInt(0)
	if strings.TrimSpace(w.MinNonNativeRewards) != "" {
		parsed, ok := new(big.Int).SetString(w.MinNonNativeRewards, 10)
		if !ok {
			return corefsm.Config{}, errors.New("httpapi: min_non_native_rewards must be a base-10 integer")
		}
		minRewards = parsed
	}
	return corefsm.Config{
		BaseDenom:             w.BaseDenom,
		ICADelegator:          w.ICADelegator,
		WithdrawalAddr:        w.WithdrawalAddr,
		TransferChannel:       w.TransferChannel,
		TransferTimeout:       durations["transfer_timeout"],
		IdleMinInterval:       durations["idle_min_interval"],
		UnbondBatchSwitchTime: durations["unbond_batch_switch_time"],
		UnbondingPeriod:       durations["unbonding_period"],
		UnbondingSafePeriod:   durations["unbonding_safe_period"],
		RewardsClaimEpoch:     durations["rewards_claim_epoch"],
		MinNonNativeRewards:   minRewards,
		ICQUpdateDelayBlocks:  w.ICQUpdateDelayBlocks,
	}, nil
}

// --- response plumbing, adapted from the teacher's gateway/routes JSON
// error-writing helpers (writeJSONError et al. in gateway/routes/lending.go),
// scaled down from protojson payloads to encoding/json ones. ---

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = http.StatusText(status)
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSONError(w, http.StatusBadRequest, err)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("httpapi: decode request body: %w", err)
	}
	return nil
}

// writeDomainError maps a domain error to its HTTP status the way the
// teacher's writeGRPCError maps gRPC status codes: authorization and
// not-found errors get their own codes, everything else degrades to 400
// since every domain error here stems from caller-supplied input.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, coreerrors.ErrUnauthorized), errors.Is(err, ownership.ErrNotOwner), errors.Is(err, ownership.ErrNotPendingOwner),
		errors.Is(err, coreerrors.ErrSenderNotAllowed):
		writeJSONError(w, http.StatusForbidden, err)
	case errors.Is(err, coreerrors.ErrPaused):
		writeJSONError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, coreerrors.ErrVoucherNotFound), errors.Is(err, coreerrors.ErrBatchNotFound), errors.Is(err, validatorset.ErrValidatorNotFound):
		writeJSONError(w, http.StatusNotFound, err)
	default:
		writeJSONError(w, http.StatusBadRequest, err)
	}
}
