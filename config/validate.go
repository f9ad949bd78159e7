package config

import "fmt"

// MinTxTimeoutSeconds is the floor for any interchain transaction timeout,
// per spec.md section 5 ("every interchain transaction carries a timeout
// ... must be >= 10").
const MinTxTimeoutSeconds = int64(10)

// ValidateConfig checks the runtime configuration values enforced whenever a
// component instantiates or accepts an UpdateConfig call.
func ValidateConfig(g Global) error {
	if g.BaseDenom == "" {
		return fmt.Errorf("config: base_denom required")
	}
	if g.ICAIdentifier == "" {
		return fmt.Errorf("config: ica_identifier required")
	}
	if g.TransferChannel == "" {
		return fmt.Errorf("config: transfer_channel required")
	}
	if g.ICAChannel == "" {
		return fmt.Errorf("config: ica_channel required")
	}
	if g.TxTimeoutSecs < MinTxTimeoutSeconds {
		return fmt.Errorf("config: tx_timeout_secs must be >= %d", MinTxTimeoutSeconds)
	}
	if g.Timers.IdleMinIntervalSecs < 0 {
		return fmt.Errorf("config: timers.idle_min_interval_secs must be >= 0")
	}
	if g.Timers.UnbondBatchSwitchTimeSecs <= 0 {
		return fmt.Errorf("config: timers.unbond_batch_switch_time_secs must be > 0")
	}
	if g.Timers.UnbondingPeriodSecs <= 0 {
		return fmt.Errorf("config: timers.unbonding_period_secs must be > 0")
	}
	if g.Timers.UnbondingSafePeriodSecs < 0 {
		return fmt.Errorf("config: timers.unbonding_safe_period_secs must be >= 0")
	}
	if g.LSM.RedeemMaxIntervalSecs < 0 {
		return fmt.Errorf("config: lsm.redeem_max_interval_secs must be >= 0")
	}
	if g.ICQ.ValidatorChunkSize <= 0 {
		return fmt.Errorf("config: icq.validator_chunk_size must be > 0")
	}
	if g.Remote.DenomPrefix == "" {
		return fmt.Errorf("config: remote.denom_prefix required")
	}
	return nil
}
