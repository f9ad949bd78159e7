package corefsm

import (
	"math/big"
	"time"
)

// Config bundles the parsed (not raw-TOML) runtime values Core needs.
// cmd/liquidctld parses config.Global's string amounts into *big.Int and
// its second durations into time.Duration once at wiring time; Core never
// touches config.Global directly.
type Config struct {
	BaseDenom       string
	ICADelegator    string
	WithdrawalAddr  string
	TransferChannel string
	TransferTimeout time.Duration

	IdleMinInterval       time.Duration
	UnbondBatchSwitchTime time.Duration
	UnbondingPeriod       time.Duration
	UnbondingSafePeriod   time.Duration
	RewardsClaimEpoch     time.Duration
	MinNonNativeRewards   *big.Int
	ICQUpdateDelayBlocks  uint64
}
