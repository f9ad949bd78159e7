package config

// Fees bundles the per-submission IBC fee schedule the puppeteer attaches to
// every interchain transaction, in the platform's fee denom.
type Fees struct {
	RecvFeeAmount    string `toml:"RecvFeeAmount" yaml:"recvFeeAmount"`
	AckFeeAmount     string `toml:"AckFeeAmount" yaml:"ackFeeAmount"`
	TimeoutFeeAmount string `toml:"TimeoutFeeAmount" yaml:"timeoutFeeAmount"`
	Denom            string `toml:"Denom" yaml:"denom"`
}

// Timers bundles the wall-clock and block-height thresholds that drive the
// Core tick state machine, unchanged in meaning from spec.md section 4.1.
type Timers struct {
	IdleMinIntervalSecs       int64  `toml:"IdleMinIntervalSecs" yaml:"idleMinIntervalSecs"`
	MinIBCTransfer            string `toml:"MinIBCTransfer" yaml:"minIbcTransfer"`
	ICQUpdateDelayBlocks      uint64 `toml:"ICQUpdateDelayBlocks" yaml:"icqUpdateDelayBlocks"`
	UnbondBatchSwitchTimeSecs int64  `toml:"UnbondBatchSwitchTimeSecs" yaml:"unbondBatchSwitchTimeSecs"`
	UnbondingPeriodSecs       int64  `toml:"UnbondingPeriodSecs" yaml:"unbondingPeriodSecs"`
	UnbondingSafePeriodSecs   int64  `toml:"UnbondingSafePeriodSecs" yaml:"unbondingSafePeriodSecs"`
	RewardsClaimEpochSecs     int64  `toml:"RewardsClaimEpochSecs" yaml:"rewardsClaimEpochSecs"`
	MinNonNativeRewards       string `toml:"MinNonNativeRewards" yaml:"minNonNativeRewards"`
	// BondLimit caps the native bond provider's total held base asset
	// (non-staked plus in-flight-pending); empty means unlimited.
	BondLimit string `toml:"BondLimit" yaml:"bondLimit"`
}

// LSM bundles the tokenized-share bond provider's redemption cadence, unchanged
// in meaning from spec.md section 4.3.2.
type LSM struct {
	RedeemThreshold       uint64 `toml:"RedeemThreshold" yaml:"redeemThreshold"`
	RedeemMaxIntervalSecs int64  `toml:"RedeemMaxIntervalSecs" yaml:"redeemMaxIntervalSecs"`
}

// ICQ bundles the chunked delegations-and-balances query registration knobs.
type ICQ struct {
	ValidatorChunkSize int `toml:"ValidatorChunkSize" yaml:"validatorChunkSize"`
}

// Remote describes the remote (host) chain's message-URL dialect, per
// spec.md section 6's Initia-style / LSM variant discussion.
type Remote struct {
	// DenomPrefix is the host-chain staking denom prefix used to
	// discriminate an Initia-style ("move/") remote from a standard
	// cosmos-sdk staking module.
	DenomPrefix string `toml:"DenomPrefix" yaml:"denomPrefix"`
	// SupportsLSM enables TokenizeShares/RedeemShares message dispatch.
	SupportsLSM bool `toml:"SupportsLSM" yaml:"supportsLsm"`
	// WrapRedelegateInAuthzExec resolves spec.md section 9(c): whether a
	// Redelegate dispatch is wrapped in authz.MsgExec for this chain.
	WrapRedelegateInAuthzExec bool `toml:"WrapRedelegateInAuthzExec" yaml:"wrapRedelegateInAuthzExec"`
}

// SplitterReceiver is one weighted payee of the split reward pool,
// serialized form of domain/splitter.Receiver.
type SplitterReceiver struct {
	Address string `toml:"Address" yaml:"address"`
	Weight  uint64 `toml:"Weight" yaml:"weight"`
}

// Splitter bundles the reward-split receiver table and the host-local
// reward pump's cadence, supplementing spec.md's overview-table Splitter/
// RewardsPump row (no dedicated config section in spec.md itself).
type Splitter struct {
	Receivers       []SplitterReceiver `toml:"Receivers" yaml:"receivers"`
	PumpReceiver    string             `toml:"PumpReceiver" yaml:"pumpReceiver"`
	MinPumpAmount   string             `toml:"MinPumpAmount" yaml:"minPumpAmount"`
	PumpTimeoutSecs uint64             `toml:"PumpTimeoutSecs" yaml:"pumpTimeoutSecs"`
}

// Global bundles the runtime configuration values enforced by ValidateConfig.
// It is the Core/Puppeteer/BondProvider "frozen at instantiate, owner-mutable
// via UpdateConfig" configuration object from spec.md section 3.
type Global struct {
	BaseDenom       string `toml:"BaseDenom" yaml:"baseDenom"`
	ICAIdentifier   string `toml:"ICAIdentifier" yaml:"icaIdentifier"`
	// ICAAddress is the remote chain's bech32 address for this daemon's
	// interchain account, known only after the ICA channel handshake
	// completes (puppeteer.HandleICAOpenAck). NativeBondProvider is
	// constructed once at daemon start with no later mutator, so a fresh
	// deployment's first run has no native bond provider until an operator
	// learns this address out-of-band and restarts with it set.
	ICAAddress      string `toml:"ICAAddress" yaml:"icaAddress"`
	TransferChannel string `toml:"TransferChannel" yaml:"transferChannel"`
	ICAChannel      string `toml:"ICAChannel" yaml:"icaChannel"`
	TxTimeoutSecs   int64  `toml:"TxTimeoutSecs" yaml:"txTimeoutSecs"`

	Timers   Timers   `toml:"Timers" yaml:"timers"`
	Fees     Fees     `toml:"Fees" yaml:"fees"`
	LSM      LSM      `toml:"LSM" yaml:"lsm"`
	ICQ      ICQ      `toml:"ICQ" yaml:"icq"`
	Remote   Remote   `toml:"Remote" yaml:"remote"`
	Splitter Splitter `toml:"Splitter" yaml:"splitter"`
}
