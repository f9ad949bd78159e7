package config

import (
	"encoding/hex"
	"os"

	"github.com/BurntSushi/toml"

	"liquidctl/crypto"
)

// Config is the daemon's on-disk configuration. It embeds the validated
// Global protocol parameters alongside the process-level knobs (listen
// addresses, data directory, owner key) the way config.Config separates
// node wiring from policy in the teacher repo.
type Config struct {
	ListenAddress     string `toml:"ListenAddress"`
	GRPCListenAddress string `toml:"GRPCListenAddress"`
	RelayerAddress    string `toml:"RelayerAddress"`
	RelayerSecret     string `toml:"RelayerSecret"`
	DataDir           string `toml:"DataDir"`
	OwnerKey          string `toml:"OwnerKey"`

	AuthEnabled    bool   `toml:"AuthEnabled"`
	AuthHMACSecret string `toml:"AuthHMACSecret"`
	AuthIssuer     string `toml:"AuthIssuer"`

	Global Global `toml:"Protocol"`
}

// Load loads the configuration from the given path, generating and
// persisting a default file (including a fresh owner key) the first time
// the daemon starts against a new data directory.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if cfg.OwnerKey == "" {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return nil, err
		}
		cfg.OwnerKey = hex.EncodeToString(key.Bytes())

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, os.ModePerm)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			return nil, err
		}
	}

	if err := ValidateConfig(cfg.Global); err != nil {
		return nil, err
	}
	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddress:     ":8080",
		GRPCListenAddress: ":9090",
		RelayerAddress:    "127.0.0.1:9091",
		DataDir:           "./liquidctl-data",
		OwnerKey:          hex.EncodeToString(key.Bytes()),
		Global:            DefaultGlobal(),
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultGlobal returns a conservative default parameter set. It is valid
// per ValidateConfig but deliberately inert (long intervals, no LSM support)
// so a fresh daemon does not act until an operator tunes it.
func DefaultGlobal() Global {
	return Global{
		BaseDenom:       "uatom",
		ICAIdentifier:   "DROP",
		ICAAddress:      "",
		TransferChannel: "channel-0",
		ICAChannel:      "channel-1",
		TxTimeoutSecs:   600,
		Timers: Timers{
			IdleMinIntervalSecs:       60,
			MinIBCTransfer:            "1000000",
			ICQUpdateDelayBlocks:      20,
			UnbondBatchSwitchTimeSecs: 86400,
			UnbondingPeriodSecs:       1814400,
			UnbondingSafePeriodSecs:   3600,
			RewardsClaimEpochSecs:     86400,
			MinNonNativeRewards:       "1000000",
			BondLimit:                 "",
		},
		LSM: LSM{
			RedeemThreshold:       5,
			RedeemMaxIntervalSecs: 604800,
		},
		ICQ: ICQ{
			ValidatorChunkSize: 20,
		},
		Remote: Remote{
			DenomPrefix:                "",
			SupportsLSM:                true,
			WrapRedelegateInAuthzExec: false,
		},
		Splitter: Splitter{
			Receivers:       nil,
			PumpReceiver:    "",
			MinPumpAmount:   "1000000",
			PumpTimeoutSecs: 600,
		},
	}
}
