package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// BootstrapValidator is one validator's seed weight/on-top allocation, the
// YAML counterpart of domain/validatorset.Update.
type BootstrapValidator struct {
	Operator string `yaml:"operator"`
	Weight   uint64 `yaml:"weight"`
	OnTop    string `yaml:"onTop,omitempty"`
}

// Bootstrap is the optional, human-authored seed file an operator hands
// liquidctld on first run: the initial validator set and splitter
// receivers, kept separate from the daemon's own TOML Config (config.go)
// the same way the teacher splits its node's protocol TOML from the
// gateway's own YAML service/route table (gateway/config/config.go) —
// one process here, but still two authoring concerns: protocol
// parameters an owner tunes over the wire via UpdateConfig, versus a
// one-time operational seed list loaded once at startup.
type Bootstrap struct {
	Validators        []BootstrapValidator `yaml:"validators"`
	SplitterReceivers []SplitterReceiver   `yaml:"splitterReceivers"`
}

// LoadBootstrap reads and parses a YAML bootstrap file. A missing path is
// not an error: liquidctld starts with an empty validator set and no
// splitter receivers, both addable later through the owner-only admin API.
func LoadBootstrap(path string) (*Bootstrap, error) {
	if path == "" {
		return &Bootstrap{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Bootstrap{}, nil
	}
	if err != nil {
		return nil, err
	}
	var b Bootstrap
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
