package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"lumen/logx"
	"lumen/types"
)

// GenesisValidator seeds one registry entry at genesis.
type GenesisValidator struct {
	Pubkey  string     `yaml:"pubkey"`
	Balance types.Gwei `yaml:"balance"`
}

// GenesisConfig is the chain-level half of genesis.yml: the spec overrides
// plus the initial validator set.
type GenesisConfig struct {
	Spec       ChainSpec          `yaml:"spec"`
	Validators []GenesisValidator `yaml:"validators"`
}

type genesisFile struct {
	Config GenesisConfig `yaml:"config"`
}

// LoadGenesisConfig reads and parses a genesis.yml file.
func LoadGenesisConfig(path string) (*GenesisConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genesis config: %w", err)
	}
	defer file.Close()

	// Spec fields absent from the file keep their production defaults.
	cf := genesisFile{Config: GenesisConfig{Spec: *MainnetSpec()}}
	if err := yaml.NewDecoder(file).Decode(&cf); err != nil {
		return nil, fmt.Errorf("decode genesis config: %w", err)
	}
	logx.Info("config", fmt.Sprintf("loaded genesis config: %d validators, %d slots per epoch",
		len(cf.Config.Validators), cf.Config.Spec.SlotsPerEpoch))
	return &cf.Config, nil
}

// ValidatorPubkeys decodes the hex pubkeys of the genesis validator set.
func (g *GenesisConfig) ValidatorPubkeys() ([]types.PublicKey, error) {
	keys := make([]types.PublicKey, len(g.Validators))
	for i, v := range g.Validators {
		raw, err := hex.DecodeString(v.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("validator %d pubkey: %w", i, err)
		}
		if len(raw) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("validator %d pubkey: expected %d bytes, got %d",
				i, ed25519.PublicKeySize, len(raw))
		}
		copy(keys[i][:], raw)
	}
	return keys, nil
}

// ValidatorBalances returns each genesis validator's starting balance. An
// unset balance falls back to the spec's maximum deposit.
func (g *GenesisConfig) ValidatorBalances() []types.Gwei {
	balances := make([]types.Gwei, len(g.Validators))
	for i, v := range g.Validators {
		balances[i] = v.Balance
		if balances[i] == 0 {
			balances[i] = g.Spec.MaxDepositAmount
		}
	}
	return balances
}

// LoadEd25519PrivKey loads an Ed25519 private key from a hex-encoded file.
func LoadEd25519PrivKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, err := hex.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key: expected %d bytes, got %d",
			ed25519.PrivateKeySize, len(key))
	}
	return ed25519.PrivateKey(key), nil
}

// StoreConfig selects and tunes the persistent store backend.
type StoreConfig struct {
	Backend   string `ini:"backend"`
	Directory string `ini:"directory"`
}

// Validate checks the store configuration.
func (sc *StoreConfig) Validate() error {
	switch sc.Backend {
	case "leveldb", "bolt", "memory":
	case "":
		return fmt.Errorf("store backend cannot be empty")
	default:
		return fmt.Errorf("unsupported store backend: %s", sc.Backend)
	}
	if sc.Backend != "memory" && sc.Directory == "" {
		return fmt.Errorf("store directory cannot be empty for backend %s", sc.Backend)
	}
	return nil
}

// NodeConfig is the node-local tuning file (node.ini).
type NodeConfig struct {
	Store StoreConfig
}

// LoadNodeConfig reads node tuning from an .ini file.
func LoadNodeConfig(path string) (*NodeConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	nc := &NodeConfig{}
	if err := cfg.Section("store").MapTo(&nc.Store); err != nil {
		return nil, err
	}
	if err := nc.Store.Validate(); err != nil {
		return nil, err
	}
	return nc, nil
}
