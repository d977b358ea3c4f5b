package cmd

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"lumen/config"
	"lumen/logx"
)

var (
	initDir        string
	initValidators int
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate genesis and node configuration for a local devnet",
	RunE: func(cmd *cobra.Command, args []string) error {
		return initConfigs()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to write configuration into")
	initCmd.Flags().IntVar(&initValidators, "validators", 8, "Number of genesis validators to generate")
}

func initConfigs() error {
	if initValidators <= 0 {
		return fmt.Errorf("validator count must be positive")
	}
	keyDir := filepath.Join(initDir, "keys")
	if err := os.MkdirAll(keyDir, 0o755); err != nil {
		return err
	}

	spec := config.MinimalSpec()
	genesis := config.GenesisConfig{Spec: *spec}
	for i := 0; i < initValidators; i++ {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return err
		}
		keyPath := filepath.Join(keyDir, fmt.Sprintf("validator_%d.hex", i))
		if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(priv)), 0o600); err != nil {
			return err
		}
		genesis.Validators = append(genesis.Validators, config.GenesisValidator{
			Pubkey:  hex.EncodeToString(pub),
			Balance: spec.MaxDepositAmount,
		})
	}

	raw, err := yaml.Marshal(map[string]config.GenesisConfig{"config": genesis})
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(initDir, "genesis.yml"), raw, 0o644); err != nil {
		return err
	}

	nodeIni := "[store]\nbackend = leveldb\ndirectory = " + filepath.Join(initDir, "chaindata") + "\n"
	if err := os.WriteFile(filepath.Join(initDir, "node.ini"), []byte(nodeIni), 0o644); err != nil {
		return err
	}

	logx.Info("cmd", "wrote genesis.yml and node.ini with ", initValidators, " validators")
	return nil
}
