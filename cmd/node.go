package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lumen/chain"
	"lumen/config"
	"lumen/forkchoice"
	"lumen/logx"
	"lumen/slotclock"
	"lumen/store"
	"lumen/transition"
)

var (
	genesisPath string
	nodeCfgPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the beacon chain node",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNode()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&genesisPath, "genesis", "genesis.yml", "Path to the genesis configuration")
	runCmd.Flags().StringVar(&nodeCfgPath, "config", "node.ini", "Path to the node configuration")
}

func runNode() error {
	genesis, err := config.LoadGenesisConfig(genesisPath)
	if err != nil {
		return err
	}
	nodeCfg, err := config.LoadNodeConfig(nodeCfgPath)
	if err != nil {
		return err
	}

	spec := &genesis.Spec
	pubkeys, err := genesis.ValidatorPubkeys()
	if err != nil {
		return err
	}
	if len(pubkeys) == 0 {
		return fmt.Errorf("genesis config has no validators")
	}

	st, err := store.NewFromConfig(&nodeCfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	clock := slotclock.NewSystemClock(spec.GenesisSlot, spec.GenesisTime, spec.SecondsPerSlot)
	genesisState := transition.GenesisStateWithBalances(spec, pubkeys, genesis.ValidatorBalances(), spec.GenesisTime)
	c, err := chain.FromGenesis(st, clock, forkchoice.NewLongestChain(), genesisState, spec)
	if err != nil {
		return err
	}

	logx.Info("node", "running with ", len(pubkeys), " genesis validators, head ", c.HeadRoot().Short())

	ticker := time.NewTicker(time.Duration(spec.SecondsPerSlot) * time.Second)
	defer ticker.Stop()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			if err := c.UpdateState(); err != nil {
				logx.Error("node", "state catchup failed: ", err)
				continue
			}
			if err := c.RunForkChoice(); err != nil {
				logx.Error("node", "fork choice failed: ", err)
			}
		case <-interrupt:
			logx.Info("node", "shutting down")
			return nil
		}
	}
}
