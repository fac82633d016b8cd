package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pharmachain/internal/platform/config"
)

var version = "dev"

// cli carries the parsed configuration to subcommands.
type cli struct {
	cfgFile string
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "pharmachain",
		Short:         "Pharmaceutical batch lifecycle registry",
		Long:          `Records the custody and condition history of pharmaceutical batches and publishes every change as an ordered event stream.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(viper.New(), c.cfgFile)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "",
		"config file (YAML); PHARMA_* environment variables override it")

	root.AddCommand(
		newServeCmd(c),
		newMigrateCmd(c),
		newTokenCmd(c),
	)
	return root
}
