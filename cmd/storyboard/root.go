package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/crapthings/storyboard/internal/config"
	"github.com/crapthings/storyboard/internal/logger"
)

// commandContext loads the configuration once per invocation.
type commandContext struct {
	configFlag *string
	cfg        *config.Config
}

func (c *commandContext) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	if *c.configFlag != "" {
		os.Setenv("STORYBOARD_CONFIG", *c.configFlag)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)
	c.cfg = cfg
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "storyboard",
		Short:         "Storyboard asset generation server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newModelsCommand())
	rootCmd.AddCommand(newRunCommand(ctx))

	return rootCmd
}
