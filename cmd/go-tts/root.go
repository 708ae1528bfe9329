package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-tts/internal/config"
	"github.com/teslashibe/go-tts/internal/log"
)

var (
	cfgFile   string
	activeCfg *config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "go-tts",
		Short:         "Text-to-speech over Volcano and OpenAI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = &loaded
			log.Init(loaded.LogLevel, loaded.LogFormat)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSynthCmd())
	cmd.AddCommand(newVoicesCmd())

	return cmd
}

func requireConfig() (config.Config, error) {
	if activeCfg == nil {
		return config.Config{}, fmt.Errorf("configuration not loaded")
	}
	return *activeCfg, nil
}
