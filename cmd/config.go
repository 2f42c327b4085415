package cmd

import (
	"fmt"

	"github.com/kpelzel/artnode/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Print the configuration after applying defaults, the config file and ARTNODE_ environment overrides",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(configFile)
			if err != nil {
				logrus.Fatalf("failed to load config: %v", err)
			}
			out, err := cfg.Dump()
			if err != nil {
				logrus.Fatalf("failed to marshal config: %v", err)
			}
			fmt.Print(string(out))
		},
	}
)

func init() {
	RootCmd.AddCommand(configCmd)
}
