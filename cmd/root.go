package cmd

import (
	"os"

	"github.com/kpelzel/artnode/internal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	debug      bool
	configFile string

	RootCmd = &cobra.Command{
		Use:   "artnode",
		Short: "run the art-net pixel node",
		Long:  "receive Art-Net DMX, assemble per-port frames and present them on ArtSync",
		Run: func(cmd *cobra.Command, args []string) {
			if err := internal.StartNode(debug, configFile); err != nil {
				logrus.Fatalf("failed to run node: %v", err)
			}
		},
	}
)

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		logrus.Errorf("failed to execute command: %v", err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debugging")
	RootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "config file location")
}
