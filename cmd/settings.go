package cmd

import (
	"fmt"

	"github.com/kpelzel/artnode/internal/config"
	"github.com/kpelzel/artnode/internal/settings"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	settingsCmd = &cobra.Command{
		Use:   "settings",
		Short: "Show the persisted device settings",
		Long:  "Show the persisted device settings. The node must not be running.",
		Run: func(cmd *cobra.Command, args []string) {
			store := openStore()
			defer store.Close()

			out, err := yaml.Marshal(store.Current())
			if err != nil {
				logrus.Fatalf("failed to marshal settings: %v", err)
			}
			fmt.Print(string(out))
			fmt.Printf("# uid: %x\n", store.UID())
		},
	}

	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Restore factory default settings",
		Long:  "Restore factory default settings. The node must not be running.",
		Run: func(cmd *cobra.Command, args []string) {
			store := openStore()
			defer store.Close()

			if err := store.Reset(); err != nil {
				logrus.Fatalf("failed to reset settings: %v", err)
			}
			logrus.Info("settings reset to factory defaults")
		},
	}
)

func openStore() *settings.Store {
	cfg, err := config.Load(configFile)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	store, err := settings.Open(cfg.Store.Path)
	if err != nil {
		logrus.Fatalf("failed to open settings: %v", err)
	}
	return store
}

func init() {
	settingsCmd.AddCommand(resetCmd)
	RootCmd.AddCommand(settingsCmd)
}
