package cmd

import (
	"github.com/kpelzel/artnode/internal/render"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Scan for BLE lights usable by the ble output driver",
		Long:  "Scan for BLE lights usable by the ble output driver",
		Run: func(cmd *cobra.Command, args []string) {
			if err := render.Scan(); err != nil {
				logrus.Fatalf("failed to scan: %v", err)
			}
		},
	}
)

func init() {
	RootCmd.AddCommand(scanCmd)
}
