package cmd

import (
	"fmt"

	"github.com/kpelzel/artnode/internal/version"
	"github.com/spf13/cobra"
)

var (
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the firmware version",
		Long:  "Print the firmware version",
		Run: func(cmd *cobra.Command, args []string) {
			v := version.Get()
			fmt.Printf("artnode %v (built %v, commit %v)\n", v.Version, v.BuildTime, v.CommitID)
		},
	}
)

func init() {
	RootCmd.AddCommand(versionCmd)
}
