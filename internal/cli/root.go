package cli

import (
	"github.com/spf13/cobra"
)

type RootOptions struct {
	ConfigFile string
}

func NewRootCmd() *cobra.Command {
	opts := &RootOptions{}

	rootCmd := &cobra.Command{
		Use:   "cardsync",
		Short: "cardsync - copy BI cards and dashboards between analytics servers",
		Long: `cardsync replicates saved questions and dashboards from source analytics
servers to destination servers. It mirrors collection folders, rewrites
queries against the destination schema by table and field name, and keeps a
mapping of what was synced so later runs update instead of duplicating.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "configs/servers.json", "Path to the server configuration (JSON or YAML)")

	rootCmd.AddCommand(
		NewStatusCmd(opts),
		NewSyncCmd(opts),
		NewMappingCmd(opts),
		NewConfigCmd(opts),
		NewConvertCmd(opts),
	)

	return rootCmd
}
