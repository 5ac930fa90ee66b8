package cli

import (
	"fmt"

	"github.com/BartekS5/cardsync/internal/config"
	"github.com/spf13/cobra"
)

type ConfigOptions struct {
	Offline    bool
	OutputFile string
}

func NewConfigCmd(root *RootOptions) *cobra.Command {
	opts := &ConfigOptions{}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate or export the server configuration",
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and, unless --offline, that every server answers",
		RunE: func(c *cobra.Command, args []string) error {
			_, err := newApp(c.Context(), appOptions{configPath: root.ConfigFile, hydrate: !opts.Offline})
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), "Configuration is valid.")
			return nil
		},
	}
	validate.Flags().BoolVar(&opts.Offline, "offline", false, "Skip contacting the servers")

	export := &cobra.Command{
		Use:   "export",
		Short: "Write the configuration with fresh session tokens",
		RunE: func(c *cobra.Command, args []string) error {
			a, err := newApp(c.Context(), appOptions{configPath: root.ConfigFile, hydrate: true})
			if err != nil {
				return err
			}
			if err := config.SaveServers(opts.OutputFile, a.servers); err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "Exported configuration to %s\n", opts.OutputFile)
			return nil
		},
	}
	export.Flags().StringVarP(&opts.OutputFile, "output", "o", "servers.export.json", "Destination file (.json, .yaml or .yml)")

	cmd.AddCommand(validate, export)
	return cmd
}
