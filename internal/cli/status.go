package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type StatusOptions struct {
	Output string
}

func NewStatusCmd(root *RootOptions) *cobra.Command {
	opts := &StatusOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the sync status of every source entity on every destination",
		RunE: func(c *cobra.Command, args []string) error {
			return runStatus(c, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", outputTable, "Output format: table or json")
	return cmd
}

func runStatus(c *cobra.Command, root *RootOptions, opts *StatusOptions) error {
	if err := checkOutput(opts.Output); err != nil {
		return err
	}
	ctx := c.Context()
	a, err := newApp(ctx, appOptions{configPath: root.ConfigFile, hydrate: true, withStore: true})
	if err != nil {
		return err
	}
	defer a.close(ctx)

	s, err := a.syncer()
	if err != nil {
		return err
	}
	_, statuses, err := a.reconcile(ctx, s)
	if err != nil {
		return err
	}
	return printStatuses(c.OutOrStdout(), opts.Output, statuses)
}

func checkOutput(format string) error {
	if format != outputTable && format != outputJSON {
		return fmt.Errorf("unknown output format %q (want %s or %s)", format, outputTable, outputJSON)
	}
	return nil
}
