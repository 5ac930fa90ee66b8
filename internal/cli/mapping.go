package cli

import (
	"errors"
	"fmt"

	"github.com/BartekS5/cardsync/pkg/models"
	"github.com/spf13/cobra"
)

type MappingOptions struct {
	EntityID string
	Type     string
	Output   string
	Yes      bool
}

func NewMappingCmd(root *RootOptions) *cobra.Command {
	opts := &MappingOptions{}

	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Inspect or reset the recorded source-to-destination mappings",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List mappings, optionally for one source entity",
		RunE: func(c *cobra.Command, args []string) error {
			return runMappingList(c, root, opts)
		},
	}
	list.Flags().StringVar(&opts.EntityID, "entity", "", "Source entity id (card entity_id or dashboard id)")
	list.Flags().StringVar(&opts.Type, "type", "", "Entity type: card or dashboard")
	list.Flags().StringVarP(&opts.Output, "output", "o", outputTable, "Output format: table or json")

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Delete every mapping touching a configured server",
		RunE: func(c *cobra.Command, args []string) error {
			return runMappingReset(c, root, opts)
		},
	}
	reset.Flags().BoolVar(&opts.Yes, "yes", false, "Confirm the deletion")

	cmd.AddCommand(list, reset)
	return cmd
}

func runMappingList(c *cobra.Command, root *RootOptions, opts *MappingOptions) error {
	if err := checkOutput(opts.Output); err != nil {
		return err
	}
	t := models.EntityType(opts.Type)
	if t != "" && t != models.EntityCard && t != models.EntityDashboard {
		return fmt.Errorf("unknown entity type %q", opts.Type)
	}

	ctx := c.Context()
	a, err := newApp(ctx, appOptions{configPath: root.ConfigFile, withStore: true})
	if err != nil {
		return err
	}
	defer a.close(ctx)

	mappings, err := a.store.Find(ctx, models.MappingFilter{SourceEntityID: opts.EntityID, Type: t})
	if err != nil {
		return err
	}
	return printMappings(c.OutOrStdout(), opts.Output, mappings)
}

func runMappingReset(c *cobra.Command, root *RootOptions, opts *MappingOptions) error {
	if !opts.Yes {
		return errors.New("refusing to delete mappings without --yes")
	}

	ctx := c.Context()
	a, err := newApp(ctx, appOptions{configPath: root.ConfigFile, withStore: true})
	if err != nil {
		return err
	}
	defer a.close(ctx)

	n, err := a.store.Purge(ctx, a.servers.Hosts())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "Deleted %d mappings.\n", n)
	return nil
}
