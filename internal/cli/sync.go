package cli

import (
	"errors"
	"fmt"

	"github.com/BartekS5/cardsync/pkg/logger"
	"github.com/BartekS5/cardsync/pkg/models"
	"github.com/spf13/cobra"
)

type SyncOptions struct {
	All      bool
	Ready    bool
	Outdated bool
	Names    []string
	DryRun   bool
	Output   string
}

func NewSyncCmd(root *RootOptions) *cobra.Command {
	opts := &SyncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy the selected cards and dashboards to the destination servers",
		Long: `Reconciles every source entity against every destination, then syncs the
selected rows: plain cards first, then cards depending on other cards, then
dashboards. Excluded rows are never synced.`,
		RunE: func(c *cobra.Command, args []string) error {
			return runSync(c, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "Select every row")
	cmd.Flags().BoolVar(&opts.Ready, "ready", false, "Select rows without a destination counterpart")
	cmd.Flags().BoolVar(&opts.Outdated, "outdated", false, "Select rows whose counterpart differs")
	cmd.Flags().StringArrayVar(&opts.Names, "name", nil, "Select rows by entity name (repeatable)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the selection without syncing")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", outputTable, "Output format: table or json")
	return cmd
}

var errNothingSelected = errors.New("nothing selected; use --all, --ready, --outdated or --name")

// selectStatuses applies the selection flags. Excluded rows are dropped.
func selectStatuses(statuses []*models.SyncStatus, opts *SyncOptions) []*models.SyncStatus {
	names := make(map[string]bool, len(opts.Names))
	for _, n := range opts.Names {
		names[n] = true
	}

	var selected []*models.SyncStatus
	for _, st := range statuses {
		if st.Excluded {
			continue
		}
		if opts.All ||
			(opts.Ready && st.Status == models.StatusReady) ||
			(opts.Outdated && st.Status == models.StatusOutdated) ||
			names[st.Entity.Name()] {
			st.Checked = true
			selected = append(selected, st)
		}
	}
	return selected
}

func runSync(c *cobra.Command, root *RootOptions, opts *SyncOptions) error {
	if err := checkOutput(opts.Output); err != nil {
		return err
	}
	if !opts.All && !opts.Ready && !opts.Outdated && len(opts.Names) == 0 {
		return errNothingSelected
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
	sources, statuses, err := a.reconcile(ctx, s)
	if err != nil {
		return err
	}

	selected := selectStatuses(statuses, opts)
	if len(selected) == 0 {
		fmt.Fprintln(c.OutOrStdout(), "Nothing to sync.")
		return nil
	}
	if opts.DryRun {
		return printStatuses(c.OutOrStdout(), opts.Output, selected)
	}

	res, err := s.Run(ctx, sources, selected, func(st *models.SyncStatus) {
		logger.Debugf("%s: %s", st.ID, st.Status)
	})
	if err != nil {
		return err
	}
	if err := printResult(c.OutOrStdout(), opts.Output, res); err != nil {
		return err
	}
	if res.Outcome == models.OutcomeFailure {
		return fmt.Errorf("batch %s failed: %d of %d items failed", res.BatchID, res.Failed, res.Failed+res.Succeeded)
	}
	return nil
}
