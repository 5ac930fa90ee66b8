package cli

import (
	"errors"
	"fmt"

	"github.com/BartekS5/cardsync/pkg/models"
	"github.com/spf13/cobra"
)

type ConvertOptions struct {
	CardID int
	Host   string
}

func NewConvertCmd(root *RootOptions) *cobra.Command {
	opts := &ConvertOptions{}

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Print the SQL a structured card compiles to",
		RunE: func(c *cobra.Command, args []string) error {
			return runConvert(c, root, opts)
		},
	}

	cmd.Flags().IntVar(&opts.CardID, "card", 0, "Card id on the server")
	cmd.Flags().StringVar(&opts.Host, "server", "", "Configured server host")
	cmd.MarkFlagRequired("card")
	cmd.MarkFlagRequired("server")
	return cmd
}

func runConvert(c *cobra.Command, root *RootOptions, opts *ConvertOptions) error {
	ctx := c.Context()
	a, err := newApp(ctx, appOptions{configPath: root.ConfigFile})
	if err != nil {
		return err
	}
	srv, err := a.server(opts.Host)
	if err != nil {
		return err
	}

	client := a.client(srv)
	if srv.SessionToken == "" {
		if srv.SessionToken, err = client.Login(ctx, srv.Email, srv.Password); err != nil {
			return err
		}
	}

	card, err := client.GetCard(ctx, opts.CardID)
	if err != nil {
		return err
	}
	if card.DatasetQuery.Type == models.QueryTypeNative {
		return errors.New("card is already a native query")
	}
	sql, err := client.ConvertToNative(ctx, card.DatasetQuery)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.OutOrStdout(), sql)
	return nil
}
