package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/oncovec/internal/cli"
	"github.com/hyperjump/oncovec/internal/models"
	"github.com/hyperjump/oncovec/internal/server"
)

func NewStatusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store, index and embedding status",
		Args:  cobra.NoArgs,
		RunE:  makeStatusRunner(a),
	}

	cmd.Flags().Bool("json", false, "Output in JSON format")
	return cmd
}

func makeStatusRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		var report *models.StatusReport
		if client := a.client(cmd); client != nil {
			got, err := client.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			report = got
		} else {
			comps, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer comps.Close(cmd.Context())
			got, err := server.BuildStatus(cmd.Context(), comps.Store, comps.Storage, comps.Blobs, comps.Filter, comps.Config)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			report = got
		}
		return cli.WriteStatus(cmd.OutOrStdout(), report, outputFormat(cmd))
	}
}
