package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/oncovec/internal/cli"
	"github.com/hyperjump/oncovec/internal/models"
)

func NewQueryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Find the documents closest to a query",
		Long: `Embed the query and return the nearest oncology documents. Queries that
mention no oncology keyword are rejected without searching.`,
		Args: cobra.MinimumNArgs(1),
		RunE: makeQueryRunner(a),
	}

	cmd.Flags().IntP("top-k", "k", 0, "Number of documents to return (0 = query.default_top_k)")
	cmd.Flags().Bool("json", false, "Output in JSON format")
	return cmd
}

func makeQueryRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		topK, _ := cmd.Flags().GetInt("top-k")

		var resp *models.QueryResponse
		if client := a.client(cmd); client != nil {
			got, err := client.Query(cmd.Context(), text, topK)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			resp = got
		} else {
			comps, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer comps.Close(cmd.Context())
			got, err := comps.Engine.Query(cmd.Context(), &models.QueryRequest{Query: text, TopK: topK})
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			resp = got
		}
		return cli.WriteQueryResponse(cmd.OutOrStdout(), resp, outputFormat(cmd))
	}
}
