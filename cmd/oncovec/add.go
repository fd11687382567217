package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/oncovec/internal/cli"
)

func NewAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a document from title and body text",
		Long:  `Add one document. Use --body - to read the body from stdin.`,
		Args:  cobra.NoArgs,
		RunE:  makeAddRunner(a),
	}

	cmd.Flags().StringP("title", "t", "", "Document title")
	cmd.Flags().StringP("body", "b", "", "Document body or abstract (- reads stdin)")
	cmd.Flags().Bool("json", false, "Output in JSON format")
	return cmd
}

func makeAddRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		title, _ := cmd.Flags().GetString("title")
		body, _ := cmd.Flags().GetString("body")
		if body == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			body = string(data)
		}
		if strings.TrimSpace(body) == "" {
			return fmt.Errorf("--body is required")
		}

		var id string
		if client := a.client(cmd); client != nil {
			got, err := client.AddDocument(cmd.Context(), title, body)
			if err != nil {
				return fmt.Errorf("add document: %w", err)
			}
			id = got
		} else {
			comps, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer comps.Close(cmd.Context())
			got, err := comps.Indexer.Ingest(cmd.Context(), title, body)
			if err != nil {
				return fmt.Errorf("add document: %w", err)
			}
			id = got
		}
		return cli.WriteDocumentIDs(cmd.OutOrStdout(), []string{id}, outputFormat(cmd))
	}
}
