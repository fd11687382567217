package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hyperjump/oncovec/internal/models"
	"github.com/hyperjump/oncovec/internal/search"
	"github.com/hyperjump/oncovec/internal/tui"
)

func NewTUICmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Search interactively in the terminal",
		Long: `Open a terminal search screen. Enter runs the query, up and down move
between results, ctrl+c or esc quits.`,
		Args: cobra.NoArgs,
		RunE: makeTUIRunner(a),
	}

	cmd.Flags().IntP("top-k", "k", 0, "Number of documents to return (0 = query.default_top_k)")
	return cmd
}

func makeTUIRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		topK, _ := cmd.Flags().GetInt("top-k")

		var (
			querier tui.Querier
			summary string
		)
		if client := a.client(cmd); client != nil {
			querier = client
			summary = "server " + flagValue(cmd, "server")
		} else {
			comps, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer comps.Close(cmd.Context())
			querier = engineQuerier{comps.Engine}
			summary = fmt.Sprintf("%d documents, %d dimensions", comps.Store.Count(), comps.Store.Dimensions())
		}

		m := tui.New(querier, summary, topK)
		if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run(); err != nil {
			return fmt.Errorf("tui: %w", err)
		}
		return nil
	}
}

// engineQuerier adapts the local search engine to the TUI.
type engineQuerier struct {
	engine *search.Engine
}

func (q engineQuerier) Query(ctx context.Context, query string, topK int) (*models.QueryResponse, error) {
	return q.engine.Query(ctx, &models.QueryRequest{Query: query, TopK: topK})
}
