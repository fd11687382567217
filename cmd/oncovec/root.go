package main

import (
	"github.com/spf13/cobra"
)

func NewRootCmd(version string, a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "oncovec",
		Short: "Oncology document vector search",
		Long: `Store oncology abstracts and documents, embed them, and answer
similarity queries restricted to the oncology domain.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)

	if a != nil {
		rootCmd.AddCommand(
			NewServerCmd(a),
			NewIngestCmd(a),
			NewAddCmd(a),
			NewQueryCmd(a),
			NewStatusCmd(a),
			NewTUICmd(a),
			NewVersionCmd(version),
		)
	}

	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", defaultConfigPath, "Config file path")
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().String("server", "", "URL of a running oncovec server (empty = open the stores directly)")
}
