package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hyperjump/oncovec/internal/cli"
	"github.com/hyperjump/oncovec/internal/extract"
	"github.com/hyperjump/oncovec/internal/indexer"
)

func NewIngestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Ingest files or directories",
		Long: `Extract text from files (PDF, DOCX, ODT, RTF, XLSX, plain text) and add
them as documents. Directories are walked recursively.`,
		Args: cobra.MinimumNArgs(1),
		RunE: makeIngestRunner(a),
	}

	cmd.Flags().String("title", "", "Document title (single file only; defaults to the file name)")
	cmd.Flags().Bool("json", false, "Output in JSON format")
	return cmd
}

func makeIngestRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		if title != "" && len(args) > 1 {
			return fmt.Errorf("--title can only be used with a single file")
		}

		var ids []string
		var err error
		if client := a.client(cmd); client != nil {
			ids, err = ingestRemote(cmd, client, args, title)
		} else {
			ids, err = ingestLocal(cmd, a, args, title)
		}
		if err != nil {
			return err
		}
		return cli.WriteDocumentIDs(cmd.OutOrStdout(), ids, outputFormat(cmd))
	}
}

func ingestLocal(cmd *cobra.Command, a *app, paths []string, title string) ([]string, error) {
	comps, err := a.open(cmd)
	if err != nil {
		return nil, err
	}
	defer comps.Close(cmd.Context())

	ctx := cmd.Context()
	var ids []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return ids, err
		}
		if info.IsDir() {
			got, err := comps.Indexer.IngestDirectory(ctx, path, ingestExtensions(comps.Config.Watch.Extensions))
			ids = append(ids, got...)
			if err != nil {
				return ids, fmt.Errorf("ingest %s: %w", path, err)
			}
			continue
		}
		if title != "" {
			content, err := os.ReadFile(path)
			if err != nil {
				return ids, err
			}
			got, err := comps.Indexer.IngestUpload(ctx, content, path, title)
			if err != nil {
				return ids, fmt.Errorf("ingest %s: %w", path, err)
			}
			ids = append(ids, got...)
			continue
		}
		got, err := comps.Indexer.IngestFile(ctx, path)
		if err != nil {
			return ids, fmt.Errorf("ingest %s: %w", path, err)
		}
		ids = append(ids, got...)
	}
	return ids, nil
}

func ingestRemote(cmd *cobra.Command, client *cli.Client, paths []string, title string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() && indexer.ExtensionAllowed(filepath.Ext(p), extract.SupportedExtensions) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	var ids []string
	for _, file := range files {
		got, err := client.UploadFile(cmd.Context(), file, title)
		if err != nil {
			return ids, fmt.Errorf("upload %s: %w", file, err)
		}
		ids = append(ids, got...)
	}
	return ids, nil
}

func ingestExtensions(configured []string) []string {
	if len(configured) > 0 {
		return configured
	}
	return extract.SupportedExtensions
}
