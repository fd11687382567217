package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyperjump/oncovec/internal/config"
	"github.com/hyperjump/oncovec/internal/models"
	"github.com/hyperjump/oncovec/internal/server"
)

func testApp(t *testing.T) *app {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(dir, "db", "documents.db")
	cfg.Storage.Blob.Dir = filepath.Join(dir, "indices")
	cfg.Embedding.Provider = config.ProviderMock
	cfg.Embedding.Dimensions = 8
	require.NoError(t, cfg.Validate())
	return &app{config: cfg, logger: zap.NewNop()}
}

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("test", a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, newApp(), "version")
	require.NoError(t, err)
	assert.Equal(t, "oncovec version test\n", out)
}

func TestAddQueryStatus_local(t *testing.T) {
	a := testApp(t)

	out, err := run(t, a, "add", "--title", "Lung Cancer", "--body", "Chemotherapy outcomes for lung cancer patients.")
	require.NoError(t, err)
	assert.Contains(t, out, "Document added: ")

	out, err = run(t, a, "query", "lung", "cancer", "treatment", "--top-k", "1", "--json")
	require.NoError(t, err)
	var resp models.QueryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, models.StatusOK, resp.Status)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "Lung Cancer", resp.Documents[0].Title)

	out, err = run(t, a, "status", "--json")
	require.NoError(t, err)
	var report models.StatusReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Ready)
	assert.EqualValues(t, 1, report.Documents)
	assert.EqualValues(t, 1, report.Mappings)
	assert.Equal(t, 1, report.Vectors)
	assert.Equal(t, 8, report.Dimensions)
	assert.Equal(t, "flat", report.IndexType)
}

func TestQuery_outOfDomain(t *testing.T) {
	a := testApp(t)
	out, err := run(t, a, "query", "best pizza in town")
	require.NoError(t, err)
	assert.Equal(t, "Query is not related to oncology.", strings.TrimSpace(out))
}

func TestQuery_emptyStore(t *testing.T) {
	a := testApp(t)
	out, err := run(t, a, "query", "tumor", "growth")
	require.NoError(t, err)
	assert.Equal(t, "No relevant oncology documents found.", strings.TrimSpace(out))
}

func TestAdd_requiresBody(t *testing.T) {
	_, err := run(t, testApp(t), "add", "--title", "only a title")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--body")
}

func TestAdd_bodyFromStdin(t *testing.T) {
	a := testApp(t)
	cmd := NewRootCmd("test", a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("Radiotherapy for glioma."))
	cmd.SetArgs([]string{"add", "--body", "-"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Document added: ")
}

func TestIngest_filesAndDirectory(t *testing.T) {
	a := testApp(t)
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "melanoma.txt"), []byte("Melanoma staging and biopsy."), 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "sub", "sarcoma.md"), []byte("Sarcoma surgery outcomes."), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "sub", "image.png"), []byte{0x89, 0x50}, 0600))

	out, err := run(t, a, "ingest", docs, "--json")
	require.NoError(t, err)
	var ids map[string][]string
	require.NoError(t, json.Unmarshal([]byte(out), &ids))
	assert.Len(t, ids["document_ids"], 2)

	// Re-ingesting returns the existing ids instead of duplicating.
	out, err = run(t, a, "ingest", filepath.Join(docs, "melanoma.txt"))
	require.NoError(t, err)
	assert.Contains(t, out, ids["document_ids"][0])

	out, err = run(t, a, "status", "--json")
	require.NoError(t, err)
	var report models.StatusReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.EqualValues(t, 2, report.Documents)
}

func TestIngest_titleWithManyFiles(t *testing.T) {
	_, err := run(t, testApp(t), "ingest", "a.txt", "b.txt", "--title", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single file")
}

func TestCommands_remote(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()
	comps, err := newComponents(ctx, a.config, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, comps.Store.Open(ctx))
	defer comps.Close(ctx)

	srv := httptest.NewServer(server.NewServer(comps.Engine, comps.Indexer, comps.Store, comps.Storage,
		comps.Blobs, comps.Filter, comps.Config, zap.NewNop()).Routes())
	defer srv.Close()

	remote := &app{logger: zap.NewNop()}

	out, err := run(t, remote, "--server", srv.URL, "add", "--title", "Leukemia", "--body", "Leukemia remission rates.")
	require.NoError(t, err)
	assert.Contains(t, out, "Document added: ")

	path := filepath.Join(t.TempDir(), "lymphoma.txt")
	require.NoError(t, os.WriteFile(path, []byte("Lymphoma immunotherapy trial."), 0600))
	out, err = run(t, remote, "--server", srv.URL, "ingest", path, "--title", "Lymphoma Trial")
	require.NoError(t, err)
	assert.Contains(t, out, "Document added: ")

	out, err = run(t, remote, "--server", srv.URL, "query", "leukemia", "remission", "--json")
	require.NoError(t, err)
	var resp models.QueryResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, models.StatusOK, resp.Status)
	assert.NotEmpty(t, resp.Documents)

	out, err = run(t, remote, "--server", srv.URL, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "documents:          2")
}

func TestLoadConfig_explicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "storage:\n  database_path: ./db/documents.db\n  blob:\n    dir: ./indices\nembedding:\n  provider: mock\n  dimensions: 16\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	cmd := NewRootCmd("test", newApp())
	require.NoError(t, cmd.PersistentFlags().Set("config", path))
	require.NoError(t, cmd.PersistentFlags().Set("debug", "true"))

	cfg, err := newApp().loadConfig(cmd)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 16, cfg.Embedding.Dimensions)
	assert.Equal(t, filepath.Join(dir, "db", "documents.db"), cfg.Storage.DatabasePath)

	require.NoError(t, cmd.PersistentFlags().Set("config", filepath.Join(dir, "missing.yaml")))
	_, err = newApp().loadConfig(cmd)
	assert.Error(t, err)
}

func TestEngineQuerier(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()
	comps, err := newComponents(ctx, a.config, a.logger)
	require.NoError(t, err)
	defer comps.Close(ctx)
	require.NoError(t, comps.Store.Open(ctx))

	_, err = comps.Indexer.Ingest(ctx, "Melanoma", "Immunotherapy response in metastatic melanoma tumors.")
	require.NoError(t, err)

	resp, err := engineQuerier{comps.Engine}.Query(ctx, "melanoma tumor", 3)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, resp.Status)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "Melanoma", resp.Documents[0].Title)
}
