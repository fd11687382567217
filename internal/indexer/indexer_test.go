package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/oncovec/internal/blob"
	"github.com/hyperjump/oncovec/internal/embedding"
	"github.com/hyperjump/oncovec/internal/models"
	"github.com/hyperjump/oncovec/internal/storage"
	"github.com/hyperjump/oncovec/internal/vector"
)

const testDims = 8

type harness struct {
	dir     string
	storage *storage.SQLiteStorage
	store   *vector.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	st, err := storage.NewSQLiteStorage(filepath.Join(dir, "data", "documents.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	blobs, err := blob.NewLocal(filepath.Join(dir, "indices"))
	if err != nil {
		t.Fatal(err)
	}
	store := vector.NewStore(st, blobs, "vectors.ovix", testDims)
	if err := store.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	return &harness{dir: dir, storage: st, store: store}
}

func (h *harness) indexer(e embedding.Embedder, opts ...IndexerOption) *Indexer {
	return NewIndexer(h.store, h.storage, e, nil, opts...)
}

func (h *harness) counts(t *testing.T) (docs, mappings int64) {
	t.Helper()
	ctx := context.Background()
	docs, err := h.storage.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	mappings, err = h.storage.CountMappings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return docs, mappings
}

type failingEmbedder struct {
	*embedding.MockEmbedder
	calls int
}

func (f *failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	return nil, models.ErrEmbeddingUnavailable
}

func (f *failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	f.calls++
	return nil, models.ErrEmbeddingUnavailable
}

func TestIngest_StoresDocumentAndMapping(t *testing.T) {
	h := newHarness(t)
	idx := h.indexer(embedding.NewMockEmbedder(testDims))
	ctx := context.Background()

	id, err := idx.Ingest(ctx, "  AI in Oncology ", "Deep learning\n\nfor tumor   detection")
	if err != nil {
		t.Fatal(err)
	}
	doc, err := h.storage.GetDocument(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "AI in Oncology" || doc.Body != "Deep learning for tumor detection" {
		t.Errorf("unexpected doc: %+v", doc)
	}
	if doc.Checksum != models.Checksum(doc.Title, doc.Body) {
		t.Errorf("checksum not set")
	}
	resolved, err := h.store.Resolve(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.ID != id {
		t.Errorf("position 0 resolves to %s, want %s", resolved.ID, id)
	}
}

func TestIngest_EmptyBody(t *testing.T) {
	h := newHarness(t)
	_, err := h.indexer(embedding.NewMockEmbedder(testDims)).Ingest(context.Background(), "title", "   ")
	if !errors.Is(err, models.ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestIngest_EmbeddingFailureWritesNothing(t *testing.T) {
	h := newHarness(t)
	idx := h.indexer(&failingEmbedder{MockEmbedder: embedding.NewMockEmbedder(testDims)})

	_, err := idx.Ingest(context.Background(), "Melanoma", "staging overview")
	if !errors.Is(err, models.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	if docs, mappings := h.counts(t); docs != 0 || mappings != 0 {
		t.Errorf("storage changed: %d documents, %d mappings", docs, mappings)
	}
	if h.store.Count() != 0 {
		t.Errorf("index changed: %d vectors", h.store.Count())
	}
}

func TestIngest_StoreNotReady(t *testing.T) {
	h := newHarness(t)
	unopened := vector.NewStore(h.storage, nil, "vectors.ovix", testDims)
	fe := &failingEmbedder{MockEmbedder: embedding.NewMockEmbedder(testDims)}
	idx := NewIndexer(unopened, h.storage, fe, nil)

	_, err := idx.Ingest(context.Background(), "Glioma", "grading")
	if !errors.Is(err, models.ErrStoreNotReady) {
		t.Errorf("expected ErrStoreNotReady, got %v", err)
	}
	if fe.calls != 0 {
		t.Errorf("embedder called %d times before readiness check", fe.calls)
	}
}

func TestIngestMany_ContiguousPositions(t *testing.T) {
	h := newHarness(t)
	idx := h.indexer(embedding.NewMockEmbedder(testDims))
	ctx := context.Background()

	if _, err := idx.Ingest(ctx, "first", "lymphoma"); err != nil {
		t.Fatal(err)
	}
	ids, err := idx.IngestMany(ctx, []models.DocumentInput{
		{Title: "a", Body: "sarcoma"},
		{Title: "b", Content: "myeloma"},
		{Title: "c", Body: "leukemia"},
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, id := range ids {
		doc, err := h.store.Resolve(ctx, int64(i+1))
		if err != nil {
			t.Fatal(err)
		}
		if doc.ID != id {
			t.Errorf("position %d: got %s, want %s", i+1, doc.ID, id)
		}
	}
	if docs, mappings := h.counts(t); docs != 4 || mappings != 4 {
		t.Errorf("counts: %d documents, %d mappings", docs, mappings)
	}
}

func TestIngestMany_InvalidInputAbortsBatch(t *testing.T) {
	h := newHarness(t)
	_, err := h.indexer(embedding.NewMockEmbedder(testDims)).IngestMany(context.Background(), []models.DocumentInput{
		{Title: "ok", Body: "carcinoma"},
		{Title: "blank"},
	})
	if !errors.Is(err, models.ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
	if docs, _ := h.counts(t); docs != 0 {
		t.Errorf("expected nothing written, got %d documents", docs)
	}
}

func TestIngestMany_SkipsDuplicates(t *testing.T) {
	h := newHarness(t)
	idx := h.indexer(embedding.NewMockEmbedder(testDims))
	ctx := context.Background()

	first, err := idx.Ingest(ctx, "Radiomics Review", "imaging features")
	if err != nil {
		t.Fatal(err)
	}
	ids, err := idx.IngestMany(ctx, []models.DocumentInput{
		{Title: "Radiomics Review", Body: "imaging   features"},
		{Title: "New", Body: "biopsy"},
		{Title: "New", Body: "biopsy"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if ids[0] != first {
		t.Errorf("duplicate of stored doc: got %s, want %s", ids[0], first)
	}
	if ids[1] != ids[2] {
		t.Errorf("in-batch duplicates got different ids: %s, %s", ids[1], ids[2])
	}
	if docs, mappings := h.counts(t); docs != 2 || mappings != 2 {
		t.Errorf("counts: %d documents, %d mappings", docs, mappings)
	}
}

func TestIngestMany_RepeatedInputInBatch(t *testing.T) {
	h := newHarness(t)
	idx := h.indexer(embedding.NewMockEmbedder(testDims))
	ctx := context.Background()

	ids, err := idx.IngestMany(ctx, []models.DocumentInput{
		{Title: "Glioma", Body: "tumor grading"},
		{Title: "Lymphoma", Body: "staging"},
		{Title: "Glioma", Body: "tumor grading"},
		{Title: " Glioma", Body: "tumor  grading "},
	})
	if err != nil {
		t.Fatal(err)
	}
	if ids[0] == "" || ids[0] != ids[2] || ids[0] != ids[3] {
		t.Errorf("repeated input got ids %v", ids)
	}
	if ids[1] == ids[0] {
		t.Errorf("distinct input shares id %s", ids[1])
	}
	if docs, mappings := h.counts(t); docs != 2 || mappings != 2 {
		t.Errorf("counts: %d documents, %d mappings", docs, mappings)
	}
	for pos, want := range []string{ids[0], ids[1]} {
		d, err := h.store.Resolve(ctx, int64(pos))
		if err != nil {
			t.Fatal(err)
		}
		if d.ID != want {
			t.Errorf("position %d resolves to %s, want %s", pos, d.ID, want)
		}
	}
}

// gatedEmbedder holds every EmbedBatch call until callers have arrived, so
// all of them pass the duplicate lookup before any document is stored.
type gatedEmbedder struct {
	*embedding.MockEmbedder
	arrived *sync.WaitGroup
}

func (g *gatedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	g.arrived.Done()
	g.arrived.Wait()
	return g.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestIngestMany_ConcurrentDuplicatesStoredOnce(t *testing.T) {
	h := newHarness(t)
	const callers = 4
	var arrived sync.WaitGroup
	arrived.Add(callers)
	idx := h.indexer(&gatedEmbedder{MockEmbedder: embedding.NewMockEmbedder(testDims), arrived: &arrived})
	ctx := context.Background()

	ids := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for c := 0; c < callers; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			ids[c], errs[c] = idx.Ingest(ctx, "Immunotherapy", "checkpoint inhibitors in melanoma")
		}(c)
	}
	wg.Wait()

	for c, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", c, err)
		}
	}
	for c, id := range ids {
		if id != ids[0] {
			t.Errorf("caller %d got %s, want %s", c, id, ids[0])
		}
	}
	if docs, mappings := h.counts(t); docs != 1 || mappings != 1 {
		t.Errorf("counts: %d documents, %d mappings", docs, mappings)
	}
	if n := h.store.Count(); n != 1 {
		t.Errorf("index holds %d vectors, want 1", n)
	}
}

func TestIngestMany_DuplicatesAllowed(t *testing.T) {
	h := newHarness(t)
	idx := h.indexer(embedding.NewMockEmbedder(testDims), WithSkipDuplicates(false))
	ctx := context.Background()

	a, _ := idx.Ingest(ctx, "t", "tumor")
	b, err := idx.Ingest(ctx, "t", "tumor")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("expected a second document")
	}
}

func TestIngestFile_PlainText(t *testing.T) {
	h := newHarness(t)
	idx := h.indexer(embedding.NewMockEmbedder(testDims))
	ctx := context.Background()

	path := filepath.Join(h.dir, "notes.txt")
	if err := os.WriteFile(path, []byte("Biopsy results summary."), 0600); err != nil {
		t.Fatal(err)
	}
	ids, err := idx.IngestFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := h.storage.GetDocument(ctx, ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "notes" || doc.Body != "Biopsy results summary." || doc.Source != path {
		t.Errorf("unexpected doc: %+v", doc)
	}
}

func TestIngestFile_SpreadsheetRecords(t *testing.T) {
	h := newHarness(t)
	idx := h.indexer(embedding.NewMockEmbedder(testDims))

	path := filepath.Join(h.dir, "papers.xlsx")
	f := excelize.NewFile()
	_ = f.SetSheetRow("Sheet1", "A1", &[]any{"title", "abstract"})
	_ = f.SetSheetRow("Sheet1", "A2", &[]any{"AI in Oncology", "tumor detection"})
	_ = f.SetSheetRow("Sheet1", "A3", &[]any{"Radiomics Review", "imaging"})
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	ids, err := idx.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(ids))
	}
}

func TestIngestFile_Errors(t *testing.T) {
	h := newHarness(t)
	idx := h.indexer(embedding.NewMockEmbedder(testDims))
	ctx := context.Background()

	if _, err := idx.IngestFile(ctx, filepath.Join(h.dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := idx.IngestFile(ctx, h.dir); err == nil {
		t.Error("expected error for directory")
	}
	bad := filepath.Join(h.dir, "broken.pdf")
	if err := os.WriteFile(bad, []byte("not a pdf"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.IngestFile(ctx, bad); !errors.Is(err, models.ErrExtractionFailure) {
		t.Errorf("expected ErrExtractionFailure, got %v", err)
	}
}

func TestIngestUpload_TitleOverride(t *testing.T) {
	h := newHarness(t)
	idx := h.indexer(embedding.NewMockEmbedder(testDims))
	ctx := context.Background()

	ids, err := idx.IngestUpload(ctx, []byte("chemotherapy regimen"), "scan.txt", "Regimen Notes")
	if err != nil {
		t.Fatal(err)
	}
	doc, err := h.storage.GetDocument(ctx, ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Regimen Notes" || doc.Source != "upload:scan.txt" {
		t.Errorf("unexpected doc: %+v", doc)
	}
}

func TestIngestDirectory(t *testing.T) {
	h := newHarness(t)
	idx := h.indexer(embedding.NewMockEmbedder(testDims))
	root := filepath.Join(h.dir, "corpus")
	sub := filepath.Join(root, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	for path, body := range map[string]string{
		filepath.Join(root, "a.txt"): "file a",
		filepath.Join(root, "b.md"):  "file b",
		filepath.Join(sub, "c.txt"):  "file c",
		filepath.Join(root, "d.xyz"): "skip",
	} {
		if err := os.WriteFile(path, []byte(body), 0600); err != nil {
			t.Fatal(err)
		}
	}

	ids, err := idx.IngestDirectory(context.Background(), root, []string{".txt", "md"})
	if err != nil {
		t.Fatalf("IngestDirectory: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("ingested %d files, want 3", len(ids))
	}
}

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		ext     string
		allowed []string
		want    bool
	}{
		{".txt", []string{".txt", ".md"}, true},
		{".TXT", []string{".txt"}, true},
		{".md", []string{"md"}, true},
		{".go", []string{".txt"}, false},
		{"", []string{".txt"}, false},
		{".pdf", nil, true},
	}
	for _, tt := range tests {
		if got := ExtensionAllowed(tt.ext, tt.allowed); got != tt.want {
			t.Errorf("ExtensionAllowed(%q, %v) = %v, want %v", tt.ext, tt.allowed, got, tt.want)
		}
	}
}

func TestPreprocess(t *testing.T) {
	if got := Preprocess("  a\tb\n\n c  "); got != "a b c" {
		t.Errorf("Preprocess = %q", got)
	}
}
