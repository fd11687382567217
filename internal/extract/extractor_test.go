package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/oncovec/internal/models"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("Hello world\nLine 2"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Hello world\nLine 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("hello\x80world"), ".md")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "hello�world" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_unknownExtension(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("raw content"), ".xyz")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "raw content" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_excel(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes(excelBytes(t, [][]string{{"Title"}, {"Value 1", "Value 2"}}), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Title\nValue 1\tValue 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docx(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes(docxBytes("word/document.xml", false,
		`<w:p><w:r><w:t>Tumor</w:t></w:r><w:r><w:t xml:space="preserve"> board notes</w:t></w:r></w:p>`+
			`<w:p w:rsidR="00AB"><w:r><w:t>Second paragraph</w:t></w:r></w:p>`), ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Tumor board notes\nSecond paragraph" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxMainPartFromContentTypes(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes(docxBytes("word/document2.xml", true,
		`<w:p><w:r><w:t>Content from document2</w:t></w:r></w:p>`), ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Content from document2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_failuresWrapExtractionFailure(t *testing.T) {
	e := NewExtractor()
	for _, ext := range []string{".pdf", ".docx", ".xlsx"} {
		_, err := e.ExtractBytes([]byte("definitely not a document"), ext)
		if !errors.Is(err, models.ErrExtractionFailure) {
			t.Errorf("%s: expected ErrExtractionFailure, got %v", ext, err)
		}
	}
}

func TestExtract_nonexistent(t *testing.T) {
	_, err := NewExtractor().Extract("/nonexistent/path/file.txt")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
	if errors.Is(err, models.ErrExtractionFailure) {
		t.Error("a missing file is not an extraction failure")
	}
}

func TestExtractDocuments_plainFileTitledByName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "melanoma-notes.txt")
	if err := os.WriteFile(path, []byte("  Melanoma staging summary \n"), 0600); err != nil {
		t.Fatal(err)
	}
	docs, err := NewExtractor().ExtractDocuments(path)
	if err != nil {
		t.Fatalf("ExtractDocuments: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Title != "melanoma-notes" || docs[0].Body != "Melanoma staging summary" || docs[0].Source != path {
		t.Errorf("got %+v", docs[0])
	}
}

func TestExtractDocuments_emptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.md")
	if err := os.WriteFile(path, []byte("  \n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := NewExtractor().ExtractDocuments(path)
	if !errors.Is(err, models.ErrExtractionFailure) {
		t.Errorf("expected ErrExtractionFailure, got %v", err)
	}
}

func TestExtractDocuments_xlsxRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papers.xlsx")
	content := excelBytes(t, [][]string{
		{"ID", "Title", "Abstract"},
		{"1", "AI in Oncology", "Deep learning for tumor detection"},
		{"2", "Empty row", ""},
		{"3", "Radiomics Review", "Quantitative imaging for cancer"},
	})
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}

	docs, err := NewExtractor().ExtractDocuments(path)
	if err != nil {
		t.Fatalf("ExtractDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(docs), docs)
	}
	if docs[0].Title != "AI in Oncology" || docs[0].Body != "Deep learning for tumor detection" {
		t.Errorf("record 0: %+v", docs[0])
	}
	if docs[1].Title != "Radiomics Review" || docs[1].Source != path {
		t.Errorf("record 1: %+v", docs[1])
	}
}

func TestExtractDocuments_xlsxWithoutHeaderIsOneDocument(t *testing.T) {
	content := excelBytes(t, [][]string{{"Searchable text"}})
	docs, err := NewExtractor().ExtractDocumentsBytes(content, "sheet.xlsx", "upload")
	if err != nil {
		t.Fatalf("ExtractDocumentsBytes: %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "sheet" || docs[0].Body != "Searchable text" {
		t.Errorf("got %+v", docs)
	}
}

func TestRecordColumns(t *testing.T) {
	tests := []struct {
		header          []string
		wantTitle, want int
	}{
		{[]string{"Title", "Abstract"}, 0, 1},
		{[]string{" body ", "TITLE"}, 1, 0},
		{[]string{"title", "content", "abstract"}, 0, 2},
		{[]string{"name", "abstract"}, -1, 1},
		{nil, -1, -1},
	}
	for _, tt := range tests {
		gotTitle, gotBody := recordColumns(tt.header)
		if gotTitle != tt.wantTitle || gotBody != tt.want {
			t.Errorf("recordColumns(%v) = %d, %d; want %d, %d", tt.header, gotTitle, gotBody, tt.wantTitle, tt.want)
		}
	}
}

func excelBytes(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		for c, v := range row {
			cellName, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellValue("Sheet1", cellName, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	return buf.Bytes()
}

// docxBytes builds a minimal .docx whose main part at docPath wraps body.
func docxBytes(docPath string, withContentTypes bool, body string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	if withContentTypes {
		ct, _ := w.Create("[Content_Types].xml")
		_, _ = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml" PartName="/` + docPath + `"/>
</Types>`))
	}
	fw, _ := w.Create(docPath)
	_, _ = fw.Write([]byte(`<w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}
