package service

import (
	"archive/zip"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/courseforge/backend/internal/config"
	"github.com/courseforge/backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExtractionService() *ExtractionService {
	return NewExtractionService(config.ExtractionConfig{TesseractBin: "tesseract"})
}

func TestExtractPlainText(t *testing.T) {
	svc := newExtractionService()

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text content here"), 0644))

	text, err := svc.ExtractFile(path, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "plain text content here", text)
}

func TestExtractEmptyFileFails(t *testing.T) {
	svc := newExtractionService()

	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, []byte("   \n  "), 0644))

	_, err := svc.ExtractFile(path, "text/plain")
	assert.ErrorIs(t, err, util.ErrExtractionFailed)
}

func TestExtractUnsupportedType(t *testing.T) {
	svc := newExtractionService()

	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01}, 0644))

	_, err := svc.ExtractFile(path, "application/octet-stream")
	assert.ErrorIs(t, err, util.ErrExtractionFailed)
}

func writeDocx(t *testing.T, dir, documentXML string) string {
	t.Helper()
	path := filepath.Join(dir, "doc.docx")

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	entry, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = entry.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return path
}

func TestExtractDocx(t *testing.T) {
	svc := newExtractionService()

	xml := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`
	path := writeDocx(t, t.TempDir(), xml)

	text, err := svc.ExtractFile(path, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	require.NoError(t, err)
	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "Second paragraph.")
	assert.Contains(t, text, "\n", "paragraph boundaries become newlines")
}

func TestExtractDocxMissingDocument(t *testing.T) {
	svc := newExtractionService()

	path := filepath.Join(t.TempDir(), "hollow.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	entry, err := w.Create("word/other.xml")
	require.NoError(t, err)
	_, err = entry.Write([]byte("<x/>"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	_, err = svc.ExtractFile(path, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	assert.ErrorIs(t, err, util.ErrExtractionFailed)
}

func TestHTMLToText(t *testing.T) {
	page := `<html><head>
		<style>body { color: red }</style>
		<script>var hidden = "should not appear";</script>
	</head><body>
		<h1>Welcome</h1>
		<p>Some   visible
		text.</p>
		<noscript>also hidden</noscript>
	</body></html>`

	text := HTMLToText(strings.NewReader(page))
	assert.Contains(t, text, "Welcome")
	assert.Contains(t, text, "Some visible text.")
	assert.NotContains(t, text, "should not appear")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "also hidden")
}

func TestExtractLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>Article body text.</p></body></html>"))
	}))
	defer server.Close()

	svc := newExtractionService()
	text, err := svc.ExtractLink(t.Context(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "Article body text.")
}

func TestExtractLinkErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	svc := newExtractionService()
	_, err := svc.ExtractLink(t.Context(), server.URL)
	assert.ErrorIs(t, err, util.ErrExtractionFailed)
}

func TestExtractLinkEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><script>only()</script></body></html>"))
	}))
	defer server.Close()

	svc := newExtractionService()
	_, err := svc.ExtractLink(t.Context(), server.URL)
	assert.ErrorIs(t, err, util.ErrExtractionFailed)
}
