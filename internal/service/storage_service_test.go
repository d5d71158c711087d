package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/courseforge/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStorage(t *testing.T) (*LocalStorageProvider, string) {
	t.Helper()
	dir := t.TempDir()
	return &LocalStorageProvider{Config: &config.StorageConfig{Type: "local", LocalPath: dir}}, dir
}

func TestLocalStorageRoundTrip(t *testing.T) {
	provider, dir := newLocalStorage(t)

	body := "source document bytes"
	url, err := provider.Upload(t.Context(), "sources/doc.txt", strings.NewReader(body), int64(len(body)), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/sources/doc.txt", url)

	stored, err := os.ReadFile(filepath.Join(dir, "sources", "doc.txt"))
	require.NoError(t, err)
	assert.Equal(t, body, string(stored))

	require.NoError(t, provider.Delete(t.Context(), "sources/doc.txt"))
	_, err = os.Stat(filepath.Join(dir, "sources", "doc.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorageUploadFile(t *testing.T) {
	provider, dir := newLocalStorage(t)

	src := filepath.Join(t.TempDir(), "upload.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF-1.4 fake"), 0644))

	url, err := provider.UploadFile(t.Context(), "sources/upload.pdf", src, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/sources/upload.pdf", url)

	stored, err := os.ReadFile(filepath.Join(dir, "sources", "upload.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(stored))

	// the original file is left alone; the orchestrator owns its removal
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestStorageServiceFallsBackToLocal(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Type = "local"
	cfg.Storage.LocalPath = t.TempDir()

	svc := NewStorageService(cfg)
	_, ok := svc.Provider.(*LocalStorageProvider)
	assert.True(t, ok)
}
