package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingIngestion captures watcher-triggered calls and whether their
// contexts carried a deadline.
type recordingIngestion struct {
	mu        sync.Mutex
	replaced  []string
	removed   []string
	deadlines []bool
}

func (r *recordingIngestion) IngestDocument(ctx context.Context, chatID string, _ []byte, _ string) (*IngestStats, error) {
	return r.record(ctx, chatID)
}

func (r *recordingIngestion) ReplaceDocument(ctx context.Context, chatID string, _ []byte, _ string) (*IngestStats, error) {
	return r.record(ctx, chatID)
}

func (r *recordingIngestion) RemoveDocument(ctx context.Context, chatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, bounded := ctx.Deadline()
	r.removed = append(r.removed, chatID)
	r.deadlines = append(r.deadlines, bounded)
	return nil
}

func (r *recordingIngestion) record(ctx context.Context, chatID string) (*IngestStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, bounded := ctx.Deadline()
	r.replaced = append(r.replaced, chatID)
	r.deadlines = append(r.deadlines, bounded)
	return &IngestStats{Pages: 1, Chunks: 1}, nil
}

func TestScanDirectoryIngestsWithBoundedContext(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "42.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644))

	rec := &recordingIngestion{}
	watcher := NewDocumentWatcher(rec)
	watcher.ScanDirectory(context.Background(), dir)

	require.Len(t, rec.replaced, 1)
	assert.Equal(t, "42", rec.replaced[0])
	assert.True(t, rec.deadlines[0], "watcher ingestions must carry a deadline")
}

func TestScanDirectorySkipsUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "42.pdf"), []byte("%PDF"), 0o644))

	rec := &recordingIngestion{}
	watcher := NewDocumentWatcher(rec)
	watcher.ScanDirectory(context.Background(), dir)
	watcher.ScanDirectory(context.Background(), dir)
	assert.Len(t, rec.replaced, 1, "an unchanged file must not be re-ingested")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "42.pdf"), []byte("%PDF updated"), 0o644))
	watcher.ScanDirectory(context.Background(), dir)
	assert.Len(t, rec.replaced, 2)
}
