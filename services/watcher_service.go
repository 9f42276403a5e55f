package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watcherOpTimeout bounds a single auto-ingestion or removal triggered by a
// filesystem event. An ingestion spans several upstream calls, so it gets
// more room than the per-call client timeouts.
const watcherOpTimeout = 2 * time.Minute

// DocumentWatcher auto-ingests PDFs dropped into a watched directory. A file
// named "{chatID}.pdf" is (re)ingested into that chat through the replace
// path; removing the file clears the chat's document.
type DocumentWatcher struct {
	ingestion IngestionService

	mu     sync.Mutex
	hashes map[string]string
}

func NewDocumentWatcher(ingestion IngestionService) *DocumentWatcher {
	return &DocumentWatcher{
		ingestion: ingestion,
		hashes:    make(map[string]string),
	}
}

// WatchDirectory blocks until the context is cancelled, reacting to PDF
// create/write/remove events under dirPath.
func (w *DocumentWatcher) WatchDirectory(ctx context.Context, dirPath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WATCHER ERROR: Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isPDF(event.Name) {
					continue
				}

				// Many editors write by creating a temp file and renaming, so
				// Create and Write are handled the same.
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					w.ingestFile(ctx, event.Name)
				} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					chatID := chatIDForFile(event.Name)
					log.Printf("WATCHER: File removed: %s. Clearing document for chat %s...", event.Name, chatID)
					w.forgetHash(event.Name)
					opCtx, cancel := context.WithTimeout(ctx, watcherOpTimeout)
					if err := w.ingestion.RemoveDocument(opCtx, chatID); err != nil {
						log.Printf("WATCHER ERROR: Failed to clear document for chat %s: %v", chatID, err)
					}
					cancel()
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("WATCHER ERROR: %v", err)
			case <-ctx.Done():
				log.Println("WATCHER: Context cancelled, shutting down watcher.")
				return
			}
		}
	}()

	log.Printf("WATCHER: Watching directory: %s", dirPath)
	if err := watcher.Add(dirPath); err != nil {
		log.Printf("WATCHER ERROR: Failed to add path to watcher: %v", err)
	}

	<-ctx.Done()
}

// ScanDirectory ingests every PDF already present under dirPath, used once at
// startup before the event loop takes over.
func (w *DocumentWatcher) ScanDirectory(ctx context.Context, dirPath string) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		log.Printf("WATCHER ERROR: Could not scan directory %s: %v", dirPath, err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !isPDF(entry.Name()) {
			continue
		}
		w.ingestFile(ctx, filepath.Join(dirPath, entry.Name()))
	}
}

func (w *DocumentWatcher) ingestFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("WATCHER WARN: Could not read file %s: %v", path, err)
		return
	}

	hash := hashBytes(data)
	w.mu.Lock()
	unchanged := w.hashes[path] == hash
	if !unchanged {
		w.hashes[path] = hash
	}
	w.mu.Unlock()
	if unchanged {
		return
	}

	chatID := chatIDForFile(path)
	log.Printf("WATCHER: File created/modified: %s. Re-ingesting for chat %s...", path, chatID)
	opCtx, cancel := context.WithTimeout(ctx, watcherOpTimeout)
	defer cancel()
	if _, err := w.ingestion.ReplaceDocument(opCtx, chatID, data, filepath.Base(path)); err != nil {
		log.Printf("WATCHER ERROR: Failed to ingest file %s: %v", path, err)
	}
}

func (w *DocumentWatcher) forgetHash(path string) {
	w.mu.Lock()
	delete(w.hashes, path)
	w.mu.Unlock()
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func chatIDForFile(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
