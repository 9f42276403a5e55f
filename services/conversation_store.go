package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github/vikram-s/docchat/models"
)

// ConversationStore persists the per-chat document metadata this core writes
// after ingestion and reads back for fallback context. Conversation lifecycle
// itself (creation, listing, deletion) belongs to the surrounding CRUD layer.
type ConversationStore interface {
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	UpdateConversation(ctx context.Context, id, pdfName, pdfContext string) error
	ClearConversationContext(ctx context.Context, id string) error
	Close() error
}

// SQLiteConversationStore implements ConversationStore on a local sqlite file.
type SQLiteConversationStore struct {
	conn *sql.DB
}

// NewSQLiteConversationStore opens (or creates) the database at path and
// ensures the schema exists.
func NewSQLiteConversationStore(path string) (*SQLiteConversationStore, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation database: %w", err)
	}

	store := &SQLiteConversationStore{conn: conn}
	if err := store.setupTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to setup conversation tables: %w", err)
	}
	return store, nil
}

func (s *SQLiteConversationStore) setupTables() error {
	query := `CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		pdf_name TEXT NOT NULL DEFAULT '',
		pdf_context TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := s.conn.Exec(query); err != nil {
		return fmt.Errorf("failed to execute query: %s, error: %w", query, err)
	}
	return nil
}

// GetConversation returns the stored record, or a zero record when the chat
// has no persisted document yet.
func (s *SQLiteConversationStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	query := `SELECT id, pdf_name, pdf_context, updated_at FROM conversations WHERE id = ?`
	conv := &models.Conversation{}
	err := s.conn.QueryRowContext(ctx, query, id).Scan(&conv.ID, &conv.PDFName, &conv.PDFContext, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.Conversation{ID: id}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}
	return conv, nil
}

// UpdateConversation records the attached document name and its denormalized
// text context for the chat.
func (s *SQLiteConversationStore) UpdateConversation(ctx context.Context, id, pdfName, pdfContext string) error {
	query := `INSERT INTO conversations (id, pdf_name, pdf_context, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET pdf_name = excluded.pdf_name, pdf_context = excluded.pdf_context, updated_at = excluded.updated_at`
	if _, err := s.conn.ExecContext(ctx, query, id, pdfName, pdfContext, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update conversation %s: %w", id, err)
	}
	return nil
}

// ClearConversationContext removes the document reference and fallback
// context, leaving the conversation row itself in place.
func (s *SQLiteConversationStore) ClearConversationContext(ctx context.Context, id string) error {
	query := `UPDATE conversations SET pdf_name = '', pdf_context = '', updated_at = ? WHERE id = ?`
	if _, err := s.conn.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to clear conversation context %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteConversationStore) Close() error {
	return s.conn.Close()
}
