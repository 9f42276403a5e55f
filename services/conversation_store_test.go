package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteConversationStore {
	t.Helper()
	store, err := NewSQLiteConversationStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestConversationStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.UpdateConversation(ctx, "42", "paper.pdf", "page one text\n\npage two text"))

	conv, err := store.GetConversation(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "42", conv.ID)
	assert.Equal(t, "paper.pdf", conv.PDFName)
	assert.Contains(t, conv.PDFContext, "page two text")
	assert.False(t, conv.UpdatedAt.IsZero())
}

func TestConversationStoreUnknownID(t *testing.T) {
	store := newTestStore(t)

	conv, err := store.GetConversation(context.Background(), "missing")
	require.NoError(t, err, "an unknown conversation is a zero record, not an error")
	assert.Equal(t, "missing", conv.ID)
	assert.Empty(t, conv.PDFName)
	assert.Empty(t, conv.PDFContext)
}

func TestConversationStoreUpdateOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.UpdateConversation(ctx, "42", "old.pdf", "old context"))
	require.NoError(t, store.UpdateConversation(ctx, "42", "new.pdf", "new context"))

	conv, err := store.GetConversation(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "new.pdf", conv.PDFName)
	assert.Equal(t, "new context", conv.PDFContext)
}

func TestConversationStoreClearContext(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.UpdateConversation(ctx, "42", "paper.pdf", "some context"))
	require.NoError(t, store.ClearConversationContext(ctx, "42"))

	conv, err := store.GetConversation(ctx, "42")
	require.NoError(t, err)
	assert.Empty(t, conv.PDFName)
	assert.Empty(t, conv.PDFContext)

	// Clearing a conversation that does not exist is a no-op.
	require.NoError(t, store.ClearConversationContext(ctx, "missing"))
}
