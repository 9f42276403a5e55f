package controller

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github/vikram-s/docchat/models"
	"github/vikram-s/docchat/services"
)

// ChatController handles the HTTP requests for the document-grounded chat
// API. It depends on the service layer to perform the actual work.
type ChatController struct {
	ingestion     services.IngestionService
	retrieval     services.RetrievalService
	responder     services.Responder
	conversations services.ConversationStore
}

// NewChatController is called from main.go to inject the service dependencies.
func NewChatController(
	ingestion services.IngestionService,
	retrieval services.RetrievalService,
	responder services.Responder,
	conversations services.ConversationStore,
) *ChatController {
	return &ChatController{
		ingestion:     ingestion,
		retrieval:     retrieval,
		responder:     responder,
		conversations: conversations,
	}
}

// IngestDocument is the handler for POST /api/v1/chats/:id/document.
// It accepts a multipart PDF upload and indexes it into the chat's namespace.
func (c *ChatController) IngestDocument(ctx *gin.Context) {
	c.ingest(ctx, c.ingestion.IngestDocument)
}

// ReplaceDocument is the handler for PUT /api/v1/chats/:id/document.
// It clears the chat's namespace before ingesting, so the previous document's
// vectors do not accumulate alongside the new ones.
func (c *ChatController) ReplaceDocument(ctx *gin.Context) {
	c.ingest(ctx, c.ingestion.ReplaceDocument)
}

func (c *ChatController) ingest(ctx *gin.Context, run func(context.Context, string, []byte, string) (*services.IngestStats, error)) {
	chatID := ctx.Param("id")

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing document upload: " + err.Error()})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Could not open uploaded document"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded document"})
		return
	}

	stats, err := run(ctx.Request.Context(), chatID, data, fileHeader.Filename)
	if err != nil {
		log.Printf("CONTROLLER: Ingestion for chat %s failed: %v", chatID, err)
		status, message := ingestionStatus(err)
		ctx.JSON(status, gin.H{"error": message})
		return
	}

	ctx.JSON(http.StatusCreated, models.IngestResponse{
		Message: "Document ingested successfully",
		PDFName: fileHeader.Filename,
		Pages:   stats.Pages,
		Chunks:  stats.Chunks,
	})
}

// RemoveDocument is the handler for DELETE /api/v1/chats/:id/document.
func (c *ChatController) RemoveDocument(ctx *gin.Context) {
	chatID := ctx.Param("id")
	if err := c.ingestion.RemoveDocument(ctx.Request.Context(), chatID); err != nil {
		log.Printf("CONTROLLER: Document removal for chat %s failed: %v", chatID, err)
		status, message := ingestionStatus(err)
		ctx.JSON(status, gin.H{"error": message})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Document removed"})
}

// Chat is the handler for POST /api/v1/chats/:id/messages. It retrieves
// relevant document context (degrading gracefully to none) and asks the
// responder for a grounded reply.
func (c *ChatController) Chat(ctx *gin.Context) {
	chatID := ctx.Param("id")

	var req models.ChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	docContext, sources, err := c.retrieval.RelevantContext(ctx.Request.Context(), req.Message, chatID, req.TopK)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRequest) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		// Query-time embedding failure is terminal by design; blocking the
		// reply on retries would degrade the chat experience.
		log.Printf("CONTROLLER: Query embedding for chat %s failed: %v", chatID, err)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "Could not process your question, please try again"})
		return
	}

	response, err := c.responder.Answer(ctx.Request.Context(), docContext, req.Message)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRequest) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		// Never leak the raw failure to the end user; full detail is logged.
		log.Printf("CONTROLLER: Chat completion for chat %s failed: %v", chatID, err)
		ctx.JSON(http.StatusBadGateway, models.ChatResponse{
			Error: "Sorry, I couldn't generate a response. Please try again.",
		})
		return
	}

	response.Sources = sources
	ctx.JSON(http.StatusOK, response)
}

// GetConversation is the handler for GET /api/v1/chats/:id. It exposes the
// persisted document metadata for the chat.
func (c *ChatController) GetConversation(ctx *gin.Context) {
	conv, err := c.conversations.GetConversation(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		log.Printf("CONTROLLER: Conversation lookup failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversation"})
		return
	}
	ctx.JSON(http.StatusOK, conv)
}

// ingestionStatus maps pipeline errors onto HTTP statuses with user-safe
// messages. The stage-tagged detail stays in the server log.
func ingestionStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest, "Invalid request: missing document or chat id"
	case errors.Is(err, services.ErrExtraction), errors.Is(err, services.ErrEmptyDocument):
		return http.StatusUnprocessableEntity, "Could not process document; please check the file is a readable PDF"
	case errors.Is(err, services.ErrEmbeddingService), errors.Is(err, services.ErrVectorIndex):
		return http.StatusBadGateway, "Could not process document right now, please try again"
	default:
		return http.StatusInternalServerError, "Could not process document"
	}
}
