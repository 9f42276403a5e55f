package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github/vikram-s/docchat/controller"
	"github/vikram-s/docchat/services"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/gin-gonic/gin"
	"google.golang.org/genai"
)

func main() {
	// Shared HTTP client for the embedding service
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	// Vector index: ChromaDB when available, in-memory fallback otherwise
	vectorIndex, closeIndex := buildVectorIndex()
	defer closeIndex()

	// Gemini client for chat completion
	geminiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to create Gemini client: %v. Make sure GEMINI_API_KEY is set.", err)
	}
	log.Println("Successfully connected to Google Gemini.")

	// Conversation store on sqlite
	dbPath := os.Getenv("DOCCHAT_DB")
	if dbPath == "" {
		dbPath = "docchat.db"
	}
	conversations, err := services.NewSQLiteConversationStore(dbPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to open conversation store: %v", err)
	}
	defer conversations.Close()

	// Service wiring
	embedder := services.NewOllamaEmbedder(httpClient, os.Getenv("OLLAMA_URL"), os.Getenv("OLLAMA_EMBED_MODEL"), 0)
	ingestion := services.NewIngestionService(embedder, vectorIndex, conversations, 0, 0, services.DefaultRetryPolicy())
	retrieval := services.NewRetrievalService(embedder, vectorIndex, conversations)
	completer := services.NewGeminiCompleter(geminiClient, os.Getenv("GEMINI_MODEL"), 0.2)
	responder := services.NewResponder(completer, services.DefaultRetryPolicy())
	chatController := controller.NewChatController(ingestion, retrieval, responder, conversations)

	// Optional PDF drop-folder watcher
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if watchDir := os.Getenv("WATCH_DIR"); watchDir != "" {
		watcher := services.NewDocumentWatcher(ingestion)
		go func() {
			watcher.ScanDirectory(ctx, watchDir)
			watcher.WatchDirectory(ctx, watchDir)
		}()
	}

	// Setup Gin router
	router := gin.Default()

	// CORS middleware for browser clients
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "DocChat API",
			"version": "1.0.0",
		})
	})

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/chats/:id", chatController.GetConversation)
		apiV1.POST("/chats/:id/document", chatController.IngestDocument)   // Attach a PDF to a chat
		apiV1.PUT("/chats/:id/document", chatController.ReplaceDocument)   // Replace the attached PDF
		apiV1.DELETE("/chats/:id/document", chatController.RemoveDocument) // Detach and clear the namespace
		apiV1.POST("/chats/:id/messages", chatController.Chat)             // Ask a grounded question
	}

	// Start the server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("DocChat backend server starting on http://localhost:%s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}

// buildVectorIndex connects to ChromaDB when CHROMA_URL is set, and falls
// back to the in-process index otherwise so local development works without
// a running Chroma instance.
func buildVectorIndex() (services.VectorIndex, func()) {
	chromaURL := os.Getenv("CHROMA_URL")
	if chromaURL == "" {
		log.Println("CHROMA_URL not set, using in-memory vector index.")
		return services.NewMemoryIndex(), func() {}
	}

	chromaClient, err := chromago.NewHTTPClient(chromago.WithBaseURL(chromaURL))
	if err != nil {
		log.Fatalf("FATAL: Failed to create chroma client: %v", err)
	}
	log.Printf("Connected to ChromaDB at %s", chromaURL)

	closeFn := func() {
		if err := chromaClient.Close(); err != nil {
			log.Printf("Warning: Failed to close chroma client: %v", err)
		}
	}
	return services.NewChromaIndex(chromaClient), closeFn
}
