package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "ragchat-api/docs"
	"ragchat-api/internal/adapter/openai"
	"ragchat-api/internal/adapter/repository/memory"
	"ragchat-api/internal/adapter/repository/postgres"
	"ragchat-api/internal/delivery/http/handler"
	"ragchat-api/internal/delivery/http/middleware"
	"ragchat-api/internal/domain/repository"
	"ragchat-api/internal/usecase/chat"
	"ragchat-api/internal/usecase/document"
	"ragchat-api/pkg/config"
	"ragchat-api/pkg/database"
	"ragchat-api/pkg/retry"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberSwagger "github.com/swaggo/fiber-swagger"
)

// @title           RAG Chat API
// @version         1.0
// @description     Chat with your PDF documents using retrieval-augmented generation
// @host            localhost:8080
// @BasePath        /
func main() {
	cfg := config.Load()
	slogger := slog.Default()

	var (
		docRepo   repository.DocumentRepository
		chunkRepo repository.ChunkRepository
		chatRepo  repository.ChatRepository
	)

	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := database.Migrate(db, cfg.EmbeddingDimension); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		slogger.Info("connected to database")

		docRepo = postgres.NewDocumentRepository(db)
		chunkRepo = postgres.NewChunkRepository(db)
		chatRepo = postgres.NewChatRepository(db)
	} else {
		// embedded mode: everything in process, nothing survives a restart
		slogger.Warn("DATABASE_URL not set, using in-memory storage")
		memDocs := memory.NewDocumentRepository()
		docRepo = memDocs
		chunkRepo = memory.NewChunkRepository(memDocs)
		chatRepo = memory.NewChatRepository()
	}

	retryPolicy := retry.Policy{Attempts: cfg.RetryAttempts, BaseDelay: cfg.RetryBaseDelay}

	embeddingClient := openai.NewEmbeddingClient(cfg.OpenAIKey, openai.EmbeddingConfig{
		Model:       cfg.OpenAIEmbeddingModel,
		Dimension:   cfg.EmbeddingDimension,
		BatchSize:   cfg.EmbedBatchSize,
		Concurrency: cfg.EmbedConcurrency,
		Timeout:     cfg.ExternalTimeout,
		Retry:       retryPolicy,
	})
	chatClient := openai.NewChatClient(cfg.OpenAIKey, openai.ChatConfig{
		Model:   cfg.OpenAIChatModel,
		Timeout: cfg.ExternalTimeout,
		Retry:   retryPolicy,
	})

	docUsecase := document.NewDocumentUsecase(
		docRepo,
		chunkRepo,
		embeddingClient,
		cfg.ChunkSize,
		cfg.ChunkOverlap,
		slogger,
	)
	retriever := chat.NewRetriever(
		embeddingClient,
		chunkRepo,
		docRepo,
		cfg.TopKResults,
		cfg.OversampleFactor,
		cfg.SimilarityThreshold,
		slogger,
	)
	assembler := chat.NewContextAssembler(cfg.ContextTokenBudget, cfg.HistoryWindow)
	chatUsecase := chat.NewChatUsecase(
		retriever,
		assembler,
		chatClient,
		chatRepo,
		cfg.AnswerWithoutContext,
		slogger,
	)

	docHandler := handler.NewDocumentHandler(docUsecase)
	chatHandler := handler.NewChatHandler(chatUsecase)

	app := fiber.New(fiber.Config{
		ErrorHandler: handler.ErrorHandler,
		BodyLimit:    32 * 1024 * 1024,
	})

	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	app.Get("/swagger/*", fiberSwagger.WrapHandler)

	api := app.Group("/api", middleware.Identity())

	api.Post("/chat", chatHandler.Send)
	api.Get("/chats", chatHandler.ListSessions)
	api.Get("/chat/:id/history", chatHandler.History)
	api.Delete("/chat/:id", chatHandler.Delete)

	api.Post("/documents/upload", docHandler.Upload)
	api.Get("/documents", docHandler.List)
	api.Get("/documents/:id", docHandler.GetByID)
	api.Delete("/documents/:id", docHandler.Delete)

	go func() {
		slogger.Info("server starting", "port", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	slogger.Info("shutdown signal received, stopping server")
	if err := app.Shutdown(); err != nil {
		slogger.Error("server shutdown failed", "error", err)
	}
}
