package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dermacost-ai/platform/pkg/common/config"
	"github.com/dermacost-ai/platform/pkg/common/database"
	"github.com/dermacost-ai/platform/pkg/common/kafka"
	"github.com/dermacost-ai/platform/pkg/common/logger"
	"github.com/dermacost-ai/platform/pkg/common/models"
	"github.com/dermacost-ai/platform/pkg/evidence"
	"github.com/dermacost-ai/platform/pkg/llm"
)

const sweepInterval = 5 * time.Minute

func main() {
	logger.Init()
	cfg := config.Load()

	if cfg.LLMAPIKey == "" {
		logger.Log.Fatal("LLM_API_KEY is required: the indexer cannot embed documents without it")
	}

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	repo := evidence.NewRepository(db, cfg.LLMEmbeddingDim)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate knowledge tables")
	}

	embedder := llm.NewClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModelName, cfg.LLMEmbeddingModel, cfg.LLMRequestTimeout)
	indexer := evidence.NewIndexer(repo, embedder)

	consumer := kafka.NewConsumer(cfg.KnowledgeIndexTopic, "knowledge-indexer")
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, event models.Event) error {
			return handleIndexEvent(ctx, indexer, event)
		}); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Fatal("consumer error")
		}
	}()

	// Periodic sweep for documents whose index event never arrived.
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				indexed, err := indexer.IndexPending(ctx, 100)
				if err != nil {
					logger.Log.WithError(err).Error("index sweep failed")
					continue
				}
				if indexed > 0 {
					logger.Log.WithField("indexed", indexed).Info("index sweep caught up documents")
				}
			}
		}
	}()

	logger.Log.WithField("topic", cfg.KnowledgeIndexTopic).Info("knowledge indexer started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down knowledge indexer...")
	cancel()
	logger.Log.Info("knowledge indexer stopped")
}

func handleIndexEvent(ctx context.Context, indexer *evidence.Indexer, event models.Event) error {
	raw, ok := event.Data["document_id"].(string)
	if !ok {
		logger.Log.WithField("event_id", event.ID).Warn("index event missing document_id, skipping")
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.Log.WithField("event_id", event.ID).Warn("index event carries malformed document_id, skipping")
		return nil
	}

	if err := indexer.IndexDocument(ctx, id); err != nil {
		return fmt.Errorf("indexing document %s: %w", id, err)
	}
	return nil
}
