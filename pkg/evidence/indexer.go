package evidence

import (
	"context"
	"fmt"

	"github.com/dermacost-ai/platform/pkg/common/logger"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Indexer embeds uploaded knowledge documents and marks them searchable.
type Indexer struct {
	repo     *Repository
	embedder Embedder
}

func NewIndexer(repo *Repository, embedder Embedder) *Indexer {
	return &Indexer{repo: repo, embedder: embedder}
}

func (i *Indexer) IndexDocument(ctx context.Context, id uuid.UUID) error {
	doc, err := i.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.Indexed {
		return nil
	}

	vec, err := i.embedder.Embed(ctx, doc.Title+"\n"+doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %s: %w", id, err)
	}

	return i.repo.MarkIndexed(ctx, id, pgvector.NewVector(vec))
}

// IndexPending sweeps documents whose index event was lost. Returns how many
// documents were indexed.
func (i *Indexer) IndexPending(ctx context.Context, batchSize int) (int, error) {
	docs, err := i.repo.ListUnindexed(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, doc := range docs {
		if err := i.IndexDocument(ctx, doc.ID); err != nil {
			logger.Log.WithError(err).WithField("document_id", doc.ID).Warn("failed to index document")
			continue
		}
		indexed++
	}
	return indexed, nil
}
