package evidence

import (
	"context"
	"sync"

	"github.com/dermacost-ai/platform/pkg/common/logger"
	"github.com/dermacost-ai/platform/pkg/common/models"
	"github.com/pgvector/pgvector-go"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher answers a single similarity query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.EvidenceSnippet, error)
}

// Store backs Searcher with the pgvector repository.
type Store struct {
	repo     *Repository
	embedder Embedder
}

func NewStore(repo *Repository, embedder Embedder) *Store {
	return &Store{repo: repo, embedder: embedder}
}

func (s *Store) Search(ctx context.Context, query string, limit int) ([]models.EvidenceSnippet, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.repo.SimilaritySearch(ctx, pgvector.NewVector(vec), limit)
}

// Retriever fans independent queries out concurrently. Result order follows
// request order, not completion order, and a failed query degrades to an
// empty slice rather than failing the assessment.
type Retriever struct {
	searcher Searcher
	limit    int
}

func NewRetriever(searcher Searcher, limit int) *Retriever {
	if limit <= 0 {
		limit = 3
	}
	return &Retriever{searcher: searcher, limit: limit}
}

func (r *Retriever) Search(ctx context.Context, query string) ([]models.EvidenceSnippet, error) {
	return r.searcher.Search(ctx, query, r.limit)
}

func (r *Retriever) SearchAll(ctx context.Context, queries []string) [][]models.EvidenceSnippet {
	results := make([][]models.EvidenceSnippet, len(queries))

	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(idx int, q string) {
			defer wg.Done()
			snippets, err := r.searcher.Search(ctx, q, r.limit)
			if err != nil {
				logger.Log.WithError(err).WithField("query", q).Warn("evidence query failed")
				return
			}
			results[idx] = snippets
		}(i, query)
	}
	wg.Wait()

	return results
}
