package patients

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dermacost-ai/platform/pkg/common/logger"
	"github.com/dermacost-ai/platform/pkg/common/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SummaryCache keeps claim cost aggregates hot in Redis so the summary
// endpoint does not re-run the SQL aggregates on every call.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

func summaryKey(patientID uuid.UUID) string {
	return fmt.Sprintf("cost-summary:%s", patientID)
}

func (c *SummaryCache) Get(ctx context.Context, patientID uuid.UUID) (*models.PatientSummary, bool) {
	data, err := c.client.Get(ctx, summaryKey(patientID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.WithError(err).Warn("cost summary cache read failed")
		}
		return nil, false
	}

	var summary models.PatientSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		logger.Log.WithError(err).Warn("discarding corrupt cost summary cache entry")
		return nil, false
	}
	return &summary, true
}

func (c *SummaryCache) Set(ctx context.Context, summary *models.PatientSummary) {
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, summaryKey(summary.PatientID), data, c.ttl).Err(); err != nil {
		logger.Log.WithError(err).Warn("cost summary cache write failed")
	}
}

func (c *SummaryCache) Invalidate(ctx context.Context, patientID uuid.UUID) {
	if err := c.client.Del(ctx, summaryKey(patientID)).Err(); err != nil {
		logger.Log.WithError(err).Warn("cost summary cache invalidation failed")
	}
}
