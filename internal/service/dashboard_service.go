package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/titulapp/capstone-api/internal/models"
	"github.com/titulapp/capstone-api/pkg/config"
)

const dashboardKeyPrefix = "dash:summary:"

type summaryProvider interface {
	StateSummary(ctx context.Context, areaID, userID string) (*models.StateSummary, error)
}

// DashboardService serves state summaries through a short-lived cache. The
// cache trades a few minutes of staleness for not recomputing aggregates on
// every dashboard load.
type DashboardService struct {
	workflow summaryProvider
	cache    *CacheService
	ttl      time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs the service.
func NewDashboardService(workflow summaryProvider, cache *CacheService, cfg config.DashboardConfig, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{workflow: workflow, cache: cache, ttl: ttl, logger: logger}
}

// Summary returns the deliverable state summary for an area, or for the
// caller's visible scope when areaID is empty.
func (s *DashboardService) Summary(ctx context.Context, areaID, userID string) (*models.StateSummary, error) {
	key := s.cacheKey(areaID, userID)

	var cached models.StateSummary
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	summary, err := s.workflow.StateSummary(ctx, areaID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, summary, s.ttl); err != nil {
		s.logger.Debug("summary not cached", zap.String("key", key), zap.Error(err))
	}
	return summary, nil
}

// InvalidateArea drops cached summaries for an area after a state change.
func (s *DashboardService) InvalidateArea(ctx context.Context, areaID string) {
	if areaID == "" {
		return
	}
	if err := s.cache.Invalidate(ctx, dashboardKeyPrefix+"area:"+areaID); err != nil {
		s.logger.Debug("summary invalidation failed", zap.String("area_id", areaID), zap.Error(err))
	}
}

func (s *DashboardService) cacheKey(areaID, userID string) string {
	if areaID != "" {
		return dashboardKeyPrefix + "area:" + areaID
	}
	return fmt.Sprintf("%suser:%s", dashboardKeyPrefix, userID)
}
