package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/titulapp/capstone-api/internal/models"
	"github.com/titulapp/capstone-api/pkg/config"
	appErrors "github.com/titulapp/capstone-api/pkg/errors"
)

type cacheRepoStub struct {
	values map[string][]byte
	sets   int
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{values: make(map[string][]byte)}
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.values[key] = raw
	s.sets++
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range s.values {
		delete(s.values, key)
	}
	return nil
}

type summaryProviderStub struct {
	calls   int
	summary *models.StateSummary
}

func (s *summaryProviderStub) StateSummary(ctx context.Context, areaID, userID string) (*models.StateSummary, error) {
	s.calls++
	return s.summary, nil
}

func TestDashboardSummaryCachesResult(t *testing.T) {
	provider := &summaryProviderStub{summary: &models.StateSummary{
		AreaID: "area-1",
		Counts: map[models.DeliverableState]int{models.StateSubmitted: 4},
		Total:  4,
	}}
	repo := newCacheRepoStub()
	cacheSvc := NewCacheService(repo, nil, time.Minute, nil, true)
	svc := NewDashboardService(provider, cacheSvc, config.DashboardConfig{Enabled: true, CacheTTL: time.Minute}, nil)

	first, err := svc.Summary(context.Background(), "area-1", "")
	require.NoError(t, err)
	require.Equal(t, 4, first.Total)
	require.Equal(t, 1, provider.calls)

	second, err := svc.Summary(context.Background(), "area-1", "")
	require.NoError(t, err)
	require.Equal(t, 4, second.Total)
	require.Equal(t, 1, provider.calls, "second read must come from cache")
}

func TestDashboardSummaryBypassesDisabledCache(t *testing.T) {
	provider := &summaryProviderStub{summary: &models.StateSummary{Total: 1}}
	cacheSvc := NewCacheService(newCacheRepoStub(), nil, time.Minute, nil, false)
	svc := NewDashboardService(provider, cacheSvc, config.DashboardConfig{}, nil)

	_, err := svc.Summary(context.Background(), "", "user-1")
	require.NoError(t, err)
	_, err = svc.Summary(context.Background(), "", "user-1")
	require.NoError(t, err)
	require.Equal(t, 2, provider.calls)
}

func TestDashboardInvalidateArea(t *testing.T) {
	provider := &summaryProviderStub{summary: &models.StateSummary{Total: 2}}
	repo := newCacheRepoStub()
	cacheSvc := NewCacheService(repo, nil, time.Minute, nil, true)
	svc := NewDashboardService(provider, cacheSvc, config.DashboardConfig{Enabled: true}, nil)

	_, err := svc.Summary(context.Background(), "area-1", "")
	require.NoError(t, err)
	require.NotEmpty(t, repo.values)

	svc.InvalidateArea(context.Background(), "area-1")
	require.Empty(t, repo.values)
}
