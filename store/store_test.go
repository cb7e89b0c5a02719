package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDriver struct {
	created []*RoutingDecision
	statsOf []*GetRoutingStats
}

func (d *recordingDriver) GetDB() *sql.DB                { return nil }
func (d *recordingDriver) Close() error                  { return nil }
func (d *recordingDriver) Migrate(context.Context) error { return nil }

func (d *recordingDriver) CreateRoutingDecision(_ context.Context, create *RoutingDecision) error {
	d.created = append(d.created, create)
	return nil
}

func (d *recordingDriver) ListRoutingDecisions(context.Context, *FindRoutingDecision) ([]*RoutingDecision, error) {
	return d.created, nil
}

func (d *recordingDriver) GetRoutingStats(_ context.Context, get *GetRoutingStats) (*RoutingStats, error) {
	d.statsOf = append(d.statsOf, get)
	return &RoutingStats{}, nil
}

func TestStore_CreateRoutingDecision(t *testing.T) {
	driver := &recordingDriver{}
	s := New(driver, nil)
	ctx := context.Background()

	err := s.CreateRoutingDecision(ctx, &RoutingDecision{Action: "CALL_FALLBACK"})
	assert.Error(t, err, "id is required")

	before := time.Now().Unix()
	require.NoError(t, s.CreateRoutingDecision(ctx, &RoutingDecision{ID: "a", Action: "CALL_FALLBACK"}))
	require.Len(t, driver.created, 1)
	assert.GreaterOrEqual(t, driver.created[0].CreatedTs, before)

	require.NoError(t, s.CreateRoutingDecision(ctx, &RoutingDecision{ID: "b", CreatedTs: 42}))
	assert.Equal(t, int64(42), driver.created[1].CreatedTs)
}

func TestStore_GetRoutingStatsRejectsEmptyRange(t *testing.T) {
	driver := &recordingDriver{}
	s := New(driver, nil)

	_, err := s.GetRoutingStats(context.Background(), &GetRoutingStats{})
	assert.Error(t, err)
	assert.Empty(t, driver.statsOf)

	_, err = s.GetRoutingStats(context.Background(), &GetRoutingStats{TimeRange: time.Hour})
	assert.NoError(t, err)
	assert.Len(t, driver.statsOf, 1)
}

func TestCacheHitRatio(t *testing.T) {
	assert.Equal(t, 0.0, CacheHitRatio(0, 0))
	assert.Equal(t, 0.25, CacheHitRatio(1, 4))
}
