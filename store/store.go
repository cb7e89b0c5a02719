package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/triage/internal/profile"
)

// Store provides database access to the routing decision log.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

// Migrate creates the decision log schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	return errors.Wrap(s.driver.Migrate(ctx), "migrate decision log")
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// CreateRoutingDecision stores a decision, stamping CreatedTs when unset.
func (s *Store) CreateRoutingDecision(ctx context.Context, create *RoutingDecision) error {
	if create.ID == "" {
		return errors.New("routing decision id is required")
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	return s.driver.CreateRoutingDecision(ctx, create)
}

func (s *Store) ListRoutingDecisions(ctx context.Context, find *FindRoutingDecision) ([]*RoutingDecision, error) {
	return s.driver.ListRoutingDecisions(ctx, find)
}

func (s *Store) GetRoutingStats(ctx context.Context, get *GetRoutingStats) (*RoutingStats, error) {
	if get.TimeRange <= 0 {
		return nil, errors.Errorf("invalid stats time range %s", get.TimeRange)
	}
	return s.driver.GetRoutingStats(ctx, get)
}
