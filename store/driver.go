package store

import (
	"context"
	"database/sql"
)

// Driver is the database driver behind the decision log.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	Migrate(ctx context.Context) error

	CreateRoutingDecision(ctx context.Context, create *RoutingDecision) error
	ListRoutingDecisions(ctx context.Context, find *FindRoutingDecision) ([]*RoutingDecision, error)
	GetRoutingStats(ctx context.Context, get *GetRoutingStats) (*RoutingStats, error)
}
