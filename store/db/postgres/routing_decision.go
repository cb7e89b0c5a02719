package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hrygo/triage/store"
)

// CreateRoutingDecision inserts one decision. Re-inserting an id is a no-op.
func (d *DB) CreateRoutingDecision(ctx context.Context, create *store.RoutingDecision) error {
	stmt := `INSERT INTO routing_decision (id, action, intent, confidence, cache_hit, latency_us, created_ts)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` +
		placeholder(5) + `, ` + placeholder(6) + `, ` + placeholder(7) + `)
		ON CONFLICT (id) DO NOTHING`

	_, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.Action, create.Intent, create.Confidence,
		create.CacheHit, create.LatencyUs, create.CreatedTs)
	if err != nil {
		return fmt.Errorf("failed to create routing decision: %w", err)
	}
	return nil
}

// ListRoutingDecisions returns decisions newest first.
func (d *DB) ListRoutingDecisions(ctx context.Context, find *store.FindRoutingDecision) ([]*store.RoutingDecision, error) {
	query := `SELECT id, action, intent, confidence, cache_hit, latency_us, created_ts
		FROM routing_decision WHERE 1=1`
	args := []any{}
	argIdx := 1

	if len(find.Actions) > 0 {
		query += fmt.Sprintf(" AND action = ANY(%s)", placeholder(argIdx))
		args = append(args, pq.Array(find.Actions))
		argIdx++
	}
	if find.Intent != nil {
		query += fmt.Sprintf(" AND intent = %s", placeholder(argIdx))
		args = append(args, *find.Intent)
		argIdx++
	}
	if find.Since != nil {
		query += fmt.Sprintf(" AND created_ts >= %s", placeholder(argIdx))
		args = append(args, *find.Since)
	}

	query += " ORDER BY created_ts DESC, id"
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list routing decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*store.RoutingDecision
	for rows.Next() {
		var rd store.RoutingDecision
		if err := rows.Scan(&rd.ID, &rd.Action, &rd.Intent, &rd.Confidence, &rd.CacheHit, &rd.LatencyUs, &rd.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan routing decision: %w", err)
		}
		decisions = append(decisions, &rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating routing decision rows: %w", err)
	}
	return decisions, nil
}

// GetRoutingStats aggregates decisions created within the time range.
func (d *DB) GetRoutingStats(ctx context.Context, get *store.GetRoutingStats) (*store.RoutingStats, error) {
	cutoff := time.Now().Add(-get.TimeRange).Unix()

	statsQuery := `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE cache_hit),
		COALESCE(AVG(confidence), 0),
		COALESCE(AVG(latency_us), 0)
		FROM routing_decision
		WHERE created_ts >= ` + placeholder(1)

	stats := &store.RoutingStats{Since: cutoff}
	var hits int64
	err := d.db.QueryRowContext(ctx, statsQuery, cutoff).
		Scan(&stats.Total, &hits, &stats.AvgConfidence, &stats.AvgLatencyUs)
	if err != nil {
		return nil, fmt.Errorf("failed to get routing stats: %w", err)
	}
	stats.CacheHitRate = store.CacheHitRatio(hits, stats.Total)

	if stats.ByAction, err = d.countBy(ctx, "action", cutoff); err != nil {
		return nil, err
	}
	if stats.ByIntent, err = d.countBy(ctx, "intent", cutoff); err != nil {
		return nil, err
	}
	return stats, nil
}

// countBy groups decisions by column; only called with fixed column names.
func (d *DB) countBy(ctx context.Context, column string, cutoff int64) (map[string]int64, error) {
	query := `SELECT ` + column + `, COUNT(*)
		FROM routing_decision
		WHERE created_ts >= ` + placeholder(1) + ` AND ` + column + ` <> ''
		GROUP BY ` + column

	rows, err := d.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get routing stats by %s: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan %s stats: %w", column, err)
		}
		counts[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", column, err)
	}
	return counts, nil
}
