package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/triage/store"
)

func (d *DB) CreateRoutingDecision(ctx context.Context, create *store.RoutingDecision) error {
	stmt := `INSERT OR IGNORE INTO routing_decision (id, action, intent, confidence, cache_hit, latency_us, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.Action, create.Intent, create.Confidence,
		create.CacheHit, create.LatencyUs, create.CreatedTs)
	if err != nil {
		return errors.Wrap(err, "failed to create routing decision")
	}
	return nil
}

func (d *DB) ListRoutingDecisions(ctx context.Context, find *store.FindRoutingDecision) ([]*store.RoutingDecision, error) {
	where, args := []string{"1 = 1"}, []any{}
	if len(find.Actions) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(find.Actions)), ", ")
		where = append(where, "action IN ("+marks+")")
		for _, a := range find.Actions {
			args = append(args, a)
		}
	}
	if find.Intent != nil {
		where, args = append(where, "intent = ?"), append(args, *find.Intent)
	}
	if find.Since != nil {
		where, args = append(where, "created_ts >= ?"), append(args, *find.Since)
	}

	query := `SELECT id, action, intent, confidence, cache_hit, latency_us, created_ts
		FROM routing_decision
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list routing decisions")
	}
	defer rows.Close()

	list := make([]*store.RoutingDecision, 0)
	for rows.Next() {
		var rd store.RoutingDecision
		if err := rows.Scan(&rd.ID, &rd.Action, &rd.Intent, &rd.Confidence, &rd.CacheHit, &rd.LatencyUs, &rd.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan routing decision")
		}
		list = append(list, &rd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) GetRoutingStats(ctx context.Context, get *store.GetRoutingStats) (*store.RoutingStats, error) {
	cutoff := time.Now().Add(-get.TimeRange).Unix()

	stats := &store.RoutingStats{Since: cutoff}
	var hits int64
	err := d.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN cache_hit THEN 1 ELSE 0 END), 0),
		COALESCE(AVG(confidence), 0),
		COALESCE(AVG(latency_us), 0)
		FROM routing_decision WHERE created_ts >= ?`, cutoff).
		Scan(&stats.Total, &hits, &stats.AvgConfidence, &stats.AvgLatencyUs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get routing stats")
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

func (d *DB) countBy(ctx context.Context, column string, cutoff int64) (map[string]int64, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+column+`, COUNT(*) FROM routing_decision
		WHERE created_ts >= ? AND `+column+` <> '' GROUP BY `+column, cutoff)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get routing stats by %s", column)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, errors.Wrapf(err, "failed to scan %s stats", column)
		}
		counts[key] = count
	}
	return counts, rows.Err()
}
