package store

import "time"

// RoutingDecision is one persisted routing outcome. The transcript is never
// stored.
type RoutingDecision struct {
	ID         string  `json:"id"`
	Action     string  `json:"action"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	CacheHit   bool    `json:"cache_hit"`
	LatencyUs  int64   `json:"latency_us"`
	CreatedTs  int64   `json:"created_ts"`
}

// FindRoutingDecision specifies conditions for listing routing decisions.
type FindRoutingDecision struct {
	Actions []string
	Intent  *string
	Since   *int64
	Limit   int
}

// GetRoutingStats specifies the window for routing statistics.
type GetRoutingStats struct {
	TimeRange time.Duration
}

// RoutingStats aggregates routing decisions over a time window.
type RoutingStats struct {
	Total         int64            `json:"total"`
	ByAction      map[string]int64 `json:"by_action"`
	ByIntent      map[string]int64 `json:"by_intent"`
	CacheHitRate  float64          `json:"cache_hit_rate"`
	AvgConfidence float64          `json:"avg_confidence"`
	AvgLatencyUs  float64          `json:"avg_latency_us"`
	Since         int64            `json:"since"`
}

// CacheHitRatio returns hits/total, or 0 when total is 0.
func CacheHitRatio(hits, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
