package routing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hrygo/triage/ai/filter"
	"github.com/hrygo/triage/ai/internal/strutil"
	"github.com/hrygo/triage/ai/observability/logging"
)

// stage is one step of the routing policy. It returns ok=true when it
// decides the call.
type stage func(ctx context.Context, transcript string, cls Classification) (action Action, response string, ok bool)

// Router turns a transcript into exactly one Decision.
type Router struct {
	classifier *Classifier
	cache      *ResponseCache
	observer   Observer
	logger     *slog.Logger
	workflows  map[Intent]Action
	stages     []stage
	emergency  Intent
	human      Intent
	threshold  float64
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithObserver registers o to receive every decision.
func WithObserver(o Observer) RouterOption {
	return func(r *Router) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithLogger sets the router logger. A logger carried by the request
// context takes precedence.
func WithLogger(l *slog.Logger) RouterOption {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRouter builds a router over a validated table. A nil cache disables
// the cache stage.
func NewRouter(table IntentTable, rc *ResponseCache, opts ...RouterOption) *Router {
	if rc == nil {
		rc = NewResponseCache(nil, table)
	}
	r := &Router{
		classifier: NewClassifier(table),
		cache:      rc,
		observer:   Observers(),
		logger:     slog.Default(),
		workflows:  make(map[Intent]Action),
		emergency:  table.Overrides.EmergencyIntent,
		human:      table.Overrides.HumanIntent,
		threshold:  table.ConfidenceThreshold,
	}
	for action, codes := range map[Action][]Intent{
		ActionBookingWorkflow: table.Groups.Booking,
		ActionStaticWorkflow:  table.Groups.Static,
		ActionTicketOrLead:    table.Groups.TicketOrLead,
	} {
		for _, code := range codes {
			r.workflows[code] = action
		}
	}

	// Order is the policy; do not reorder.
	r.stages = []stage{
		r.emergencyStage,
		r.humanStage,
		r.cacheStage,
		r.confidenceGate,
		r.workflowStage,
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route classifies transcript and returns the dispatch decision. It never
// fails: cache trouble degrades to a miss and anything unrecognized ends in
// CALL_FALLBACK.
func (r *Router) Route(ctx context.Context, transcript string) Decision {
	start := time.Now()

	cls := r.classifier.Classify(transcript)
	d := Decision{
		ID:         uuid.NewString(),
		Action:     ActionCallFallback,
		Intent:     cls.Intent,
		Confidence: cls.Confidence,
	}
	for _, s := range r.stages {
		if action, response, ok := s(ctx, transcript, cls); ok {
			d.Action = action
			d.Response = response
			break
		}
	}
	d.Latency = time.Since(start)

	logging.FromContextOr(ctx, r.logger).Debug("routing decision",
		"id", d.ID,
		"action", d.Action,
		"intent", d.Intent,
		"confidence", d.Confidence,
		"input", strutil.Truncate(filter.Mask(transcript), 50),
		"latency", d.Latency,
	)
	r.observer.ObserveDecision(d)
	return d
}

// Classify runs only the classifier.
func (r *Router) Classify(transcript string) Classification {
	return r.classifier.Classify(transcript)
}

// Remember writes a workflow's answer through to the response cache so the
// next matching call is served from it.
func (r *Router) Remember(ctx context.Context, intent Intent, transcript, response string, ttl time.Duration) {
	r.cache.Put(ctx, intent, transcript, response, ttl)
}

// Cacheable reports whether intent is eligible for the response cache.
func (r *Router) Cacheable(intent Intent) bool {
	return r.cache.Cacheable(intent)
}

func (r *Router) emergencyStage(_ context.Context, _ string, cls Classification) (Action, string, bool) {
	return ActionEmergencyHandoff, "", cls.Intent.Present() && cls.Intent == r.emergency
}

func (r *Router) humanStage(_ context.Context, _ string, cls Classification) (Action, string, bool) {
	return ActionHumanHandoff, "", cls.Intent.Present() && cls.Intent == r.human
}

// A hit is served even when confidence is below the threshold.
func (r *Router) cacheStage(ctx context.Context, transcript string, cls Classification) (Action, string, bool) {
	if !cls.Intent.Present() {
		return "", "", false
	}
	response, ok := r.cache.Get(ctx, cls.Intent, transcript)
	return ActionRespondFromCache, response, ok
}

func (r *Router) confidenceGate(_ context.Context, _ string, cls Classification) (Action, string, bool) {
	return ActionCallFallback, "", !cls.Intent.Present() || cls.Confidence < r.threshold
}

func (r *Router) workflowStage(_ context.Context, _ string, cls Classification) (Action, string, bool) {
	action, ok := r.workflows[cls.Intent]
	return action, "", ok
}
