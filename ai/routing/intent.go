// Package routing decides, per transcript, where a call goes next:
// classify -> safety overrides -> response cache -> confidence gate -> workflow.
package routing

import "time"

// Intent is an opaque intent code such as "I7".
type Intent string

// IntentNone marks an absent intent.
const IntentNone Intent = ""

// Present reports whether the intent is set.
func (i Intent) Present() bool {
	return i != IntentNone
}

// Classification is the classifier output for one transcript.
type Classification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Action is the dispatch tag of a routing decision.
type Action string

const (
	ActionEmergencyHandoff Action = "EMERGENCY_HANDOFF"
	ActionHumanHandoff     Action = "HUMAN_HANDOFF"
	ActionRespondFromCache Action = "RESPOND_FROM_CACHE"
	ActionCallFallback     Action = "CALL_FALLBACK"
	ActionBookingWorkflow  Action = "BOOKING_WORKFLOW"
	ActionStaticWorkflow   Action = "STATIC_WORKFLOW"
	ActionTicketOrLead     Action = "TICKET_OR_LEAD"
)

var allActions = []Action{
	ActionEmergencyHandoff,
	ActionHumanHandoff,
	ActionRespondFromCache,
	ActionCallFallback,
	ActionBookingWorkflow,
	ActionStaticWorkflow,
	ActionTicketOrLead,
}

// Actions returns every action in router stage order.
func Actions() []Action {
	out := make([]Action, len(allActions))
	copy(out, allActions)
	return out
}

// Valid reports whether a is one of the defined actions.
func (a Action) Valid() bool {
	for _, known := range allActions {
		if a == known {
			return true
		}
	}
	return false
}

// Decision is the router's single output for a call.
type Decision struct {
	ID         string        `json:"id"`
	Action     Action        `json:"action"`
	Intent     Intent        `json:"intent,omitempty"`
	Confidence float64       `json:"confidence"`
	Response   string        `json:"response,omitempty"`
	Latency    time.Duration `json:"-"`
}

// CacheHit reports whether the decision was answered from the response cache.
func (d Decision) CacheHit() bool {
	return d.Action == ActionRespondFromCache
}
