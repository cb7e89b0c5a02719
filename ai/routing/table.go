package routing

import (
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/triage/internal/version"
)

// IntentDefinition is one scored intent of the table.
type IntentDefinition struct {
	Code     Intent
	Name     string
	Keywords []string
}

// Overrides are the safety phrase sets checked before any scoring,
// emergency first.
type Overrides struct {
	EmergencyIntent  Intent
	HumanIntent      Intent
	EmergencyPhrases []string
	HumanPhrases     []string
}

// WorkflowGroups maps intents to the workflow that handles them.
type WorkflowGroups struct {
	Booking      []Intent
	Static       []Intent
	TicketOrLead []Intent
}

// CachePolicy configures the response cache.
type CachePolicy struct {
	Namespace     string
	DefaultTTL    time.Duration
	KeyMaxLen     int
	LookupTimeout time.Duration
	WriteTimeout  time.Duration
}

// IntentTable is the whole routing configuration. It is built once at
// startup, validated, and then only read.
type IntentTable struct {
	Revision            string
	Intents             []IntentDefinition
	Overrides           Overrides
	Groups              WorkflowGroups
	Cacheable           []Intent
	ConfidenceThreshold float64
	KeywordCap          int
	Cache               CachePolicy
}

const (
	DefaultConfidenceThreshold = 0.6
	DefaultKeywordCap          = 3
	DefaultCacheNamespace      = "intent"
	DefaultCacheTTL            = 24 * time.Hour
	DefaultCacheKeyMaxLen      = 50
	DefaultLookupTimeout       = 50 * time.Millisecond
	DefaultWriteTimeout        = 250 * time.Millisecond
)

// Validate checks the table invariants. Every error is a startup error.
func (t IntentTable) Validate() error {
	if t.Revision != "" {
		if _, ok := version.Canonical(t.Revision); !ok {
			return fmt.Errorf("revision %q is not a semantic version", t.Revision)
		}
	}
	if t.ConfidenceThreshold < 0 || t.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %v outside [0, 1]", t.ConfidenceThreshold)
	}
	if t.KeywordCap < 1 {
		return fmt.Errorf("keyword cap must be >= 1, got %d", t.KeywordCap)
	}
	if err := t.Cache.validate(); err != nil {
		return err
	}

	ov := t.Overrides
	if !ov.EmergencyIntent.Present() || !ov.HumanIntent.Present() {
		return fmt.Errorf("override intent codes must be set")
	}
	if ov.EmergencyIntent == ov.HumanIntent {
		return fmt.Errorf("emergency and human override share code %s", ov.EmergencyIntent)
	}
	if err := checkPhrases("emergency", ov.EmergencyPhrases); err != nil {
		return err
	}
	if err := checkPhrases("human", ov.HumanPhrases); err != nil {
		return err
	}
	emergency := make(map[string]struct{}, len(ov.EmergencyPhrases))
	for _, p := range ov.EmergencyPhrases {
		emergency[normalizePhrase(p)] = struct{}{}
	}
	for _, p := range ov.HumanPhrases {
		if _, dup := emergency[normalizePhrase(p)]; dup {
			return fmt.Errorf("phrase %q is both an emergency and a human override", p)
		}
	}

	defined := make(map[Intent]struct{}, len(t.Intents)+2)
	defined[ov.EmergencyIntent] = struct{}{}
	defined[ov.HumanIntent] = struct{}{}
	for _, def := range t.Intents {
		if !def.Code.Present() {
			return fmt.Errorf("intent %q has an empty code", def.Name)
		}
		if _, dup := defined[def.Code]; dup {
			return fmt.Errorf("intent code %s defined twice", def.Code)
		}
		defined[def.Code] = struct{}{}
		if err := checkPhrases("intent "+string(def.Code), def.Keywords); err != nil {
			return err
		}
	}

	grouped := make(map[Intent]string)
	for _, g := range []struct {
		name  string
		codes []Intent
	}{
		{"booking", t.Groups.Booking},
		{"static", t.Groups.Static},
		{"ticket_or_lead", t.Groups.TicketOrLead},
	} {
		for _, code := range g.codes {
			if _, ok := defined[code]; !ok {
				return fmt.Errorf("group %s references undefined intent %s", g.name, code)
			}
			if prev, dup := grouped[code]; dup {
				return fmt.Errorf("intent %s is in groups %s and %s", code, prev, g.name)
			}
			grouped[code] = g.name
		}
	}
	for _, code := range t.Cacheable {
		if _, ok := defined[code]; !ok {
			return fmt.Errorf("cacheable list references undefined intent %s", code)
		}
	}
	return nil
}

func (p CachePolicy) validate() error {
	switch {
	case p.Namespace == "":
		return fmt.Errorf("cache namespace is empty")
	case strings.Contains(p.Namespace, ":"):
		return fmt.Errorf("cache namespace %q must not contain ':'", p.Namespace)
	case p.DefaultTTL <= 0:
		return fmt.Errorf("cache default ttl must be positive, got %s", p.DefaultTTL)
	case p.KeyMaxLen < 1:
		return fmt.Errorf("cache key length must be >= 1, got %d", p.KeyMaxLen)
	case p.LookupTimeout <= 0:
		return fmt.Errorf("cache lookup timeout must be positive, got %s", p.LookupTimeout)
	case p.WriteTimeout <= 0:
		return fmt.Errorf("cache write timeout must be positive, got %s", p.WriteTimeout)
	}
	return nil
}

func checkPhrases(owner string, phrases []string) error {
	for _, p := range phrases {
		if normalizePhrase(p) == "" {
			return fmt.Errorf("%s has an empty phrase", owner)
		}
	}
	return nil
}

func normalizePhrase(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}

// normalizePhrases lowercases, trims and de-duplicates phrases, keeping
// first-occurrence order.
func normalizePhrases(phrases []string) []string {
	seen := make(map[string]struct{}, len(phrases))
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = normalizePhrase(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// DefaultTable returns the built-in dental clinic table. It matches
// config/routing.yaml.
func DefaultTable() IntentTable {
	return IntentTable{
		Revision: "1.0.0",
		Intents: []IntentDefinition{
			{Code: "I1", Name: "New Appointment", Keywords: []string{
				"book a", "book appointment", "new appointment", "first time",
				"checkup", "cleaning", "see dentist", "schedule visit",
			}},
			{Code: "I3", Name: "Reschedule", Keywords: []string{
				"reschedule", "change appointment", "move appointment",
				"different time", "postpone",
			}},
			{Code: "I4", Name: "Cancel", Keywords: []string{
				"cancel appointment", "won't come", "drop booking",
			}},
			{Code: "I6", Name: "Pricing", Keywords: []string{
				"price", "cost", "how much", "charges", "fees",
			}},
			{Code: "I7", Name: "Clinic Info", Keywords: []string{
				"timing", "opening time", "closing time", "address",
				"location", "parking", "directions",
			}},
			{Code: "I8", Name: "Insurance", Keywords: []string{
				"insurance", "policy", "covered", "claim", "cashless",
			}},
			{Code: "I9", Name: "EMI", Keywords: []string{
				"emi option", "emi plan", "on emi", "installment",
				"monthly payment", "financing", "payment plan",
			}},
			{Code: "I10", Name: "Complaint", Keywords: []string{
				"complaint", "complain", "not happy", "bad experience", "rude",
			}},
			{Code: "I11", Name: "Callback", Keywords: []string{
				"call me back", "callback", "call back", "missed call",
			}},
			{Code: "I13", Name: "Treatment Lead", Keywords: []string{
				"braces", "implant", "whitening", "root canal", "veneers",
			}},
			{Code: "I15", Name: "Billing Issue", Keywords: []string{
				"refund", "overcharged", "wrong bill", "billing issue", "invoice",
			}},
		},
		Overrides: Overrides{
			EmergencyIntent: "I5",
			HumanIntent:     "I99",
			EmergencyPhrases: []string{
				"pain", "severe pain", "bleeding", "swelling", "broken tooth",
				"accident", "injury", "can't sleep", "child crying", "emergency",
			},
			HumanPhrases: []string{
				"human", "real person", "receptionist", "staff", "agent",
				"talk to someone",
			},
		},
		Groups: WorkflowGroups{
			Booking:      []Intent{"I1", "I3", "I4"},
			Static:       []Intent{"I6", "I7", "I8", "I9"},
			TicketOrLead: []Intent{"I10", "I11", "I13", "I15"},
		},
		Cacheable:           []Intent{"I6", "I7", "I8", "I9"},
		ConfidenceThreshold: DefaultConfidenceThreshold,
		KeywordCap:          DefaultKeywordCap,
		Cache: CachePolicy{
			Namespace:     DefaultCacheNamespace,
			DefaultTTL:    DefaultCacheTTL,
			KeyMaxLen:     DefaultCacheKeyMaxLen,
			LookupTimeout: DefaultLookupTimeout,
			WriteTimeout:  DefaultWriteTimeout,
		},
	}
}
