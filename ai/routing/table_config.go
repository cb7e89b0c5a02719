package routing

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/triage/ai/configloader"
)

// TableConfig is the YAML form of IntentTable.
type TableConfig struct {
	Revision            string               `yaml:"revision"`
	ConfidenceThreshold *float64             `yaml:"confidence_threshold"`
	KeywordCap          int                  `yaml:"keyword_cap"`
	Cache               CacheConfig          `yaml:"cache"`
	Overrides           OverridesConfig      `yaml:"overrides"`
	Intents             []IntentConfig       `yaml:"intents"`
	Groups              WorkflowGroupsConfig `yaml:"groups"`
	Cacheable           []string             `yaml:"cacheable"`
}

type CacheConfig struct {
	Namespace     string `yaml:"namespace"`
	DefaultTTL    string `yaml:"default_ttl"`
	KeyMaxLen     int    `yaml:"key_max_len"`
	LookupTimeout string `yaml:"lookup_timeout"`
	WriteTimeout  string `yaml:"write_timeout"`
}

type OverrideConfig struct {
	Intent  string   `yaml:"intent"`
	Phrases []string `yaml:"phrases"`
}

type OverridesConfig struct {
	Emergency OverrideConfig `yaml:"emergency"`
	Human     OverrideConfig `yaml:"human"`
}

type IntentConfig struct {
	Code     string   `yaml:"code"`
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type WorkflowGroupsConfig struct {
	Booking      []string `yaml:"booking"`
	Static       []string `yaml:"static"`
	TicketOrLead []string `yaml:"ticket_or_lead"`
}

// Table converts the YAML form into an IntentTable, applying defaults for
// omitted scalars. Keyword lists are normalized (lowercase, trimmed,
// de-duplicated). The result is validated.
func (c TableConfig) Table() (IntentTable, error) {
	t := IntentTable{
		Revision:            c.Revision,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		KeywordCap:          c.KeywordCap,
		Cacheable:           toIntents(c.Cacheable),
		Overrides: Overrides{
			EmergencyIntent:  Intent(c.Overrides.Emergency.Intent),
			HumanIntent:      Intent(c.Overrides.Human.Intent),
			EmergencyPhrases: normalizePhrases(c.Overrides.Emergency.Phrases),
			HumanPhrases:     normalizePhrases(c.Overrides.Human.Phrases),
		},
		Groups: WorkflowGroups{
			Booking:      toIntents(c.Groups.Booking),
			Static:       toIntents(c.Groups.Static),
			TicketOrLead: toIntents(c.Groups.TicketOrLead),
		},
		Cache: CachePolicy{
			Namespace:     c.Cache.Namespace,
			DefaultTTL:    DefaultCacheTTL,
			KeyMaxLen:     c.Cache.KeyMaxLen,
			LookupTimeout: DefaultLookupTimeout,
			WriteTimeout:  DefaultWriteTimeout,
		},
	}
	if c.ConfidenceThreshold != nil {
		t.ConfidenceThreshold = *c.ConfidenceThreshold
	}
	if t.KeywordCap == 0 {
		t.KeywordCap = DefaultKeywordCap
	}
	if t.Cache.Namespace == "" {
		t.Cache.Namespace = DefaultCacheNamespace
	}
	if t.Cache.KeyMaxLen == 0 {
		t.Cache.KeyMaxLen = DefaultCacheKeyMaxLen
	}

	var err error
	if t.Cache.DefaultTTL, err = parseDuration(c.Cache.DefaultTTL, DefaultCacheTTL); err != nil {
		return IntentTable{}, errors.Wrap(err, "cache.default_ttl")
	}
	if t.Cache.LookupTimeout, err = parseDuration(c.Cache.LookupTimeout, DefaultLookupTimeout); err != nil {
		return IntentTable{}, errors.Wrap(err, "cache.lookup_timeout")
	}
	if t.Cache.WriteTimeout, err = parseDuration(c.Cache.WriteTimeout, DefaultWriteTimeout); err != nil {
		return IntentTable{}, errors.Wrap(err, "cache.write_timeout")
	}

	for _, ic := range c.Intents {
		t.Intents = append(t.Intents, IntentDefinition{
			Code:     Intent(ic.Code),
			Name:     ic.Name,
			Keywords: normalizePhrases(ic.Keywords),
		})
	}

	if err := t.Validate(); err != nil {
		return IntentTable{}, errors.Wrap(err, "invalid routing table")
	}
	return t, nil
}

// LoadTable reads and validates a routing table file.
func LoadTable(path string) (IntentTable, error) {
	loader := configloader.NewLoader(filepath.Dir(path))

	var cfg TableConfig
	if err := loader.Load(filepath.Base(path), &cfg); err != nil {
		return IntentTable{}, errors.Wrap(err, "load routing table")
	}
	return cfg.Table()
}

// ParseTable decodes and validates a routing table from YAML bytes.
func ParseTable(data []byte) (IntentTable, error) {
	var cfg TableConfig
	if err := configloader.Decode(data, &cfg); err != nil {
		return IntentTable{}, err
	}
	return cfg.Table()
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

func toIntents(codes []string) []Intent {
	if len(codes) == 0 {
		return nil
	}
	out := make([]Intent, len(codes))
	for i, c := range codes {
		out[i] = Intent(c)
	}
	return out
}
