package routing

import (
	"strings"
)

type scoredIntent struct {
	code     Intent
	keywords []string
}

// Classifier maps a transcript to an intent with keyword rules.
// It holds only data built at construction and is safe for concurrent use.
type Classifier struct {
	intents          []scoredIntent
	emergencyPhrases []string
	humanPhrases     []string
	emergencyIntent  Intent
	humanIntent      Intent
	keywordCap       float64
}

// NewClassifier compiles the table's phrase sets. The table is copied;
// later changes to it are not observed.
func NewClassifier(table IntentTable) *Classifier {
	c := &Classifier{
		intents:          make([]scoredIntent, 0, len(table.Intents)),
		emergencyPhrases: normalizePhrases(table.Overrides.EmergencyPhrases),
		humanPhrases:     normalizePhrases(table.Overrides.HumanPhrases),
		emergencyIntent:  table.Overrides.EmergencyIntent,
		humanIntent:      table.Overrides.HumanIntent,
		keywordCap:       float64(table.KeywordCap),
	}
	if c.keywordCap < 1 {
		c.keywordCap = DefaultKeywordCap
	}
	for _, def := range table.Intents {
		c.intents = append(c.intents, scoredIntent{
			code:     def.Code,
			keywords: normalizePhrases(def.Keywords),
		})
	}
	return c
}

// Classify returns the best intent for transcript. Matching is plain
// substring containment on the lowercased, trimmed text, so "pain" also
// matches "painting".
func (c *Classifier) Classify(transcript string) Classification {
	text := normalizeInput(transcript)
	if text == "" {
		return Classification{}
	}

	// Safety overrides win over any keyword score.
	if containsAny(text, c.emergencyPhrases) {
		return Classification{Intent: c.emergencyIntent, Confidence: 1.0}
	}
	if containsAny(text, c.humanPhrases) {
		return Classification{Intent: c.humanIntent, Confidence: 1.0}
	}

	var (
		best      Intent
		bestScore int
	)
	for _, in := range c.intents {
		score := 0
		for _, kw := range in.keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		// Strictly greater keeps the earliest declared intent on ties.
		if score > bestScore {
			best, bestScore = in.code, score
		}
	}
	if bestScore == 0 {
		return Classification{}
	}

	return Classification{
		Intent:     best,
		Confidence: normalizeConfidence(bestScore, c.keywordCap),
	}
}

func normalizeInput(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeConfidence(score int, keywordCap float64) float64 {
	conf := float64(score) / keywordCap
	if conf > 1.0 {
		return 1.0
	}
	return conf
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
