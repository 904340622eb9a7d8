// Package memory categorizes storable personal facts, matching them
// against the user's existing categories or proposing a new one.
package memory

import (
	"regexp"
	"strings"

	"github.com/kalambet/scribe/internal/worthiness"
)

// Confidence grades how sure the classifier is that the fact belongs
// in long-term memory.
type Confidence string

const (
	Low    Confidence = "low"
	Medium Confidence = "medium"
	High   Confidence = "high"
)

// None marks an analysis that produced nothing to store.
const None = "None"

// Memory types, in bucket priority order.
const (
	TypeDate       = "personal_date"
	TypeLearning   = "learning"
	TypePreference = "preference"
	TypeRelation   = "relationship"
	TypeIdentity   = "identity"
	TypeGeneral    = "general"
)

// Analysis is the classifier's verdict for one utterance.
type Analysis struct {
	CategoryMatch         string
	NewCategorySuggestion string
	MemoryToStore         string
	Confidence            Confidence
	MemoryType            string
}

// ShouldStore reports whether the analysis produced a fact worth
// persisting.
func (a Analysis) ShouldStore() bool {
	return a.MemoryToStore != None && (a.Confidence == Medium || a.Confidence == High)
}

// Category returns the matched existing category, or the suggestion
// when nothing matched.
func (a Analysis) Category() string {
	if a.CategoryMatch != "" {
		return a.CategoryMatch
	}
	return a.NewCategorySuggestion
}

// bucket ties a detection pattern to a memory type and the category
// it synthesizes. Order is priority: dates beat learning goals beat
// preferences.
type bucket struct {
	re       *regexp.Regexp
	memType  string
	category string
}

var buckets = []bucket{
	{
		re:       regexp.MustCompile(`(?i)\b(birthday|anniversary|born on|graduation day)\b|\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}\b`),
		memType:  TypeDate,
		category: "Important_Dates",
	},
	{
		re:       regexp.MustCompile(`(?i)\b(i'm learning|i am learning|i'm studying|i am studying|my goal|i want to learn|i plan to)\b`),
		memType:  TypeLearning,
		category: "Learning_Goals",
	},
	{
		re:       regexp.MustCompile(`(?i)\b(i love|i like|i enjoy|i prefer|my favorite|i hate|i dislike|i don't like)\b`),
		memType:  TypePreference,
		category: "Preferences",
	},
	{
		re:       regexp.MustCompile(`(?i)\b(my (wife|husband|partner|mom|dad|mother|father|sister|brother|son|daughter|grandma|grandpa|uncle|aunt|cousin|friend))\b|\bmy \w+'s name is\b`),
		memType:  TypeRelation,
		category: "Family",
	},
	{
		re:       regexp.MustCompile(`(?i)\b(my name is|i live in|i work at|i'm from|i was born in|my job|my career)\b`),
		memType:  TypeIdentity,
		category: "Personal_Information",
	},
}

const highScoreThreshold = 0.8

var generalCategory = "General_Information"

// Classify buckets a worthy utterance and resolves its category
// against the caller's existing set. The worthiness result must come
// from the routing decision so the utterance is never re-assessed.
func Classify(text string, w worthiness.Result, existing []string) Analysis {
	clean := strings.TrimSpace(text)
	if clean == "" || !w.Worthy {
		return Analysis{MemoryToStore: None, Confidence: Low, MemoryType: TypeGeneral}
	}

	memType, category := TypeGeneral, generalCategory
	for _, b := range buckets {
		if b.re.MatchString(clean) {
			memType, category = b.memType, b.category
			break
		}
	}

	conf := Medium
	if w.Score >= highScoreThreshold && memType != TypeGeneral {
		conf = High
	}

	a := Analysis{
		MemoryToStore: clean,
		Confidence:    conf,
		MemoryType:    memType,
	}
	if match := matchCategory(category, existing); match != "" {
		a.CategoryMatch = match
	} else {
		a.NewCategorySuggestion = category
	}
	return a
}

// matchCategory finds an existing category that loosely names the
// same thing: after normalization, either string containing the other
// counts as a match.
func matchCategory(suggested string, existing []string) string {
	ns := normalizeCategory(suggested)
	for _, e := range existing {
		ne := normalizeCategory(e)
		if ne == "" {
			continue
		}
		if strings.Contains(ne, ns) || strings.Contains(ns, ne) {
			return e
		}
	}
	return ""
}

func normalizeCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}
