// Package dedupe detects when a new memory restates one already
// stored. Comparison is tiered: exact match after normalization,
// lexical similarity, semantic element agreement, then a borderline
// heuristic for near-misses.
package dedupe

import (
	"regexp"
	"strings"
)

// Similarity thresholds.
const (
	duplicateThreshold  = 0.85
	borderlineThreshold = 0.70
	heuristicSimilarity = 0.75
)

// Detection methods reported in a Verdict.
const (
	MethodExact     = "exact"
	MethodLexical   = "lexical"
	MethodSemantic  = "semantic"
	MethodHeuristic = "heuristic"
	MethodNone      = "none"
)

// Verdict is the outcome of comparing two memory statements.
type Verdict struct {
	Duplicate  bool
	Similarity float64
	Method     string
}

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	punctuationRe = regexp.MustCompile(`[.,!?;:]`)
	dadRe         = regexp.MustCompile(`\b(dad|daddy)\b`)
	momRe         = regexp.MustCompile(`\b(mom|mommy)\b`)
	possessiveRe  = regexp.MustCompile(`(\w)'s\b`)
	articleRe     = regexp.MustCompile(`\b(the|a|an)\b`)
	isCalledRe    = regexp.MustCompile(`\bis (called|named)\b`)
)

var contractions = [][2]string{
	{"'re", " are"},
	{"'m", " am"},
	{"'ve", " have"},
	{"'ll", " will"},
	{"'d", " would"},
}

// Normalize rewrites a statement into canonical form. The rewrite
// order matters: kin terms unify before possessives are stripped, and
// articles drop before the final whitespace collapse.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = punctuationRe.ReplaceAllString(s, "")
	s = dadRe.ReplaceAllString(s, "father")
	s = momRe.ReplaceAllString(s, "mother")
	s = possessiveRe.ReplaceAllString(s, "$1")
	for _, c := range contractions {
		s = strings.ReplaceAll(s, c[0], c[1])
	}
	s = articleRe.ReplaceAllString(s, "")
	s = isCalledRe.ReplaceAllString(s, "is")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Compare runs the tiered duplicate check over two raw statements.
func Compare(a, b string) Verdict {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return Verdict{Similarity: 0, Method: MethodNone}
	}

	if na == nb {
		return Verdict{Duplicate: true, Similarity: 1.0, Method: MethodExact}
	}

	sim := similarity(na, nb)
	if sim >= duplicateThreshold {
		return Verdict{Duplicate: true, Similarity: sim, Method: MethodLexical}
	}

	ea, eb := extractElements(na), extractElements(nb)
	if len(ea) > 0 && len(eb) > 0 {
		// One shared element alone proves nothing: two different
		// facts about the same relative are not duplicates.
		if score, keys := agreement(ea, eb); keys >= 2 && score >= duplicateThreshold {
			return Verdict{Duplicate: true, Similarity: sim, Method: MethodSemantic}
		}
	}

	if sim >= borderlineThreshold {
		if v, ok := borderline(ea, eb, sim); ok {
			return v
		}
	}

	return Verdict{Similarity: sim, Method: MethodNone}
}

// FindDuplicate returns the index of the first existing statement the
// candidate duplicates, or -1.
func FindDuplicate(candidate string, existing []string) (int, Verdict) {
	for i, e := range existing {
		if v := Compare(candidate, e); v.Duplicate {
			return i, v
		}
	}
	return -1, Verdict{Method: MethodNone}
}

// similarity blends token-set Jaccard overlap with positional
// character overlap, favoring the former.
func similarity(a, b string) float64 {
	return jaccard(a, b)*0.7 + positional(a, b)*0.3
}

func jaccard(a, b string) float64 {
	sa := tokenSet(a)
	sb := tokenSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 1.0
	}
	inter := 0
	for t := range sa {
		if _, ok := sb[t]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, t := range strings.Fields(s) {
		set[t] = struct{}{}
	}
	return set
}

func positional(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1.0
	}
	matches := 0
	for i := 0; i < min(len(ra), len(rb)); i++ {
		if ra[i] == rb[i] {
			matches++
		}
	}
	return float64(matches) / float64(longest)
}

var (
	nameRe = regexp.MustCompile(`\b(?:name is|i am|my \w+ is)\s+(\w+)`)
	kinRe  = regexp.MustCompile(`\b(father|mother|sister|brother|wife|husband|son|daughter|grandfather|grandmother|uncle|aunt|cousin|partner|friend|dog|cat)\b`)
	dateRe = regexp.MustCompile(`\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}\b|\b\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?\b`)
	prefRe = regexp.MustCompile(`\b(?:i love|i like|i enjoy|i prefer|i hate|i dislike|favorite \w+ is)\s+(.+)$`)
)

// extractElements pulls the comparable facts out of a normalized
// statement: a name, a relationship, a date, a preference.
func extractElements(s string) map[string]string {
	el := map[string]string{}
	if m := nameRe.FindStringSubmatch(s); m != nil {
		el["name"] = m[1]
	}
	if m := kinRe.FindString(s); m != "" {
		el["relationship"] = m
	}
	if m := dateRe.FindString(s); m != "" {
		el["date"] = m
	}
	if m := prefRe.FindStringSubmatch(s); m != nil {
		el["preference"] = strings.TrimSpace(m[1])
	}
	return el
}

// agreement is the share of element keys present in both statements
// whose values match exactly, plus the number of keys compared. Keys
// only one side carries are not evidence either way: a statement that
// adds a birthday still restates the same name and relationship.
func agreement(a, b map[string]string) (float64, int) {
	shared := 0
	equal := 0
	for k, va := range a {
		vb, ok := b[k]
		if !ok {
			continue
		}
		shared++
		if va == vb {
			equal++
		}
	}
	if shared == 0 {
		return 0, 0
	}
	return float64(equal) / float64(shared), shared
}

// borderline resolves near-miss pairs: a shared name settles it, and
// a shared relationship does too when the texts already overlap.
func borderline(a, b map[string]string, sim float64) (Verdict, bool) {
	if na, ok := a["name"]; ok {
		if nb, ok := b["name"]; ok && na == nb {
			return Verdict{Duplicate: true, Similarity: heuristicSimilarity, Method: MethodHeuristic}, true
		}
	}
	if ra, ok := a["relationship"]; ok {
		if rb, ok := b["relationship"]; ok && ra == rb && sim > 0.6 {
			return Verdict{Duplicate: true, Similarity: heuristicSimilarity, Method: MethodHeuristic}, true
		}
	}
	return Verdict{}, false
}
