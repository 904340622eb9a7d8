// Package calendar extracts scheduled events from free-form chat
// utterances. Extraction runs in two modes: a deterministic
// rule-table pass that needs no network, and an assisted pass that
// asks a language model and falls back to the rules on failure.
package calendar

import "strings"

// Event is one extracted calendar entry. Days counts forward from the
// reference date the extractor was given.
type Event struct {
	Title      string  `json:"title"`
	Days       int     `json:"days_from_today"`
	Color      string  `json:"color"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// Extraction sources.
const (
	SourceDeterministic = "deterministic"
	SourceAssisted      = "assisted"
)

// Color palette, keyed by event category.
const (
	colorCelebration = "#f783ac"
	colorWork        = "#4dabf7"
	colorHealth      = "#69db7c"
	colorSocial      = "#ffa94d"
	colorStudy       = "#9775fa"
	colorTravel      = "#3bc9db"
	colorDefault     = "#ced4da"
)

var colorKeywords = map[string]string{
	"birthday":     colorCelebration,
	"anniversary":  colorCelebration,
	"wedding":      colorCelebration,
	"party":        colorCelebration,
	"graduation":   colorCelebration,
	"meeting":      colorWork,
	"interview":    colorWork,
	"deadline":     colorWork,
	"conference":   colorWork,
	"presentation": colorWork,
	"standup":      colorWork,
	"review":       colorWork,
	"dentist":      colorHealth,
	"doctor":       colorHealth,
	"checkup":      colorHealth,
	"appointment":  colorHealth,
	"surgery":      colorHealth,
	"therapy":      colorHealth,
	"dinner":       colorSocial,
	"lunch":        colorSocial,
	"brunch":       colorSocial,
	"concert":      colorSocial,
	"date":         colorSocial,
	"reunion":      colorSocial,
	"exam":         colorStudy,
	"test":         colorStudy,
	"class":        colorStudy,
	"lecture":      colorStudy,
	"course":       colorStudy,
	"flight":       colorTravel,
	"trip":         colorTravel,
	"vacation":     colorTravel,
	"cruise":       colorTravel,
}

// ColorFor picks a display color from the first recognized keyword in
// the title, falling back to a neutral grey.
func ColorFor(title string) string {
	for _, word := range strings.Fields(strings.ToLower(title)) {
		if c, ok := colorKeywords[word]; ok {
			return c
		}
	}
	return colorDefault
}
