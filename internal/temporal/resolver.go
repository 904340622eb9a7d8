// Package temporal resolves relative and absolute date phrases to
// day offsets from a caller-supplied reference date. It is a pure
// function over static lookup tables and holds no state.
package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Unresolved is returned for expressions the resolver does not
// understand. It is distinct from a zero-day offset: callers must
// treat it as extraction failure, never as "today".
const Unresolved = -1

var weekdayOffsets = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

var monthNumbers = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

var unitDays = map[string]int{
	"day":   1,
	"week":  7,
	"month": 30,
}

var (
	compoundRe = regexp.MustCompile(`(?i)\b(\d+)\s+(days?|weeks?|months?)\b`)
	weekdayRe  = regexp.MustCompile(`(?i)\b(?:next\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	monthDayRe = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
)

// Resolve converts a date expression to a day offset from ref.
// Rules are tried in priority order: literal keywords, compound
// numeric phrases (additive: "3 weeks 4 days" = 25), weekday names
// (always strictly future), then month+day absolutes (rolled forward
// a year when already past). Unknown expressions yield Unresolved.
//
// The resolver does not enforce any acceptance cap; rejecting offsets
// outside a valid range is the consumer's job.
func Resolve(expression string, ref time.Time) int {
	expr := strings.ToLower(strings.TrimSpace(expression))
	if expr == "" {
		return Unresolved
	}

	switch expr {
	case "today", "tonight":
		return 0
	case "tomorrow":
		return 1
	case "next week", "in a week":
		return 7
	case "next month", "in a month":
		return 30
	}

	if matches := compoundRe.FindAllStringSubmatch(expr, -1); len(matches) > 0 {
		total := 0
		for _, m := range matches {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return Unresolved
			}
			unit := strings.TrimSuffix(strings.ToLower(m[2]), "s")
			total += n * unitDays[unit]
		}
		return total
	}

	if m := weekdayRe.FindStringSubmatch(expr); m != nil {
		return DaysUntilWeekday(weekdayOffsets[strings.ToLower(m[1])], ref)
	}

	if m := monthDayRe.FindStringSubmatch(expr); m != nil {
		return daysUntilMonthDay(strings.ToLower(m[1]), m[2], ref)
	}

	return Unresolved
}

// DaysUntilWeekday returns the smallest strictly positive offset from
// ref to the target weekday. The result is always in [1,7]: a bare
// weekday name never means today, even when today matches.
func DaysUntilWeekday(target time.Weekday, ref time.Time) int {
	d := (int(target) - int(ref.Weekday()) + 7) % 7
	if d <= 0 {
		d += 7
	}
	return d
}

func daysUntilMonthDay(monthName, dayStr string, ref time.Time) int {
	month, ok := monthNumbers[monthName]
	if !ok {
		return Unresolved
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 1 || day > 31 {
		return Unresolved
	}

	refDay := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	target := time.Date(ref.Year(), month, day, 0, 0, 0, 0, time.UTC)
	if target.Month() != month {
		return Unresolved // e.g. February 30 normalized away
	}
	if target.Before(refDay) {
		target = target.AddDate(1, 0, 0)
	}
	return int(target.Sub(refDay).Hours() / 24)
}

// FormatRelative renders a day offset as a short human time phrase
// ("today", "tomorrow", "next week", "in 12 days").
func FormatRelative(days int) string {
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days == 7:
		return "next week"
	case days < 0:
		return "in the past"
	default:
		return "in " + strconv.Itoa(days) + " days"
	}
}
