// Package datefmt renders backend timestamps for request tables.
//
// The display layout is MM:DD:YYYY HH:SS. It shows hours and seconds, not
// minutes, which is what the request tables have always shown.
package datefmt

import (
	"strings"
	"time"
)

// Layout is the fixed-width display layout (month:day:year hour:second).
const Layout = "01:02:2006 15:05"

// InputLayout is the value format of an HTML datetime-local input.
const InputLayout = "2006-01-02T15:04"

// inputLayouts also accepts the seconds browsers send when the input has a step.
var inputLayouts = []string{InputLayout, "2006-01-02T15:04:05"}

// Zone-less layouts are interpreted in the caller's location; date-only values are UTC.
var (
	zonedLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04Z07:00"}
	localLayouts = []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05", "2006-01-02T15:04"}
	dateLayouts  = []string{"2006-01-02"}
)

// ParseTimestamp reads an ISO-style timestamp. The boolean is false for empty
// or unparseable input.
func ParseTimestamp(input string, loc *time.Location) (time.Time, bool) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseInput reads a datetime-local form value in loc.
func ParseInput(input string, loc *time.Location) (time.Time, bool) {
	raw := strings.TrimSpace(input)
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTime renders t in loc using Layout.
func FormatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(Layout)
}

// Format parses and renders input, returning "" when it is absent or invalid.
func Format(input string, loc *time.Location) string {
	t, ok := ParseTimestamp(input, loc)
	if !ok {
		return ""
	}
	return FormatTime(t, loc)
}
