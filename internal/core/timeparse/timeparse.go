// Package timeparse normalizes the datetime dialects found in carrier
// payloads: ISO-8601 with or without zone, compound date+time pairs,
// dotted European dates and epoch values. Zone-less results stay naive;
// the unified model treats them as UTC when serializing.
package timeparse

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// offsetNoColon matches a trailing numeric UTC offset without a colon,
// e.g. "+0200" in GLS timestamps.
var offsetNoColon = regexp.MustCompile(`([+-]\d{2})(\d{2})$`)

var isoLayouts = []string{
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ISO parses an ISO-8601-ish timestamp. It tolerates the variants carriers
// actually emit: a trailing "Z", offsets without a colon ("+0200"),
// fractional seconds, a space instead of "T", and bare dates.
func ISO(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}

	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "+00:00"
	}
	s = offsetNoColon.ReplaceAllString(s, "$1:$2")

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Layouts parses value against each layout in order.
func Layouts(value string, layouts ...string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Compound parses a (date, time) field pair where the time part may be
// missing, truncated to minutes or carry seconds. Correos reports
// "DD/MM/YYYY" dates with "HH:MM:SS" or "HH:MM" times.
func Compound(dateValue, timeValue, dateLayout string, timeLayouts ...string) (time.Time, bool) {
	dateValue = strings.TrimSpace(dateValue)
	timeValue = strings.TrimSpace(timeValue)
	if dateValue == "" {
		return time.Time{}, false
	}

	if timeValue != "" {
		for _, tl := range timeLayouts {
			if t, err := time.Parse(dateLayout+" "+tl, dateValue+" "+timeValue); err == nil {
				return t, true
			}
		}
	}

	// Date alone still yields a usable midnight timestamp.
	if t, err := time.Parse(dateLayout, dateValue); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Epoch converts a Unix epoch in seconds or milliseconds to a UTC time.
// Values at or above 1e12 are taken as milliseconds.
func Epoch(value float64) time.Time {
	if value >= 1e12 {
		return time.UnixMilli(int64(value)).UTC()
	}
	return time.Unix(int64(value), 0).UTC()
}

// coerceKeys are the field names probed, in order, when extracting a
// timestamp from an unknown event shape.
var coerceKeys = []string{
	"timestamp", "dateTime", "datetime", "eventDate", "date", "time", "statusDate",
}

// Coerce extracts a timestamp from an arbitrarily-shaped event object.
// Strings go through ISO parsing, numbers through Epoch conversion.
// Used by the generic extractor when a carrier changes its payload shape.
func Coerce(event map[string]any) (time.Time, bool) {
	for _, key := range coerceKeys {
		raw, ok := event[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case string:
			if t, ok := ISO(v); ok {
				return t, true
			}
		case float64:
			if v > 0 {
				return Epoch(v), true
			}
		case json.Number:
			if f, err := strconv.ParseFloat(v.String(), 64); err == nil && f > 0 {
				return Epoch(f), true
			}
		}
	}
	return time.Time{}, false
}
