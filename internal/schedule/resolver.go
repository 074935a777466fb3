// Package schedule resolves commute definitions to concrete occurrences.
//
// The resolver is pure: it takes a reference instant and a commute list and
// computes the next occurrence without touching clocks, stores, or networks.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/railwake/railwake/internal/commute"
)

// maxDayOffset bounds the forward scan for recurring commutes. Offset 7
// covers the wraparound where a commute runs only on today's weekday but
// today's arrival time has already passed.
const maxDayOffset = 7

// Occurrence is a concrete upcoming instance of a commute: the commute plus
// the instant the user wants to have arrived.
type Occurrence struct {
	Commute *commute.Commute
	Arrival time.Time
}

// NextActiveCommute returns the occurrence with the earliest arrival among
// all enabled commutes, or nil if none is upcoming. Ties resolve to the
// commute listed first. Station configuration is not checked here; callers
// decide what an unconfigured route means for them.
func NextActiveCommute(now time.Time, commutes []*commute.Commute) *Occurrence {
	var best *Occurrence

	for _, c := range commutes {
		if !c.Enabled {
			continue
		}

		arrival, ok := NextOccurrence(c, now)
		if !ok {
			continue
		}

		if best == nil || arrival.Before(best.Arrival) {
			best = &Occurrence{Commute: c, Arrival: arrival}
		}
	}

	return best
}

// NextOccurrence computes the next arrival instant for a single commute.
// The second return value is false when the commute has no upcoming
// occurrence (a one-time commute in the past, or an unparseable time).
func NextOccurrence(c *commute.Commute, now time.Time) (time.Time, bool) {
	hour, minute, err := parseWallTime(c.ArrivalTime)
	if err != nil {
		return time.Time{}, false
	}

	if !c.IsRecurring {
		if c.OneTimeDate == nil {
			return time.Time{}, false
		}
		d := c.OneTimeDate.In(now.Location())
		arrival := time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, now.Location())
		if !arrival.After(now) {
			return time.Time{}, false
		}
		return arrival, true
	}

	for offset := 0; offset <= maxDayOffset; offset++ {
		day := now.AddDate(0, 0, offset)
		if !c.RunsOn(day.Weekday()) {
			continue
		}

		arrival := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
		if offset == 0 && !arrival.After(now) {
			continue
		}
		return arrival, true
	}

	return time.Time{}, false
}

// WouldBeNextWeek reports whether the occurrence falls seven or more days
// after the reference instant.
func WouldBeNextWeek(now time.Time, occ *Occurrence) bool {
	return occ != nil && !occ.Arrival.Before(now.AddDate(0, 0, 7))
}

// FormatOccurrence renders an occurrence for logs.
func FormatOccurrence(occ *Occurrence) string {
	if occ == nil {
		return "none"
	}
	return fmt.Sprintf("%s arriving %s", occ.Commute.Name, occ.Arrival.Format(time.RFC3339))
}

// parseWallTime splits an "HH:mm" string into its components.
func parseWallTime(s string) (int, int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed wall time %q", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("malformed wall time %q", s)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("malformed wall time %q", s)
	}

	return hour, minute, nil
}
