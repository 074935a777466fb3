package alarm

import (
	"fmt"
	"time"

	"github.com/railwake/railwake/internal/transit"
)

// Selection is the result of picking a journey for a commute.
type Selection struct {
	// Journey is the chosen journey, nil when the input list was empty.
	Journey *transit.Journey

	// AlarmTime is the chosen journey's delay-adjusted departure minus the
	// preparation time. Zero when Journey is nil.
	AlarmTime time.Time

	// Reasoning explains the choice for logs and the UI.
	Reasoning string

	// Fallback is true when no journey met the deadline and the result is
	// a degraded-safety pick that callers must surface to the user.
	Fallback bool
}

// SelectOptimalJourney picks the journey that departs latest while still
// arriving safely, maximizing sleep.
//
// Viability is always judged on delay-adjusted times, never on the timetable
// alone: a journey is viable iff its actual arrival is no later than
// desiredArrival minus the safety buffer. Among viable journeys the one with
// the latest actual departure wins; on equal departures the first in the
// list wins. When nothing is viable the earliest journey by list order is
// returned with Fallback set, so callers can warn instead of arming a
// too-late alarm silently. An empty input yields a nil Journey.
func SelectOptimalJourney(journeys []*transit.Journey, desiredArrival time.Time, prepMinutes, safetyBufferMinutes int) Selection {
	if len(journeys) == 0 {
		return Selection{Reasoning: "no journeys available"}
	}

	deadline := desiredArrival.Add(-time.Duration(safetyBufferMinutes) * time.Minute)
	prep := time.Duration(prepMinutes) * time.Minute

	var best *transit.Journey
	for _, j := range journeys {
		if j.ActualArrival().After(deadline) {
			continue
		}
		if best == nil || j.ActualDeparture().After(best.ActualDeparture()) {
			best = j
		}
	}

	if best == nil {
		fallback := journeys[0]
		return Selection{
			Journey:   fallback,
			AlarmTime: fallback.ActualDeparture().Add(-prep),
			Reasoning: fmt.Sprintf(
				"no journey arrives by %s; falling back to the earliest option arriving %s",
				deadline.Format("15:04"),
				fallback.ActualArrival().Format("15:04"),
			),
			Fallback: true,
		}
	}

	return Selection{
		Journey:   best,
		AlarmTime: best.ActualDeparture().Add(-prep),
		Reasoning: fmt.Sprintf(
			"latest departure %s arriving %s, %s before the deadline",
			best.ActualDeparture().Format("15:04"),
			best.ActualArrival().Format("15:04"),
			deadline.Sub(best.ActualArrival()).Round(time.Minute),
		),
	}
}
