// Package transit provides live journey and station data for the alarm
// scheduler, with caching and provider-health fallback.
package transit

import (
	"errors"
	"time"
)

// Transit errors. Both wrap the underlying cause; callers must not assume
// partial results when one is returned.
var (
	ErrStationLookup = errors.New("station lookup failed")
	ErrJourneyFetch  = errors.New("journey fetch failed")
)

// Station is an opaque station reference resolved by a transit provider.
type Station struct {
	// ID is the provider's station identifier.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`
}

// Leg is one continuous vehicle segment of a journey.
type Leg struct {
	// Origin and Destination of this leg.
	Origin      Station `json:"origin"`
	Destination Station `json:"destination"`

	// PlannedDeparture and PlannedArrival are the timetable times.
	PlannedDeparture time.Time `json:"plannedDeparture"`
	PlannedArrival   time.Time `json:"plannedArrival"`

	// DepartureDelay and ArrivalDelay are live delays in seconds.
	// Nil means unknown; treat as zero.
	DepartureDelay *int `json:"departureDelay,omitempty"`
	ArrivalDelay   *int `json:"arrivalDelay,omitempty"`

	// Line is the line label (e.g. "IC 2045").
	Line string `json:"line"`
}

// ActualDeparture returns the delay-adjusted departure time.
func (l *Leg) ActualDeparture() time.Time {
	return l.PlannedDeparture.Add(delaySeconds(l.DepartureDelay))
}

// ActualArrival returns the delay-adjusted arrival time.
func (l *Leg) ActualArrival() time.Time {
	return l.PlannedArrival.Add(delaySeconds(l.ArrivalDelay))
}

// ArrivalDelayMinutes returns the live arrival delay rounded down to minutes.
func (l *Leg) ArrivalDelayMinutes() int {
	if l.ArrivalDelay == nil {
		return 0
	}
	return *l.ArrivalDelay / 60
}

func delaySeconds(d *int) time.Duration {
	if d == nil {
		return 0
	}
	return time.Duration(*d) * time.Second
}

// Journey is an ordered sequence of one or more legs. Legs are temporally
// ordered by the provider; the scheduler only reads the first and last leg.
type Journey struct {
	Legs []Leg `json:"legs"`
}

// FirstLeg returns the first leg, or nil for an empty journey.
func (j *Journey) FirstLeg() *Leg {
	if len(j.Legs) == 0 {
		return nil
	}
	return &j.Legs[0]
}

// LastLeg returns the last leg, or nil for an empty journey.
func (j *Journey) LastLeg() *Leg {
	if len(j.Legs) == 0 {
		return nil
	}
	return &j.Legs[len(j.Legs)-1]
}

// ActualDeparture returns the delay-adjusted departure of the first leg.
func (j *Journey) ActualDeparture() time.Time {
	leg := j.FirstLeg()
	if leg == nil {
		return time.Time{}
	}
	return leg.ActualDeparture()
}

// ActualArrival returns the delay-adjusted arrival of the last leg.
func (j *Journey) ActualArrival() time.Time {
	leg := j.LastLeg()
	if leg == nil {
		return time.Time{}
	}
	return leg.ActualArrival()
}
