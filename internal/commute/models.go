// Package commute provides commute definition management.
package commute

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrCommuteNotFound = errors.New("commute not found")
)

// StationRef is an opaque station reference attached to a commute.
// Immutable once set; resolved by the transit client.
type StationRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IsSet reports whether the reference points at a station.
func (r StationRef) IsSet() bool {
	return r.ID != ""
}

// Commute is a user-defined rule mapping a route and desired arrival time to
// a recurrence pattern. The scheduler treats commutes as read-only input.
type Commute struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Enabled            bool       `json:"enabled"`
	StartStation       StationRef `json:"startStation"`
	DestinationStation StationRef `json:"destinationStation"`

	// ArrivalTime is the desired arrival in "HH:mm" local wall time.
	ArrivalTime string `json:"arrivalTime"`

	// PreparationTime is the minutes needed between alarm and departure.
	PreparationTime int `json:"preparationTime"`

	// SafetyBuffer is extra margin in minutes subtracted from the arrival
	// deadline before viability is evaluated.
	SafetyBuffer int `json:"safetyBuffer"`

	// IsRecurring selects between weekly recurrence and a one-time date.
	IsRecurring bool `json:"isRecurring"`

	// Days holds weekdays 0 (Sunday) through 6 (Saturday) for recurring
	// commutes; empty for one-time commutes.
	Days []int `json:"days,omitempty"`

	// OneTimeDate is the calendar date for a one-time commute
	// (nil when recurring).
	OneTimeDate *time.Time `json:"oneTimeDate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasStations reports whether both ends of the route are set.
func (c *Commute) HasStations() bool {
	return c.StartStation.IsSet() && c.DestinationStation.IsSet()
}

// RunsOn reports whether a recurring commute runs on the given weekday.
func (c *Commute) RunsOn(day time.Weekday) bool {
	for _, d := range c.Days {
		if time.Weekday(d) == day {
			return true
		}
	}
	return false
}
