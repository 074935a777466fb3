// Package models provides request and response models for the railwake API.
package models

import "time"

// HealthStatus represents the health status of a service.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Health is the liveness/readiness response body.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    time.Time              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ProviderStatus reports the availability of one transit data provider.
type ProviderStatus struct {
	Provider         string       `json:"provider"`
	Status           HealthStatus `json:"status"`
	LastError        string       `json:"lastError,omitempty"`
	UnavailableSince *time.Time   `json:"unavailableSince,omitempty"`
}

// SystemStatus is the ops status response body.
type SystemStatus struct {
	Status    HealthStatus     `json:"status"`
	Time      time.Time        `json:"time"`
	Providers []ProviderStatus `json:"providers"`
}

// Station is a station search result.
type Station struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StationRef references a station on a commute.
type StationRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CommuteRequest is the create/update request body for a commute.
type CommuteRequest struct {
	Name               string     `json:"name"`
	Enabled            bool       `json:"enabled"`
	StartStation       StationRef `json:"startStation"`
	DestinationStation StationRef `json:"destinationStation"`
	ArrivalTime        string     `json:"arrivalTime"`
	PreparationTime    int        `json:"preparationTime"`
	SafetyBuffer       int        `json:"safetyBuffer"`
	IsRecurring        bool       `json:"isRecurring"`
	Days               []int      `json:"days,omitempty"`
	OneTimeDate        *time.Time `json:"oneTimeDate,omitempty"`
}

// Commute is the commute response body.
type Commute struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Enabled            bool       `json:"enabled"`
	StartStation       StationRef `json:"startStation"`
	DestinationStation StationRef `json:"destinationStation"`
	ArrivalTime        string     `json:"arrivalTime"`
	PreparationTime    int        `json:"preparationTime"`
	SafetyBuffer       int        `json:"safetyBuffer"`
	IsRecurring        bool       `json:"isRecurring"`
	Days               []int      `json:"days,omitempty"`
	OneTimeDate        *time.Time `json:"oneTimeDate,omitempty"`
	NextOccurrence     *time.Time `json:"nextOccurrence,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// AlarmLeg describes the train leg the armed alarm was derived from.
type AlarmLeg struct {
	Line             string    `json:"line"`
	Origin           string    `json:"origin"`
	Destination      string    `json:"destination"`
	PlannedDeparture time.Time `json:"plannedDeparture"`
	ActualDeparture  time.Time `json:"actualDeparture"`
	PlannedArrival   time.Time `json:"plannedArrival"`
	ActualArrival    time.Time `json:"actualArrival"`
}

// AlarmState is the armed-alarm response body.
type AlarmState struct {
	AlarmTime time.Time `json:"alarmTime"`
	CommuteID string    `json:"commuteId"`
	LastLeg   AlarmLeg  `json:"lastLeg"`
}

// Adjustment is one alarm-moved history entry.
type Adjustment struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	OldAlarmTime time.Time `json:"oldAlarmTime"`
	NewAlarmTime time.Time `json:"newAlarmTime"`
	DelayMinutes int       `json:"delayMinutes"`
}

// ReconcileResult is the response body for an explicit reconciliation.
type ReconcileResult struct {
	Outcome   string     `json:"outcome"`
	AlarmTime *time.Time `json:"alarmTime,omitempty"`
	Warning   string     `json:"warning,omitempty"`
}

// PairRequest is the device pairing request body.
type PairRequest struct {
	DeviceID  string `json:"deviceId"`
	SetupCode string `json:"setupCode,omitempty"`
}

// PairResponse carries the issued device bearer token.
type PairResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	DeviceID  string    `json:"deviceId"`
}
