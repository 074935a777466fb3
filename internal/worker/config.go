// Package worker provides background job processing for railwake.
package worker

import (
	"time"
)

// ReconcileConfig holds configuration for the periodic reconcile job.
type ReconcileConfig struct {
	// Interval is how often the background loop re-evaluates the alarm.
	// Default: 15 minutes
	Interval time.Duration

	// Timeout is the timeout for a single reconcile cycle.
	// Default: 20 seconds
	Timeout time.Duration
}

// DefaultReconcileConfig returns the default reconcile configuration.
func DefaultReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		Interval: 15 * time.Minute,
		Timeout:  20 * time.Second,
	}
}

func (c ReconcileConfig) withDefaults() ReconcileConfig {
	if c.Interval <= 0 {
		c.Interval = 15 * time.Minute
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	return c
}
