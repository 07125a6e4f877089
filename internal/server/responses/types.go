// Package responses defines API response types used by faultline HTTP handlers.
package responses

import (
	"time"

	"git.home.luguber.info/inful/faultline/internal/fault"
)

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Version     string    `json:"version"`
	Uptime      float64   `json:"uptime"`
	Environment string    `json:"environment"`
	Journal     bool      `json:"journal"`
}

// FaultListResponse is returned by the journal listing endpoint.
type FaultListResponse struct {
	Status    string         `json:"status"`
	Count     int            `json:"count"`
	Faults    []fault.Record `json:"faults"`
	Timestamp time.Time      `json:"timestamp"`
}

// PruneResponse reports a manual retention run.
type PruneResponse struct {
	Status  string    `json:"status"`
	Removed int64     `json:"removed"`
	Before  time.Time `json:"before"`
}
