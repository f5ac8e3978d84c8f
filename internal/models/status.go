package models

import "time"

// RunSummary is the last run's outcome as exposed by the /status endpoint.
type RunSummary struct {
	AsOf          string     `json:"as_of"`
	DryRun        bool       `json:"dry_run"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	RecordsTotal  int        `json:"records_total"`
	RecordsParsed int        `json:"records_parsed"`
	RecordsFailed int        `json:"records_failed"`

	NewStations          int `json:"new_stations"`
	StationsUpdated      int `json:"stations_updated"`
	StationsUnchanged    int `json:"stations_unchanged"`
	AvailabilityInserted int `json:"availability_inserted"`
	PricesInserted       int `json:"prices_inserted"`
	PricesUpdated        int `json:"prices_updated"`

	FetchMs    int64 `json:"fetch_ms"`
	ParseMs    int64 `json:"parse_ms"`
	ClassifyMs int64 `json:"classify_ms"`
	ApplyMs    int64 `json:"apply_ms"`

	LastError *string `json:"last_error,omitempty"`
}

// StatusResponse is the response for the /status endpoint.
type StatusResponse struct {
	Status           string         `json:"status"`
	UptimeSeconds    int64          `json:"uptime_seconds"`
	SchedulerRunning bool           `json:"scheduler_running"`
	NextRunAt        *time.Time     `json:"next_run_at,omitempty"`
	LastRunAt        *time.Time     `json:"last_run_at,omitempty"`
	LastRun          *RunSummary    `json:"last_run,omitempty"`
	Database         DatabaseStatus `json:"database"`
}

// DatabaseStatus holds the database connection status.
type DatabaseStatus struct {
	Connected     bool  `json:"connected"`
	TotalStations int64 `json:"total_stations"`
}
