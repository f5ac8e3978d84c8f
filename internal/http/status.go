package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/petrolwatch/fuelsync/internal/database"
	"github.com/petrolwatch/fuelsync/internal/engine"
	"github.com/petrolwatch/fuelsync/internal/models"
	"github.com/petrolwatch/fuelsync/internal/scheduler"
)

// StatusHandler handles the /status endpoint.
type StatusHandler struct {
	engine    *engine.Engine
	scheduler *scheduler.Scheduler
	store     *database.Store
	startTime time.Time
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(e *engine.Engine, sched *scheduler.Scheduler, store *database.Store) *StatusHandler {
	return &StatusHandler{
		engine:    e,
		scheduler: sched,
		store:     store,
		startTime: time.Now(),
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := models.StatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	if h.scheduler != nil {
		response.SchedulerRunning = h.scheduler.IsRunning()
		response.LastRunAt = h.scheduler.LastRunAt()
		nextRun := h.scheduler.NextRunAt()
		if !nextRun.IsZero() {
			response.NextRunAt = &nextRun
		}
	}

	if report := h.engine.LastReport(); report != nil {
		response.LastRun = summarize(report)
	}

	response.Database = h.getDatabaseStatus(ctx)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
}

func summarize(report *engine.Report) *models.RunSummary {
	stats := report.Stats
	return &models.RunSummary{
		AsOf:                 report.AsOf.Format("2006-01-02"),
		DryRun:               report.DryRun,
		StartedAt:            stats.StartedAt,
		FinishedAt:           stats.FinishedAt,
		RecordsTotal:         stats.RecordsTotal,
		RecordsParsed:        stats.RecordsParsed,
		RecordsFailed:        stats.RecordsFailed,
		NewStations:          stats.NewStations,
		StationsUpdated:      stats.StationsUpdated,
		StationsUnchanged:    stats.StationsUnchanged,
		AvailabilityInserted: stats.AvailabilityInserted,
		PricesInserted:       stats.PricesInserted,
		PricesUpdated:        stats.PricesUpdated,
		FetchMs:              stats.FetchDuration.Milliseconds(),
		ParseMs:              stats.ParseDuration.Milliseconds(),
		ClassifyMs:           stats.ClassifyDuration.Milliseconds(),
		ApplyMs:              stats.ApplyDuration.Milliseconds(),
		LastError:            stats.LastError,
	}
}

func (h *StatusHandler) getDatabaseStatus(ctx context.Context) models.DatabaseStatus {
	status := models.DatabaseStatus{
		Connected: false,
	}

	if h.store == nil {
		return status
	}

	if err := h.store.Ping(ctx); err != nil {
		return status
	}
	status.Connected = true

	count, err := h.store.TotalStationsCount(ctx)
	if err == nil {
		status.TotalStations = count
	}

	return status
}
