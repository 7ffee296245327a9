// Package api exposes the scheduler over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dnisha/aws-instance-schedular/pkg/compute"
	"github.com/dnisha/aws-instance-schedular/pkg/scheduler"
	"github.com/dnisha/aws-instance-schedular/pkg/sweep"
)

// ScheduleStore is the schedule persistence surface the API needs.
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, record *scheduler.ScheduleRecord) (*scheduler.ScheduleRecord, error)
	ListSchedules(ctx context.Context) ([]scheduler.ScheduleRecord, error)
}

// InstanceLister is the compute surface the API needs.
type InstanceLister interface {
	ListInstances(ctx context.Context, tagSelector string) (map[string][]compute.Instance, error)
	TagInstance(ctx context.Context, region, instanceID, scheduleName string) error
}

// SweepRunner triggers a single sweep pass on demand.
type SweepRunner interface {
	Run(ctx context.Context) (*sweep.Result, error)
}

// Server routes scheduler API requests.
type Server struct {
	store     ScheduleStore
	instances InstanceLister
	sweeper   SweepRunner
	logger    *slog.Logger
}

// NewServer wires the API against its collaborators.
func NewServer(store ScheduleStore, instances InstanceLister, sweeper SweepRunner, logger *slog.Logger) *Server {
	return &Server{
		store:     store,
		instances: instances,
		sweeper:   sweeper,
		logger:    logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/healthz", s.handleHealthz)
	mux.HandleFunc("POST /api/v1/schedule", s.handleCreateSchedule)
	mux.HandleFunc("GET /api/v1/schedules", s.handleListSchedules)
	mux.HandleFunc("GET /api/v1/instances", s.handleListInstances)
	mux.HandleFunc("POST /api/v1/create_tag", s.handleCreateTag)
	mux.HandleFunc("POST /api/v1/sweep", s.handleSweep)
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

// apiResponse is the standard API response envelope.
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeSuccess(w http.ResponseWriter, statusCode int, message string, data any) {
	s.writeJSON(w, statusCode, apiResponse{Success: true, Message: message, Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSON(w, statusCode, apiResponse{Success: false, Error: message})
}
