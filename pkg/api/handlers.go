package api

import (
	"encoding/json"
	"net/http"

	"github.com/dnisha/aws-instance-schedular/pkg/scheduler"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeSuccess(w, http.StatusOK, "ok", nil)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var record scheduler.ScheduleRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	created, err := s.store.CreateSchedule(r.Context(), &record)
	if err != nil {
		if scheduler.IsValidationError(err) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("failed to create schedule", "schedule", record.Name, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to store schedule")
		return
	}

	s.logger.Info("schedule created", "schedule", created.Name, "action", created.Action)
	s.writeSuccess(w, http.StatusCreated, "schedule created", created)
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.store.ListSchedules(r.Context())
	if err != nil {
		s.logger.Error("failed to list schedules", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list schedules")
		return
	}
	s.writeSuccess(w, http.StatusOK, "", schedules)
}

func (s *Server) handleListInstances(w http.ResponseWriter, r *http.Request) {
	tagSelector := r.URL.Query().Get("for_tag")

	byRegion, err := s.instances.ListInstances(r.Context(), tagSelector)
	if err != nil {
		if byRegion == nil {
			s.logger.Error("failed to list instances", "error", err)
			s.writeError(w, http.StatusBadGateway, "failed to list instances")
			return
		}
		// Some regions answered; serve what we have.
		s.logger.Warn("instance listing incomplete", "error", err)
	}

	s.writeSuccess(w, http.StatusOK, "", byRegion)
}

type createTagRequest struct {
	InstanceID string `json:"instance_id"`
	Region     string `json:"region"`
	Schedule   string `json:"schedule"`
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req createTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.InstanceID == "" || req.Region == "" || req.Schedule == "" {
		s.writeError(w, http.StatusBadRequest, "instance_id, region and schedule are required")
		return
	}

	if err := s.instances.TagInstance(r.Context(), req.Region, req.InstanceID, req.Schedule); err != nil {
		s.logger.Error("failed to tag instance",
			"instance_id", req.InstanceID, "region", req.Region, "error", err)
		s.writeError(w, http.StatusBadGateway, "failed to tag instance")
		return
	}

	s.writeSuccess(w, http.StatusOK, "instance tagged", nil)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	result, err := s.sweeper.Run(r.Context())
	if err != nil {
		s.logger.Error("sweep failed", "error", err)
		s.writeError(w, http.StatusBadGateway, "sweep failed: "+err.Error())
		return
	}
	s.writeSuccess(w, http.StatusOK, "sweep complete", result)
}
