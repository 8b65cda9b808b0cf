// Package server exposes the HTTP gateway for the consultation platform.
//
// The gateway is a thin translation layer: it validates incoming case
// submissions, starts the consultation workflow on Temporal, and serves
// completed decision reports. All clinical logic lives behind the workflow.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/ahrav/go-consilium/internal/domain"
	"github.com/ahrav/go-consilium/internal/workflow"
)

// resultWait bounds how long a status request blocks on a running workflow
// before reporting it as still in progress.
const resultWait = 2 * time.Second

// WorkflowClient is the narrow slice of the Temporal client the gateway
// needs. client.Client satisfies it; tests supply fakes.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow any, args ...any) (client.WorkflowRun, error)
	GetWorkflow(ctx context.Context, workflowID, runID string) client.WorkflowRun
}

// Server routes HTTP requests to the consultation workflow.
type Server struct {
	temporal  WorkflowClient
	taskQueue string
	logger    *slog.Logger
}

// New constructs the gateway server.
func New(temporal WorkflowClient, taskQueue string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{temporal: temporal, taskQueue: taskQueue, logger: logger}
}

// Router builds the chi router with standard middleware.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/consultations", s.handleCreateConsultation)
		r.Get("/consultations/{id}", s.handleGetConsultation)
	})
	return r
}

// --- Request/response types ---

// CreateConsultationRequest is the POST /consultations payload.
type CreateConsultationRequest struct {
	Case        domain.MedicalCase    `json:"case"`
	Config      *domain.ConsultConfig `json:"config,omitempty"`
	RequestedBy string                `json:"requested_by"`
}

// CreateConsultationResponse identifies the started consultation.
type CreateConsultationResponse struct {
	ConsultationID string `json:"consultation_id"`
	WorkflowID     string `json:"workflow_id"`
	RunID          string `json:"run_id"`
}

// ConsultationStatusResponse wraps the decision report with a status so
// clients can poll the same endpoint before and after completion.
type ConsultationStatusResponse struct {
	Status string                 `json:"status"`
	Report *domain.DecisionReport `json:"report,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateConsultation(w http.ResponseWriter, r *http.Request) {
	var payload CreateConsultationRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := domain.DefaultConsultConfig()
	if payload.Config != nil {
		cfg = *payload.Config
	}

	req, err := domain.NewConsultationRequest(payload.Case, payload.RequestedBy, cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid consultation request: %v", err))
		return
	}

	opts := client.StartWorkflowOptions{
		ID:        workflowID(req.Case.CaseID, req.ID),
		TaskQueue: s.taskQueue,
	}
	run, err := s.temporal.ExecuteWorkflow(r.Context(), opts, workflow.ConsultationWorkflow, *req)
	if err != nil {
		s.logger.Error("failed to start consultation workflow",
			"case_id", req.Case.CaseID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to start consultation")
		return
	}

	s.logger.Info("consultation started",
		"case_id", req.Case.CaseID,
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID())

	writeJSON(w, http.StatusAccepted, CreateConsultationResponse{
		ConsultationID: req.ID,
		WorkflowID:     run.GetID(),
		RunID:          run.GetRunID(),
	})
}

func (s *Server) handleGetConsultation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing consultation id")
		return
	}

	run := s.temporal.GetWorkflow(r.Context(), id, "")

	// Bound the wait so polling a running consultation returns promptly
	// instead of holding the connection until the panel finishes.
	ctx, cancel := context.WithTimeout(r.Context(), resultWait)
	defer cancel()

	var report domain.DecisionReport
	err := run.Get(ctx, &report)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ConsultationStatusResponse{
			Status: "completed",
			Report: &report,
		})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusOK, ConsultationStatusResponse{Status: "running"})
	default:
		// Treat workflow failures as terminal; surface the reason.
		writeJSON(w, http.StatusOK, ConsultationStatusResponse{
			Status: "failed",
			Error:  err.Error(),
		})
	}
}

// workflowID derives a stable, human-scannable workflow ID from the case and
// request identity.
func workflowID(caseID, requestID string) string {
	suffix := requestID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	if suffix == "" {
		suffix = uuid.New().String()[:8]
	}
	return fmt.Sprintf("consultation-%s-%s", caseID, suffix)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
