package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/cpboard/internal/adapters/mq/queue"
	"github.com/okian/cpboard/internal/domain/model"
	"github.com/okian/cpboard/internal/domain/types"
	"github.com/okian/cpboard/internal/pipeline"
)

const maxRunBody = 4 << 10

// RunDependencies queues pipeline runs.
type RunDependencies interface {
	Submit(ctx context.Context, req pipeline.Request) (types.RunAck, error)
}

// RunsHandler handles run requests.
type RunsHandler struct {
	deps RunDependencies
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps RunDependencies) *RunsHandler {
	return &RunsHandler{deps: deps}
}

// runRequest mirrors the OpenAPI schema for POST /runs.
type runRequest struct {
	Cohort   string `json:"cohort"`
	Mode     string `json:"mode"`
	Platform string `json:"platform"`
}

func (rr runRequest) toRequest() (pipeline.Request, error) {
	if strings.TrimSpace(rr.Cohort) == "" {
		return pipeline.Request{}, fmt.Errorf("%w: cohort", ErrMissingParam)
	}
	mode, err := pipeline.ParseMode(rr.Mode)
	if err != nil {
		return pipeline.Request{}, err
	}
	req := pipeline.Request{Cohort: strings.TrimSpace(rr.Cohort), Mode: mode}
	if mode == pipeline.ModePlatform {
		p, err := model.ParsePlatform(rr.Platform)
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("%w: %w", pipeline.ErrUnknownPlatform, err)
		}
		req.Platform = p
	}
	return req, nil
}

// HandlePostRun handles POST /runs requests.
func (h *RunsHandler) HandlePostRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var body runRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRunBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	req, err := body.toRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ack, err := h.deps.Submit(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ack)
	case errors.Is(err, pipeline.ErrUnknownCohort):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, pipeline.ErrUnknownMode),
		errors.Is(err, pipeline.ErrUnknownPlatform),
		errors.Is(err, pipeline.ErrNoScraper):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, queue.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", fmt.Errorf("%w: %w", ErrBackpressure, err))
	default:
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	}
}
