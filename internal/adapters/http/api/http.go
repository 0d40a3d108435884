// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/aol-b30/internal/adapters/export"
	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/internal/app/picker"
	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/resource"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Enqueue queues a scoreboard push for installation.
	Enqueue(ctx context.Context, resp host.Best30Response) error

	// Render operations read the installed scoreboard.
	Preview(scale float64) ([]byte, error)
	Render(ctx context.Context, f export.Format, scale float64) (export.Artifact, error)
	Export(ctx context.Context, f export.Format, scale float64) (export.Artifact, error)

	Pick(ctx context.Context, slot picker.Slot) (bool, error)
	Blob(path string) (*resource.Resource, bool)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	stateHandler      *StateHandler
	scoreboardHandler *ScoreboardHandler
	pickHandler       *PickHandler
	blobHandler       *BlobHandler
	previewHandler    *previewHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		stateHandler:      NewStateHandler(statsProvider),
		scoreboardHandler: NewScoreboardHandler(deps),
		pickHandler:       NewPickHandler(deps),
		blobHandler:       NewBlobHandler(deps),
		previewHandler:    newPreviewHandler(deps),
	}
}

// Register attaches all HTTP routes to mux. Blob handles are served below
// blobPrefix, which must match the prefix the resource arena issues.
func (s *Server) Register(_ context.Context, mux *http.ServeMux, blobPrefix string) {
	if blobPrefix == "" {
		blobPrefix = "/blob/"
	}
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /state", MetricsMiddleware(s.stateHandler.HandleState, "state"))
	mux.HandleFunc("GET /scoreboard.svg", MetricsMiddleware(s.scoreboardHandler.HandleSVG, "scoreboard_svg"))
	mux.HandleFunc("GET /scoreboard.png", MetricsMiddleware(s.scoreboardHandler.HandlePNG, "scoreboard_png"))
	mux.HandleFunc("POST /scoreboard", MetricsMiddleware(s.scoreboardHandler.HandlePush, "scoreboard_push"))
	mux.HandleFunc("POST /export", MetricsMiddleware(s.scoreboardHandler.HandleExport, "export"))
	mux.HandleFunc("POST /pick/{slot}", MetricsMiddleware(s.pickHandler.HandlePick, "pick"))
	mux.HandleFunc("GET "+blobPrefix, MetricsMiddleware(s.blobHandler.HandleBlob, "blob"))
	mux.HandleFunc("GET /{$}", MetricsMiddleware(s.previewHandler.HandlePreview, "preview"))
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor translates an error kind into an HTTP status and code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, errs.ErrNotReady):
		return http.StatusServiceUnavailable, "not_ready"
	case errors.Is(err, errs.ErrResourceNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errs.ErrFormatViolation):
		return http.StatusUnprocessableEntity, "format_violation"
	case errors.Is(err, ErrBadRequest), errors.Is(err, errs.ErrInvalidArgument), errors.Is(err, picker.ErrUnknownSlot):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func fail(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

// scaleParam reads ?scale=; absent means the service default.
func scaleParam(r *http.Request) (float64, error) {
	raw := r.URL.Query().Get("scale")
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Join(ErrBadRequest, err)
	}
	return v, nil
}
