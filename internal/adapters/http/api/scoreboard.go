package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/aol-b30/internal/adapters/export"
	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/internal/domain/errs"
)

// maxPushBytes bounds a pushed scoreboard body.
const maxPushBytes = 1 << 20

// ScoreboardHandler renders, exports and accepts scoreboards.
type ScoreboardHandler struct {
	deps Dependencies
}

// NewScoreboardHandler creates a new scoreboard handler.
func NewScoreboardHandler(deps Dependencies) *ScoreboardHandler {
	return &ScoreboardHandler{deps: deps}
}

func writeArtifact(w http.ResponseWriter, a export.Artifact, disposition string) {
	w.Header().Set("Content-Type", a.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.Header().Set("Content-Disposition", disposition+`; filename="`+host.ExportFileName(a.Filename)+`"`)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Data)
}

// HandleSVG handles GET /scoreboard.svg?kind=&scale=. The default kind is
// inline; ephemeral markup only resolves inside this process's pages.
func (h *ScoreboardHandler) HandleSVG(w http.ResponseWriter, r *http.Request) {
	const op = "api.scoreboard_svg"
	scale, err := scaleParam(r)
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	f := export.FormatInlineSVG
	if kind := r.URL.Query().Get("kind"); kind != "" {
		if f, err = export.ParseFormat("svg-" + kind); err != nil {
			fail(w, WrapKind(op, ErrBadRequest, err))
			return
		}
	}
	a, err := h.deps.Render(r.Context(), f, scale)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeArtifact(w, a, "inline")
}

// HandlePNG handles GET /scoreboard.png?scale=.
func (h *ScoreboardHandler) HandlePNG(w http.ResponseWriter, r *http.Request) {
	const op = "api.scoreboard_png"
	scale, err := scaleParam(r)
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	a, err := h.deps.Render(r.Context(), export.FormatPNG, scale)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeArtifact(w, a, "inline")
}

type exportResponse struct {
	Status   string `json:"status"`
	Format   string `json:"format"`
	Filename string `json:"filename"`
	Bytes    int    `json:"bytes"`
}

// HandleExport handles POST /export?format=&scale= by sending the artifact
// to the host.
func (h *ScoreboardHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"
	scale, err := scaleParam(r)
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	a, err := h.deps.Export(r.Context(), f, scale)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{
		Status:   "exported",
		Format:   f.String(),
		Filename: a.Filename,
		Bytes:    len(a.Data),
	})
}

// HandlePush handles POST /scoreboard with a host scoreboard body.
func (h *ScoreboardHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	const op = "api.scoreboard_push"
	var resp host.Best30Response
	if err := json.NewDecoder(io.LimitReader(r.Body, maxPushBytes)).Decode(&resp); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if _, err := resp.PotentialValue(); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.Enqueue(r.Context(), resp); err != nil {
		if errors.Is(err, errs.ErrNotReady) {
			fail(w, Wrap(op, err))
			return
		}
		fail(w, WrapKind(op, ErrBackpressure, err))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
