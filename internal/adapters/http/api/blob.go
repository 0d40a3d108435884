package api

import (
	"net/http"
	"strconv"

	"github.com/okian/aol-b30/internal/domain/errs"
)

// BlobHandler serves the bytes behind ephemeral handles.
type BlobHandler struct {
	deps Dependencies
}

// NewBlobHandler creates a new blob handler.
func NewBlobHandler(deps Dependencies) *BlobHandler {
	return &BlobHandler{deps: deps}
}

// HandleBlob handles GET <prefix><id>. Released handles are gone.
func (h *BlobHandler) HandleBlob(w http.ResponseWriter, r *http.Request) {
	const op = "api.blob"
	res, ok := h.deps.Blob(r.URL.Path)
	if !ok {
		fail(w, WrapKind(op, errs.ErrResourceNotFound, nil))
		return
	}
	data := res.Raw()
	w.Header().Set("Content-Type", res.MIME())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
