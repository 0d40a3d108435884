package api

import (
	"io"
	"net/http"

	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/internal/app/picker"
)

// maxSelectionBytes bounds a selection body.
const maxSelectionBytes = 4 << 10

// PickHandler runs slot pickers.
type PickHandler struct {
	deps Dependencies
}

// NewPickHandler creates a new pick handler.
func NewPickHandler(deps Dependencies) *PickHandler {
	return &PickHandler{deps: deps}
}

type pickResponse struct {
	Slot      string `json:"slot"`
	Committed bool   `json:"committed"`
}

// HandlePick handles POST /pick/{slot}. A non-empty body is a selection in
// the host wire form and answers the pick without a host dialog; "null"
// cancels it.
func (h *PickHandler) HandlePick(w http.ResponseWriter, r *http.Request) {
	const op = "api.pick"
	slot, err := picker.ParseSlot(r.PathValue("slot"))
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSelectionBytes))
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	ctx := r.Context()
	if len(body) > 0 {
		sel, err := host.UnmarshalSelection(body)
		if err != nil {
			fail(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		ctx = host.WithChoice(ctx, sel)
	}
	ok, err := h.deps.Pick(ctx, slot)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, pickResponse{Slot: string(slot), Committed: ok})
}
