package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/okian/aol-b30/internal/domain/errs"
)

// Selection is the outcome of a pick: a BasicSelection or a
// CustomSelection. A nil Selection means the user cancelled.
type Selection interface {
	selection()
}

// BasicSelection points at one of the offered candidates.
type BasicSelection struct {
	Index int
}

// CustomSelection is an uploaded image stored by the host.
type CustomSelection struct {
	ResourceURL string
}

func (BasicSelection) selection()  {}
func (CustomSelection) selection() {}

type selectionWire struct {
	Type        string `json:"type"`
	Index       *int   `json:"index,omitempty"`
	ResourceURL string `json:"resourceURL,omitempty"`
}

// MarshalSelection writes a selection in the host wire form.
func MarshalSelection(s Selection) ([]byte, error) {
	switch v := s.(type) {
	case nil:
		return []byte("null"), nil
	case BasicSelection:
		idx := v.Index
		return json.Marshal(selectionWire{Type: "basic", Index: &idx})
	case CustomSelection:
		return json.Marshal(selectionWire{Type: "custom", ResourceURL: v.ResourceURL})
	default:
		return nil, fmt.Errorf("selection %T: %w", s, errs.ErrInvalidArgument)
	}
}

// UnmarshalSelection reads the host wire form; null is a cancelled pick.
func UnmarshalSelection(data []byte) (Selection, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var w selectionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("selection: %w", err)
	}
	switch w.Type {
	case "basic":
		if w.Index == nil || *w.Index < 0 {
			return nil, fmt.Errorf("basic selection without index: %w", errs.ErrInvalidArgument)
		}
		return BasicSelection{Index: *w.Index}, nil
	case "custom":
		if w.ResourceURL == "" {
			return nil, fmt.Errorf("custom selection without url: %w", errs.ErrInvalidArgument)
		}
		return CustomSelection{ResourceURL: w.ResourceURL}, nil
	default:
		return nil, fmt.Errorf("selection type %q: %w", w.Type, errs.ErrInvalidArgument)
	}
}

type choiceKey struct{}

// WithChoice carries a pre-made selection for hosts that pick without a UI.
// A context holding a nil selection means "cancel".
func WithChoice(ctx context.Context, s Selection) context.Context {
	return context.WithValue(ctx, choiceKey{}, choice{s})
}

type choice struct{ s Selection }

// ChoiceFromContext returns the selection stored by WithChoice.
func ChoiceFromContext(ctx context.Context) (Selection, bool) {
	c, ok := ctx.Value(choiceKey{}).(choice)
	return c.s, ok
}
