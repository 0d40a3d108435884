package export

import (
	"fmt"
	"strings"

	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/resource"
)

// Format is an export flavour.
type Format int

const (
	// FormatPNG is a bitmap rendered from ephemeral handles.
	FormatPNG Format = iota
	// FormatInlineSVG embeds every resource as a data URL.
	FormatInlineSVG
	// FormatLinkedSVG references resources by their network URL.
	FormatLinkedSVG
)

// ParseFormat accepts png, svg-inline (inline) and svg-linked (linked).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png", "":
		return FormatPNG, nil
	case "svg-inline", "inline", "svg":
		return FormatInlineSVG, nil
	case "svg-linked", "linked":
		return FormatLinkedSVG, nil
	default:
		return 0, fmt.Errorf("export format %q: %w", s, errs.ErrInvalidArgument)
	}
}

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatInlineSVG:
		return "svg-inline"
	case FormatLinkedSVG:
		return "svg-linked"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Kind is the representation the format binds every href to.
func (f Format) Kind() resource.Kind {
	switch f {
	case FormatInlineSVG:
		return resource.Embedded
	case FormatLinkedSVG:
		return resource.Network
	default:
		return resource.Ephemeral
	}
}

// MIME is the content type of the artifact.
func (f Format) MIME() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// Ext is the file extension including the dot.
func (f Format) Ext() string {
	if f == FormatPNG {
		return ".png"
	}
	return ".svg"
}
