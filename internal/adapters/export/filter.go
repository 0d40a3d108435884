package export

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"

	"github.com/okian/aol-b30/internal/domain/scene"
)

// filterReach is how far a filter can paint outside the source bounds.
func filterReach(filter *scene.Node) float64 {
	if filter == nil {
		return 0
	}
	var reach float64
	for _, fe := range filter.Children {
		r := 3*attrNum(fe, "stdDeviation") + math.Abs(attrNum(fe, "dx")) + math.Abs(attrNum(fe, "dy"))
		reach = math.Max(reach, r)
	}
	return math.Ceil(reach)
}

// applyFilter runs the primitives of filter in order over src. The only
// input ever referenced is the previous result, so BackgroundImage reads the
// same pixels as SourceGraphic.
func applyFilter(src image.Image, filter *scene.Node) image.Image {
	out := src
	for _, fe := range filter.Children {
		switch fe.Tag {
		case "feGaussianBlur":
			if std := attrNum(fe, "stdDeviation"); std > 0 {
				out = imaging.Blur(out, std)
			}
		case "feDropShadow":
			out = dropShadow(out, fe)
		}
	}
	return out
}

func dropShadow(src image.Image, fe *scene.Node) image.Image {
	flood := color.NRGBA{A: 255}
	if v, ok := fe.Attr("flood-color"); ok {
		if c, err := parseColour(v); err == nil {
			flood = c
		}
	}
	alpha := 1.0
	if v, ok := fe.Attr("flood-opacity"); ok {
		alpha = number(v, 1)
	}

	silhouette := imaging.Clone(src)
	for i := 0; i < len(silhouette.Pix); i += 4 {
		a := float64(silhouette.Pix[i+3]) * alpha
		silhouette.Pix[i] = flood.R
		silhouette.Pix[i+1] = flood.G
		silhouette.Pix[i+2] = flood.B
		silhouette.Pix[i+3] = clampByte(a * float64(flood.A) / 255)
	}
	var shadow image.Image = silhouette
	if std := attrNum(fe, "stdDeviation"); std > 0 {
		shadow = imaging.Blur(silhouette, std)
	}

	b := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	offset := image.Pt(int(math.Round(attrNum(fe, "dx"))), int(math.Round(attrNum(fe, "dy"))))
	draw.Draw(out, out.Bounds().Add(offset), shadow, shadow.Bounds().Min, draw.Over)
	draw.Draw(out, out.Bounds(), src, b.Min, draw.Over)
	return out
}
