package contrast

import (
	"fmt"
	"image"
	"slices"
	"strings"

	"github.com/okian/aol-b30/internal/domain/geom"
	"github.com/okian/aol-b30/internal/domain/model"
)

// Regions behind the footer and the generator label, in canvas units.
var (
	FooterRegion    = image.Rect(700, 1010, 700+175, 1010+30)
	GeneratorRegion = image.Rect(660, 70, 660+120, 70+40)
)

// Backgrounds is the built-in background catalog.
var Backgrounds = func() []string {
	paths := []string{"img/bg_light.jpg"}
	for i := 1; i <= 8; i++ {
		paths = append(paths, fmt.Sprintf("img/world/1080/%d.jpg", i))
	}
	return paths
}()

var (
	darkGenerator = []int{0, 1, 3, 4, 8}
	darkFooter    = []int{0, 3, 5, 7}
)

// CatalogIndex finds the catalog entry a stored path ends with, or -1.
func CatalogIndex(path string) int {
	if path == "" {
		return -1
	}
	return slices.IndexFunc(Backgrounds, func(p string) bool {
		return strings.HasSuffix(path, p)
	})
}

// CatalogTheme returns the fixed generator and footer colours of a catalog
// background.
func CatalogTheme(index int) (generator, footer string) {
	generator, footer = model.LightText, model.LightText
	if slices.Contains(darkGenerator, index) {
		generator = model.DarkText
	}
	if slices.Contains(darkFooter, index) {
		footer = model.DarkText
	}
	return generator, footer
}

// PlayerText returns the player name colour over a course banner.
func PlayerText(course int) string {
	if course <= 6 {
		return model.DarkText
	}
	return model.LightText
}

// BackgroundTheme picks generator and footer colours for a background. The
// catalog table wins; anything else is sampled.
func BackgroundTheme(img image.Image, path string) (model.Theme, error) {
	if idx := CatalogIndex(path); idx >= 0 {
		g, f := CatalogTheme(idx)
		return model.Theme{GeneratorText: g, FooterText: f}, nil
	}
	if img == nil {
		return model.Theme{}, fmt.Errorf("background theme: no pixels for %q", path)
	}
	b := img.Bounds()
	size := geom.Vector2D{X: float64(b.Dx()), Y: float64(b.Dy())}
	footer, err := Sample(img, CanvasRegion(size, model.Canvas, FooterRegion).Add(b.Min))
	if err != nil {
		return model.Theme{}, fmt.Errorf("footer region: %w", err)
	}
	generator, err := Sample(img, CanvasRegion(size, model.Canvas, GeneratorRegion).Add(b.Min))
	if err != nil {
		return model.Theme{}, fmt.Errorf("generator region: %w", err)
	}
	return model.Theme{GeneratorText: generator.Foreground(), FooterText: footer.Foreground()}, nil
}
