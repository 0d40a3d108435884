package sample

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/internal/domain/contrast"
	"github.com/okian/aol-b30/internal/domain/model"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o640
)

// Default asset paths written next to the generated images.
const (
	BrandAsset      = "img/title.png"
	FontAsset       = "fonts/exo.ttf"
	ScoreboardAsset = "scoreboard.json"
)

var sampleCharacters = []host.Character{
	{ID: 0, Can: host.Abilities{Awake: true}},
	{ID: 1, Can: host.Abilities{Awake: true, Lost: true}},
	{ID: 2},
}

// Backgrounds alternate bright and dark so both text colours show up.
func backgroundColour(i int) color.NRGBA {
	if i%2 == 0 {
		return color.NRGBA{R: 236, G: 230, B: 244, A: 255}
	}
	return color.NRGBA{R: 32, G: 24, B: 48, A: 255}
}

// Files lists every asset a local host needs to render resp, keyed by
// asset path.
func Files(resp host.Best30Response) (map[string][]byte, error) {
	files := map[string][]byte{
		BrandAsset: PNG(600, 120, 280),
		FontAsset:  goregular.TTF,
	}
	files[host.RatingPath(resp.Rating)] = PNG(88, 88, 30)
	for i, d := range model.Difficulties {
		files[d.BadgePath()] = PNG(72, 72, float64(90*i))
	}
	for i, g := range model.Grades {
		files[host.GradePath(g)] = PNG(72, 72, float64(40*i))
	}
	for _, c := range sampleCharacters {
		for j, img := range c.Images() {
			files[host.CharacterPath(img)] = PNG(128, 128, float64(60*c.ID+20*j))
		}
	}
	for course := 1; course <= model.Courses; course++ {
		files[host.BannerPath(course)] = PNG(460, 74, float64(30*course))
	}
	for i, p := range contrast.Backgrounds {
		files[p] = Solid(180, 209, backgroundColour(i))
	}
	for i, e := range resp.B30 {
		d, err := model.ParseDifficulty(e.Chart.Difficulty)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		files[host.CoverPath(host.CoverRef{SongID: e.Song.ID, Difficulty: int(d)})] = PNG(64, 64, float64(25*i))
	}
	chars, err := json.Marshal(sampleCharacters)
	if err != nil {
		return nil, fmt.Errorf("encode characters: %w", err)
	}
	files[host.CharactersFile] = chars
	board, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode scoreboard: %w", err)
	}
	files[ScoreboardAsset] = board
	return files, nil
}

// WriteAssets writes Files(resp) below dir.
func WriteAssets(dir string, resp host.Best30Response) error {
	files, err := Files(resp)
	if err != nil {
		return err
	}
	for name, data := range files {
		target := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), directoryPermission); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, data, filePermission); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
	}
	return nil
}
