package sample

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/internal/domain/model"
)

// Ranges for generated plays.
const (
	minLevel       = 7
	levelRange     = 5
	minScore       = 9_500_000
	scoreRange     = 520_000
	basePotential  = 12.9
	potentialDecay = 0.035
)

var (
	difficultyCodes = []string{"pst", "prs", "ftr", "byd"}
	clearNames      = []string{"PureMemory", "FullRecall", "HardClear", "NormalClear", "EasyClear", "TrackLost", "Maximum"}
)

// PNG encodes a w x h image shading from a hue towards black.
func PNG(w, h int, hue float64) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		light := 0.85 - 0.6*float64(y)/float64(max(h, 1))
		c := colorful.Hsl(hue, 0.45, light)
		r, g, b := c.RGB255()
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return encode(img)
}

// Solid encodes a w x h image of one colour.
func Solid(w, h int, c color.NRGBA) []byte {
	return encode(imaging.New(w, h, c))
}

func encode(img image.Image) []byte {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		panic(fmt.Sprintf("encode sample png: %v", err))
	}
	return buf.Bytes()
}

// Scoreboard generates a deterministic response with n plays.
func Scoreboard(n int, seed uint64) host.Best30Response {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	entries := make([]host.Best30Entry, n)
	for i := range entries {
		level := minLevel + rng.IntN(levelRange)
		entry := host.Best30Entry{
			No: i + 1,
			Song: host.Song{
				ID:   "song" + strconv.Itoa(i%12),
				Name: "Sample Song " + strconv.Itoa(i+1),
				Side: model.Side(rng.IntN(3)),
			},
			Chart: host.Chart{
				Difficulty: difficultyCodes[2+rng.IntN(2)],
				Level:      level,
				Plus:       level >= 9 && rng.IntN(2) == 0,
			},
			Score: host.Score{
				Score:     minScore + rng.IntN(scoreRange),
				Potential: basePotential - potentialDecay*float64(i),
				Grade:     model.Grades[rng.IntN(3)],
			},
			Clear: clearNames[rng.IntN(len(clearNames))],
		}
		if i%7 == 3 {
			entry.Chart.Override = &host.ChartOverride{Name: entry.Song.Name + " (Override)"}
		}
		entries[i] = entry
	}
	return host.Best30Response{
		Username:  "sample-player",
		Potential: "12.34",
		Rating:    1234,
		QueryTime: time.Date(2024, time.March, 5, 18, 30, 0, 0, time.UTC).UnixMilli(),
		B30:       entries,
	}
}
