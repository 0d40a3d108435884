package sample

import (
	"context"
	"fmt"
	"image/color"
	"time"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/okian/aol-b30/internal/domain/model"
	"github.com/okian/aol-b30/internal/domain/resource"
)

// Origin prefixes the network URL of every fixture resource.
const Origin = "https://assets.example.test/"

func file(name string, data []byte) resource.File {
	return resource.File{Name: name, URL: Origin + name, Data: data}
}

// RenderContext details a synthetic scoreboard of n cards into scope. Every
// resource has an https origin, so all representations resolve.
func RenderContext(ctx context.Context, scope *resource.Scope, n int) (model.RenderContext, error) {
	files := []resource.File{
		file("avatar.png", PNG(128, 128, 200)),
		file("bg.png", Solid(180, 209, color.NRGBA{R: 236, G: 230, B: 244, A: 255})),
		file("course.png", PNG(460, 74, 20)),
		file("brand.png", PNG(600, 120, 280)),
		file("rating.png", PNG(88, 88, 30)),
		file("diff.png", PNG(72, 72, 300)),
		file("grade.png", PNG(72, 72, 50)),
	}
	for i := 0; i < n; i++ {
		files = append(files, file(fmt.Sprintf("cover-%d.png", i), PNG(64, 64, float64(25*i))))
	}
	res, err := scope.DetailAll(ctx, files)
	if err != nil {
		return model.RenderContext{}, err
	}
	font, err := scope.Font(file("exo.ttf", goregular.TTF))
	if err != nil {
		return model.RenderContext{}, err
	}

	items := make([]model.PlayResultItem, n)
	for i := range items {
		items[i] = model.PlayResultItem{
			Rank:            i + 1,
			DifficultyBadge: res[5],
			Level:           9 + i%3,
			Plus:            i%2 == 0,
			Potential:       12.5 - 0.05*float64(i),
			Side:            model.Side(i % 3),
			Cover:           res[7+i],
			RankBadge:       res[6],
			Score:           9_900_000 + i*1_111,
			Title:           fmt.Sprintf("Song %d", i+1),
			Clear:           model.ClearRanks[i%len(model.ClearRanks)],
		}
	}
	return model.RenderContext{
		Scoreboard: model.ScoreboardData{
			Player:      "fixture",
			QueryDate:   time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
			Potential:   12.345,
			RatingBadge: res[4],
			Items:       items,
		},
		Avatar:     res[0],
		Background: res[1],
		Course:     res[2],
		Brand:      res[3],
		Font:       font,
		Theme: model.Theme{
			GeneratorText: model.DarkText,
			FooterText:    model.DarkText,
			PlayerText:    model.DarkText,
		},
		Scale: 1,
		Kind:  resource.Ephemeral,
	}, nil
}
