// Package model contains the data the scoreboard is rendered from.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/resource"
)

// MaxItems is the number of cards the scoreboard has room for.
const MaxItems = 30

// Side is the song side; it selects the glow colour behind a cover.
type Side int

const (
	SideLight Side = iota
	SideConflict
	SideColorless
)

func (s Side) String() string {
	switch s {
	case SideLight:
		return "light"
	case SideConflict:
		return "conflict"
	case SideColorless:
		return "colorless"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// ClearRank is one of the six clear badges.
type ClearRank int

const (
	ClearPure ClearRank = iota
	ClearFull
	ClearHard
	ClearNormal
	ClearEasy
	ClearTrackLost
)

// ClearRanks lists every rank in badge order.
var ClearRanks = []ClearRank{ClearPure, ClearFull, ClearHard, ClearNormal, ClearEasy, ClearTrackLost}

// Symbol names the badge definition of the rank.
func (c ClearRank) Symbol() string {
	switch c {
	case ClearPure:
		return "pure"
	case ClearFull:
		return "full"
	case ClearHard:
		return "hard"
	case ClearNormal:
		return "normal"
	case ClearEasy:
		return "easy"
	default:
		return "fail"
	}
}

func (c ClearRank) String() string { return c.Symbol() }

// ClearFromHost maps the host's clear names. Unknown or missing clears are
// a lost track.
func ClearFromHost(name string) ClearRank {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "purememory", "pm", "maximum", "max":
		return ClearPure
	case "fullrecall", "fr":
		return ClearFull
	case "hardclear", "hc":
		return ClearHard
	case "normalclear", "nc":
		return ClearNormal
	case "easyclear", "ec":
		return ClearEasy
	default:
		return ClearTrackLost
	}
}

// Difficulty is a chart difficulty.
type Difficulty int

const (
	DifficultyPast Difficulty = iota
	DifficultyPresent
	DifficultyFuture
	DifficultyBeyond
)

// Difficulties lists every difficulty in host order.
var Difficulties = []Difficulty{DifficultyPast, DifficultyPresent, DifficultyFuture, DifficultyBeyond}

// Name is the lower-case name used in asset paths.
func (d Difficulty) Name() string {
	switch d {
	case DifficultyPast:
		return "past"
	case DifficultyPresent:
		return "present"
	case DifficultyFuture:
		return "future"
	case DifficultyBeyond:
		return "beyond"
	default:
		return "unknown"
	}
}

// ParseDifficulty accepts the host's short codes and the long names.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pst", "past", "0":
		return DifficultyPast, nil
	case "prs", "present", "1":
		return DifficultyPresent, nil
	case "ftr", "future", "2":
		return DifficultyFuture, nil
	case "byd", "beyond", "3":
		return DifficultyBeyond, nil
	default:
		return 0, fmt.Errorf("difficulty %q: %w", s, errs.ErrInvalidArgument)
	}
}

// BadgePath is the asset path of the difficulty badge.
func (d Difficulty) BadgePath() string {
	return "img/course/1080/diff-" + d.Name() + ".png"
}

// Grades lists the score grades in host order.
var Grades = []string{"EX+", "EX", "AA", "A", "B", "C", "D"}

// PlayResultItem is one card of the grid.
type PlayResultItem struct {
	Rank            int
	DifficultyBadge *resource.Resource
	Level           int
	Plus            bool
	Potential       float64
	Side            Side
	Cover           *resource.Resource
	RankBadge       *resource.Resource
	Score           int
	Title           string
	Clear           ClearRank
}

// ScoreboardData is one server response, installed as a whole.
type ScoreboardData struct {
	Player      string
	QueryDate   time.Time
	Potential   float64
	RatingBadge *resource.Resource
	Items       []PlayResultItem
}

// DateLabel formats the query date as shown under "Generated on:".
func (d ScoreboardData) DateLabel() string {
	return d.QueryDate.Format("2006/01/02")
}

// Cards returns at most MaxItems items.
func (d ScoreboardData) Cards() []PlayResultItem {
	if len(d.Items) > MaxItems {
		return d.Items[:MaxItems]
	}
	return d.Items
}
