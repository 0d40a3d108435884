package sample

import "time"

// Config holds configuration for a sample run.
type Config struct {
	Dir     string        // Directory the assets are written to
	Items   int           // Number of plays in the scoreboard
	Seed    uint64        // Generator seed
	BaseURL string        // Running service to submit to; empty skips submission
	Timeout time.Duration // HTTP request timeout
	Output  string        // Where the fetched PNG is written; empty skips it
}

// State is the subset of /state a run checks.
type State struct {
	Ready      bool   `json:"ready"`
	Player     string `json:"player"`
	Items      int    `json:"items"`
	Processed  int64  `json:"processed"`
	Duplicates int    `json:"duplicates"`
}

// Report summarises a run.
type Report struct {
	Assets   int
	Items    int
	Width    int
	Height   int
	Bytes    int
	Duration time.Duration
}
