package models

import "time"

// Score is one submitted play result
type Score struct {
	PlayerName string    `json:"name"`
	RollNo     string    `json:"rollNo"`
	Score      int       `json:"score"`
	TimeTaken  string    `json:"time"`
	CreatedAt  time.Time `json:"createdAt"`
}

// LeaderboardEntry is one row of the ranked scoreboard
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	PlayerName string `json:"name"`
	Score      int    `json:"score"`
}

// ScoreEvent is broadcast on the live scoreboard feed when a score lands
type ScoreEvent struct {
	Type       string `json:"type"`
	PlayerName string `json:"name"`
	Score      int    `json:"score"`
	TimeTaken  string `json:"time"`
}
