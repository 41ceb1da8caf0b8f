package models

import (
	"fmt"
	"strings"
	"time"
)

// Level is the difficulty of a quiz
type Level string

const (
	LevelEasy   Level = "EASY"
	LevelMedium Level = "MEDIUM"
	LevelHard   Level = "HARD"
)

// Levels lists the known levels in display order
var Levels = []Level{LevelEasy, LevelMedium, LevelHard}

// ParseLevel converts a user supplied level name into a Level
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("unknown level %q", s)
	}
	return l, nil
}

// Valid reports whether l is one of the known levels
func (l Level) Valid() bool {
	switch l {
	case LevelEasy, LevelMedium, LevelHard:
		return true
	}
	return false
}

// Question is a single multiple-choice question
type Question struct {
	Title        string   `json:"title" yaml:"title"`
	Alternatives []string `json:"alternatives" yaml:"alternatives"`
	Correct      int      `json:"correct" yaml:"correct"`
}

// Quiz is an ordered set of questions
type Quiz struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Level     Level      `json:"level" yaml:"level"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// HistoryRecord summarises one completed quiz
type HistoryRecord struct {
	ID          string
	UserID      int64
	Title       string
	Level       Level
	Points      int
	Questions   int
	CompletedAt time.Time
}
