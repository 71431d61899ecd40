package models

import (
	"time"

	"github.com/google/uuid"
)

// QuizResult is immutable once written. Score is always within [0, TotalQuestions].
type QuizResult struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"-"`
	Date           string    `json:"date"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	Category       string    `json:"category"`
	Level          *string   `json:"level,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Question is a multiple-choice item from a static quiz category.
type Question struct {
	ID            int      `json:"id" yaml:"id"`
	Question      string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"correct_answer" yaml:"correct_answer"`
	Explanation   string   `json:"explanation" yaml:"explanation"`
	Source        string   `json:"source,omitempty" yaml:"source"`
	Difficulty    string   `json:"difficulty,omitempty" yaml:"difficulty"`
}

type QuizCategory struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Level       string     `json:"level,omitempty" yaml:"level"`
	Questions   []Question `json:"questions,omitempty" yaml:"questions"`
}
