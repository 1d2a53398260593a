package game

import (
	"github.com/gokatarajesh/riddle-gift/internal/catalog"
	"github.com/gokatarajesh/riddle-gift/internal/grader"
)

// QuestionView is the current riddle as shown to the player, without its answer.
type QuestionView struct {
	ID            int      `json:"id"`
	Prompt        string   `json:"question"`
	RevealedHints []string `json:"revealed_hints"`
	HintCount     int      `json:"hint_count"`
}

// View is everything a front end needs to draw the game.
type View struct {
	PlayerID           string          `json:"player_id"`
	Question           *QuestionView   `json:"question,omitempty"`
	Position           int             `json:"position"`
	Total              int             `json:"total"`
	CompletedQuestions []int           `json:"completed_questions"`
	Complete           bool            `json:"complete"`
	Welcome            bool            `json:"welcome"`
	Reward             *catalog.Reward `json:"reward,omitempty"`
}

// HasMoreHints reports whether another hint can be revealed.
func (v View) HasMoreHints() bool {
	return v.Question != nil && len(v.Question.RevealedHints) < v.Question.HintCount
}

// Outcome is the result of one answer submission.
type Outcome struct {
	Correct  bool   `json:"correct"`
	Feedback string `json:"feedback"`
	View     View   `json:"state"`
}

func outcomeFrom(verdict grader.Verdict, view View) Outcome {
	return Outcome{Correct: verdict.Correct, Feedback: verdict.Feedback, View: view}
}
