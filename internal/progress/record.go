// Package progress persists where each player is in the riddle sequence.
package progress

import (
	"context"
	"errors"
	"slices"
	"time"
)

// Record is the persisted progress of one player.
type Record struct {
	PlayerID           string    `yaml:"player_id" json:"player_id"`
	CompletedQuestions []int     `yaml:"completed_questions" json:"completed_questions"`
	CurrentQuestion    int       `yaml:"current_question" json:"current_question"`
	HintsRevealed      int       `yaml:"hints_revealed" json:"hints_revealed"`
	UpdatedAt          time.Time `yaml:"updated_at" json:"updated_at"`
	// Version counts saves. Save only succeeds when it still matches the
	// stored value; zero means the caller saw no record.
	Version int64 `yaml:"version" json:"version"`
}

// Initial is the record of a player who has not solved anything yet.
func Initial(playerID string, firstQuestion int) Record {
	return Record{
		PlayerID:           playerID,
		CompletedQuestions: []int{},
		CurrentQuestion:    firstQuestion,
	}
}

// IsCompleted reports whether question id is in the completed set.
func (r Record) IsCompleted(id int) bool {
	return slices.Contains(r.CompletedQuestions, id)
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	r.CompletedQuestions = slices.Clone(r.CompletedQuestions)
	if r.CompletedQuestions == nil {
		r.CompletedQuestions = []int{}
	}
	return r
}

// Store loads and saves progress records.
type Store interface {
	// Load returns nil without error when the player has no record.
	Load(ctx context.Context, playerID string) (*Record, error)
	// Save stores rec as version rec.Version+1, or returns
	// ErrVersionConflict when another writer saved since rec was loaded.
	Save(ctx context.Context, rec Record) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	ErrInvalidPlayerID = errors.New("invalid player id")
	ErrVersionConflict = errors.New("progress was changed by another writer")
)

func checkPlayerID(id string) error {
	if id == "" {
		return ErrInvalidPlayerID
	}
	return nil
}
