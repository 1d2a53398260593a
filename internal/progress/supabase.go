package progress

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	supa "github.com/supabase-community/supabase-go"
)

// SupabaseStore keeps records in a PostgREST table exposed by Supabase.
type SupabaseStore struct {
	client *supa.Client
	table  string
}

func NewSupabaseStore(url, key, table string) (*SupabaseStore, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &SupabaseStore{client: client, table: table}, nil
}

type supabaseRow struct {
	PlayerID           string    `json:"player_id"`
	CompletedQuestions []int     `json:"completed_questions"`
	CurrentQuestion    int       `json:"current_question"`
	HintsRevealed      int       `json:"hints_revealed"`
	UpdatedAt          time.Time `json:"updated_at"`
	Version            int64     `json:"version"`
}

// Load ignores ctx; the PostgREST client has no per-call context.
func (s *SupabaseStore) Load(_ context.Context, playerID string) (*Record, error) {
	if err := checkPlayerID(playerID); err != nil {
		return nil, err
	}
	var rows []supabaseRow
	_, err := s.client.From(s.table).
		Select("*", "exact", false).
		Eq("player_id", playerID).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("select progress: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	rec := Record(rows[0]).Clone()
	return &rec, nil
}

// Save patches the row filtered on its previous version and falls back to
// an insert for players without a row. A duplicate key on that insert means
// another writer got there first.
func (s *SupabaseStore) Save(_ context.Context, rec Record) error {
	if err := checkPlayerID(rec.PlayerID); err != nil {
		return err
	}
	rec = rec.Clone()
	rec.UpdatedAt = time.Now().UTC()
	row := supabaseRow(rec)
	row.Version = rec.Version + 1

	var saved []supabaseRow
	_, err := s.client.From(s.table).
		Update(row, "representation", "").
		Eq("player_id", rec.PlayerID).
		Eq("version", strconv.FormatInt(rec.Version, 10)).
		ExecuteTo(&saved)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if len(saved) > 0 {
		return nil
	}
	if rec.Version != 0 {
		return ErrVersionConflict
	}

	_, err = s.client.From(s.table).
		Insert(row, false, "", "representation", "").
		ExecuteTo(&saved)
	if err != nil {
		if strings.Contains(err.Error(), "(23505)") {
			return ErrVersionConflict
		}
		return fmt.Errorf("insert progress: %w", err)
	}
	return nil
}

func (s *SupabaseStore) Ping(context.Context) error {
	var rows []supabaseRow
	_, err := s.client.From(s.table).Select("player_id", "", false).Limit(1, "").ExecuteTo(&rows)
	return err
}

func (s *SupabaseStore) Close() error { return nil }
