package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps records in the player_progress table created by the
// migrator.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool with the given keyword/value DSN.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn+" pool_max_conns=10")
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

const (
	selectProgressSQL = `
		SELECT completed_questions, current_question, hints_revealed, updated_at, version
		FROM player_progress WHERE player_id = $1`

	// insertProgressSQL also claims rows that predate versioning.
	insertProgressSQL = `
		INSERT INTO player_progress (player_id, completed_questions, current_question, hints_revealed, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, 1)
		ON CONFLICT (player_id) DO UPDATE SET
			completed_questions = EXCLUDED.completed_questions,
			current_question = EXCLUDED.current_question,
			hints_revealed = EXCLUDED.hints_revealed,
			updated_at = EXCLUDED.updated_at,
			version = 1
		WHERE player_progress.version = 0`

	updateProgressSQL = `
		UPDATE player_progress SET
			completed_questions = $2,
			current_question = $3,
			hints_revealed = $4,
			updated_at = $5,
			version = version + 1
		WHERE player_id = $1 AND version = $6`
)

func (s *PostgresStore) Load(ctx context.Context, playerID string) (*Record, error) {
	if err := checkPlayerID(playerID); err != nil {
		return nil, err
	}
	var (
		completed []int32
		current   int32
		hints     int32
		updatedAt time.Time
		version   int64
	)
	err := s.pool.QueryRow(ctx, selectProgressSQL, playerID).Scan(&completed, &current, &hints, &updatedAt, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select progress: %w", err)
	}

	rec := Record{
		PlayerID:           playerID,
		CompletedQuestions: make([]int, 0, len(completed)),
		CurrentQuestion:    int(current),
		HintsRevealed:      int(hints),
		UpdatedAt:          updatedAt.UTC(),
		Version:            version,
	}
	for _, id := range completed {
		rec.CompletedQuestions = append(rec.CompletedQuestions, int(id))
	}
	return &rec, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	if err := checkPlayerID(rec.PlayerID); err != nil {
		return err
	}
	completed := make([]int32, 0, len(rec.CompletedQuestions))
	for _, id := range rec.CompletedQuestions {
		completed = append(completed, int32(id))
	}
	query := insertProgressSQL
	args := []any{rec.PlayerID, completed, int32(rec.CurrentQuestion), int32(rec.HintsRevealed), time.Now().UTC()}
	if rec.Version != 0 {
		query = updateProgressSQL
		args = append(args, rec.Version)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
