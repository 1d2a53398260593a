package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps records in an embedded database file.
type SQLiteStore struct {
	db *sql.DB
	// serializes writers to avoid SQLITE_BUSY
	writeMu sync.Mutex
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS player_progress (
		player_id TEXT PRIMARY KEY,
		completed_questions TEXT NOT NULL DEFAULT '[]',
		current_question INTEGER NOT NULL,
		hints_revealed INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL,
		version INTEGER NOT NULL DEFAULT 0
	);`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	// databases created before saves were versioned
	_, err := s.db.Exec(`ALTER TABLE player_progress ADD COLUMN version INTEGER NOT NULL DEFAULT 0`)
	if err != nil && !strings.Contains(err.Error(), "duplicate column name") {
		return fmt.Errorf("add version column: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, playerID string) (*Record, error) {
	if err := checkPlayerID(playerID); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT completed_questions, current_question, hints_revealed, updated_at, version
		FROM player_progress WHERE player_id = ?`, playerID)

	var (
		completedJSON string
		updatedAt     int64
		rec           = Record{PlayerID: playerID}
	)
	err := row.Scan(&completedJSON, &rec.CurrentQuestion, &rec.HintsRevealed, &updatedAt, &rec.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan progress row: %w", err)
	}
	if err := json.Unmarshal([]byte(completedJSON), &rec.CompletedQuestions); err != nil {
		return nil, fmt.Errorf("decode completed questions: %w", err)
	}
	rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	rec = rec.Clone()
	return &rec, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	if err := checkPlayerID(rec.PlayerID); err != nil {
		return err
	}
	completed := rec.CompletedQuestions
	if completed == nil {
		completed = []int{}
	}
	completedJSON, err := json.Marshal(completed)
	if err != nil {
		return fmt.Errorf("encode completed questions: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	now := time.Now().Unix()
	var res sql.Result
	if rec.Version == 0 {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO player_progress (player_id, completed_questions, current_question, hints_revealed, updated_at, version)
			VALUES (?, ?, ?, ?, ?, 1)
			ON CONFLICT(player_id) DO UPDATE SET
				completed_questions = excluded.completed_questions,
				current_question = excluded.current_question,
				hints_revealed = excluded.hints_revealed,
				updated_at = excluded.updated_at,
				version = 1
			WHERE player_progress.version = 0`,
			rec.PlayerID, string(completedJSON), rec.CurrentQuestion, rec.HintsRevealed, now)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE player_progress SET
				completed_questions = ?, current_question = ?, hints_revealed = ?, updated_at = ?, version = version + 1
			WHERE player_id = ? AND version = ?`,
			string(completedJSON), rec.CurrentQuestion, rec.HintsRevealed, now, rec.PlayerID, rec.Version)
	}
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
