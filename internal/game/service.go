// Package game drives the linear riddle sequence for each player.
package game

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/riddle-gift/internal/assistant"
	"github.com/gokatarajesh/riddle-gift/internal/catalog"
	"github.com/gokatarajesh/riddle-gift/internal/grader"
	"github.com/gokatarajesh/riddle-gift/internal/llm"
	"github.com/gokatarajesh/riddle-gift/internal/metrics"
	"github.com/gokatarajesh/riddle-gift/internal/progress"
)

// AnswerGrader judges a free-text answer.
type AnswerGrader interface {
	Grade(ctx context.Context, req grader.Request, onDelta llm.DeltaFunc) (grader.Verdict, error)
}

// HintAssistant helps the player with the revealed hints.
type HintAssistant interface {
	Assist(ctx context.Context, req assistant.Request, onDelta llm.DeltaFunc) (string, error)
}

// Service is the progress controller. Operations on one player are
// serialized within the process. Saves are versioned, so replicas sharing a
// store reload and retry instead of overwriting each other.
type Service struct {
	catalog   *catalog.Catalog
	store     progress.Store
	grader    AnswerGrader
	assistant HintAssistant
	metrics   *metrics.Game
	locks     *playerLocks
	logger    zerolog.Logger
}

// NewService wires the controller. m may be nil.
func NewService(cat *catalog.Catalog, store progress.Store, g AnswerGrader, a HintAssistant, m *metrics.Game, logger zerolog.Logger) *Service {
	return &Service{
		catalog:   cat,
		store:     store,
		grader:    g,
		assistant: a,
		metrics:   m,
		locks:     newPlayerLocks(),
		logger:    logger.With().Str("component", "game_service").Logger(),
	}
}

// load returns the stored record or the initial one for a new player.
func (s *Service) load(ctx context.Context, playerID string) (progress.Record, error) {
	rec, err := s.store.Load(ctx, playerID)
	if err != nil {
		return progress.Record{}, fmt.Errorf("load progress: %w", err)
	}
	if rec == nil {
		return progress.Initial(playerID, s.catalog.FirstID()), nil
	}
	return *rec, nil
}

// maxSaveAttempts bounds how often update reloads after a version conflict.
const maxSaveAttempts = 5

// errUnchanged lets an update func keep the loaded record without saving.
var errUnchanged = errors.New("record unchanged")

// update loads the player's record, applies fn and saves the result. When
// another writer saved in between, the record is reloaded and fn runs again.
func (s *Service) update(ctx context.Context, playerID string, fn func(progress.Record) (progress.Record, error)) (progress.Record, error) {
	for attempt := 1; ; attempt++ {
		rec, err := s.load(ctx, playerID)
		if err != nil {
			return progress.Record{}, err
		}
		next, err := fn(rec)
		if errors.Is(err, errUnchanged) {
			return rec, nil
		}
		if err != nil {
			return progress.Record{}, err
		}
		next.Version = rec.Version

		err = s.store.Save(ctx, next)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, progress.ErrVersionConflict) {
			return progress.Record{}, fmt.Errorf("save progress: %w", err)
		}
		if attempt == maxSaveAttempts {
			return progress.Record{}, fmt.Errorf("%w: %w", ErrProgressConflict, err)
		}
		s.logger.Debug().Str("player_id", playerID).Int("attempt", attempt).Msg("progress saved elsewhere, reloading")
	}
}

func (s *Service) complete(rec progress.Record) bool {
	return len(rec.CompletedQuestions) >= s.catalog.Total()
}

// current resolves the question the player is on.
func (s *Service) current(rec progress.Record) (catalog.Question, error) {
	if s.complete(rec) {
		return catalog.Question{}, ErrGameComplete
	}
	q, ok := s.catalog.Question(rec.CurrentQuestion)
	if !ok {
		return catalog.Question{}, ErrQuestionNotFound
	}
	return q, nil
}

func (s *Service) view(rec progress.Record) (View, error) {
	v := View{
		PlayerID:           rec.PlayerID,
		Total:              s.catalog.Total(),
		CompletedQuestions: slices.Clone(rec.CompletedQuestions),
		Welcome:            len(rec.CompletedQuestions) == 0,
	}
	if v.CompletedQuestions == nil {
		v.CompletedQuestions = []int{}
	}
	if s.complete(rec) {
		reward := s.catalog.Reward
		v.Complete = true
		v.Position = v.Total
		v.Reward = &reward
		return v, nil
	}

	q, err := s.current(rec)
	if err != nil {
		return View{}, err
	}
	revealed := min(max(rec.HintsRevealed, 0), len(q.Hints))
	v.Position = q.ID
	v.Question = &QuestionView{
		ID:            q.ID,
		Prompt:        q.Prompt,
		RevealedHints: slices.Clone(q.Hints[:revealed]),
		HintCount:     len(q.Hints),
	}
	return v, nil
}

// State returns the player's current view without changing anything.
func (s *Service) State(ctx context.Context, playerID string) (View, error) {
	unlock := s.locks.lock(playerID)
	defer unlock()

	rec, err := s.load(ctx, playerID)
	if err != nil {
		return View{}, err
	}
	return s.view(rec)
}

// RevealHint reveals the next hint of the current question.
func (s *Service) RevealHint(ctx context.Context, playerID string) (View, error) {
	unlock := s.locks.lock(playerID)
	defer unlock()

	var q catalog.Question
	rec, err := s.update(ctx, playerID, func(rec progress.Record) (progress.Record, error) {
		var err error
		if q, err = s.current(rec); err != nil {
			return rec, err
		}
		if rec.HintsRevealed >= len(q.Hints) {
			return rec, ErrNoMoreHints
		}
		rec.HintsRevealed++
		return rec, nil
	})
	if err != nil {
		return View{}, err
	}
	if s.metrics != nil {
		s.metrics.HintsRevealed.Inc()
	}
	s.logger.Debug().Str("player_id", playerID).Int("question", q.ID).Int("hints_revealed", rec.HintsRevealed).Msg("hint revealed")
	return s.view(rec)
}

// SubmitAnswer grades answer against the current question and advances on
// success. Deltas of the grading response go to onDelta when set.
func (s *Service) SubmitAnswer(ctx context.Context, playerID, answer string, onDelta llm.DeltaFunc) (Outcome, error) {
	unlock := s.locks.lock(playerID)
	defer unlock()

	rec, err := s.load(ctx, playerID)
	if err != nil {
		return Outcome{}, err
	}
	q, err := s.current(rec)
	if err != nil {
		return Outcome{}, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Outcome{}, ErrEmptyAnswer
	}

	start := time.Now()
	verdict, err := s.grader.Grade(ctx, grader.Request{
		Question:      q.Prompt,
		CorrectAnswer: q.Answer,
		UserAnswer:    answer,
	}, onDelta)
	if s.metrics != nil {
		s.metrics.ObserveLLM("grade", start, err)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("player_id", playerID).Int("question", q.ID).Msg("grading failed")
		return Outcome{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if s.metrics != nil {
		s.metrics.AnswersGraded.WithLabelValues(metrics.Verdict(verdict.Correct)).Inc()
	}

	if verdict.Correct {
		advanced := false
		rec, err = s.update(ctx, playerID, func(latest progress.Record) (progress.Record, error) {
			// another replica may have moved on while the answer was graded
			if s.complete(latest) || latest.CurrentQuestion != q.ID {
				advanced = false
				return latest, errUnchanged
			}
			advanced = true
			return advance(latest, q.ID), nil
		})
		if err != nil {
			return Outcome{}, err
		}
		if advanced {
			s.recordAdvance(rec)
		}
	}
	s.logger.Info().Str("player_id", playerID).Int("question", q.ID).Bool("correct", verdict.Correct).Msg("answer graded")

	view, err := s.view(rec)
	if err != nil {
		return Outcome{}, err
	}
	return outcomeFrom(verdict, view), nil
}

// advance marks id solved and moves to the next question.
func advance(rec progress.Record, id int) progress.Record {
	rec = rec.Clone()
	if !rec.IsCompleted(id) {
		rec.CompletedQuestions = append(rec.CompletedQuestions, id)
	}
	rec.CurrentQuestion = id + 1
	rec.HintsRevealed = 0
	return rec
}

func (s *Service) recordAdvance(rec progress.Record) {
	if s.metrics == nil {
		return
	}
	s.metrics.QuestionsCompleted.Inc()
	if s.complete(rec) {
		s.metrics.GamesCompleted.Inc()
	}
}

// AskAssistant asks El Genio about the current question. Progress is not
// changed.
func (s *Service) AskAssistant(ctx context.Context, playerID, query string, onDelta llm.DeltaFunc) (string, error) {
	unlock := s.locks.lock(playerID)
	defer unlock()

	rec, err := s.load(ctx, playerID)
	if err != nil {
		return "", err
	}
	q, err := s.current(rec)
	if err != nil {
		return "", err
	}

	start := time.Now()
	reply, err := s.assistant.Assist(ctx, assistant.Request{
		Question:     q.Prompt,
		Hints:        q.Hints,
		LastRevealed: min(rec.HintsRevealed, len(q.Hints)) - 1,
		Query:        query,
	}, onDelta)
	if s.metrics != nil {
		s.metrics.AssistantRequests.Inc()
		s.metrics.ObserveLLM("assist", start, err)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("player_id", playerID).Int("question", q.ID).Msg("assistant failed")
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return reply, nil
}

// Reset starts the game over. Calling it repeatedly is harmless.
func (s *Service) Reset(ctx context.Context, playerID string) (View, error) {
	unlock := s.locks.lock(playerID)
	defer unlock()

	rec, err := s.update(ctx, playerID, func(progress.Record) (progress.Record, error) {
		return progress.Initial(playerID, s.catalog.FirstID()), nil
	})
	if err != nil {
		return View{}, err
	}
	if s.metrics != nil {
		s.metrics.Resets.Inc()
	}
	s.logger.Info().Str("player_id", playerID).Msg("progress reset")
	return s.view(rec)
}
