package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/riddle-gift/internal/assistant"
	"github.com/gokatarajesh/riddle-gift/internal/catalog"
	"github.com/gokatarajesh/riddle-gift/internal/grader"
	"github.com/gokatarajesh/riddle-gift/internal/llm"
	"github.com/gokatarajesh/riddle-gift/internal/metrics"
	"github.com/gokatarajesh/riddle-gift/internal/progress"
)

const testCatalog = `
questions:
  - id: 1
    question: "¿Qué tiene agujas y no cose?"
    hints: ["Marca el tiempo", "Está en la pared"]
    answer: "El reloj"
  - id: 2
    question: "¿Qué se moja mientras seca?"
    hints: ["Está en el baño"]
    answer: "La toalla"
reward:
  title: "¡Felicitaciones!"
  message: "Completaste todos los acertijos"
  sections:
    - heading: "Punto de encuentro"
      items: ["Estación de Sens", "14:30"]
`

type mockGrader struct{ mock.Mock }

func (m *mockGrader) Grade(ctx context.Context, req grader.Request, onDelta llm.DeltaFunc) (grader.Verdict, error) {
	args := m.Called(ctx, req, onDelta)
	if onDelta != nil {
		if err := onDelta(args.Get(0).(grader.Verdict).Feedback); err != nil {
			return grader.Verdict{}, err
		}
	}
	return args.Get(0).(grader.Verdict), args.Error(1)
}

type mockAssistant struct{ mock.Mock }

func (m *mockAssistant) Assist(ctx context.Context, req assistant.Request, onDelta llm.DeltaFunc) (string, error) {
	args := m.Called(ctx, req, onDelta)
	if onDelta != nil && args.String(0) != "" {
		if err := onDelta(args.String(0)); err != nil {
			return "", err
		}
	}
	return args.String(0), args.Error(1)
}

type fixture struct {
	service   *Service
	store     *progress.MemoryStore
	grader    *mockGrader
	assistant *mockAssistant
	metrics   *metrics.Game
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)

	f := &fixture{
		store:     progress.NewMemoryStore(),
		grader:    new(mockGrader),
		assistant: new(mockAssistant),
		metrics:   metrics.NewGame(prometheus.NewRegistry()),
	}
	f.service = NewService(cat, f.store, f.grader, f.assistant, f.metrics, zerolog.Nop())
	return f
}

func correct() grader.Verdict {
	return grader.Verdict{Correct: true, Feedback: "CORRECTO ¡Genia!"}
}

func TestStateForNewPlayer(t *testing.T) {
	f := newFixture(t)

	view, err := f.service.State(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, view.Welcome)
	assert.False(t, view.Complete)
	assert.Nil(t, view.Reward)
	assert.Equal(t, 1, view.Position)
	assert.Equal(t, 2, view.Total)
	require.NotNil(t, view.Question)
	assert.Equal(t, "¿Qué tiene agujas y no cose?", view.Question.Prompt)
	assert.Empty(t, view.Question.RevealedHints)
	assert.Equal(t, 2, view.Question.HintCount)
	assert.True(t, view.HasMoreHints())

	rec, err := f.store.Load(context.Background(), "p1")
	require.NoError(t, err)
	assert.Nil(t, rec, "viewing state must not persist anything")
}

func TestRevealHintStopsAtHintCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.service.RevealHint(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Marca el tiempo"}, view.Question.RevealedHints)

	view, err = f.service.RevealHint(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Marca el tiempo", "Está en la pared"}, view.Question.RevealedHints)
	assert.False(t, view.HasMoreHints())

	_, err = f.service.RevealHint(ctx, "p1")
	assert.ErrorIs(t, err, ErrNoMoreHints)

	rec, err := f.store.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.HintsRevealed)
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.HintsRevealed))
}

func TestSubmitAnswerCorrectAdvances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.service.RevealHint(ctx, "p1")
	require.NoError(t, err)

	f.grader.On("Grade", mock.Anything, grader.Request{
		Question:      "¿Qué tiene agujas y no cose?",
		CorrectAnswer: "El reloj",
		UserAnswer:    "un reloj",
	}, mock.Anything).Return(correct(), nil).Once()

	outcome, err := f.service.SubmitAnswer(ctx, "p1", "  un reloj ", nil)
	require.NoError(t, err)
	assert.True(t, outcome.Correct)
	assert.Equal(t, "CORRECTO ¡Genia!", outcome.Feedback)
	assert.Equal(t, 2, outcome.View.Position)
	assert.Equal(t, []int{1}, outcome.View.CompletedQuestions)
	assert.False(t, outcome.View.Welcome)
	assert.Empty(t, outcome.View.Question.RevealedHints)

	rec, err := f.store.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, rec.CompletedQuestions)
	assert.Equal(t, 2, rec.CurrentQuestion)
	assert.Zero(t, rec.HintsRevealed)
	f.grader.AssertExpectations(t)
}

func TestSubmitAnswerIncorrectKeepsProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.service.RevealHint(ctx, "p1")
	require.NoError(t, err)

	f.grader.On("Grade", mock.Anything, mock.Anything, mock.Anything).
		Return(grader.Verdict{Feedback: "INCORRECTO pensá en la pared"}, nil)

	outcome, err := f.service.SubmitAnswer(ctx, "p1", "una máquina de coser", nil)
	require.NoError(t, err)
	assert.False(t, outcome.Correct)
	assert.Equal(t, 1, outcome.View.Position)
	assert.Len(t, outcome.View.Question.RevealedHints, 1)

	// resubmission is allowed
	_, err = f.service.SubmitAnswer(ctx, "p1", "otra cosa", nil)
	require.NoError(t, err)
	f.grader.AssertNumberOfCalls(t, "Grade", 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.AnswersGraded.WithLabelValues("incorrect")))
}

func TestSubmitAnswerRejectsEmpty(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.SubmitAnswer(context.Background(), "p1", "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyAnswer)
	f.grader.AssertNotCalled(t, "Grade", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitAnswerStreamsDeltas(t *testing.T) {
	f := newFixture(t)
	f.grader.On("Grade", mock.Anything, mock.Anything, mock.Anything).Return(correct(), nil)

	var deltas []string
	_, err := f.service.SubmitAnswer(context.Background(), "p1", "reloj", func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"CORRECTO ¡Genia!"}, deltas)
}

func TestSubmitAnswerUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	cause := errors.New("503")
	f.grader.On("Grade", mock.Anything, mock.Anything, mock.Anything).Return(grader.Verdict{}, cause)

	_, err := f.service.SubmitAnswer(context.Background(), "p1", "reloj", nil)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, cause)

	rec, err := f.store.Load(context.Background(), "p1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCompletingTheGameRevealsReward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grader.On("Grade", mock.Anything, mock.Anything, mock.Anything).Return(correct(), nil)

	_, err := f.service.SubmitAnswer(ctx, "p1", "reloj", nil)
	require.NoError(t, err)
	outcome, err := f.service.SubmitAnswer(ctx, "p1", "toalla", nil)
	require.NoError(t, err)

	view := outcome.View
	assert.True(t, view.Complete)
	assert.Nil(t, view.Question)
	require.NotNil(t, view.Reward)
	assert.Equal(t, "¡Felicitaciones!", view.Reward.Title)
	assert.Equal(t, []int{1, 2}, view.CompletedQuestions)

	_, err = f.service.RevealHint(ctx, "p1")
	assert.ErrorIs(t, err, ErrGameComplete)
	_, err = f.service.SubmitAnswer(ctx, "p1", "x", nil)
	assert.ErrorIs(t, err, ErrGameComplete)
	_, err = f.service.AskAssistant(ctx, "p1", "", nil)
	assert.ErrorIs(t, err, ErrGameComplete)

	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.QuestionsCompleted))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.GamesCompleted))
}

func TestAdvanceDoesNotDuplicateCompletedIDs(t *testing.T) {
	rec := progress.Record{PlayerID: "p", CompletedQuestions: []int{1}, CurrentQuestion: 1, HintsRevealed: 2}
	next := advance(rec, 1)
	assert.Equal(t, []int{1}, next.CompletedQuestions)
	assert.Equal(t, 2, next.CurrentQuestion)
	assert.Zero(t, next.HintsRevealed)
	assert.Equal(t, 2, rec.HintsRevealed)
}

func TestAskAssistantPassesRevealedHints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.assistant.On("Assist", mock.Anything, assistant.Request{
		Question:     "¿Qué tiene agujas y no cose?",
		Hints:        []string{"Marca el tiempo", "Está en la pared"},
		LastRevealed: -1,
		Query:        "",
	}, mock.Anything).Return("Pensá en el tiempo", nil).Once()

	reply, err := f.service.AskAssistant(ctx, "p1", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Pensá en el tiempo", reply)

	_, err = f.service.RevealHint(ctx, "p1")
	require.NoError(t, err)
	f.assistant.On("Assist", mock.Anything, mock.MatchedBy(func(req assistant.Request) bool {
		return req.LastRevealed == 0 && req.Query == "¿es de cocina?"
	}), mock.Anything).Return("No, no es de la cocina", nil).Once()

	_, err = f.service.AskAssistant(ctx, "p1", "¿es de cocina?", nil)
	require.NoError(t, err)
	f.assistant.AssertExpectations(t)

	rec, err := f.store.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.HintsRevealed, "asking the assistant must not change progress")
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.AssistantRequests))
}

func TestResetIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grader.On("Grade", mock.Anything, mock.Anything, mock.Anything).Return(correct(), nil)
	_, err := f.service.SubmitAnswer(ctx, "p1", "reloj", nil)
	require.NoError(t, err)
	_, err = f.service.RevealHint(ctx, "p1")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		view, err := f.service.Reset(ctx, "p1")
		require.NoError(t, err)
		assert.True(t, view.Welcome)
		assert.Equal(t, 1, view.Position)
		assert.Empty(t, view.CompletedQuestions)

		rec, err := f.store.Load(ctx, "p1")
		require.NoError(t, err)
		assert.Empty(t, rec.CompletedQuestions)
		assert.Equal(t, 1, rec.CurrentQuestion)
		assert.Zero(t, rec.HintsRevealed)
	}
}

func TestUnknownCurrentQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, progress.Record{PlayerID: "p1", CompletedQuestions: []int{}, CurrentQuestion: 42}))

	_, err := f.service.State(ctx, "p1")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
	_, err = f.service.RevealHint(ctx, "p1")
	assert.ErrorIs(t, err, ErrQuestionNotFound)

	view, err := f.service.Reset(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.Position)
}

func TestConcurrentSubmissionsAdvanceOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grader.On("Grade", mock.Anything, mock.Anything, mock.Anything).Return(correct(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.service.SubmitAnswer(ctx, "p1", "reloj", nil)
		}()
	}
	wg.Wait()

	rec, err := f.store.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, rec.CompletedQuestions)
	assert.Equal(t, 3, rec.CurrentQuestion)
	assert.Zero(t, f.service.locks.size())
}

// gatedStore holds its first Save until release is closed.
type gatedStore struct {
	progress.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedStore(inner progress.Store) *gatedStore {
	return &gatedStore{Store: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedStore) Save(ctx context.Context, rec progress.Record) error {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.Store.Save(ctx, rec)
}

// conflictingStore rejects every save as stale.
type conflictingStore struct {
	progress.Store
	mu    sync.Mutex
	saves int
}

func (c *conflictingStore) Save(context.Context, progress.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	return progress.ErrVersionConflict
}

func newReplica(t *testing.T, f *fixture, store progress.Store, g AnswerGrader) *Service {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)
	return NewService(cat, store, g, f.assistant, nil, zerolog.Nop())
}

func TestHintOnOtherReplicaKeepsSolvedQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grader.On("Grade", mock.Anything, mock.Anything, mock.Anything).Return(correct(), nil)

	gated := newGatedStore(f.store)
	replica := newReplica(t, f, gated, f.grader)

	var view View
	done := make(chan error, 1)
	go func() {
		var err error
		view, err = replica.RevealHint(ctx, "p1")
		done <- err
	}()
	<-gated.entered

	outcome, err := f.service.SubmitAnswer(ctx, "p1", "reloj", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.View.Position)

	close(gated.release)
	require.NoError(t, <-done)
	assert.Equal(t, 2, view.Position)
	assert.Equal(t, []string{"Está en el baño"}, view.Question.RevealedHints)

	rec, err := f.store.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, rec.CompletedQuestions)
	assert.Equal(t, 2, rec.CurrentQuestion)
	assert.Equal(t, 1, rec.HintsRevealed)
}

func TestAnswerGradedWhileOtherReplicaAdvanced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entered, release := make(chan struct{}), make(chan struct{})
	f.grader.On("Grade", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(correct(), nil).Once()

	other := new(mockGrader)
	other.On("Grade", mock.Anything, mock.Anything, mock.Anything).Return(correct(), nil)
	replica := newReplica(t, f, f.store, other)

	type result struct {
		outcome Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := f.service.SubmitAnswer(ctx, "p1", "reloj", nil)
		done <- result{outcome, err}
	}()
	<-entered

	_, err := replica.SubmitAnswer(ctx, "p1", "el reloj", nil)
	require.NoError(t, err)
	close(release)

	res := <-done
	require.NoError(t, res.err)
	assert.True(t, res.outcome.Correct)
	assert.Equal(t, 2, res.outcome.View.Position)

	rec, err := f.store.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, rec.CompletedQuestions, "question 2 must not be skipped")
	assert.Equal(t, 2, rec.CurrentQuestion)
	assert.Zero(t, testutil.ToFloat64(f.metrics.QuestionsCompleted))
}

func TestPersistentConflictsGiveUp(t *testing.T) {
	f := newFixture(t)
	store := &conflictingStore{Store: f.store}
	replica := newReplica(t, f, store, f.grader)

	_, err := replica.Reset(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrProgressConflict)
	assert.ErrorIs(t, err, progress.ErrVersionConflict)
	assert.Equal(t, maxSaveAttempts, store.saves)
	assert.Contains(t, Message(err), "otra pestaña")
}

func TestMessage(t *testing.T) {
	assert.Contains(t, Message(ErrQuestionNotFound), "No se pudo encontrar la pregunta actual")
	assert.Contains(t, Message(fmtWrap(ErrNoMoreHints)), "pistas")
	assert.Equal(t, "Ocurrió un error inesperado.", Message(errors.New("x")))
}

func fmtWrap(err error) error {
	return errors.Join(errors.New("context"), err)
}
