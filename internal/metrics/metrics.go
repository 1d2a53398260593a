// Package metrics holds the Prometheus collectors for gameplay.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "riddle"

// Game counts gameplay events and completion latency.
type Game struct {
	HintsRevealed      prometheus.Counter
	AnswersGraded      *prometheus.CounterVec
	QuestionsCompleted prometheus.Counter
	GamesCompleted     prometheus.Counter
	Resets             prometheus.Counter
	AssistantRequests  prometheus.Counter
	LLMLatency         *prometheus.HistogramVec
}

// NewGame registers the collectors with reg.
func NewGame(reg prometheus.Registerer) *Game {
	factory := promauto.With(reg)
	return &Game{
		HintsRevealed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hints_revealed_total",
			Help:      "Hints revealed to players.",
		}),
		AnswersGraded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_graded_total",
			Help:      "Answers graded, by verdict.",
		}, []string{"verdict"}),
		QuestionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_completed_total",
			Help:      "Questions answered correctly.",
		}),
		GamesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_completed_total",
			Help:      "Games finished and rewards revealed.",
		}),
		Resets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Progress resets.",
		}),
		AssistantRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assistant_requests_total",
			Help:      "Questions put to the hint assistant.",
		}),
		LLMLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Completion call latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"operation", "outcome"}),
	}
}

// ObserveLLM records how long a completion call took.
func (g *Game) ObserveLLM(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	g.LLMLatency.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

// Verdict labels a grading outcome.
func Verdict(correct bool) string {
	if correct {
		return "correct"
	}
	return "incorrect"
}
