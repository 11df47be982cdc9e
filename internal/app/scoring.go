package app

import (
	"context"
	"time"

	"live-quiz-service/internal/domain"
)

// ScoreInput is everything a Scorer may look at for one accepted answer.
type ScoreInput struct {
	Game    domain.Game
	Player  domain.Player
	Answer  domain.Answer
	Elapsed time.Duration
}

// Scorer computes the score delta for an accepted answer. A zero delta leaves
// the player untouched.
type Scorer interface {
	Score(ctx context.Context, in ScoreInput) float64
}

// NoScore never awards points. Answers do not record the chosen option, so
// there is nothing to grade yet.
type NoScore struct{}

func (NoScore) Score(context.Context, ScoreInput) float64 {
	return 0
}
