package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"live-quiz-service/internal/domain"
)

// TimeLeft returns the whole seconds remaining on the game's current question.
// The value goes negative once the question has closed; it is 0 for games
// without a live question.
func TimeLeft(game domain.Game, now time.Time) int {
	if !game.InProgress() || game.QuestionStartedAt == nil {
		return 0
	}
	deadline := game.QuestionStartedAt.Add(domain.QuestionDuration)
	return int(math.RoundToEven(deadline.Sub(now).Seconds()))
}

// TimeRemaining is TimeLeft evaluated against the service clock.
func (s *GameService) TimeRemaining(game domain.Game) int {
	return TimeLeft(game, s.now())
}

// ProjectState builds the snapshot served to polling clients. It is recomputed
// from the stores on every call.
func (s *GameService) ProjectState(ctx context.Context, code string) (domain.Snapshot, error) {
	game, err := s.LookupGame(ctx, code)
	if err != nil {
		return domain.Snapshot{}, err
	}

	players, err := s.players.ListPlayers(ctx, game.Code)
	if err != nil {
		return domain.Snapshot{}, err
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].Name != players[j].Name {
			return players[i].Name < players[j].Name
		}
		return players[i].ID < players[j].ID
	})

	snapshot := domain.Snapshot{
		Status:  game.Status,
		Players: make([]domain.PlayerView, 0, len(players)),
	}
	for _, p := range players {
		snapshot.Players = append(snapshot.Players, domain.PlayerView{ID: p.ID, Name: p.Name, Score: p.Score})
	}

	if !game.InProgress() {
		return snapshot, nil
	}

	question, err := s.questions.Question(ctx, game.CurrentQuestionID)
	if errors.Is(err, domain.ErrQuestionNotFound) {
		// the bank was reloaded without the live question
		return domain.Snapshot{}, fmt.Errorf("game %s: current question %s missing from bank", game.Code, game.CurrentQuestionID)
	}
	if err != nil {
		return domain.Snapshot{}, err
	}
	answers, err := s.answers.ListAnswers(ctx, game.Code, game.CurrentQuestionID)
	if err != nil {
		return domain.Snapshot{}, err
	}

	round := &domain.RoundView{
		Question: domain.QuestionView{
			ID:       question.ID,
			Text:     question.Text,
			Choices:  make([]string, 0, len(question.Choices)),
			TimeLeft: s.TimeRemaining(game),
		},
		AnsweredPlayerIDs: make([]string, 0, len(answers)),
	}
	for _, c := range question.Choices {
		round.Question.Choices = append(round.Question.Choices, c.Text)
	}
	for _, a := range answers {
		round.AnsweredPlayerIDs = append(round.AnsweredPlayerIDs, a.PlayerID)
	}
	snapshot.RoundView = round
	return snapshot, nil
}
