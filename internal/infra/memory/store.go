package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"live-quiz-service/internal/domain"
)

// Store is an in-memory implementation of app.GameRepository,
// app.PlayerRepository and app.AnswerRepository. A single lock makes every
// check-then-write atomic.
type Store struct {
	mu      sync.RWMutex
	games   map[string]domain.Game
	players map[string]map[string]domain.Player // game code -> player ID
	tokens  map[string]playerRef
	answers map[answerKey]domain.Answer
}

type playerRef struct {
	gameCode string
	playerID string
}

type answerKey struct {
	gameCode   string
	questionID string
	playerID   string
}

func NewStore() *Store {
	return &Store{
		games:   make(map[string]domain.Game),
		players: make(map[string]map[string]domain.Player),
		tokens:  make(map[string]playerRef),
		answers: make(map[answerKey]domain.Answer),
	}
}

func (s *Store) CreateGame(_ context.Context, game domain.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[game.Code]; ok {
		return domain.ErrCodeTaken
	}
	s.games[game.Code] = game
	return nil
}

func (s *Store) GetGame(_ context.Context, code string) (domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[code]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return game, nil
}

func (s *Store) StartGame(_ context.Context, code, questionID string, startedAt time.Time) (domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[code]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if game.Status != domain.StatusJoining {
		return domain.Game{}, domain.ErrGameAlreadyStarted
	}
	game.Status = domain.StatusInProgress
	game.CurrentQuestionID = questionID
	game.QuestionStartedAt = &startedAt
	s.games[code] = game
	return game, nil
}

func (s *Store) UpsertPlayer(_ context.Context, p domain.Player) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ref, ok := s.tokens[p.SessionToken]; ok {
		if ref.gameCode != p.GameCode {
			return domain.Player{}, domain.ErrTokenInUse
		}
		existing := s.players[ref.gameCode][ref.playerID]
		existing.Name = p.Name
		s.players[ref.gameCode][ref.playerID] = existing
		return existing, nil
	}

	p.Score = 0
	if s.players[p.GameCode] == nil {
		s.players[p.GameCode] = make(map[string]domain.Player)
	}
	s.players[p.GameCode][p.ID] = p
	s.tokens[p.SessionToken] = playerRef{gameCode: p.GameCode, playerID: p.ID}
	return p, nil
}

func (s *Store) GetPlayer(_ context.Context, gameCode, playerID string) (domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[gameCode][playerID]
	if !ok {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	return p, nil
}

func (s *Store) GetPlayerByToken(_ context.Context, gameCode, token string) (domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.tokens[token]
	if !ok || ref.gameCode != gameCode {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	return s.players[ref.gameCode][ref.playerID], nil
}

func (s *Store) ListPlayers(_ context.Context, gameCode string) ([]domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make([]domain.Player, 0, len(s.players[gameCode]))
	for _, p := range s.players[gameCode] {
		players = append(players, p)
	}
	return players, nil
}

func (s *Store) DeletePlayer(_ context.Context, gameCode, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[gameCode][playerID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	delete(s.players[gameCode], playerID)
	delete(s.tokens, p.SessionToken)
	for key := range s.answers {
		if key.gameCode == gameCode && key.playerID == playerID {
			delete(s.answers, key)
		}
	}
	return nil
}

func (s *Store) AddScore(_ context.Context, gameCode, playerID string, delta float64) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[gameCode][playerID]
	if !ok {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	p.Score += delta
	if p.Score < 0 {
		p.Score = 0
	}
	s.players[gameCode][playerID] = p
	return p, nil
}

func (s *Store) RecordAnswer(_ context.Context, answer domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := answerKey{gameCode: answer.GameCode, questionID: answer.QuestionID, playerID: answer.PlayerID}
	if _, ok := s.answers[key]; ok {
		return domain.ErrDuplicateAnswer
	}
	s.answers[key] = answer
	return nil
}

func (s *Store) ListAnswers(_ context.Context, gameCode, questionID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	answers := make([]domain.Answer, 0)
	for key, a := range s.answers {
		if key.gameCode == gameCode && key.questionID == questionID {
			answers = append(answers, a)
		}
	}
	sortAnswers(answers)
	return answers, nil
}

func sortAnswers(answers []domain.Answer) {
	sort.Slice(answers, func(i, j int) bool {
		if !answers[i].SubmittedAt.Equal(answers[j].SubmittedAt) {
			return answers[i].SubmittedAt.Before(answers[j].SubmittedAt)
		}
		return answers[i].PlayerID < answers[j].PlayerID
	})
}
