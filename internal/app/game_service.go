package app

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"live-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// maxCodeAttempts bounds how many fresh codes CreateGame tries before giving up.
const maxCodeAttempts = 32

// GameRepository stores games keyed by code.
type GameRepository interface {
	// CreateGame inserts a new game, returning domain.ErrCodeTaken if the code exists.
	CreateGame(ctx context.Context, game domain.Game) error
	GetGame(ctx context.Context, code string) (domain.Game, error)
	// StartGame atomically moves a joining game to in-progress with the given
	// question and start time. It returns domain.ErrGameAlreadyStarted if the
	// game is no longer joining.
	StartGame(ctx context.Context, code, questionID string, startedAt time.Time) (domain.Game, error)
}

// PlayerRepository stores players. Session tokens are unique across all games.
type PlayerRepository interface {
	// UpsertPlayer creates the player for (GameCode, SessionToken) or renames the
	// existing one. The ID of p is only used on creation.
	UpsertPlayer(ctx context.Context, p domain.Player) (domain.Player, error)
	GetPlayer(ctx context.Context, gameCode, playerID string) (domain.Player, error)
	GetPlayerByToken(ctx context.Context, gameCode, token string) (domain.Player, error)
	ListPlayers(ctx context.Context, gameCode string) ([]domain.Player, error)
	// DeletePlayer removes the player and all of their answers.
	DeletePlayer(ctx context.Context, gameCode, playerID string) error
	AddScore(ctx context.Context, gameCode, playerID string, delta float64) (domain.Player, error)
}

// AnswerRepository is the answer ledger.
type AnswerRepository interface {
	// RecordAnswer inserts the answer unless one exists for the same player and
	// question, in which case it returns domain.ErrDuplicateAnswer.
	RecordAnswer(ctx context.Context, answer domain.Answer) error
	// ListAnswers returns the answers to a question in submission order.
	ListAnswers(ctx context.Context, gameCode, questionID string) ([]domain.Answer, error)
}

// QuestionBank serves read-only question content.
type QuestionBank interface {
	Questions(ctx context.Context) ([]domain.Question, error)
	Question(ctx context.Context, id string) (domain.Question, error)
}

// GameService contains the game use cases: registry, player registry, state
// machine, answer ledger and state projection.
type GameService struct {
	games     GameRepository
	players   PlayerRepository
	answers   AnswerRepository
	questions QuestionBank

	hostPassword string
	scorer       Scorer
	newCode      func() (string, error)
	newID        func() string
	pick         func(n int) int
	now          func() time.Time
	locks        *keyedMutex
	logger       *slog.Logger
}

// Option configures a GameService.
type Option func(*GameService)

// WithHostPassword sets the shared secret required to create games.
func WithHostPassword(password string) Option {
	return func(s *GameService) { s.hostPassword = password }
}

// WithClock is mostly useful for deterministic timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(s *GameService) { s.now = now }
}

// WithScorer replaces the default NoScore scorer.
func WithScorer(scorer Scorer) Option {
	return func(s *GameService) { s.scorer = scorer }
}

// WithCodeGenerator replaces the random game code generator.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *GameService) { s.newCode = gen }
}

// WithPicker replaces the uniform question picker. pick(n) must return a value in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(s *GameService) { s.pick = pick }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *GameService) { s.logger = logger }
}

func NewGameService(games GameRepository, players PlayerRepository, answers AnswerRepository, questions QuestionBank, opts ...Option) *GameService {
	s := &GameService{
		games:     games,
		players:   players,
		answers:   answers,
		questions: questions,
		scorer:    NoScore{},
		newCode:   NewGameCode,
		newID:     uuid.NewString,
		pick:      rand.IntN,
		now:       time.Now,
		locks:     newKeyedMutex(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGame opens a new game in the joining state, owned by hostToken.
func (s *GameService) CreateGame(ctx context.Context, password, hostToken string) (domain.Game, error) {
	if s.hostPassword == "" || password != s.hostPassword {
		return domain.Game{}, domain.ErrWrongPassword
	}
	if hostToken == "" {
		return domain.Game{}, domain.ErrMissingToken
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return domain.Game{}, err
		}
		game := domain.Game{
			Code:      code,
			Status:    domain.StatusJoining,
			HostToken: hostToken,
			CreatedAt: s.now(),
		}
		err = s.games.CreateGame(ctx, game)
		if errors.Is(err, domain.ErrCodeTaken) {
			s.logger.Debug("game code collision", "code", code, "attempt", attempt)
			continue
		}
		if err != nil {
			return domain.Game{}, err
		}
		s.logger.Info("game created", "code", code)
		return game, nil
	}
	return domain.Game{}, domain.ErrCodeCollision
}

// LookupGame returns the game with the given code.
func (s *GameService) LookupGame(ctx context.Context, code string) (domain.Game, error) {
	code = NormalizeCode(code)
	if code == "" {
		return domain.Game{}, domain.ErrEmptyGameCode
	}
	return s.games.GetGame(ctx, code)
}

// JoinGame registers or renames the player owned by token in a joining game.
func (s *GameService) JoinGame(ctx context.Context, code, token, name string) (domain.Player, error) {
	code = NormalizeCode(code)
	name = strings.TrimSpace(name)
	if code == "" {
		return domain.Player{}, domain.ErrEmptyGameCode
	}
	if name == "" {
		return domain.Player{}, domain.ErrEmptyName
	}
	if token == "" {
		return domain.Player{}, domain.ErrMissingToken
	}

	unlock := s.locks.Lock(code)
	defer unlock()

	game, err := s.games.GetGame(ctx, code)
	if errors.Is(err, domain.ErrGameNotFound) {
		return domain.Player{}, domain.ErrGameNotJoinable
	}
	if err != nil {
		return domain.Player{}, err
	}
	if game.Status != domain.StatusJoining {
		return domain.Player{}, domain.ErrGameNotJoinable
	}

	player, err := s.players.UpsertPlayer(ctx, domain.Player{
		ID:           s.newID(),
		GameCode:     code,
		Name:         name,
		SessionToken: token,
	})
	if err != nil {
		return domain.Player{}, err
	}
	s.logger.Info("player joined", "code", code, "player", player.ID)
	return player, nil
}

// RemovePlayer lets the host kick a player; the player's answers go with them.
func (s *GameService) RemovePlayer(ctx context.Context, code, hostToken, playerID string) error {
	code = NormalizeCode(code)
	if code == "" {
		return domain.ErrEmptyGameCode
	}

	unlock := s.locks.Lock(code)
	defer unlock()

	game, err := s.hostGame(ctx, code, hostToken)
	if err != nil {
		return err
	}
	if playerID == "" {
		return domain.ErrPlayerNotFound
	}
	player, err := s.players.GetPlayer(ctx, code, playerID)
	if err != nil {
		return err
	}
	if player.SessionToken == game.HostToken {
		return domain.ErrSelfRemoval
	}
	if err := s.players.DeletePlayer(ctx, code, playerID); err != nil {
		return err
	}
	s.logger.Info("player removed", "code", code, "player", playerID)
	return nil
}

// StartGame moves a joining game to in-progress with a randomly selected question.
func (s *GameService) StartGame(ctx context.Context, code, hostToken string) (domain.Game, error) {
	code = NormalizeCode(code)
	if code == "" {
		return domain.Game{}, domain.ErrEmptyGameCode
	}

	unlock := s.locks.Lock(code)
	defer unlock()

	game, err := s.hostGame(ctx, code, hostToken)
	if err != nil {
		return domain.Game{}, err
	}
	if game.Status != domain.StatusJoining {
		return domain.Game{}, domain.ErrGameAlreadyStarted
	}

	questions, err := s.questions.Questions(ctx)
	if err != nil {
		return domain.Game{}, err
	}
	if len(questions) == 0 {
		return domain.Game{}, domain.ErrNoQuestions
	}
	question := questions[s.pick(len(questions))]

	started, err := s.games.StartGame(ctx, code, question.ID, s.now())
	if err != nil {
		return domain.Game{}, err
	}
	s.logger.Info("game started", "code", code, "question", question.ID)
	return started, nil
}

// SubmitAnswer records that the player owned by token answered the current question.
// Late answers are accepted: the deadline is advisory.
func (s *GameService) SubmitAnswer(ctx context.Context, code, token string) error {
	code = NormalizeCode(code)
	if code == "" {
		return domain.ErrEmptyGameCode
	}
	if token == "" {
		return domain.ErrPlayerNotFound
	}

	unlock := s.locks.Lock(code)
	defer unlock()

	game, err := s.games.GetGame(ctx, code)
	if err != nil {
		return err
	}
	player, err := s.players.GetPlayerByToken(ctx, code, token)
	if err != nil {
		return err
	}
	if !game.InProgress() {
		return domain.ErrGameNotInProgress
	}

	answer := domain.Answer{
		GameCode:    code,
		PlayerID:    player.ID,
		QuestionID:  game.CurrentQuestionID,
		SubmittedAt: s.now(),
	}
	if err := s.answers.RecordAnswer(ctx, answer); err != nil {
		if errors.Is(err, domain.ErrDuplicateAnswer) {
			s.logger.Debug("duplicate answer rejected", "code", code, "player", player.ID)
		}
		return err
	}

	delta := s.scorer.Score(ctx, ScoreInput{
		Game:    game,
		Player:  player,
		Answer:  answer,
		Elapsed: answer.SubmittedAt.Sub(*game.QuestionStartedAt),
	})
	if delta != 0 {
		// the answer stands even if scoring fails
		if _, err := s.players.AddScore(ctx, code, player.ID, delta); err != nil {
			s.logger.Error("score update failed", "code", code, "player", player.ID, "delta", delta, "error", err)
		}
	}
	return nil
}

// Identify tells the caller owning token whether it hosts the game and which
// player it is, if any.
func (s *GameService) Identify(ctx context.Context, code, token string) (domain.SessionView, error) {
	game, err := s.LookupGame(ctx, code)
	if err != nil {
		return domain.SessionView{}, err
	}
	view := domain.SessionView{
		GameCode: game.Code,
		IsHost:   token != "" && token == game.HostToken,
	}
	if token == "" {
		return view, nil
	}
	player, err := s.players.GetPlayerByToken(ctx, game.Code, token)
	switch {
	case err == nil:
		view.PlayerID = player.ID
	case !errors.Is(err, domain.ErrPlayerNotFound):
		return domain.SessionView{}, err
	}
	return view, nil
}

// hostGame loads the game and checks that token belongs to its host.
func (s *GameService) hostGame(ctx context.Context, code, token string) (domain.Game, error) {
	game, err := s.games.GetGame(ctx, code)
	if err != nil {
		return domain.Game{}, err
	}
	if token == "" || token != game.HostToken {
		s.logger.Debug("host action rejected", "code", code)
		return domain.Game{}, domain.ErrNotHost
	}
	return game, nil
}
