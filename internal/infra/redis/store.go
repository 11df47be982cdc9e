package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"live-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic WATCH/MULTI retries.
const maxTxRetries = 8

// Store keeps games, players and answers in Redis.
// Key layout:
//
//	quiz:game:{code}                        JSON game
//	quiz:game:{code}:players                HASH playerID -> JSON player
//	quiz:game:{code}:answers:{questionID}   HASH playerID -> submitted_at (unix nanos)
//	quiz:game:{code}:answered               SET of questionIDs with answers
//	quiz:token:{token}                      "{code}/{playerID}"
//
// Uniqueness (codes, tokens, answers) relies on SETNX/HSETNX so it holds across
// processes; lifecycle changes use WATCH/MULTI.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns a Redis store whose keys expire after ttl; zero disables expiry.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) CreateGame(ctx context.Context, game domain.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}
	created, err := s.client.SetNX(ctx, s.gameKey(game.Code), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	if !created {
		return domain.ErrCodeTaken
	}
	return nil
}

func (s *Store) GetGame(ctx context.Context, code string) (domain.Game, error) {
	return getGame(ctx, s.client, s.gameKey(code))
}

func (s *Store) StartGame(ctx context.Context, code, questionID string, startedAt time.Time) (domain.Game, error) {
	key := s.gameKey(code)
	var started domain.Game

	txf := func(tx *redis.Tx) error {
		game, err := getGame(ctx, tx, key)
		if err != nil {
			return err
		}
		if game.Status != domain.StatusJoining {
			return domain.ErrGameAlreadyStarted
		}
		game.Status = domain.StatusInProgress
		game.CurrentQuestionID = questionID
		game.QuestionStartedAt = &startedAt
		data, err := json.Marshal(game)
		if err != nil {
			return fmt.Errorf("marshal game: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err == nil {
			started = game
		}
		return err
	}

	if err := s.watch(ctx, txf, key); err != nil {
		return domain.Game{}, err
	}
	return started, nil
}

func (s *Store) UpsertPlayer(ctx context.Context, p domain.Player) (domain.Player, error) {
	tokenKey := s.tokenKey(p.SessionToken)
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		created, err := s.client.SetNX(ctx, tokenKey, p.GameCode+"/"+p.ID, s.ttl).Result()
		if err != nil {
			return domain.Player{}, fmt.Errorf("claim token: %w", err)
		}
		if created {
			p.Score = 0
			return p, s.putPlayer(ctx, p)
		}

		ref, err := s.client.Get(ctx, tokenKey).Result()
		if errors.Is(err, redis.Nil) {
			// token expired between SETNX and GET
			continue
		}
		if err != nil {
			return domain.Player{}, fmt.Errorf("read token: %w", err)
		}
		code, id, _ := strings.Cut(ref, "/")
		if code != p.GameCode {
			return domain.Player{}, domain.ErrTokenInUse
		}

		existing, err := s.GetPlayer(ctx, code, id)
		if errors.Is(err, domain.ErrPlayerNotFound) {
			// the claiming request has not written its row yet
			existing = domain.Player{ID: id, GameCode: code, SessionToken: p.SessionToken}
		} else if err != nil {
			return domain.Player{}, err
		}
		existing.Name = p.Name
		return existing, s.putPlayer(ctx, existing)
	}
	return domain.Player{}, fmt.Errorf("upsert player: too many retries")
}

func (s *Store) GetPlayer(ctx context.Context, gameCode, playerID string) (domain.Player, error) {
	raw, err := s.client.HGet(ctx, s.playersKey(gameCode), playerID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	if err != nil {
		return domain.Player{}, fmt.Errorf("get player: %w", err)
	}
	var p domain.Player
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Player{}, fmt.Errorf("unmarshal player: %w", err)
	}
	return p, nil
}

func (s *Store) GetPlayerByToken(ctx context.Context, gameCode, token string) (domain.Player, error) {
	ref, err := s.client.Get(ctx, s.tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	if err != nil {
		return domain.Player{}, fmt.Errorf("read token: %w", err)
	}
	code, id, _ := strings.Cut(ref, "/")
	if code != gameCode {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	return s.GetPlayer(ctx, code, id)
}

func (s *Store) ListPlayers(ctx context.Context, gameCode string) ([]domain.Player, error) {
	values, err := s.client.HVals(ctx, s.playersKey(gameCode)).Result()
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	players := make([]domain.Player, 0, len(values))
	for _, v := range values {
		var p domain.Player
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			return nil, fmt.Errorf("unmarshal player: %w", err)
		}
		players = append(players, p)
	}
	return players, nil
}

func (s *Store) DeletePlayer(ctx context.Context, gameCode, playerID string) error {
	p, err := s.GetPlayer(ctx, gameCode, playerID)
	if err != nil {
		return err
	}
	questionIDs, err := s.client.SMembers(ctx, s.answeredKey(gameCode)).Result()
	if err != nil {
		return fmt.Errorf("list answered questions: %w", err)
	}
	// an answer to the live question may not be indexed in the answered set yet
	game, err := s.GetGame(ctx, gameCode)
	switch {
	case err == nil && game.CurrentQuestionID != "":
		questionIDs = append(questionIDs, game.CurrentQuestionID)
	case err != nil && !errors.Is(err, domain.ErrGameNotFound):
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.playersKey(gameCode), playerID)
		pipe.Del(ctx, s.tokenKey(p.SessionToken))
		for _, qid := range questionIDs {
			pipe.HDel(ctx, s.answersKey(gameCode, qid), playerID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	return nil
}

func (s *Store) AddScore(ctx context.Context, gameCode, playerID string, delta float64) (domain.Player, error) {
	key := s.playersKey(gameCode)
	var updated domain.Player

	txf := func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, key, playerID).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrPlayerNotFound
		}
		if err != nil {
			return fmt.Errorf("get player: %w", err)
		}
		var p domain.Player
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("unmarshal player: %w", err)
		}
		p.Score += delta
		if p.Score < 0 {
			p.Score = 0
		}
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal player: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, playerID, data)
			return nil
		})
		if err == nil {
			updated = p
		}
		return err
	}

	if err := s.watch(ctx, txf, key); err != nil {
		return domain.Player{}, err
	}
	return updated, nil
}

func (s *Store) RecordAnswer(ctx context.Context, answer domain.Answer) error {
	key := s.answersKey(answer.GameCode, answer.QuestionID)
	stamp := strconv.FormatInt(answer.SubmittedAt.UnixNano(), 10)
	var inserted *redis.BoolCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		inserted = pipe.HSetNX(ctx, key, answer.PlayerID, stamp)
		pipe.SAdd(ctx, s.answeredKey(answer.GameCode), answer.QuestionID)
		s.expire(ctx, pipe, key, s.answeredKey(answer.GameCode))
		return nil
	})
	if err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	if !inserted.Val() {
		return domain.ErrDuplicateAnswer
	}
	return nil
}

func (s *Store) ListAnswers(ctx context.Context, gameCode, questionID string) ([]domain.Answer, error) {
	entries, err := s.client.HGetAll(ctx, s.answersKey(gameCode, questionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	answers := make([]domain.Answer, 0, len(entries))
	for playerID, stamp := range entries {
		nanos, err := strconv.ParseInt(stamp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse answer time: %w", err)
		}
		answers = append(answers, domain.Answer{
			GameCode:    gameCode,
			PlayerID:    playerID,
			QuestionID:  questionID,
			SubmittedAt: time.Unix(0, nanos).UTC(),
		})
	}
	sort.Slice(answers, func(i, j int) bool {
		if !answers[i].SubmittedAt.Equal(answers[j].SubmittedAt) {
			return answers[i].SubmittedAt.Before(answers[j].SubmittedAt)
		}
		return answers[i].PlayerID < answers[j].PlayerID
	})
	return answers, nil
}

func (s *Store) putPlayer(ctx context.Context, p domain.Player) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal player: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, s.playersKey(p.GameCode), p.ID, data)
	s.expire(ctx, pipe, s.playersKey(p.GameCode), s.tokenKey(p.SessionToken))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store player: %w", err)
	}
	return nil
}

func (s *Store) watch(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("transaction on %v: too many retries", keys)
}

func (s *Store) expire(ctx context.Context, pipe redis.Pipeliner, keys ...string) {
	if s.ttl <= 0 {
		return
	}
	for _, key := range keys {
		pipe.Expire(ctx, key, s.ttl)
	}
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getGame(ctx context.Context, c getter, key string) (domain.Game, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("get game: %w", err)
	}
	var game domain.Game
	if err := json.Unmarshal(raw, &game); err != nil {
		return domain.Game{}, fmt.Errorf("unmarshal game: %w", err)
	}
	return game, nil
}

func (s *Store) gameKey(code string) string {
	return "quiz:game:" + code
}

func (s *Store) playersKey(code string) string {
	return "quiz:game:" + code + ":players"
}

func (s *Store) answersKey(code, questionID string) string {
	return "quiz:game:" + code + ":answers:" + questionID
}

func (s *Store) answeredKey(code string) string {
	return "quiz:game:" + code + ":answered"
}

func (s *Store) tokenKey(token string) string {
	return "quiz:token:" + token
}
