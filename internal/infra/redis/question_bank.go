package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"live-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the question bank from a backing store (e.g. Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// questionsKey holds the cached bank: HSET quiz:questions {questionID} {JSON question}
const questionsKey = "quiz:questions"

// QuestionBank caches the question bank in Redis and falls back to a loader on cache miss.
type QuestionBank struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Questions returns the bank ordered by question ID.
func (b *QuestionBank) Questions(ctx context.Context) ([]domain.Question, error) {
	entries, err := b.client.HGetAll(ctx, questionsKey).Result()
	if err == nil && len(entries) > 0 {
		return decodeQuestions(entries)
	}

	result, err, _ := b.sf.Do(questionsKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		entries, err := b.client.HGetAll(ctx, questionsKey).Result()
		if err == nil && len(entries) > 0 {
			return decodeQuestions(entries)
		}

		questions, err := b.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			return questions, nil
		}

		pipe := b.client.Pipeline()
		for _, q := range questions {
			data, err := json.Marshal(q)
			if err != nil {
				return nil, fmt.Errorf("marshal question: %w", err)
			}
			pipe.HSet(ctx, questionsKey, q.ID, data)
		}
		if ttl := b.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, questionsKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		sortQuestions(questions)
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Question returns one question, filling the cache on a miss.
func (b *QuestionBank) Question(ctx context.Context, id string) (domain.Question, error) {
	raw, err := b.client.HGet(ctx, questionsKey, id).Bytes()
	if err == nil {
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return domain.Question{}, fmt.Errorf("unmarshal question: %w", err)
		}
		return q, nil
	}
	if !errors.Is(err, redis.Nil) {
		return domain.Question{}, fmt.Errorf("get question: %w", err)
	}

	questions, err := b.Questions(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	for _, q := range questions {
		if q.ID == id {
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func decodeQuestions(entries map[string]string) ([]domain.Question, error) {
	questions := make([]domain.Question, 0, len(entries))
	for _, raw := range entries {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		questions = append(questions, q)
	}
	sortQuestions(questions)
	return questions, nil
}

func sortQuestions(questions []domain.Question) {
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
