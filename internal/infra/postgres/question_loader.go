package postgres

import (
	"context"
	"fmt"

	"live-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionLoader loads the question bank from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT q.id, q.text, c.text, c.is_correct
		FROM questions q
		LEFT JOIN choices c ON c.question_id = q.id
		ORDER BY q.id, c.position`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			id, text   string
			choiceText *string
			isCorrect  *bool
		)
		if err := rows.Scan(&id, &text, &choiceText, &isCorrect); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if n := len(questions); n == 0 || questions[n-1].ID != id {
			questions = append(questions, domain.Question{ID: id, Text: text, Choices: []domain.Choice{}})
		}
		if choiceText != nil {
			last := &questions[len(questions)-1]
			last.Choices = append(last.Choices, domain.Choice{Text: *choiceText, IsCorrect: isCorrect != nil && *isCorrect})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}
