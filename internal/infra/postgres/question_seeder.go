package postgres

import (
	"context"
	"fmt"

	"live-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID   string `bun:"id,pk"`
	Text string `bun:"text,notnull"`
}

type choiceRow struct {
	bun.BaseModel `bun:"table:choices"`

	QuestionID string `bun:"question_id,pk"`
	Position   int    `bun:"position,pk"`
	Text       string `bun:"text,notnull"`
	IsCorrect  bool   `bun:"is_correct,notnull"`
}

// SeedQuestions upserts questions by ID and replaces their choices.
func SeedQuestions(ctx context.Context, db *bun.DB, questions []domain.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		rows := make([]questionRow, 0, len(questions))
		ids := make([]string, 0, len(questions))
		var choices []choiceRow
		for _, q := range questions {
			rows = append(rows, questionRow{ID: q.ID, Text: q.Text})
			ids = append(ids, q.ID)
			for i, c := range q.Choices {
				choices = append(choices, choiceRow{QuestionID: q.ID, Position: i, Text: c.Text, IsCorrect: c.IsCorrect})
			}
		}

		if _, err := tx.NewInsert().Model(&rows).
			On("CONFLICT (id) DO UPDATE").
			Set("text = EXCLUDED.text").
			Exec(ctx); err != nil {
			return fmt.Errorf("upsert questions: %w", err)
		}
		if _, err := tx.NewDelete().Model((*choiceRow)(nil)).
			Where("question_id IN (?)", bun.In(ids)).
			Exec(ctx); err != nil {
			return fmt.Errorf("clear choices: %w", err)
		}
		if len(choices) > 0 {
			if _, err := tx.NewInsert().Model(&choices).Exec(ctx); err != nil {
				return fmt.Errorf("insert choices: %w", err)
			}
		}
		return nil
	})
}
