package memory

import (
	"context"
	"fmt"
	"os"

	"live-quiz-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// QuestionFile is the YAML layout of a question bank file:
//
//	questions:
//	  - id: q1
//	    text: "2+2?"
//	    choices:
//	      - text: "3"
//	      - text: "4"
//	        correct: true
type QuestionFile struct {
	Questions []domain.Question `yaml:"questions"`
}

// FileQuestionLoader reads the question bank from a YAML file on every load.
type FileQuestionLoader struct {
	path string
}

func NewFileQuestionLoader(path string) *FileQuestionLoader {
	return &FileQuestionLoader{path: path}
}

func (l *FileQuestionLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	return ReadQuestionFile(l.path)
}

// ReadQuestionFile parses a YAML question bank. Every question needs an ID.
func ReadQuestionFile(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}
	var file QuestionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse question file: %w", err)
	}
	seen := make(map[string]struct{}, len(file.Questions))
	for i, q := range file.Questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question %d: missing id", i)
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("question %q: duplicate id", q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return file.Questions, nil
}
