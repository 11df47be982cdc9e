package cli

import (
	"fmt"

	"live-quiz-service/internal/config"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/infra/postgres"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads a YAML question file into Postgres.
func NewSeedCmd(f *flags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert questions from a YAML file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			logger := cfg.NewLogger()
			if file == "" {
				file = cfg.Questions.File
			}
			if file == "" {
				return fmt.Errorf("no question file given")
			}

			questions, err := memory.ReadQuestionFile(file)
			if err != nil {
				return err
			}
			if err := runMigrations(cmd.Context(), cfg, logger); err != nil {
				return err
			}

			db := openBun(cfg.Postgres.URL)
			defer db.Close()
			if err := postgres.SeedQuestions(cmd.Context(), db, questions); err != nil {
				return err
			}
			logger.Info("questions seeded", "file", file, "count", len(questions))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "question file, defaults to questions.file")
	return cmd
}
