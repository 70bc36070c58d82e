package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"narrated-quiz-service/internal/config"
	"narrated-quiz-service/internal/domain"
	"narrated-quiz-service/internal/infra/postgres"
	"narrated-quiz-service/internal/infra/sqlite"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewSeedCmd loads questions from a YAML file into the configured store.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load questions from a YAML file into Postgres or SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "question file (defaults to questions.seedFile)")
	return cmd
}

func runSeed(ctx context.Context, configPath, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if file == "" {
		file = cfg.Questions.SeedFile
	}
	if file == "" {
		return fmt.Errorf("no question file given")
	}
	questions, err := loadQuestionFile(file)
	if err != nil {
		return err
	}

	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		db := postgres.OpenDB(cfg.Postgres.URL)
		defer db.Close()
		n, err := postgres.SeedQuestions(ctx, db, questions)
		if err != nil {
			return err
		}
		log.Printf("seeded %d questions into postgres", n)
	case cfg.SQLite.Path != "":
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		n, err := store.Upsert(ctx, questions)
		if err != nil {
			return err
		}
		log.Printf("seeded %d questions into %s", n, cfg.SQLite.Path)
	default:
		return fmt.Errorf("neither postgres nor sqlite is configured")
	}
	return nil
}

type questionFile struct {
	Questions []domain.Question `yaml:"questions"`
}

// loadQuestionFile reads and validates a YAML question file.
func loadQuestionFile(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f questionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, q := range f.Questions {
		if err := q.Selection.Validate(); err != nil {
			return nil, fmt.Errorf("question %s: %w", q.ID, err)
		}
		if err := q.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Questions, nil
}
