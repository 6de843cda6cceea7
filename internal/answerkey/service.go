// Package answerkey stores the answer keys of tests in Postgres.
package answerkey

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/bandscore/internal/domain"
	"github.com/victornm/bandscore/internal/errors"
	"github.com/victornm/bandscore/internal/grading"
)

type Config struct {
	DB *pgxpool.Pool
}

type Service struct {
	db *pgxpool.Pool
}

func NewService(c Config) *Service {
	return &Service{
		db: c.DB,
	}
}

// PutTestRequest creates or replaces the answer key of a test.
type PutTestRequest struct {
	TestID     string
	Module     domain.Module
	Topic      string
	Difficulty string
	Questions  []grading.Question
}

// PutTest stores the answer key of a test, replacing any previous version.
// Questions are stored as given; malformed ones are flagged at grading time.
func (s *Service) PutTest(ctx context.Context, req PutTestRequest) (*domain.Test, error) {
	if req.TestID == "" {
		return nil, errors.InvalidArgument("test id is required")
	}
	if !req.Module.Valid() {
		return nil, errors.InvalidArgument("unknown module %q", req.Module)
	}
	if len(req.Questions) == 0 {
		return nil, errors.InvalidArgument("test %s has no questions", req.TestID)
	}

	t := &domain.Test{
		TestID:     req.TestID,
		Module:     req.Module,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Questions:  req.Questions,
		CreateTime: time.Now().UTC(),
	}

	if err := s.upsertTest(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) upsertTest(ctx context.Context, t *domain.Test) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		upsTestStmt = `
INSERT INTO tests (test_id, module, topic, difficulty, create_time) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (test_id) DO UPDATE SET module = $2, topic = $3, difficulty = $4, create_time = $5;`
		delQuestionsStmt = `DELETE FROM tests_questions WHERE test_id = $1;`
		insQuestionStmt  = `INSERT INTO tests_questions (test_id, position, question) VALUES ($1, $2, $3);`
	)

	if _, err = tx.Exec(ctx, upsTestStmt, t.TestID, t.Module, t.Topic, t.Difficulty, t.CreateTime); err != nil {
		return fmt.Errorf("upsert test: %w", err)
	}

	if _, err = tx.Exec(ctx, delQuestionsStmt, t.TestID); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}

	batch := new(pgx.Batch)
	for i, q := range t.Questions {
		b, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("marshal question %s: %w", q.ID, err)
		}
		batch.Queue(insQuestionStmt, t.TestID, i, b)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}

	return tx.Commit(ctx)
}

// GetTest returns the answer key of a test.
func (s *Service) GetTest(ctx context.Context, testID string) (*domain.Test, error) {
	const (
		selTestStmt      = `SELECT module, topic, difficulty, create_time FROM tests WHERE test_id = $1;`
		selQuestionsStmt = `SELECT question FROM tests_questions WHERE test_id = $1 ORDER BY position;`
	)

	t := &domain.Test{TestID: testID}
	err := s.db.QueryRow(ctx, selTestStmt, testID).Scan(&t.Module, &t.Topic, &t.Difficulty, &t.CreateTime)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("test not found: test=%s", testID)
	}
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}

	rows, err := s.db.Query(ctx, selQuestionsStmt, testID)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}

	t.Questions, err = pgx.CollectRows(rows, func(r pgx.CollectableRow) (grading.Question, error) {
		var (
			raw []byte
			q   grading.Question
		)
		if err := r.Scan(&raw); err != nil {
			return grading.Question{}, err
		}
		if err := json.Unmarshal(raw, &q); err != nil {
			return grading.Question{}, fmt.Errorf("decode question: %w", err)
		}
		return q, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}

	return t, nil
}
