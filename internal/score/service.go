// Package score is the append-only log of completed tests.
package score

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/victornm/bandscore/internal/band"
	"github.com/victornm/bandscore/internal/domain"
	"github.com/victornm/bandscore/internal/errors"
)

// RecentLimit is how many records ListRecentScores returns at most.
const RecentLimit = 10

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

// InsertScore appends a record. An empty ScoreID is filled with a new UUIDv7.
func (s *Service) InsertScore(ctx context.Context, rec *domain.ScoreRecord) error {
	if rec.ScoreID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return errors.Internal(err)
		}
		rec.ScoreID = id.String()
	}

	const stmt = `
INSERT INTO scores (score_id, user_id, test_id, module, band, raw_score, total_questions, topic, difficulty, accent, details, create_time)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`

	_, err := s.db.Exec(ctx, stmt,
		rec.ScoreID, rec.UserID, rec.TestID, rec.Module,
		decimal.NewFromFloat(float64(rec.Band)), rec.RawScore, rec.TotalQuestions,
		rec.Topic, rec.Difficulty, rec.Accent, rec.Details, rec.CreateTime,
	)

	var pgErr *pgconn.PgError
	const codeUniqueViolation = "23505"
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("score already recorded: score=%s", rec.ScoreID),
			errors.WithCause(err))
	}

	return err
}

const selectColumns = `score_id::text, user_id, test_id, module, band, raw_score, total_questions, topic, difficulty, accent, details, create_time`

// ListScores returns every record of a user, newest first.
func (s *Service) ListScores(ctx context.Context, userID string) ([]domain.ScoreRecord, error) {
	const stmt = `SELECT ` + selectColumns + ` FROM scores WHERE user_id = $1 ORDER BY create_time DESC;`

	rows, err := s.db.Query(ctx, stmt, userID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanRecord)
}

// ListRecentScores returns the RecentLimit newest records of a user in one module.
func (s *Service) ListRecentScores(ctx context.Context, userID string, m domain.Module) ([]domain.ScoreRecord, error) {
	const stmt = `SELECT ` + selectColumns + ` FROM scores WHERE user_id = $1 AND module = $2 ORDER BY create_time DESC LIMIT $3;`

	rows, err := s.db.Query(ctx, stmt, userID, m, RecentLimit)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanRecord)
}

// DeleteScore removes one record of a user.
func (s *Service) DeleteScore(ctx context.Context, userID, scoreID string) error {
	if _, err := uuid.Parse(scoreID); err != nil {
		return errors.InvalidArgument("invalid score id %q", scoreID)
	}

	const stmt = `DELETE FROM scores WHERE score_id = $1 AND user_id = $2;`

	tag, err := s.db.Exec(ctx, stmt, scoreID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("score not found: user=%s score=%s", userID, scoreID)
	}

	return nil
}

func scanRecord(r pgx.CollectableRow) (domain.ScoreRecord, error) {
	var (
		rec domain.ScoreRecord
		b   decimal.Decimal
	)
	if err := r.Scan(&rec.ScoreID, &rec.UserID, &rec.TestID, &rec.Module, &b, &rec.RawScore, &rec.TotalQuestions,
		&rec.Topic, &rec.Difficulty, &rec.Accent, &rec.Details, &rec.CreateTime); err != nil {
		return domain.ScoreRecord{}, err
	}

	rec.Band = band.Score(b.InexactFloat64())
	return rec, nil
}
