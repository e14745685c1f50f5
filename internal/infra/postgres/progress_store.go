package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"quiz-battle-service/internal/domain"
	"github.com/uptrace/bun"
)

type progressRow struct {
	bun.BaseModel `bun:"table:question_progress"`

	ID           int64     `bun:"id,pk,autoincrement"`
	UserID       string    `bun:"user_id"`
	Subject      string    `bun:"subject"`
	QuestionText string    `bun:"question_text"`
	Status       string    `bun:"status"`
	Attempts     int       `bun:"attempts"`
	LastAttempt  time.Time `bun:"last_attempt"`
}

// ProgressStore persists per-question outcomes in Postgres.
type ProgressStore struct {
	db *bun.DB
}

func NewProgressStore(db *bun.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

func (s *ProgressStore) RecordOutcome(ctx context.Context, userID, subject, questionText string, status domain.ProgressStatus) error {
	row := &progressRow{
		UserID:       userID,
		Subject:      subject,
		QuestionText: questionText,
		Status:       string(status),
		Attempts:     1,
		LastAttempt:  time.Now(),
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id, subject, question_text) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("attempts = question_progress.attempts + 1").
		Set("last_attempt = EXCLUDED.last_attempt").
		Exec(ctx)
	return err
}

func (s *ProgressStore) GetOutcome(ctx context.Context, userID, subject, questionText string) (domain.ProgressStatus, error) {
	var status string
	err := s.db.NewSelect().
		Model((*progressRow)(nil)).
		Column("status").
		Where("user_id = ?", userID).
		Where("subject = ?", subject).
		Where("question_text = ?", questionText).
		Scan(ctx, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StatusNeverSeen, nil
	}
	if err != nil {
		return "", err
	}
	return domain.ProgressStatus(status), nil
}

func (s *ProgressStore) CountByStatus(ctx context.Context, userID, subject string) (int, int, error) {
	var rows []struct {
		Status string `bun:"status"`
		Count  int    `bun:"count"`
	}
	err := s.db.NewSelect().
		Model((*progressRow)(nil)).
		ColumnExpr("status, count(*) AS count").
		Where("user_id = ?", userID).
		Where("subject = ?", subject).
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return 0, 0, err
	}
	var success, failed int
	for _, row := range rows {
		switch domain.ProgressStatus(row.Status) {
		case domain.StatusSuccess:
			success = row.Count
		case domain.StatusFailed:
			failed = row.Count
		}
	}
	return success, failed, nil
}
