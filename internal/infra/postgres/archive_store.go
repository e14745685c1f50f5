package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"quiz-battle-service/internal/domain"
	"github.com/uptrace/bun"
)

type savedGameRow struct {
	bun.BaseModel `bun:"table:saved_games"`

	ID              int64     `bun:"id,pk,autoincrement"`
	UserID          string    `bun:"user_id"`
	Subject         string    `bun:"subject"`
	State           []byte    `bun:"state,type:jsonb"`
	Score           int       `bun:"score"`
	TotalQuestions  int       `bun:"total_questions"`
	CorrectCount    int       `bun:"correct_count"`
	Completed       bool      `bun:"completed"`
	DurationSeconds int       `bun:"duration_seconds"`
	UpdatedAt       time.Time `bun:"updated_at"`
}

type battleResultRow struct {
	bun.BaseModel `bun:"table:battle_results"`

	ID              int64     `bun:"id,pk,autoincrement"`
	BattleID        string    `bun:"battle_id"`
	UserID          string    `bun:"user_id"`
	Subject         string    `bun:"subject"`
	Score           int       `bun:"score"`
	DurationSeconds int       `bun:"duration_seconds"`
	FinishedAt      time.Time `bun:"finished_at"`
}

// GameArchiveStore persists saved games, battle history, and account score
// totals in Postgres.
type GameArchiveStore struct {
	db *bun.DB
}

func NewGameArchiveStore(db *bun.DB) *GameArchiveStore {
	return &GameArchiveStore{db: db}
}

// SaveUnfinished keeps at most one unfinished save per (user, subject).
func (s *GameArchiveStore) SaveUnfinished(ctx context.Context, game domain.SavedGame) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := deleteUnfinished(ctx, tx, game.UserID, game.Subject); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(rowFromGame(game)).Exec(ctx)
		return err
	})
}

func (s *GameArchiveStore) LatestUnfinished(ctx context.Context, userID, subject string) (domain.SavedGame, bool, error) {
	row := new(savedGameRow)
	err := s.db.NewSelect().
		Model(row).
		Where("user_id = ?", userID).
		Where("subject = ?", subject).
		Where("completed = FALSE").
		Order("updated_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SavedGame{}, false, nil
	}
	if err != nil {
		return domain.SavedGame{}, false, err
	}
	return domain.SavedGame{
		UserID:          row.UserID,
		Subject:         row.Subject,
		State:           row.State,
		Score:           row.Score,
		TotalQuestions:  row.TotalQuestions,
		CorrectCount:    row.CorrectCount,
		Completed:       row.Completed,
		DurationSeconds: row.DurationSeconds,
		UpdatedAt:       row.UpdatedAt,
	}, true, nil
}

func (s *GameArchiveStore) HasUnfinished(ctx context.Context, userID, subject string) (bool, error) {
	count, err := s.db.NewSelect().
		Model((*savedGameRow)(nil)).
		Where("user_id = ?", userID).
		Where("subject = ?", subject).
		Where("completed = FALSE").
		Count(ctx)
	return count > 0, err
}

// RecordCompleted drops any unfinished save and writes the completed row.
func (s *GameArchiveStore) RecordCompleted(ctx context.Context, game domain.SavedGame) error {
	game.Completed = true
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := deleteUnfinished(ctx, tx, game.UserID, game.Subject); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(rowFromGame(game)).Exec(ctx)
		return err
	})
}

func (s *GameArchiveStore) RecordBattle(ctx context.Context, result domain.BattleResult) error {
	_, err := s.db.NewInsert().Model(&battleResultRow{
		BattleID:        result.BattleID,
		UserID:          result.UserID,
		Subject:         result.Subject,
		Score:           result.Score,
		DurationSeconds: result.DurationSeconds,
		FinishedAt:      result.FinishedAt,
	}).Exec(ctx)
	return err
}

// AddTotalScore applies the delta to the account total, clamped at zero.
func (s *GameArchiveStore) AddTotalScore(ctx context.Context, userID string, delta int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_scores (user_id, total_score)
		VALUES (?, GREATEST(0, ?))
		ON CONFLICT (user_id)
		DO UPDATE SET total_score = GREATEST(0, account_scores.total_score + ?)`,
		userID, delta, delta)
	return err
}

func deleteUnfinished(ctx context.Context, tx bun.Tx, userID, subject string) error {
	_, err := tx.NewDelete().
		Model((*savedGameRow)(nil)).
		Where("user_id = ?", userID).
		Where("subject = ?", subject).
		Where("completed = FALSE").
		Exec(ctx)
	return err
}

func rowFromGame(game domain.SavedGame) *savedGameRow {
	return &savedGameRow{
		UserID:          game.UserID,
		Subject:         game.Subject,
		State:           game.State,
		Score:           game.Score,
		TotalQuestions:  game.TotalQuestions,
		CorrectCount:    game.CorrectCount,
		Completed:       game.Completed,
		DurationSeconds: game.DurationSeconds,
		UpdatedAt:       game.UpdatedAt,
	}
}
