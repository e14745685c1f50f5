package memory

import (
	"context"
	"sync"

	"quiz-battle-service/internal/domain"
)

// ProgressTracker keeps per-question outcomes in memory. The Postgres
// implementation replaces it in production; this one backs tests and
// database-less runs.
type ProgressTracker struct {
	mu       sync.RWMutex
	statuses map[progressKey]domain.ProgressStatus
}

type progressKey struct {
	userID   string
	subject  string
	question string
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{statuses: make(map[progressKey]domain.ProgressStatus)}
}

func (t *ProgressTracker) RecordOutcome(_ context.Context, userID, subject, questionText string, status domain.ProgressStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses[progressKey{userID, subject, questionText}] = status
	return nil
}

func (t *ProgressTracker) GetOutcome(_ context.Context, userID, subject, questionText string) (domain.ProgressStatus, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if status, ok := t.statuses[progressKey{userID, subject, questionText}]; ok {
		return status, nil
	}
	return domain.StatusNeverSeen, nil
}

func (t *ProgressTracker) CountByStatus(_ context.Context, userID, subject string) (int, int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var success, failed int
	for key, status := range t.statuses {
		if key.userID != userID || key.subject != subject {
			continue
		}
		switch status {
		case domain.StatusSuccess:
			success++
		case domain.StatusFailed:
			failed++
		}
	}
	return success, failed, nil
}

// GameArchive is the in-memory saved-game / history / account-total store.
type GameArchive struct {
	mu         sync.Mutex
	unfinished map[archiveKey]domain.SavedGame
	completed  []domain.SavedGame
	battles    []domain.BattleResult
	totals     map[string]int
}

type archiveKey struct {
	userID  string
	subject string
}

func NewGameArchive() *GameArchive {
	return &GameArchive{
		unfinished: make(map[archiveKey]domain.SavedGame),
		totals:     make(map[string]int),
	}
}

func (a *GameArchive) SaveUnfinished(_ context.Context, game domain.SavedGame) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unfinished[archiveKey{game.UserID, game.Subject}] = game
	return nil
}

func (a *GameArchive) LatestUnfinished(_ context.Context, userID, subject string) (domain.SavedGame, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	game, ok := a.unfinished[archiveKey{userID, subject}]
	return game, ok, nil
}

func (a *GameArchive) HasUnfinished(_ context.Context, userID, subject string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.unfinished[archiveKey{userID, subject}]
	return ok, nil
}

func (a *GameArchive) RecordCompleted(_ context.Context, game domain.SavedGame) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.unfinished, archiveKey{game.UserID, game.Subject})
	a.completed = append(a.completed, game)
	return nil
}

func (a *GameArchive) RecordBattle(_ context.Context, result domain.BattleResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.battles = append(a.battles, result)
	return nil
}

// AddTotalScore applies the delta to the account total, clamped at zero.
func (a *GameArchive) AddTotalScore(_ context.Context, userID string, delta int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := a.totals[userID] + delta
	if total < 0 {
		total = 0
	}
	a.totals[userID] = total
	return nil
}

// TotalScore is a test helper.
func (a *GameArchive) TotalScore(userID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totals[userID]
}

// BattleResults is a test helper.
func (a *GameArchive) BattleResults() []domain.BattleResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.BattleResult, len(a.battles))
	copy(out, a.battles)
	return out
}
