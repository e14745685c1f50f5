package app

import (
	"sync"
	"time"

	"quiz-battle-service/internal/domain"
)

// Battle is one two-player matched run. Every mutating operation holds the
// battle mutex for its full read-modify extent; event payloads are built
// under the lock and delivered after release.
type Battle struct {
	mu        sync.Mutex
	id        string
	code      string
	subject   string
	isPublic  bool
	player1ID string
	player2ID string

	player1Score int
	player2Score int
	player1Ready bool
	player2Ready bool

	status    domain.BattleStatus
	questions []domain.QuestionRecord
	startedAt time.Time
	endedAt   time.Time
	createdAt time.Time
}

// NewWaitingBattle constructs a battle shell in the waiting state with the
// creator seated as player 1.
func NewWaitingBattle(id, code, subject string, isPublic bool, player1ID string, createdAt time.Time) *Battle {
	return &Battle{
		id:        id,
		code:      code,
		subject:   subject,
		isPublic:  isPublic,
		player1ID: player1ID,
		status:    domain.BattleWaiting,
		createdAt: createdAt,
	}
}

// ID returns the battle id.
func (b *Battle) ID() string { return b.id }

// Code returns the 6-character join code.
func (b *Battle) Code() string { return b.code }

// Subject returns the battle's subject code.
func (b *Battle) Subject() string { return b.subject }

// MatchState reports the fields the matchmaking scan filters on.
func (b *Battle) MatchState() (subject, player1ID string, isPublic, waiting, hasPlayer2 bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subject, b.player1ID, b.isPublic, b.status == domain.BattleWaiting, b.player2ID != ""
}

// IsParticipant reports whether userID holds one of the two seats.
func (b *Battle) IsParticipant(userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.player1ID == userID || b.player2ID == userID
}

func (b *Battle) viewLocked() domain.BattleView {
	return domain.BattleView{
		ID:           b.id,
		Code:         b.code,
		Subject:      b.subject,
		IsPublic:     b.isPublic,
		Player1ID:    b.player1ID,
		Player2ID:    b.player2ID,
		Player1Score: b.player1Score,
		Player2Score: b.player2Score,
		Player1Ready: b.player1Ready,
		Player2Ready: b.player2Ready,
		Status:       b.status,
		TotalQs:      len(b.questions),
	}
}

// View copies out a snapshot safe to use past the lock boundary.
func (b *Battle) View() domain.BattleView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewLocked()
}
