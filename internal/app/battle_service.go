package app

import (
	"context"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"quiz-battle-service/internal/domain"

	"github.com/google/uuid"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6

	// DefaultBattleDuration is the fixed match length.
	DefaultBattleDuration = 300 * time.Second

	winnerBonus = 50
)

// BattleService owns matchmaking and the two-player battle state machine.
// Score updates trust the caller-reported correctness and points; the client
// computes against its own question snapshot. Known integrity gap, kept as
// the documented trust boundary.
type BattleService struct {
	battles   BattleRepository
	questions QuestionSource
	archive   GameArchive
	bus       EventBus

	duration time.Duration
	now      func() time.Time
	newID    func() string

	// matchMu serializes matchmaking scans so two simultaneous requesters
	// for the same subject cannot both park as waiting creators.
	matchMu sync.Mutex

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewBattleService(battles BattleRepository, questions QuestionSource, archive GameArchive, bus EventBus) *BattleService {
	return &BattleService{
		battles:   battles,
		questions: questions,
		archive:   archive,
		bus:       bus,
		duration:  DefaultBattleDuration,
		now:       time.Now,
		newID:     uuid.NewString,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithClock is test-only for deterministic time and ids.
func (s *BattleService) WithClock(now func() time.Time, newID func() string) *BattleService {
	s.now = now
	s.newID = newID
	return s
}

// WithDuration overrides the match length, for deployments that tune it.
func (s *BattleService) WithDuration(duration time.Duration) *BattleService {
	s.duration = duration
	return s
}

// Room names the pub/sub room for a battle id.
func Room(battleID string) string {
	return "battle:" + battleID
}

// Create opens a private (or public) battle and snapshots its question pool
// immediately. The join code is unique among live battles; generation retries
// on collision.
func (s *BattleService) Create(ctx context.Context, userID, subject string, isPublic bool) (domain.BattleView, error) {
	loaded, err := s.questions.LoadQuestions(ctx, subject)
	if err != nil {
		return domain.BattleView{}, err
	}
	if len(loaded) == 0 {
		return domain.BattleView{}, domain.ErrNoQuestions
	}

	// Snapshot rather than alias the source's slice.
	questions := make([]domain.QuestionRecord, len(loaded))
	copy(questions, loaded)
	battle := s.insertNewBattle(userID, subject, isPublic, questions)
	return battle.View(), nil
}

// Join seats the second player by code and announces them to the room.
func (s *BattleService) Join(ctx context.Context, code, userID string) (domain.BattleView, error) {
	battle, ok := s.battles.GetByCode(strings.ToUpper(code))
	if !ok {
		return domain.BattleView{}, domain.ErrBattleNotFound
	}

	battle.mu.Lock()
	if battle.status != domain.BattleWaiting {
		battle.mu.Unlock()
		return domain.BattleView{}, domain.ErrAlreadyStarted
	}
	if battle.player1ID == userID {
		battle.mu.Unlock()
		return domain.BattleView{}, domain.ErrSelfJoin
	}
	if battle.player2ID != "" {
		battle.mu.Unlock()
		return domain.BattleView{}, domain.ErrBattleFull
	}
	battle.player2ID = userID
	view := battle.viewLocked()
	battle.mu.Unlock()

	s.publish(ctx, battle.id, domain.Event{
		Name:    domain.EventPlayerJoined,
		Payload: domain.PlayerJoinedPayload{Player2ID: userID},
	})
	return view, nil
}

// Matchmake pairs the requester with any public waiting battle for the
// subject, or parks them as the creator of a new one. Which waiting battle
// wins, among several, is non-deterministic; they are all equivalent. On a
// match both ready flags are force-set, since requesting matchmaking is
// itself the declaration of intent.
func (s *BattleService) Matchmake(ctx context.Context, userID, subject string) (domain.MatchResult, error) {
	s.matchMu.Lock()
	for {
		battle, ok := s.battles.FindWaitingPublic(subject, userID)
		if !ok {
			break
		}
		battle.mu.Lock()
		// Re-check under the lock: a code join may have claimed it between
		// the scan and here.
		if battle.status != domain.BattleWaiting || battle.player2ID != "" || battle.player1ID == userID {
			battle.mu.Unlock()
			continue
		}
		battle.player2ID = userID
		battle.player1Ready = true
		battle.player2Ready = true
		battle.mu.Unlock()
		s.matchMu.Unlock()

		s.publish(ctx, battle.id, domain.Event{
			Name:    domain.EventPlayerJoined,
			Payload: domain.PlayerJoinedPayload{Player2ID: userID},
		})
		return domain.MatchResult{Matched: true, BattleID: battle.id, Code: battle.code}, nil
	}

	// Question pool is deferred until both players are ready.
	battle := s.insertNewBattle(userID, subject, true, nil)
	s.matchMu.Unlock()
	return domain.MatchResult{Waiting: true, BattleID: battle.id, Code: battle.code}, nil
}

// SetReady idempotently marks the caller ready. When both flags are true and
// the battle is still waiting, it transitions to playing exactly once:
// questions are snapshotted and shuffled, startedAt is stamped, and
// battle_start is broadcast.
func (s *BattleService) SetReady(ctx context.Context, battleID, userID string) error {
	battle, ok := s.battles.Get(battleID)
	if !ok {
		return domain.ErrBattleNotFound
	}

	battle.mu.Lock()
	switch userID {
	case battle.player1ID:
		battle.player1Ready = true
	case battle.player2ID:
		battle.player2Ready = true
	default:
		battle.mu.Unlock()
		return domain.ErrForbidden
	}
	bothReady := battle.player1Ready && battle.player2Ready
	shouldStart := bothReady && battle.status == domain.BattleWaiting
	subject := battle.subject
	battle.mu.Unlock()

	s.publish(ctx, battleID, domain.Event{
		Name:    domain.EventPlayerReady,
		Payload: domain.PlayerReadyPayload{PlayerID: userID, BothReady: bothReady},
	})

	if !shouldStart {
		return nil
	}

	// Load outside the lock; the source may hit disk or the database.
	loaded, err := s.questions.LoadQuestions(ctx, subject)
	if err != nil {
		return err
	}
	// Shuffle a copy; the source may hand the same backing slice to every
	// caller.
	questions := make([]domain.QuestionRecord, len(loaded))
	copy(questions, loaded)
	s.rndMu.Lock()
	s.rnd.Shuffle(len(questions), func(i, j int) { questions[i], questions[j] = questions[j], questions[i] })
	s.rndMu.Unlock()

	battle.mu.Lock()
	// Both ready events race here; only the first sees waiting.
	if battle.status != domain.BattleWaiting || !(battle.player1Ready && battle.player2Ready) {
		battle.mu.Unlock()
		return nil
	}
	battle.status = domain.BattlePlaying
	battle.questions = questions
	battle.startedAt = s.now()
	startPayload := domain.BattleStartPayload{
		QuestionCount: len(questions),
		StartedAt:     battle.startedAt.UTC().Format(time.RFC3339),
	}
	battle.mu.Unlock()

	log.Printf("battle started: id=%s subject=%s questions=%d", battleID, subject, len(questions))
	s.publish(ctx, battleID, domain.Event{Name: domain.EventBattleStart, Payload: startPayload})
	return nil
}

// RecordAnswer adds the caller-reported points to the caller's score and
// broadcasts both scores.
func (s *BattleService) RecordAnswer(ctx context.Context, battleID, userID string, isCorrect bool, points int) error {
	battle, ok := s.battles.Get(battleID)
	if !ok {
		return domain.ErrBattleNotFound
	}

	battle.mu.Lock()
	if battle.status != domain.BattlePlaying {
		battle.mu.Unlock()
		return domain.ErrInvalidState
	}
	switch userID {
	case battle.player1ID:
		battle.player1Score += points
	case battle.player2ID:
		battle.player2Score += points
	default:
		battle.mu.Unlock()
		return domain.ErrForbidden
	}
	payload := domain.ScoresUpdatePayload{
		Player1Score: battle.player1Score,
		Player2Score: battle.player2Score,
	}
	battle.mu.Unlock()

	s.publish(ctx, battleID, domain.Event{Name: domain.EventScoresUpdate, Payload: payload})
	return nil
}

// CheckAndFinish transitions a playing battle to finished once the match
// duration has elapsed: winner computed (draw on equal scores), the fixed
// bonus/penalty applied to account totals, history rows written, and
// battle_finished broadcast. Idempotent: a second call is a no-op.
func (s *BattleService) CheckAndFinish(ctx context.Context, battleID string) (bool, error) {
	battle, ok := s.battles.Get(battleID)
	if !ok {
		return false, domain.ErrBattleNotFound
	}

	battle.mu.Lock()
	if battle.status != domain.BattlePlaying {
		battle.mu.Unlock()
		return false, nil
	}
	now := s.now()
	if battle.startedAt.IsZero() || now.Sub(battle.startedAt) < s.duration {
		battle.mu.Unlock()
		return false, nil
	}
	battle.status = domain.BattleFinished
	battle.endedAt = now

	payload := domain.BattleFinishedPayload{
		Player1ID:    battle.player1ID,
		Player2ID:    battle.player2ID,
		Player1Score: battle.player1Score,
		Player2Score: battle.player2Score,
	}
	switch {
	case battle.player1Score > battle.player2Score:
		payload.WinnerID = battle.player1ID
	case battle.player2Score > battle.player1Score:
		payload.WinnerID = battle.player2ID
	default:
		payload.Draw = true
	}
	subject := battle.subject
	durationSeconds := int(s.duration.Seconds())
	battle.mu.Unlock()

	// External writes happen after the lock is released; the finished
	// transition above already guarantees they run at most once.
	if !payload.Draw {
		loserID := payload.Player1ID
		if payload.WinnerID == payload.Player1ID {
			loserID = payload.Player2ID
		}
		s.addTotal(ctx, payload.WinnerID, winnerBonus)
		s.addTotal(ctx, loserID, -winnerBonus)
	}
	s.addTotal(ctx, payload.Player1ID, payload.Player1Score)
	if payload.Player2ID != "" {
		s.addTotal(ctx, payload.Player2ID, payload.Player2Score)
	}

	s.recordBattleResult(ctx, battleID, subject, payload.Player1ID, payload.Player1Score, durationSeconds, now)
	if payload.Player2ID != "" {
		s.recordBattleResult(ctx, battleID, subject, payload.Player2ID, payload.Player2Score, durationSeconds, now)
	}

	s.publish(ctx, battleID, domain.Event{Name: domain.EventBattleFinished, Payload: payload})
	return true, nil
}

// CancelWaiting removes a still-empty waiting battle. Only the creator may
// cancel, and only before anyone joins.
func (s *BattleService) CancelWaiting(ctx context.Context, battleID, userID string) error {
	battle, ok := s.battles.Get(battleID)
	if !ok {
		return domain.ErrBattleNotFound
	}

	battle.mu.Lock()
	if battle.player1ID != userID || battle.player2ID != "" || battle.status != domain.BattleWaiting {
		battle.mu.Unlock()
		return domain.ErrForbidden
	}
	battle.mu.Unlock()

	s.battles.Remove(battleID)
	return nil
}

// Info returns a battle snapshot to one of its participants.
func (s *BattleService) Info(ctx context.Context, battleID, userID string) (domain.BattleView, error) {
	battle, ok := s.battles.Get(battleID)
	if !ok {
		return domain.BattleView{}, domain.ErrBattleNotFound
	}
	if !battle.IsParticipant(userID) {
		return domain.BattleView{}, domain.ErrForbidden
	}
	return battle.View(), nil
}

// SendEmote relays a catalog emote to the opponent only.
func (s *BattleService) SendEmote(ctx context.Context, battleID, userID, emoteID string) error {
	emote, ok := domain.Emotes[emoteID]
	if !ok {
		return domain.ErrUnknownEmote
	}
	battle, found := s.battles.Get(battleID)
	if !found {
		return domain.ErrBattleNotFound
	}
	if !battle.IsParticipant(userID) {
		return domain.ErrForbidden
	}
	s.publish(ctx, battleID, domain.Event{
		Name:          domain.EventEmoteReceived,
		Payload:       domain.EmoteReceivedPayload{Sender: userID, EmoteID: emote.ID, Emoji: emote.Emoji},
		ExcludeUserID: userID,
	})
	return nil
}

func (s *BattleService) insertNewBattle(userID, subject string, isPublic bool, questions []domain.QuestionRecord) *Battle {
	for {
		battle := NewWaitingBattle(s.newID(), s.generateCode(), subject, isPublic, userID, s.now())
		battle.questions = questions
		if err := s.battles.Insert(battle); err == nil {
			return battle
		}
		// Code collision (~1/36^6); regenerate and retry.
	}
}

func (s *BattleService) generateCode() string {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	var sb strings.Builder
	for i := 0; i < codeLength; i++ {
		sb.WriteByte(codeAlphabet[s.rnd.Intn(len(codeAlphabet))])
	}
	return sb.String()
}

func (s *BattleService) addTotal(ctx context.Context, userID string, delta int) {
	if err := s.archive.AddTotalScore(ctx, userID, delta); err != nil {
		log.Printf("add total score failed: user=%s delta=%d: %v", userID, delta, err)
	}
}

func (s *BattleService) recordBattleResult(ctx context.Context, battleID, subject, userID string, score, durationSeconds int, finishedAt time.Time) {
	err := s.archive.RecordBattle(ctx, domain.BattleResult{
		BattleID:        battleID,
		UserID:          userID,
		Subject:         subject,
		Score:           score,
		DurationSeconds: durationSeconds,
		FinishedAt:      finishedAt,
	})
	if err != nil {
		log.Printf("record battle result failed: battle=%s user=%s: %v", battleID, userID, err)
	}
}

func (s *BattleService) publish(ctx context.Context, battleID string, event domain.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, Room(battleID), event); err != nil {
		log.Printf("publish %s failed: battle=%s: %v", event.Name, battleID, err)
	}
}
