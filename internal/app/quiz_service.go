package app

import (
	"context"
	"log"
	"math/rand"
	"time"

	"quiz-battle-service/internal/domain"

	"github.com/google/uuid"
)

// SubjectCatalog lists the available question banks. Optional: sources that
// cannot enumerate subjects (pure lookups) simply don't implement it.
type SubjectCatalog interface {
	Subjects(ctx context.Context) ([]string, error)
}

// StartResult is returned when a session starts.
type StartResult struct {
	SessionID      string `json:"sessionId"`
	Subject        string `json:"subject"`
	TotalQuestions int    `json:"totalQuestions"`
	TimerMinutes   int    `json:"timerMinutes"`
}

// RestoreResult describes a session rebuilt from a save.
type RestoreResult struct {
	SessionID      string `json:"sessionId"`
	Subject        string `json:"subject"`
	TotalQuestions int    `json:"totalQuestions"`
	CurrentIndex   int    `json:"currentIndex"`
	Score          int    `json:"score"`
	TimerMinutes   int    `json:"timerMinutes"`
}

// QuizService drives solo sessions: start, question/answer loop, revision,
// timer, save/restore/complete.
type QuizService struct {
	sessions  SessionRepository
	questions QuestionSource
	progress  ProgressTracker
	archive   GameArchive
	catalog   SubjectCatalog

	now     func() time.Time
	newID   func() string
	newRand func() *rand.Rand
}

func NewQuizService(sessions SessionRepository, questions QuestionSource, progress ProgressTracker, archive GameArchive, catalog SubjectCatalog) *QuizService {
	return &QuizService{
		sessions:  sessions,
		questions: questions,
		progress:  progress,
		archive:   archive,
		catalog:   catalog,
		now:       time.Now,
		newID:     uuid.NewString,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// WithClock is test-only for deterministic ids, time, and shuffles.
func (s *QuizService) WithClock(now func() time.Time, newID func() string, newRand func() *rand.Rand) *QuizService {
	s.now = now
	s.newID = newID
	s.newRand = newRand
	return s
}

// Start builds a session for the subject. In timed mode the pool is
// pre-filtered to questions not yet mastered; if that empties the pool the
// full bank is used instead. The list is shuffled once at start.
func (s *QuizService) Start(ctx context.Context, userID, subject string, timerMinutes int) (StartResult, error) {
	all, err := s.questions.LoadQuestions(ctx, subject)
	if err != nil {
		return StartResult{}, err
	}
	if len(all) == 0 {
		return StartResult{}, domain.ErrNoQuestions
	}

	pool := all
	if timerMinutes > 0 {
		practice := make([]domain.QuestionRecord, 0, len(all))
		for _, q := range all {
			status, err := s.progress.GetOutcome(ctx, userID, q.Subject, q.Prompt)
			if err != nil {
				return StartResult{}, err
			}
			if status != domain.StatusSuccess {
				practice = append(practice, q)
			}
		}
		if len(practice) > 0 {
			pool = practice
		}
	}

	rnd := s.newRand()
	questions := make([]domain.QuestionRecord, len(pool))
	copy(questions, pool)
	rnd.Shuffle(len(questions), func(i, j int) { questions[i], questions[j] = questions[j], questions[i] })

	session := newSessionWithClock(s.newID(), userID, subject, questions, timerMinutes, s.now, rnd)
	s.sessions.Put(session)

	log.Printf("session started: id=%s user=%s subject=%s questions=%d timer=%dmin", session.id, userID, subject, len(questions), timerMinutes)
	return StartResult{
		SessionID:      session.id,
		Subject:        subject,
		TotalQuestions: len(questions),
		TimerMinutes:   timerMinutes,
	}, nil
}

// CurrentQuestion returns the question/candidate view or the finished marker.
func (s *QuizService) CurrentQuestion(ctx context.Context, sessionID, userID string) (domain.QuestionView, error) {
	session, err := s.ownedSession(sessionID, userID)
	if err != nil {
		return domain.QuestionView{}, err
	}
	return session.currentView(), nil
}

// SubmitAnswer applies an accept/reject decision to the proposed candidate.
// Decided questions are reported to the progress tracker before returning so
// the next timed Start sees up-to-date filtering.
func (s *QuizService) SubmitAnswer(ctx context.Context, sessionID, userID string, accepted bool) (domain.AnswerOutcome, error) {
	session, err := s.ownedSession(sessionID, userID)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	outcome, note, err := session.submit(accepted)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	if note != nil {
		if err := s.progress.RecordOutcome(ctx, userID, note.subject, note.question, note.status); err != nil {
			log.Printf("record outcome failed: user=%s subject=%s: %v", userID, note.subject, err)
		}
	}
	return outcome, nil
}

// StartRevision begins the sub-round over incorrectly answered questions.
func (s *QuizService) StartRevision(ctx context.Context, sessionID, userID string) (int, error) {
	session, err := s.ownedSession(sessionID, userID)
	if err != nil {
		return 0, err
	}
	return session.startRevision()
}

// TimeRemaining reports the countdown without mutating the session.
func (s *QuizService) TimeRemaining(ctx context.Context, sessionID, userID string) (domain.TimerStatus, error) {
	session, err := s.ownedSession(sessionID, userID)
	if err != nil {
		return domain.TimerStatus{}, err
	}
	return session.timeRemaining(), nil
}

// Save persists the session as the user's single unfinished save for the
// subject, replacing any previous one.
func (s *QuizService) Save(ctx context.Context, sessionID, userID string) error {
	session, err := s.ownedSession(sessionID, userID)
	if err != nil {
		return err
	}
	game, err := session.snapshot()
	if err != nil {
		return err
	}
	game.UpdatedAt = s.now()
	return s.archive.SaveUnfinished(ctx, game)
}

// HasSaved reports whether an unfinished save exists for the subject.
func (s *QuizService) HasSaved(ctx context.Context, userID, subject string) (bool, error) {
	return s.archive.HasUnfinished(ctx, userID, subject)
}

// Restore rebuilds the most recent unfinished save under a fresh session id.
func (s *QuizService) Restore(ctx context.Context, userID, subject string) (RestoreResult, error) {
	saved, ok, err := s.archive.LatestUnfinished(ctx, userID, subject)
	if err != nil {
		return RestoreResult{}, err
	}
	if !ok {
		return RestoreResult{}, domain.ErrNoSavedGame
	}
	session, err := restoreSession(s.newID(), userID, saved.State, s.now, s.newRand())
	if err != nil {
		return RestoreResult{}, err
	}
	s.sessions.Put(session)
	return RestoreResult{
		SessionID:      session.id,
		Subject:        session.subject,
		TotalQuestions: len(session.questions),
		CurrentIndex:   session.cursor,
		Score:          session.score,
		TimerMinutes:   session.timerMinutes,
	}, nil
}

// Complete closes the session: records a completed history row, credits the
// run score to the account total (clamped at zero by the archive), and drops
// the session from the store.
func (s *QuizService) Complete(ctx context.Context, sessionID, userID string) error {
	session, err := s.ownedSession(sessionID, userID)
	if err != nil {
		return err
	}
	game, err := session.snapshot()
	if err != nil {
		return err
	}
	game.Completed = true
	game.UpdatedAt = s.now()
	if session.timerMinutes > 0 {
		game.DurationSeconds = session.timerMinutes * 60
	}
	if err := s.archive.RecordCompleted(ctx, game); err != nil {
		return err
	}
	if err := s.archive.AddTotalScore(ctx, userID, game.Score); err != nil {
		return err
	}
	s.sessions.Remove(sessionID)
	return nil
}

// Stats summarizes the user's progress against a subject's bank.
func (s *QuizService) Stats(ctx context.Context, userID, subject string) (domain.ProgressStats, error) {
	success, failed, err := s.progress.CountByStatus(ctx, userID, subject)
	if err != nil {
		return domain.ProgressStats{}, err
	}
	questions, err := s.questions.LoadQuestions(ctx, subject)
	if err != nil {
		return domain.ProgressStats{}, err
	}
	total := len(questions)
	neverSeen := total - success - failed
	if neverSeen < 0 {
		neverSeen = 0
	}
	stats := domain.ProgressStats{
		Subject:        subject,
		TotalQuestions: total,
		SuccessCount:   success,
		FailedCount:    failed,
		NeverSeenCount: neverSeen,
	}
	if total > 0 {
		stats.CompletionPercent = float64(success) / float64(total) * 100
	}
	return stats, nil
}

// ListSubjects returns the available banks with question counts.
func (s *QuizService) ListSubjects(ctx context.Context) ([]domain.SubjectInfo, error) {
	if s.catalog == nil {
		return nil, nil
	}
	codes, err := s.catalog.Subjects(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]domain.SubjectInfo, 0, len(codes))
	for _, code := range codes {
		questions, err := s.questions.LoadQuestions(ctx, code)
		if err != nil {
			return nil, err
		}
		infos = append(infos, domain.SubjectInfo{Code: code, QuestionCount: len(questions)})
	}
	return infos, nil
}

func (s *QuizService) ownedSession(sessionID, userID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if session.ownerID != userID {
		return nil, domain.ErrForbidden
	}
	return session, nil
}
