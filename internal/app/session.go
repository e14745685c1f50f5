package app

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"quiz-battle-service/internal/domain"
)

const (
	pointsCorrect = 10
	pointsWrong   = -5
)

// Session is one player's in-progress solo run. All mutation happens under
// the session mutex; the store only guards the id -> session map, so
// operations on different sessions never block each other.
type Session struct {
	mu      sync.Mutex
	id      string
	ownerID string
	subject string

	questions []domain.QuestionRecord
	cursor    int
	score     int
	// pending holds the not-yet-rejected candidates for the current question,
	// strict FIFO. Empty means the next view must reshuffle a fresh pool.
	pending []string
	correct []int
	review  []int

	timerMinutes int
	startedAt    time.Time

	now func() time.Time
	rnd *rand.Rand
}

func newSession(id, ownerID, subject string, questions []domain.QuestionRecord, timerMinutes int) *Session {
	return newSessionWithClock(id, ownerID, subject, questions, timerMinutes, time.Now, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSessionWithClock is for tests needing deterministic time and shuffle order.
func NewSessionWithClock(id, ownerID, subject string, questions []domain.QuestionRecord, timerMinutes int, now func() time.Time, rnd *rand.Rand) *Session {
	return newSessionWithClock(id, ownerID, subject, questions, timerMinutes, now, rnd)
}

func newSessionWithClock(id, ownerID, subject string, questions []domain.QuestionRecord, timerMinutes int, now func() time.Time, rnd *rand.Rand) *Session {
	s := &Session{
		id:           id,
		ownerID:      ownerID,
		subject:      subject,
		questions:    questions,
		timerMinutes: timerMinutes,
		now:          now,
		rnd:          rnd,
	}
	if timerMinutes > 0 {
		s.startedAt = now()
	}
	return s
}

// ID returns the opaque session id handed to the client.
func (s *Session) ID() string { return s.id }

// OwnerID returns the player owning this session.
func (s *Session) OwnerID() string { return s.ownerID }

// Subject returns the session's subject code.
func (s *Session) Subject() string { return s.subject }

// currentView returns the current question with its proposed candidate, or
// the finished marker. In timed mode an exhausted list recycles (reshuffled,
// cursor back to zero) unless the timer has already expired; the practice
// loop never ends on its own while time remains.
func (s *Session) currentView() domain.QuestionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Advance at most once past a recycle; the loop bound guards against a
	// pathological empty question list.
	for hop := 0; hop <= len(s.questions); hop++ {
		if len(s.questions) == 0 {
			return domain.QuestionView{Finished: true, Score: s.score}
		}
		if s.cursor >= len(s.questions) {
			if s.timerMinutes > 0 {
				if s.timerLocked().Expired {
					return domain.QuestionView{Finished: true, Score: s.score}
				}
				s.rnd.Shuffle(len(s.questions), func(i, j int) {
					s.questions[i], s.questions[j] = s.questions[j], s.questions[i]
				})
				s.cursor = 0
				s.pending = nil
				continue
			}
			view := domain.QuestionView{Finished: true, Score: s.score}
			if len(s.review) > 0 {
				view.HasRevision = true
				view.RevisionCount = len(s.review)
			}
			return view
		}

		q := s.questions[s.cursor]
		if len(s.pending) == 0 {
			pool := append([]string{q.CorrectAnswer}, q.Distractors[0], q.Distractors[1], q.Distractors[2])
			s.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
			s.pending = pool
		}
		return domain.QuestionView{
			Prompt:              q.Prompt,
			ProposedCandidate:   s.pending[0],
			QuestionNumber:      s.cursor + 1,
			TotalQuestions:      len(s.questions),
			Score:               s.score,
			CandidatesRemaining: len(s.pending),
			Subject:             q.Subject,
		}
	}
	return domain.QuestionView{Finished: true, Score: s.score}
}

// progressNote is the deferred progress-tracker notification for a decided
// question, recorded outside the session lock.
type progressNote struct {
	subject  string
	question string
	status   domain.ProgressStatus
}

// submit evaluates the head candidate against the current question.
func (s *Session) submit(accepted bool) (domain.AnswerOutcome, *progressNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor >= len(s.questions) || len(s.pending) == 0 {
		return domain.AnswerOutcome{}, nil, domain.ErrInvalidState
	}

	q := s.questions[s.cursor]
	candidate := s.pending[0]
	isCorrect := candidate == q.CorrectAnswer

	outcome := domain.AnswerOutcome{CorrectAnswer: q.CorrectAnswer}

	switch {
	case accepted && isCorrect:
		s.score += pointsCorrect
		s.correct = append(s.correct, s.cursor)
		s.advanceLocked()
		outcome.Result = domain.AnswerCorrect
		outcome.Points = pointsCorrect
		outcome.NextQuestion = true
		outcome.Score = s.score
		return outcome, &progressNote{subject: q.Subject, question: q.Prompt, status: domain.StatusSuccess}, nil

	case accepted && !isCorrect:
		s.score += pointsWrong
		s.markReviewLocked(s.cursor)
		s.advanceLocked()
		outcome.Result = domain.AnswerWrong
		outcome.Points = pointsWrong
		outcome.NextQuestion = true
		outcome.Score = s.score
		return outcome, &progressNote{subject: q.Subject, question: q.Prompt, status: domain.StatusFailed}, nil

	default:
		s.pending = s.pending[1:]
		if len(s.pending) == 0 {
			s.markReviewLocked(s.cursor)
			s.advanceLocked()
			outcome.Result = domain.AnswerExhausted
			outcome.NextQuestion = true
		} else {
			outcome.Result = domain.AnswerContinue
		}
		outcome.Score = s.score
		return outcome, nil, nil
	}
}

func (s *Session) advanceLocked() {
	s.cursor++
	s.pending = nil
}

func (s *Session) markReviewLocked(index int) {
	for _, i := range s.review {
		if i == index {
			return
		}
	}
	s.review = append(s.review, index)
}

// startRevision swaps the question list for the shuffled subset answered
// incorrectly and resets the cursor. Returns the new question count.
func (s *Session) startRevision() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.review) == 0 {
		return 0, domain.ErrNoRevision
	}
	subset := make([]domain.QuestionRecord, 0, len(s.review))
	for _, i := range s.review {
		if i >= 0 && i < len(s.questions) {
			subset = append(subset, s.questions[i])
		}
	}
	s.rnd.Shuffle(len(subset), func(i, j int) { subset[i], subset[j] = subset[j], subset[i] })

	s.questions = subset
	s.cursor = 0
	s.pending = nil
	s.review = nil
	return len(subset), nil
}

// timeRemaining never mutates the session.
func (s *Session) timeRemaining() domain.TimerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timerLocked()
}

func (s *Session) timerLocked() domain.TimerStatus {
	if s.timerMinutes == 0 || s.startedAt.IsZero() {
		return domain.TimerStatus{}
	}
	total := s.timerMinutes * 60
	elapsed := int(s.now().Sub(s.startedAt).Seconds())
	remaining := total - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return domain.TimerStatus{Enabled: true, RemainingSeconds: remaining, Expired: remaining <= 0}
}

// sessionState is the opaque save blob.
type sessionState struct {
	Subject        string                  `json:"subject"`
	Questions      []domain.QuestionRecord `json:"questions"`
	Cursor         int                     `json:"cursor"`
	Score          int                     `json:"score"`
	Pending        []string                `json:"pendingCandidates"`
	Correct        []int                   `json:"correctIndices"`
	Review         []int                   `json:"reviewIndices"`
	TimerMinutes   int                     `json:"timerMinutes"`
	ElapsedSeconds int                     `json:"elapsedSeconds"`
}

// snapshot serializes the session for saving.
func (s *Session) snapshot() (domain.SavedGame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := 0
	if s.timerMinutes > 0 && !s.startedAt.IsZero() {
		elapsed = int(s.now().Sub(s.startedAt).Seconds())
	}
	blob, err := json.Marshal(sessionState{
		Subject:        s.subject,
		Questions:      s.questions,
		Cursor:         s.cursor,
		Score:          s.score,
		Pending:        s.pending,
		Correct:        s.correct,
		Review:         s.review,
		TimerMinutes:   s.timerMinutes,
		ElapsedSeconds: elapsed,
	})
	if err != nil {
		return domain.SavedGame{}, err
	}
	return domain.SavedGame{
		UserID:         s.ownerID,
		Subject:        s.subject,
		State:          blob,
		Score:          s.score,
		TotalQuestions: len(s.questions),
		CorrectCount:   len(s.correct),
	}, nil
}

// restoreSession rebuilds a session from a save blob under a fresh id.
// startedAt is shifted back by the recorded elapsed seconds so a restored
// timed run continues its original countdown.
func restoreSession(id, ownerID string, blob []byte, now func() time.Time, rnd *rand.Rand) (*Session, error) {
	var state sessionState
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, err
	}
	s := &Session{
		id:           id,
		ownerID:      ownerID,
		subject:      state.Subject,
		questions:    state.Questions,
		cursor:       state.Cursor,
		score:        state.Score,
		pending:      state.Pending,
		correct:      state.Correct,
		review:       state.Review,
		timerMinutes: state.TimerMinutes,
		now:          now,
		rnd:          rnd,
	}
	if state.TimerMinutes > 0 {
		s.startedAt = now().Add(-time.Duration(state.ElapsedSeconds) * time.Second)
	}
	return s, nil
}
