package domain

import "time"

// ProgressStatus is the recorded outcome of a user's last attempt at a question.
type ProgressStatus string

const (
	StatusNeverSeen ProgressStatus = "never_seen"
	StatusFailed    ProgressStatus = "failed"
	StatusSuccess   ProgressStatus = "success"
)

// BattleStatus is the lifecycle state of a battle. Transitions are strictly
// waiting -> playing -> finished.
type BattleStatus string

const (
	BattleWaiting  BattleStatus = "waiting"
	BattlePlaying  BattleStatus = "playing"
	BattleFinished BattleStatus = "finished"
)

// QuestionRecord is one question from a subject's bank. Immutable once loaded.
type QuestionRecord struct {
	Prompt        string    `json:"prompt"`
	CorrectAnswer string    `json:"correctAnswer"`
	Distractors   [3]string `json:"distractors"`
	Subject       string    `json:"subject"`
}

// AnswerResult classifies what a submission did to the session.
type AnswerResult string

const (
	// AnswerCorrect: the player accepted the proposed candidate and it was right.
	AnswerCorrect AnswerResult = "correct"
	// AnswerWrong: the player accepted the proposed candidate and it was wrong.
	AnswerWrong AnswerResult = "wrong"
	// AnswerContinue: the player rejected the candidate; more remain for this question.
	AnswerContinue AnswerResult = "continue"
	// AnswerExhausted: the player rejected the last candidate; no points either way.
	AnswerExhausted AnswerResult = "exhausted"
)

// AnswerOutcome is returned for every submission against the current candidate.
type AnswerOutcome struct {
	Result        AnswerResult `json:"result"`
	Points        int          `json:"points"`
	Score         int          `json:"score"`
	CorrectAnswer string       `json:"correctAnswer"`
	NextQuestion  bool         `json:"nextQuestion"`
}

// QuestionView is what the client sees for the current question, or the
// end-of-run marker when the untimed pass is over.
type QuestionView struct {
	Finished            bool   `json:"finished"`
	HasRevision         bool   `json:"hasRevision,omitempty"`
	RevisionCount       int    `json:"revisionCount,omitempty"`
	Prompt              string `json:"prompt,omitempty"`
	ProposedCandidate   string `json:"proposedCandidate,omitempty"`
	QuestionNumber      int    `json:"questionNumber,omitempty"`
	TotalQuestions      int    `json:"totalQuestions,omitempty"`
	Score               int    `json:"score"`
	CandidatesRemaining int    `json:"candidatesRemaining,omitempty"`
	Subject             string `json:"subject,omitempty"`
}

// TimerStatus reports the countdown of a timed session. Untimed sessions
// report Enabled=false.
type TimerStatus struct {
	Enabled          bool `json:"timerEnabled"`
	RemainingSeconds int  `json:"remainingSeconds"`
	Expired          bool `json:"isExpired"`
}

// ProgressStats summarizes a user's standing against a subject's bank.
type ProgressStats struct {
	Subject           string  `json:"subject"`
	TotalQuestions    int     `json:"totalQuestions"`
	SuccessCount      int     `json:"successCount"`
	FailedCount       int     `json:"failedCount"`
	NeverSeenCount    int     `json:"neverSeenCount"`
	CompletionPercent float64 `json:"completionPercent"`
}

// SubjectInfo describes one available question bank.
type SubjectInfo struct {
	Code          string `json:"code"`
	QuestionCount int    `json:"questionCount"`
}

// BattleView is a copied-out snapshot of a battle, safe to hand across the
// lock boundary.
type BattleView struct {
	ID           string       `json:"id"`
	Code         string       `json:"code"`
	Subject      string       `json:"subject"`
	IsPublic     bool         `json:"isPublic"`
	Player1ID    string       `json:"player1Id"`
	Player2ID    string       `json:"player2Id,omitempty"`
	Player1Score int          `json:"player1Score"`
	Player2Score int          `json:"player2Score"`
	Player1Ready bool         `json:"player1Ready"`
	Player2Ready bool         `json:"player2Ready"`
	Status       BattleStatus `json:"status"`
	TotalQs      int          `json:"totalQuestions"`
}

// MatchResult is the outcome of a matchmaking request: either paired into an
// existing public battle or parked as the creator of a new waiting one.
type MatchResult struct {
	Matched  bool   `json:"matched"`
	Waiting  bool   `json:"waiting"`
	BattleID string `json:"battleId"`
	Code     string `json:"code"`
}

// SavedGame is the persisted form of a solo run: either an unfinished save
// that can be restored, or a completed history row.
type SavedGame struct {
	UserID          string    `json:"userId"`
	Subject         string    `json:"subject"`
	State           []byte    `json:"-"`
	Score           int       `json:"score"`
	TotalQuestions  int       `json:"totalQuestions"`
	CorrectCount    int       `json:"correctCount"`
	Completed       bool      `json:"completed"`
	DurationSeconds int       `json:"durationSeconds"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// BattleResult is one player's row in the battle history.
type BattleResult struct {
	BattleID        string    `json:"battleId"`
	UserID          string    `json:"userId"`
	Subject         string    `json:"subject"`
	Score           int       `json:"score"`
	DurationSeconds int       `json:"durationSeconds"`
	FinishedAt      time.Time `json:"finishedAt"`
}

// Emote is a cosmetic reaction a player can flash at their opponent.
// Ownership and purchase are handled upstream; the engine only validates ids.
type Emote struct {
	ID    string `json:"id"`
	Emoji string `json:"emoji"`
	Name  string `json:"name"`
}

// Emotes is the static emote catalog.
var Emotes = map[string]Emote{
	"fire":     {ID: "fire", Emoji: "🔥", Name: "On fire"},
	"trophy":   {ID: "trophy", Emoji: "🏆", Name: "Trophy"},
	"rocket":   {ID: "rocket", Emoji: "🚀", Name: "Rocket"},
	"brain":    {ID: "brain", Emoji: "🧠", Name: "Big brain"},
	"thinking": {ID: "thinking", Emoji: "🤔", Name: "Thinking"},
	"laugh":    {ID: "laugh", Emoji: "😂", Name: "Laugh"},
	"skull":    {ID: "skull", Emoji: "💀", Name: "Wrecked"},
	"clap":     {ID: "clap", Emoji: "👏", Name: "Applause"},
	"crown":    {ID: "crown", Emoji: "👑", Name: "Crown"},
	"eyes":     {ID: "eyes", Emoji: "👀", Name: "Watching"},
}
