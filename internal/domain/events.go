package domain

// Event is one room-scoped battle notification. Payloads are computed while
// the battle lock is held; delivery happens after release. ExcludeUserID, when
// set, tells the delivery layer to skip that subscriber (used for emotes,
// which only the opponent should see).
type Event struct {
	Name          string `json:"event"`
	Payload       any    `json:"data"`
	ExcludeUserID string `json:"-"`
}

// Outbound battle event names.
const (
	EventPlayerJoined   = "player_joined"
	EventPlayerReady    = "player_ready"
	EventBattleStart    = "battle_start"
	EventScoresUpdate   = "scores_update"
	EventBattleFinished = "battle_finished"
	EventEmoteReceived  = "emote_received"
)

// PlayerJoinedPayload announces the second player.
type PlayerJoinedPayload struct {
	Player2ID string `json:"player2Id"`
}

// PlayerReadyPayload announces one ready flag flip.
type PlayerReadyPayload struct {
	PlayerID  string `json:"playerId"`
	BothReady bool   `json:"bothReady"`
}

// BattleStartPayload announces the waiting -> playing transition.
type BattleStartPayload struct {
	QuestionCount int    `json:"questionCount"`
	StartedAt     string `json:"startedAt"`
}

// ScoresUpdatePayload carries both scores after an answer.
type ScoresUpdatePayload struct {
	Player1Score int `json:"player1Score"`
	Player2Score int `json:"player2Score"`
}

// BattleFinishedPayload announces the terminal state. WinnerID is empty on a
// draw.
type BattleFinishedPayload struct {
	Player1ID    string `json:"player1Id"`
	Player2ID    string `json:"player2Id"`
	Player1Score int    `json:"player1Score"`
	Player2Score int    `json:"player2Score"`
	WinnerID     string `json:"winnerId,omitempty"`
	Draw         bool   `json:"draw"`
}

// EmoteReceivedPayload relays an emote to the opponent.
type EmoteReceivedPayload struct {
	Sender  string `json:"sender"`
	EmoteID string `json:"emoteId"`
	Emoji   string `json:"emoji"`
}
