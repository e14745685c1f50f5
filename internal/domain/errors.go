package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for the given id.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrBattleNotFound is returned for an unknown battle id or code.
	ErrBattleNotFound = errors.New("battle not found")
	// ErrInvalidState signals a protocol violation, e.g. submitting an answer
	// when no candidate is pending.
	ErrInvalidState = errors.New("invalid session state")
	// ErrForbidden is returned when the actor is not a participant.
	ErrForbidden = errors.New("not a participant")
	// ErrAlreadyStarted is returned when joining a battle past the waiting state.
	ErrAlreadyStarted = errors.New("battle already started")
	// ErrBattleFull is returned when both seats are taken.
	ErrBattleFull = errors.New("battle is full")
	// ErrSelfJoin is returned when a player tries to join their own battle.
	ErrSelfJoin = errors.New("cannot join own battle")
	// ErrNoRevision is returned when a revision round is requested with
	// nothing to revise.
	ErrNoRevision = errors.New("no questions to review")
	// ErrNoQuestions indicates an empty question bank for the subject.
	ErrNoQuestions = errors.New("no questions for subject")
	// ErrNoSavedGame is returned when a restore finds nothing to restore.
	ErrNoSavedGame = errors.New("no saved game found")
	// ErrUnknownEmote is returned for an emote id outside the catalog.
	ErrUnknownEmote = errors.New("unknown emote")
)
