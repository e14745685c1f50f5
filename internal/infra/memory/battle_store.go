package memory

import (
	"errors"
	"sync"

	"quiz-battle-service/internal/app"
)

// ErrCodeTaken signals a join-code collision on insert; the caller retries
// with a fresh code.
var ErrCodeTaken = errors.New("battle code already in use")

// BattleStore is the in-memory battle table. Like SessionStore, the store
// mutex guards only the maps; battle state is serialized by each battle's
// own lock.
type BattleStore struct {
	mu     sync.RWMutex
	byID   map[string]*app.Battle
	byCode map[string]*app.Battle
}

func NewBattleStore() *BattleStore {
	return &BattleStore{
		byID:   make(map[string]*app.Battle),
		byCode: make(map[string]*app.Battle),
	}
}

func (s *BattleStore) Insert(battle *app.Battle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byCode[battle.Code()]; exists {
		return ErrCodeTaken
	}
	s.byID[battle.ID()] = battle
	s.byCode[battle.Code()] = battle
	return nil
}

func (s *BattleStore) Get(id string) (*app.Battle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	battle, ok := s.byID[id]
	return battle, ok
}

func (s *BattleStore) GetByCode(code string) (*app.Battle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	battle, ok := s.byCode[code]
	return battle, ok
}

// FindWaitingPublic returns some public waiting battle for the subject not
// owned by excludeUserID. Map iteration order makes the pick
// non-deterministic among equivalent candidates, which is acceptable.
func (s *BattleStore) FindWaitingPublic(subject, excludeUserID string) (*app.Battle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, battle := range s.byID {
		bSubject, player1, isPublic, waiting, hasPlayer2 := battle.MatchState()
		if isPublic && waiting && !hasPlayer2 && bSubject == subject && player1 != excludeUserID {
			return battle, true
		}
	}
	return nil, false
}

func (s *BattleStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if battle, ok := s.byID[id]; ok {
		delete(s.byCode, battle.Code())
		delete(s.byID, id)
	}
}
