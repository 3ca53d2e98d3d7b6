package service

import (
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

type questLock struct {
	mu   sync.Mutex
	refs int
}

// QuestLocks serializes status-affecting operations per quest within this process.
// Storage row locks (LockQuest) extend the guarantee across processes. An entry lives
// only while someone holds or waits for it.
type QuestLocks struct {
	m *xsync.MapOf[uuid.UUID, *questLock]
}

func NewQuestLocks() *QuestLocks {
	return &QuestLocks{m: xsync.NewMapOf[uuid.UUID, *questLock]()}
}

// Lock acquires the quest's mutex and returns its unlock function.
func (l *QuestLocks) Lock(questID uuid.UUID) func() {
	ql, _ := l.m.Compute(questID, func(old *questLock, loaded bool) (*questLock, bool) {
		if !loaded {
			old = &questLock{}
		}
		old.refs++
		return old, false
	})
	ql.mu.Lock()

	return func() {
		ql.mu.Unlock()
		l.m.Compute(questID, func(old *questLock, loaded bool) (*questLock, bool) {
			old.refs--
			return old, old.refs == 0
		})
	}
}

// Len reports how many quests currently have a lock entry.
func (l *QuestLocks) Len() int {
	return l.m.Size()
}
