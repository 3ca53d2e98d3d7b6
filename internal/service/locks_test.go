package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestQuestLocks_EvictsIdleEntries(t *testing.T) {
	locks := NewQuestLocks()

	for i := 0; i < 100; i++ {
		locks.Lock(uuid.New())()
	}
	assert.Equal(t, 0, locks.Len())

	id := uuid.New()
	unlock := locks.Lock(id)
	assert.Equal(t, 1, locks.Len())
	unlock()
	assert.Equal(t, 0, locks.Len())
}

func TestQuestLocks_MutualExclusion(t *testing.T) {
	locks := NewQuestLocks()
	id := uuid.New()

	var (
		g       errgroup.Group
		counter int
	)
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			defer locks.Lock(id)()
			v := counter
			counter = v + 1
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, locks.Len())
}
