package mediactl

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestStateStoreLoadMissing(t *testing.T) {
	store := NewStateStore(filepath.Join(t.TempDir(), "state", "health.json"))

	st, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, st.RunID)
	assert.NotNil(t, st.Checks)
}

func TestStateStoreUpdate(t *testing.T) {
	store := NewStateStore(filepath.Join(t.TempDir(), "state", "health.json"))

	err := store.Update(func(st *HealthState) error {
		st.Checks["container/jellyfin"] = CheckState{State: StatePass, Since: time.Now().UTC()}
		return nil
	})
	require.NoError(t, err)

	st, err := store.Load()
	require.NoError(t, err)
	assert.NotEmpty(t, st.RunID)
	assert.False(t, st.UpdatedAt.IsZero())
	assert.Equal(t, StatePass, st.Checks["container/jellyfin"].State)

	firstRun := st.RunID
	err = store.Update(func(st *HealthState) error {
		assert.Equal(t, StatePass, st.Checks["container/jellyfin"].State,
			"update sees the previously persisted state")
		return nil
	})
	require.NoError(t, err)

	st, err = store.Load()
	require.NoError(t, err)
	assert.NotEqual(t, firstRun, st.RunID, "every update gets a fresh run id")
}

func TestStateStoreConcurrentUpdates(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewStateStore(filepath.Join(t.TempDir(), "health.json"))

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := store.Update(func(st *HealthState) error {
				st.Checks[string(rune('a'+n))] = CheckState{State: StatePass, Since: time.Now().UTC()}
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	st, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, st.Checks, workers, "flock serializes writers, no update lost")
}

func TestStateStoreUpdateErrorDoesNotPersist(t *testing.T) {
	store := NewStateStore(filepath.Join(t.TempDir(), "health.json"))

	require.NoError(t, store.Update(func(st *HealthState) error {
		st.Checks["x"] = CheckState{State: StatePass}
		return nil
	}))

	err := store.Update(func(st *HealthState) error {
		st.Checks["x"] = CheckState{State: StateFail}
		return assert.AnError
	})
	require.Error(t, err)

	st, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, StatePass, st.Checks["x"].State, "failed update leaves the file untouched")
}
