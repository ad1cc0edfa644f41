package mediactl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// CheckState is the recorded outcome of one health check.
type CheckState struct {
	State  string    `json:"state"` // pass, warn or fail
	Since  time.Time `json:"since"`
	Detail string    `json:"detail,omitempty"`
}

// HealthState is the whole monitor state, kept as a single JSON document so
// a write is all-or-nothing.
type HealthState struct {
	RunID     string                `json:"run_id"`
	UpdatedAt time.Time             `json:"updated_at"`
	Checks    map[string]CheckState `json:"checks"`
}

// StateStore serializes concurrent monitor runs with an exclusive flock on a
// sidecar lock file and writes through a temp file + rename. Two overlapping
// cron invocations cannot interleave a read-modify-write or leave a torn
// file behind.
type StateStore struct {
	path string
}

func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

func (s *StateStore) Load() (HealthState, error) {
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return HealthState{Checks: map[string]CheckState{}}, nil
	}
	if err != nil {
		return HealthState{}, err
	}
	var st HealthState
	if err := json.Unmarshal(b, &st); err != nil {
		return HealthState{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if st.Checks == nil {
		st.Checks = map[string]CheckState{}
	}
	return st, nil
}

// Update runs fn over the current state under the lock and persists the
// result atomically. fn receives the loaded state and mutates it in place.
func (s *StateStore) Update(fn func(*HealthState) error) error {
	if err := ensureDir(filepath.Dir(s.path), 0o750); err != nil {
		return err
	}

	lock, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0o640)
	if err != nil {
		return err
	}
	defer lock.Close()
	if err := unix.Flock(int(lock.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("lock %s: %w", s.path, err)
	}
	defer unix.Flock(int(lock.Fd()), unix.LOCK_UN)

	st, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(&st); err != nil {
		return err
	}
	st.RunID = uuid.NewString()
	st.UpdatedAt = time.Now().UTC()

	return s.save(st)
}

func (s *StateStore) save(st HealthState) error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	f.Close()
	return os.Rename(tmp, s.path)
}
