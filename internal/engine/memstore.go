package engine

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/celerix-dev/looply/pkg/habit"
	"github.com/celerix-dev/looply/pkg/sdk"
	"go.uber.org/zap"
)

// MemStore is the thread-safe embedded store.
type MemStore struct {
	mu sync.RWMutex
	// Structure: [profileID] -> snapshot
	data map[string]*habit.Snapshot
	// versions only grows, also across Reset, so stale background writes lose.
	versions  map[string]uint64
	persister *Persistence
	log       *zap.Logger
	now       func() time.Time
	wg        sync.WaitGroup
}

// NewMemStore initializes a store.
// It accepts existing data (from LoadAll) and an optional persister.
func NewMemStore(initial map[string]habit.Snapshot, p *Persistence, opts ...Option) *MemStore {
	m := &MemStore{
		data:      make(map[string]*habit.Snapshot, len(initial)),
		versions:  make(map[string]uint64),
		persister: p,
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for id, s := range initial {
		snap := s.Clone()
		snap.Normalize()
		m.data[id] = &snap
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wait waits for all background persistence tasks to complete.
func (m *MemStore) Wait() {
	m.wg.Wait()
}

// Close flushes pending writes.
func (m *MemStore) Close() error {
	m.Wait()
	return nil
}

// Profile returns a scope pinned to profileID.
func (m *MemStore) Profile(profileID string) sdk.ProfileScope {
	return sdk.Scope(m, profileID)
}

// --- Reads ---

func (m *MemStore) Profiles() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]string, 0, len(m.data))
	for id := range m.data {
		list = append(list, id)
	}
	slices.Sort(list)
	return list, nil
}

func (m *MemStore) User(profileID string) (habit.User, error) {
	if err := sdk.ValidateProfileID(profileID); err != nil {
		return habit.User{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.data[profileID]
	if !ok || s.User == nil {
		return habit.User{}, ErrUserNotFound
	}
	return *s.User, nil
}

func (m *MemStore) Settings(profileID string) (habit.Settings, error) {
	if err := sdk.ValidateProfileID(profileID); err != nil {
		return habit.Settings{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.data[profileID]; ok {
		return s.Settings, nil
	}
	return habit.DefaultSettings(), nil
}

func (m *MemStore) Habits(profileID string) ([]habit.Habit, error) {
	if err := sdk.ValidateProfileID(profileID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.data[profileID]
	if !ok {
		return []habit.Habit{}, nil
	}
	return s.Clone().Habits, nil
}

func (m *MemStore) Logs(profileID string) ([]habit.Log, error) {
	if err := sdk.ValidateProfileID(profileID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.data[profileID]
	if !ok {
		return []habit.Log{}, nil
	}
	return s.Clone().Logs, nil
}

func (m *MemStore) Snapshot(profileID string) (habit.Snapshot, error) {
	if err := sdk.ValidateProfileID(profileID); err != nil {
		return habit.Snapshot{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.data[profileID]
	if !ok {
		return habit.Snapshot{}, ErrProfileNotFound
	}
	return s.Clone(), nil
}

// --- Writes ---

func (m *MemStore) SetUser(profileID string, u habit.User) error {
	if u.ID == "" {
		u.ID = habit.NewID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now().UTC()
	}
	if u.Plan == "" {
		u.Plan = habit.PlanFree
	}
	if err := u.Validate(); err != nil {
		return err
	}
	return m.mutate(profileID, true, func(s *habit.Snapshot) error {
		s.User = &u
		return nil
	})
}

func (m *MemStore) UpdateSettings(profileID string, p habit.SettingsPatch) (habit.Settings, error) {
	var out habit.Settings
	err := m.mutate(profileID, true, func(s *habit.Snapshot) error {
		next := s.Settings.Apply(p)
		if err := next.Validate(); err != nil {
			return err
		}
		s.Settings = next
		out = next
		return nil
	})
	return out, err
}

func (m *MemStore) AddHabit(profileID string, h habit.Habit) (habit.Habit, error) {
	if h.ID == "" {
		h.ID = habit.NewID()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = m.now().UTC()
	}
	if h.Frequency == "" {
		h.Frequency = habit.FrequencyDaily
	}
	if err := h.Validate(); err != nil {
		return habit.Habit{}, err
	}
	err := m.mutate(profileID, true, func(s *habit.Snapshot) error {
		if indexOfHabit(s.Habits, h.ID) >= 0 {
			return fmt.Errorf("%w: habit %s", ErrDuplicateID, h.ID)
		}
		s.Habits = append(s.Habits, h)
		return nil
	})
	if err != nil {
		return habit.Habit{}, err
	}
	return h, nil
}

func (m *MemStore) UpdateHabit(profileID, habitID string, p habit.HabitPatch) (habit.Habit, error) {
	var out habit.Habit
	err := m.mutate(profileID, false, func(s *habit.Snapshot) error {
		i := indexOfHabit(s.Habits, habitID)
		if i < 0 {
			return ErrHabitNotFound
		}
		next := s.Habits[i].Apply(p)
		if err := next.Validate(); err != nil {
			return err
		}
		s.Habits[i] = next
		out = next
		return nil
	})
	return out, err
}

func (m *MemStore) AddLog(profileID string, l habit.Log) (habit.Log, error) {
	if l.ID == "" {
		l.ID = habit.NewID()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = m.now().UTC()
	}
	if err := l.Validate(); err != nil {
		return habit.Log{}, err
	}
	err := m.mutate(profileID, false, func(s *habit.Snapshot) error {
		if indexOfHabit(s.Habits, l.HabitID) < 0 {
			return ErrHabitNotFound
		}
		if indexOfLog(s.Logs, l.ID) >= 0 {
			return fmt.Errorf("%w: log %s", ErrDuplicateID, l.ID)
		}
		s.Logs = append(s.Logs, l)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			err = ErrHabitNotFound
		}
		return habit.Log{}, err
	}
	return l, nil
}

func (m *MemStore) UpdateLog(profileID, logID string, p habit.LogPatch) (habit.Log, error) {
	var out habit.Log
	err := m.mutate(profileID, false, func(s *habit.Snapshot) error {
		i := indexOfLog(s.Logs, logID)
		if i < 0 {
			return ErrLogNotFound
		}
		s.Logs[i] = s.Logs[i].Apply(p)
		out = s.Logs[i]
		return nil
	})
	return out, err
}

// Reset drops every record of the profile. Unknown profiles are a no-op.
func (m *MemStore) Reset(profileID string) error {
	if err := sdk.ValidateProfileID(profileID); err != nil {
		return err
	}
	m.mu.Lock()
	if _, ok := m.data[profileID]; !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.data, profileID)
	m.versions[profileID]++
	version := m.versions[profileID]
	m.mu.Unlock()

	m.persist(profileID, version, nil)
	return nil
}

// Restore replaces the profile with s after validating every record.
func (m *MemStore) Restore(profileID string, s habit.Snapshot) error {
	s = s.Clone()
	s.Normalize()
	if err := validateSnapshot(s); err != nil {
		return err
	}
	return m.mutate(profileID, true, func(cur *habit.Snapshot) error {
		*cur = s
		return nil
	})
}

// mutate runs fn on the profile under the write lock and schedules a save.
// fn must leave the snapshot untouched when it returns an error.
func (m *MemStore) mutate(profileID string, create bool, fn func(s *habit.Snapshot) error) error {
	if err := sdk.ValidateProfileID(profileID); err != nil {
		return err
	}

	m.mu.Lock()
	s, ok := m.data[profileID]
	if !ok {
		if !create {
			m.mu.Unlock()
			return ErrProfileNotFound
		}
		fresh := habit.NewSnapshot()
		s = &fresh
	}
	if err := fn(s); err != nil {
		m.mu.Unlock()
		return err
	}
	m.data[profileID] = s
	m.versions[profileID]++
	version := m.versions[profileID]

	// Deep copy the profile's state to save safely in background
	snap := s.Clone()
	m.mu.Unlock()

	m.persist(profileID, version, &snap)
	return nil
}

// persist writes (or removes, when snap is nil) the profile file in background.
func (m *MemStore) persist(profileID string, version uint64, snap *habit.Snapshot) {
	if m.persister == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		var err error
		if snap == nil {
			err = m.persister.RemoveProfile(profileID, version)
		} else {
			err = m.persister.SaveProfile(profileID, version, *snap)
		}
		if err != nil {
			m.log.Error("persist profile failed",
				zap.String("profile", profileID),
				zap.Uint64("version", version),
				zap.Error(err),
			)
		}
	}()
}

func validateSnapshot(s habit.Snapshot) error {
	if s.User != nil {
		if err := s.User.Validate(); err != nil {
			return err
		}
	}
	if err := s.Settings.Validate(); err != nil {
		return err
	}
	for _, h := range s.Habits {
		if err := h.Validate(); err != nil {
			return fmt.Errorf("%w (habit %s)", err, h.ID)
		}
	}
	for _, l := range s.Logs {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("%w (log %s)", err, l.ID)
		}
	}
	return nil
}

func indexOfHabit(habits []habit.Habit, id string) int {
	return slices.IndexFunc(habits, func(h habit.Habit) bool { return h.ID == id })
}

func indexOfLog(logs []habit.Log, id string) int {
	return slices.IndexFunc(logs, func(l habit.Log) bool { return l.ID == id })
}
