package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/celerix-dev/looply/pkg/habit"
	"github.com/celerix-dev/looply/pkg/sdk"
)

var fixedNow = time.Date(2024, 3, 13, 9, 30, 0, 0, time.UTC)

func newTestStore(p *Persistence) *MemStore {
	return NewMemStore(nil, p, WithClock(func() time.Time { return fixedNow }))
}

func walkHabit() habit.Habit {
	return habit.Habit{
		Title:  "Walk",
		Type:   habit.TypeWalk,
		Target: habit.Float(20),
		Unit:   habit.String("min"),
		Active: true,
	}
}

func TestMemStore_AddAndListHabits(t *testing.T) {
	ms := newTestStore(nil)

	h, err := ms.AddHabit("p1", walkHabit())
	if err != nil {
		t.Fatalf("AddHabit failed: %v", err)
	}
	if h.ID == "" {
		t.Error("expected an id to be assigned")
	}
	if !h.CreatedAt.Equal(fixedNow) {
		t.Errorf("createdAt = %v, want %v", h.CreatedAt, fixedNow)
	}
	if h.Frequency != habit.FrequencyDaily {
		t.Errorf("frequency = %q, want daily", h.Frequency)
	}

	second := walkHabit()
	second.Title = "Second"
	if _, err := ms.AddHabit("p1", second); err != nil {
		t.Fatalf("AddHabit failed: %v", err)
	}

	list, err := ms.Habits("p1")
	if err != nil {
		t.Fatalf("Habits failed: %v", err)
	}
	if len(list) != 2 || list[0].Title != "Walk" || list[1].Title != "Second" {
		t.Fatalf("expected insertion order [Walk Second], got %+v", list)
	}

	// Returned slices are copies.
	*list[0].Target = 999
	again, _ := ms.Habits("p1")
	if *again[0].Target != 20 {
		t.Error("mutating a returned habit leaked into the store")
	}
}

func TestMemStore_AddHabitRejectsInvalidAndDuplicate(t *testing.T) {
	ms := newTestStore(nil)

	bad := walkHabit()
	bad.Unit = nil
	if _, err := ms.AddHabit("p1", bad); !errors.Is(err, habit.ErrInvalidHabit) {
		t.Errorf("expected ErrInvalidHabit, got %v", err)
	}

	h, _ := ms.AddHabit("p1", walkHabit())
	dup := walkHabit()
	dup.ID = h.ID
	if _, err := ms.AddHabit("p1", dup); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}

	if _, err := ms.AddHabit("../etc", walkHabit()); !errors.Is(err, sdk.ErrInvalidProfile) {
		t.Errorf("expected ErrInvalidProfile, got %v", err)
	}
}

func TestMemStore_UpdateHabit(t *testing.T) {
	ms := newTestStore(nil)
	h, _ := ms.AddHabit("p1", walkHabit())

	got, err := ms.UpdateHabit("p1", h.ID, habit.HabitPatch{Active: ptr(false), Title: ptr("Evening walk")})
	if err != nil {
		t.Fatalf("UpdateHabit failed: %v", err)
	}
	if got.Active || got.Title != "Evening walk" {
		t.Errorf("patch not applied: %+v", got)
	}
	if got.ID != h.ID || !got.CreatedAt.Equal(h.CreatedAt) {
		t.Error("update must keep id and createdAt")
	}

	if _, err := ms.UpdateHabit("p1", "missing", habit.HabitPatch{}); !errors.Is(err, ErrHabitNotFound) {
		t.Errorf("expected ErrHabitNotFound, got %v", err)
	}
	if _, err := ms.UpdateHabit("nobody", h.ID, habit.HabitPatch{}); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
	if _, err := ms.UpdateHabit("p1", h.ID, habit.HabitPatch{Title: ptr("")}); !errors.Is(err, habit.ErrInvalidHabit) {
		t.Errorf("expected ErrInvalidHabit, got %v", err)
	}
}

func TestMemStore_Logs(t *testing.T) {
	ms := newTestStore(nil)
	h, _ := ms.AddHabit("p1", walkHabit())

	l, err := ms.AddLog("p1", habit.Log{HabitID: h.ID, Date: "2024-03-13", Completed: true})
	if err != nil {
		t.Fatalf("AddLog failed: %v", err)
	}

	updated, err := ms.UpdateLog("p1", l.ID, habit.LogPatch{Value: habit.Float(12)})
	if err != nil {
		t.Fatalf("UpdateLog failed: %v", err)
	}
	if updated.Value == nil || *updated.Value != 12 || !updated.Completed {
		t.Errorf("unexpected log after update: %+v", updated)
	}

	if _, err := ms.AddLog("p1", habit.Log{HabitID: "ghost", Date: "2024-03-13"}); !errors.Is(err, ErrHabitNotFound) {
		t.Errorf("expected ErrHabitNotFound, got %v", err)
	}
	if _, err := ms.AddLog("nobody", habit.Log{HabitID: h.ID, Date: "2024-03-13"}); !errors.Is(err, ErrHabitNotFound) {
		t.Errorf("expected ErrHabitNotFound for unknown profile, got %v", err)
	}
	if _, err := ms.AddLog("p1", habit.Log{HabitID: h.ID, Date: "13/03/2024"}); !errors.Is(err, habit.ErrInvalidLog) {
		t.Errorf("expected ErrInvalidLog, got %v", err)
	}
	if _, err := ms.UpdateLog("p1", "missing", habit.LogPatch{}); !errors.Is(err, ErrLogNotFound) {
		t.Errorf("expected ErrLogNotFound, got %v", err)
	}

	logs, _ := ms.Logs("p1")
	if len(logs) != 1 {
		t.Errorf("expected 1 log, got %d", len(logs))
	}
}

func TestMemStore_UserAndSettings(t *testing.T) {
	ms := newTestStore(nil)

	if _, err := ms.User("p1"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	settings, err := ms.Settings("p1")
	if err != nil || settings.NotificationPermission != habit.NotificationsUnknown {
		t.Errorf("expected default settings, got %+v, %v", settings, err)
	}

	if err := ms.SetUser("p1", habit.User{Name: "Ana", Email: "ana@example.com"}); err != nil {
		t.Fatalf("SetUser failed: %v", err)
	}
	u, err := ms.User("p1")
	if err != nil {
		t.Fatalf("User failed: %v", err)
	}
	if u.Plan != habit.PlanFree || u.ID == "" {
		t.Errorf("expected defaults on user, got %+v", u)
	}
	if err := ms.SetUser("p1", habit.User{Name: ""}); !errors.Is(err, habit.ErrInvalidUser) {
		t.Errorf("expected ErrInvalidUser, got %v", err)
	}

	allowed := habit.NotificationsAllowed
	got, err := ms.UpdateSettings("p1", habit.SettingsPatch{NotificationPermission: &allowed})
	if err != nil || got.NotificationPermission != allowed {
		t.Errorf("UpdateSettings = %+v, %v", got, err)
	}
	bogus := habit.NotificationPermission("maybe")
	if _, err := ms.UpdateSettings("p1", habit.SettingsPatch{NotificationPermission: &bogus}); !errors.Is(err, habit.ErrInvalidSettings) {
		t.Errorf("expected ErrInvalidSettings, got %v", err)
	}
	if s, _ := ms.Settings("p1"); s.NotificationPermission != allowed {
		t.Error("a rejected patch must not change settings")
	}
}

func TestMemStore_ProfilesResetSnapshot(t *testing.T) {
	ms := newTestStore(nil)
	ms.AddHabit("b", walkHabit())
	ms.AddHabit("a", walkHabit())

	profiles, _ := ms.Profiles()
	if strings.Join(profiles, ",") != "a,b" {
		t.Errorf("expected sorted [a b], got %v", profiles)
	}

	snap, err := ms.Snapshot("a")
	if err != nil || len(snap.Habits) != 1 {
		t.Fatalf("Snapshot = %+v, %v", snap, err)
	}

	if err := ms.Reset("a"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if _, err := ms.Snapshot("a"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound after reset, got %v", err)
	}
	if err := ms.Reset("never-existed"); err != nil {
		t.Errorf("reset of unknown profile should be a no-op, got %v", err)
	}

	if err := ms.Restore("a", snap); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	habits, _ := ms.Habits("a")
	if len(habits) != 1 {
		t.Errorf("expected restored habit, got %d", len(habits))
	}

	broken := habit.NewSnapshot()
	broken.Habits = []habit.Habit{{ID: "x", Title: "", Type: habit.TypeCustom, Frequency: habit.FrequencyDaily}}
	if err := ms.Restore("c", broken); !errors.Is(err, habit.ErrInvalidHabit) {
		t.Errorf("expected ErrInvalidHabit, got %v", err)
	}
	if _, err := ms.Snapshot("c"); !errors.Is(err, ErrProfileNotFound) {
		t.Error("a rejected restore must not create the profile")
	}
}

func TestMemStore_ProfileScope(t *testing.T) {
	ms := newTestStore(nil)
	scope := ms.Profile("p1")

	if scope.ID() != "p1" {
		t.Errorf("scope id = %q", scope.ID())
	}
	h, err := scope.AddHabit(walkHabit())
	if err != nil {
		t.Fatalf("scope AddHabit failed: %v", err)
	}
	list, _ := ms.Habits("p1")
	if len(list) != 1 || list[0].ID != h.ID {
		t.Errorf("scope write not visible on the store: %+v", list)
	}
}

func TestMemStore_Concurrency(t *testing.T) {
	ms := newTestStore(nil)
	h, _ := ms.AddHabit("p1", walkHabit())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			date := fixedNow.AddDate(0, 0, -i).Format(habit.DateLayout)
			if _, err := ms.AddLog("p1", habit.Log{HabitID: h.ID, Date: date, Completed: true}); err != nil {
				t.Errorf("AddLog %d failed: %v", i, err)
			}
			ms.Logs("p1")
		}(i)
	}
	wg.Wait()

	logs, _ := ms.Logs("p1")
	if len(logs) != 50 {
		t.Errorf("expected 50 logs, got %d", len(logs))
	}
}

func TestPersistence(t *testing.T) {
	tmpDir := t.TempDir()

	p, err := NewPersistence(tmpDir, nil, nil)
	if err != nil {
		t.Fatalf("NewPersistence failed: %v", err)
	}

	snap := habit.NewSnapshot()
	snap.Habits = append(snap.Habits, habit.Habit{
		ID: "h1", Title: "Walk", Type: habit.TypeWalk, Frequency: habit.FrequencyDaily, Active: true,
	})

	if err := p.SaveProfile("user1", 0, snap); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(tmpDir, "user1.json"))
	if err != nil {
		t.Fatalf("Profile file was not created: %v", err)
	}
	for _, key := range []string{habit.KeyHabits, habit.KeyLogs, habit.KeySettings} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("expected key %s in persisted file", key)
		}
	}

	all, err := p.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(all) != 1 || len(all["user1"].Habits) != 1 || all["user1"].Habits[0].ID != "h1" {
		t.Errorf("Loaded data mismatch: %+v", all)
	}
}

func TestPersistence_SkipsStaleVersions(t *testing.T) {
	p, _ := NewPersistence(t.TempDir(), nil, nil)

	newer := habit.NewSnapshot()
	newer.Logs = append(newer.Logs, habit.Log{ID: "l1", HabitID: "h1", Date: "2024-03-13"})

	if err := p.SaveProfile("p1", 2, newer); err != nil {
		t.Fatal(err)
	}
	if err := p.SaveProfile("p1", 1, habit.NewSnapshot()); err != nil {
		t.Fatal(err)
	}

	all, _ := p.LoadAll()
	if len(all["p1"].Logs) != 1 {
		t.Error("an older write replaced a newer one")
	}

	if err := p.RemoveProfile("p1", 3); err != nil {
		t.Fatal(err)
	}
	all, _ = p.LoadAll()
	if _, ok := all["p1"]; ok {
		t.Error("profile file should be removed")
	}
}

func TestPersistence_EncryptedAtRest(t *testing.T) {
	tmpDir := t.TempDir()
	key := []byte("thisis32byteslongsecretkey123456")

	plain, _ := NewPersistence(tmpDir, nil, nil)
	if err := plain.SaveProfile("legacy", 0, habit.NewSnapshot()); err != nil {
		t.Fatal(err)
	}

	p, _ := NewPersistence(tmpDir, key, nil)
	snap := habit.NewSnapshot()
	snap.User = &habit.User{ID: "u1", Name: "Ana", Plan: habit.PlanPro}
	if err := p.SaveProfile("secret", 0, snap); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	raw, _ := os.ReadFile(filepath.Join(tmpDir, "secret.json"))
	if strings.Contains(string(raw), "Ana") {
		t.Fatal("profile file should be encrypted")
	}

	all, err := p.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if all["secret"].User == nil || all["secret"].User.Name != "Ana" {
		t.Errorf("encrypted profile not decoded: %+v", all["secret"])
	}
	if _, ok := all["legacy"]; !ok {
		t.Error("plain profile should still load when a key is set")
	}

	wrong, _ := NewPersistence(tmpDir, []byte("another32byteslongsecretkey65432"), nil)
	all, _ = wrong.LoadAll()
	if _, ok := all["secret"]; ok {
		t.Error("profile must not load with the wrong key")
	}
}

func TestMemStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()

	p, _ := NewPersistence(tmpDir, nil, nil)
	ms := newTestStore(p)

	h, err := ms.AddHabit("p1", walkHabit())
	if err != nil {
		t.Fatalf("AddHabit failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		ms.AddLog("p1", habit.Log{HabitID: h.ID, Date: fmt.Sprintf("2024-03-%02d", i+1), Completed: true})
	}
	ms.AddHabit("gone", walkHabit())
	ms.Reset("gone")

	ms.Wait() // Wait for background persistence

	// Create new MemStore and load data
	allData, _ := p.LoadAll()
	ms2 := NewMemStore(allData, p)

	logs, err := ms2.Logs("p1")
	if err != nil {
		t.Fatalf("Logs on new store failed: %v", err)
	}
	if len(logs) != 10 {
		t.Errorf("expected the last write to win with 10 logs, got %d", len(logs))
	}
	if _, err := ms2.Snapshot("gone"); !errors.Is(err, ErrProfileNotFound) {
		t.Error("reset profile should not come back from disk")
	}
}

func TestMigrate(t *testing.T) {
	src := newTestStore(nil)
	dst := newTestStore(nil)

	h, _ := src.AddHabit("p1", walkHabit())
	src.AddLog("p1", habit.Log{HabitID: h.ID, Date: "2024-03-13", Completed: true})
	src.SetUser("p2", habit.User{Name: "Bo"})

	n, err := Migrate(src, dst)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 profiles migrated, got %d", n)
	}

	logs, _ := dst.Logs("p1")
	if len(logs) != 1 || logs[0].HabitID != h.ID {
		t.Errorf("logs not migrated: %+v", logs)
	}
	if u, err := dst.User("p2"); err != nil || u.Name != "Bo" {
		t.Errorf("user not migrated: %+v, %v", u, err)
	}
}

func TestOpen_Embedded(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(OpenOptions{DataDir: dir})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := store.AddHabit("p1", walkHabit()); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(OpenOptions{DataDir: dir})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	habits, _ := reopened.Habits("p1")
	if len(habits) != 1 {
		t.Errorf("expected persisted habit, got %d", len(habits))
	}
}

func TestOpen_RemoteUnreachable(t *testing.T) {
	if _, err := Open(OpenOptions{RemoteAddr: "127.0.0.1:1", DisableTLS: true}); err == nil {
		t.Fatal("expected an error for an unreachable daemon")
	}
}

func ptr[T any](v T) *T { return &v }
