package tracker_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/celerix-dev/looply/internal/engine"
	"github.com/celerix-dev/looply/pkg/habit"
	"github.com/celerix-dev/looply/pkg/sdk"
	"github.com/celerix-dev/looply/pkg/tracker"
)

// Wednesday 2024-03-13, 10:00 local.
var wednesday = time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newService(t *testing.T, opts ...tracker.Option) (*tracker.Service, *engine.MemStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: wednesday}
	store := engine.NewMemStore(nil, nil, engine.WithClock(clock.Now))
	opts = append([]tracker.Option{tracker.WithClock(clock)}, opts...)
	return tracker.New(store, opts...), store, clock
}

func TestSignUpAndUpgrade(t *testing.T) {
	svc, _, _ := newService(t)

	if _, err := svc.UpgradeToPro("p1"); !errors.Is(err, tracker.ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}

	u, err := svc.SignUp("p1", "  Ana  ", "ana@example.com")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if u.Name != "Ana" || u.Plan != habit.PlanFree || u.ID == "" {
		t.Errorf("unexpected user %+v", u)
	}

	pro, err := svc.UpgradeToPro("p1")
	if err != nil || !pro.IsPro() {
		t.Fatalf("UpgradeToPro = %+v, %v", pro, err)
	}

	again, err := svc.SignUp("p1", "Ana Lee", "")
	if err != nil {
		t.Fatalf("second SignUp failed: %v", err)
	}
	if again.ID != u.ID || !again.IsPro() || again.Name != "Ana Lee" {
		t.Errorf("signing up again should keep id and plan, got %+v", again)
	}

	if _, err := svc.SignUp("p2", "", ""); !errors.Is(err, habit.ErrInvalidUser) {
		t.Errorf("expected ErrInvalidUser, got %v", err)
	}
	if _, err := svc.SignUp("p2", "Bo", "not-an-email"); !errors.Is(err, habit.ErrInvalidUser) {
		t.Errorf("expected ErrInvalidUser for a bad email, got %v", err)
	}
}

func TestCreateHabit_FreePlanLimit(t *testing.T) {
	svc, _, _ := newService(t)
	svc.SignUp("p1", "Ana", "")

	for i := 0; i < tracker.DefaultFreeHabitLimit; i++ {
		if _, err := svc.CreateHabit("p1", tracker.HabitInput{Title: "Habit"}); err != nil {
			t.Fatalf("CreateHabit %d failed: %v", i, err)
		}
	}
	if _, err := svc.CreateHabit("p1", tracker.HabitInput{Title: "One too many"}); !errors.Is(err, tracker.ErrHabitLimit) {
		t.Fatalf("expected ErrHabitLimit, got %v", err)
	}

	svc.UpgradeToPro("p1")
	if _, err := svc.CreateHabit("p1", tracker.HabitInput{Title: "Pro habit"}); err != nil {
		t.Errorf("pro users have no limit, got %v", err)
	}
}

func TestCreateHabit_NoUserIsUnlimited(t *testing.T) {
	svc, _, _ := newService(t, tracker.WithFreeHabitLimit(1))
	if svc.FreeHabitLimit() != 1 {
		t.Fatalf("limit = %d", svc.FreeHabitLimit())
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.CreateHabit("p1", tracker.HabitInput{Title: "Habit"}); err != nil {
			t.Fatalf("CreateHabit without user failed: %v", err)
		}
	}
}

func TestCreateHabit_Input(t *testing.T) {
	svc, _, _ := newService(t)

	h, err := svc.CreateHabit("p1", tracker.HabitInput{Title: "  Read  ", Target: habit.Float(10), Unit: habit.String(" pages ")})
	if err != nil {
		t.Fatalf("CreateHabit failed: %v", err)
	}
	if h.Title != "Read" || h.Type != habit.TypeCustom || *h.Unit != "pages" || !h.Active {
		t.Errorf("unexpected habit %+v", h)
	}
	if !h.CreatedAt.Equal(wednesday) {
		t.Errorf("createdAt = %v", h.CreatedAt)
	}

	// An empty unit counts as no unit.
	plain, err := svc.CreateHabit("p1", tracker.HabitInput{Title: "Stretch", Unit: habit.String("")})
	if err != nil || plain.Unit != nil || plain.HasTarget() {
		t.Errorf("CreateHabit = %+v, %v", plain, err)
	}

	tests := []tracker.HabitInput{
		{Title: "   "},
		{Title: "Target only", Target: habit.Float(5)},
		{Title: "Unit only", Unit: habit.String("km")},
	}
	for _, in := range tests {
		if _, err := svc.CreateHabit("p1", in); !errors.Is(err, habit.ErrInvalidHabit) {
			t.Errorf("CreateHabit(%+v) expected ErrInvalidHabit, got %v", in, err)
		}
	}
}

func TestArchiveAndRestore(t *testing.T) {
	svc, _, _ := newService(t)
	svc.SignUp("p1", "Ana", "")

	var ids []string
	for i := 0; i < 3; i++ {
		h, _ := svc.CreateHabit("p1", tracker.HabitInput{Title: "Habit"})
		ids = append(ids, h.ID)
	}

	archived, err := svc.ArchiveHabit("p1", ids[0])
	if err != nil || archived.Active {
		t.Fatalf("ArchiveHabit = %+v, %v", archived, err)
	}

	// The freed slot is taken by a new habit, so restore hits the limit.
	svc.CreateHabit("p1", tracker.HabitInput{Title: "Replacement"})
	if _, err := svc.RestoreHabit("p1", ids[0]); !errors.Is(err, tracker.ErrHabitLimit) {
		t.Fatalf("expected ErrHabitLimit on restore, got %v", err)
	}

	svc.ArchiveHabit("p1", ids[1])
	restored, err := svc.RestoreHabit("p1", ids[0])
	if err != nil || !restored.Active {
		t.Fatalf("RestoreHabit = %+v, %v", restored, err)
	}

	// Restoring an active habit is a no-op even at the limit.
	if _, err := svc.RestoreHabit("p1", ids[0]); err != nil {
		t.Errorf("restoring an active habit should succeed, got %v", err)
	}
	if _, err := svc.RestoreHabit("p1", "missing"); !errors.Is(err, sdk.ErrHabitNotFound) {
		t.Errorf("expected ErrHabitNotFound, got %v", err)
	}
}

func TestUpdateHabit(t *testing.T) {
	svc, store, _ := newService(t)
	svc.SignUp("p1", "Ana", "")

	var ids []string
	for i := 0; i < 3; i++ {
		h, _ := svc.CreateHabit("p1", tracker.HabitInput{Title: "Habit"})
		ids = append(ids, h.ID)
	}
	svc.ArchiveHabit("p1", ids[0])

	// An invalid patch is rejected before the reactivation is stored.
	active := true
	_, err := svc.UpdateHabit("p1", ids[0], habit.HabitPatch{Active: &active, Target: habit.Float(5)})
	if !errors.Is(err, habit.ErrInvalidHabit) {
		t.Fatalf("expected ErrInvalidHabit, got %v", err)
	}
	habits, _ := store.Habits("p1")
	if habits[0].Active || habits[0].Target != nil {
		t.Errorf("rejected patch was stored: %+v", habits[0])
	}

	svc.CreateHabit("p1", tracker.HabitInput{Title: "Replacement"})
	if _, err := svc.UpdateHabit("p1", ids[0], habit.HabitPatch{Active: &active}); !errors.Is(err, tracker.ErrHabitLimit) {
		t.Fatalf("expected ErrHabitLimit, got %v", err)
	}

	svc.ArchiveHabit("p1", ids[1])
	updated, err := svc.UpdateHabit("p1", ids[0], habit.HabitPatch{Active: &active, Title: habit.String("Walk")})
	if err != nil || !updated.Active || updated.Title != "Walk" {
		t.Fatalf("UpdateHabit = %+v, %v", updated, err)
	}

	// Editing an active habit at the limit is not a reactivation.
	if _, err := svc.UpdateHabit("p1", ids[2], habit.HabitPatch{Title: habit.String("Read"), Active: &active}); err != nil {
		t.Errorf("editing an active habit failed: %v", err)
	}
	if _, err := svc.UpdateHabit("p1", "missing", habit.HabitPatch{}); !errors.Is(err, sdk.ErrHabitNotFound) {
		t.Errorf("expected ErrHabitNotFound, got %v", err)
	}
}

func TestCreateHabit_ConcurrentCreatesRespectLimit(t *testing.T) {
	svc, store, _ := newService(t)
	svc.SignUp("p1", "Ana", "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.CreateHabit("p1", tracker.HabitInput{Title: "Habit"})
		}()
	}
	wg.Wait()

	habits, _ := store.Habits("p1")
	if len(habits) != tracker.DefaultFreeHabitLimit {
		t.Errorf("expected %d habits, got %d", tracker.DefaultFreeHabitLimit, len(habits))
	}
}

func TestOnboard(t *testing.T) {
	svc, store, _ := newService(t)
	svc.SignUp("p1", "Ana", "")

	created, err := svc.Onboard("p1", tracker.OnboardingInput{
		PresetIDs:     []string{"walk", "water", "meditate", "walk"},
		CustomTitle:   " Journal ",
		Notifications: habit.NotificationsAllowed,
	})
	if err != nil {
		t.Fatalf("Onboard failed: %v", err)
	}
	// Onboarding may go past the free limit.
	if len(created) != 4 {
		t.Fatalf("expected 4 habits, got %d", len(created))
	}
	if created[0].Title != "Walk 20 minutes" || *created[1].Target != 2000 || created[3].Title != "Journal" || created[3].Type != habit.TypeCustom {
		t.Errorf("unexpected habits %+v", created)
	}

	settings, _ := store.Settings("p1")
	if settings.NotificationPermission != habit.NotificationsAllowed {
		t.Errorf("notification choice not recorded: %+v", settings)
	}

	if _, err := svc.Onboard("p2", tracker.OnboardingInput{}); !errors.Is(err, tracker.ErrEmptyOnboarding) {
		t.Errorf("expected ErrEmptyOnboarding, got %v", err)
	}
	if _, err := svc.Onboard("p2", tracker.OnboardingInput{PresetIDs: []string{"yoga"}}); !errors.Is(err, tracker.ErrUnknownPreset) {
		t.Errorf("expected ErrUnknownPreset, got %v", err)
	}
	if habits, _ := store.Habits("p2"); len(habits) != 0 {
		t.Error("a rejected onboarding must not create habits")
	}
}

func TestToggleToday(t *testing.T) {
	svc, store, _ := newService(t)
	h, _ := svc.CreateHabit("p1", tracker.HabitInput{Title: "Walk"})

	l, err := svc.ToggleToday("p1", h.ID)
	if err != nil {
		t.Fatalf("ToggleToday failed: %v", err)
	}
	if !l.Completed || l.Date != "2024-03-13" {
		t.Errorf("expected a completed log for today, got %+v", l)
	}

	l2, err := svc.ToggleToday("p1", h.ID)
	if err != nil {
		t.Fatalf("second ToggleToday failed: %v", err)
	}
	if l2.Completed || l2.ID != l.ID {
		t.Errorf("expected the same log toggled off, got %+v", l2)
	}

	logs, _ := store.Logs("p1")
	if len(logs) != 1 {
		t.Errorf("toggle must reuse today's log, got %d logs", len(logs))
	}

	if _, err := svc.ToggleToday("p1", "missing"); !errors.Is(err, sdk.ErrHabitNotFound) {
		t.Errorf("expected ErrHabitNotFound, got %v", err)
	}
}

func TestToggleToday_UsesFirstMatchingLog(t *testing.T) {
	svc, store, _ := newService(t)
	h, _ := svc.CreateHabit("p1", tracker.HabitInput{Title: "Walk"})

	first, _ := store.AddLog("p1", habit.Log{HabitID: h.ID, Date: "2024-03-13", Completed: false})
	store.AddLog("p1", habit.Log{HabitID: h.ID, Date: "2024-03-13", Completed: true})

	l, err := svc.ToggleToday("p1", h.ID)
	if err != nil {
		t.Fatal(err)
	}
	if l.ID != first.ID || !l.Completed {
		t.Errorf("expected the first log to be toggled on, got %+v", l)
	}
}

func TestSetTodayValue(t *testing.T) {
	svc, _, _ := newService(t)
	h, _ := svc.CreateHabit("p1", tracker.HabitInput{Title: "Water", Target: habit.Float(2000), Unit: habit.String("ml")})

	l, err := svc.SetTodayValue("p1", h.ID, 500)
	if err != nil {
		t.Fatalf("SetTodayValue failed: %v", err)
	}
	if l.Completed || *l.Value != 500 {
		t.Errorf("new value log should not be completed, got %+v", l)
	}

	svc.ToggleToday("p1", h.ID)
	l, _ = svc.SetTodayValue("p1", h.ID, 1500)
	if !l.Completed || *l.Value != 1500 {
		t.Errorf("value update must keep completion, got %+v", l)
	}

	if _, err := svc.SetTodayValue("p1", h.ID, -1); !errors.Is(err, habit.ErrInvalidLog) {
		t.Errorf("expected ErrInvalidLog, got %v", err)
	}
}

func TestCompleteDay(t *testing.T) {
	svc, _, _ := newService(t)

	if ok, _ := svc.CompleteDay("p1"); ok {
		t.Error("a profile without habits cannot complete the day")
	}

	a, _ := svc.CreateHabit("p1", tracker.HabitInput{Title: "A"})
	b, _ := svc.CreateHabit("p1", tracker.HabitInput{Title: "B"})
	svc.ToggleToday("p1", a.ID)
	if ok, _ := svc.CompleteDay("p1"); ok {
		t.Error("day is not complete with one habit open")
	}
	svc.ToggleToday("p1", b.ID)
	if ok, err := svc.CompleteDay("p1"); !ok || err != nil {
		t.Errorf("CompleteDay = %v, %v", ok, err)
	}
}

func TestDashboard(t *testing.T) {
	svc, store, clock := newService(t)

	d, err := svc.Dashboard("p1")
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if !d.NeedsOnboarding || d.ShowUpgrade || len(d.Habits) != 0 {
		t.Errorf("empty profile dashboard = %+v", d)
	}

	svc.SignUp("p1", "Ana", "")
	walk, _ := svc.CreateHabit("p1", tracker.HabitInput{Title: "Walk"})
	read, _ := svc.CreateHabit("p1", tracker.HabitInput{Title: "Read"})
	old, _ := svc.CreateHabit("p1", tracker.HabitInput{Title: "Old"})
	svc.ArchiveHabit("p1", old.ID)

	// Walk completed Mon, Tue and today; Read only Sunday.
	for _, date := range []string{"2024-03-11", "2024-03-12"} {
		store.AddLog("p1", habit.Log{HabitID: walk.ID, Date: date, Completed: true})
	}
	store.AddLog("p1", habit.Log{HabitID: read.ID, Date: "2024-03-10", Completed: true})
	svc.ToggleToday("p1", walk.ID)

	d, err = svc.Dashboard("p1")
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if d.Greeting != "Good morning" || d.UserName != "Ana" || d.Date != "2024-03-13" {
		t.Errorf("header = %q %q %q", d.Greeting, d.UserName, d.Date)
	}
	if d.ActiveHabits != 2 || d.CompletedToday != 1 || !d.ShowUpgrade || d.NeedsOnboarding || d.DayComplete {
		t.Errorf("counts = %+v", d)
	}
	// Sunday..Wednesday is 4 days x 2 habits = 8 slots, 4 completed.
	if d.WeekProgress != 50 {
		t.Errorf("week progress = %d, want 50", d.WeekProgress)
	}
	if len(d.Habits) != 2 || d.Habits[0].Streak != 3 || !d.Habits[0].Done || d.Habits[0].Today == nil {
		t.Errorf("walk row = %+v", d.Habits)
	}
	if d.Habits[1].Streak != 0 || d.Habits[1].Today != nil {
		t.Errorf("read row = %+v", d.Habits[1])
	}

	clock.now = time.Date(2024, 3, 13, 19, 0, 0, 0, time.UTC)
	d, _ = svc.Dashboard("p1")
	if d.Greeting != "Good evening" {
		t.Errorf("greeting = %q", d.Greeting)
	}
}

func TestGreeting(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, "Good morning"},
		{11, "Good morning"},
		{12, "Good afternoon"},
		{17, "Good afternoon"},
		{18, "Good evening"},
		{23, "Good evening"},
	}
	for _, tt := range tests {
		if got := tracker.Greeting(time.Date(2024, 3, 13, tt.hour, 30, 0, 0, time.UTC)); got != tt.want {
			t.Errorf("Greeting(%d:30) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestInsights(t *testing.T) {
	svc, store, _ := newService(t)
	svc.SignUp("p1", "Ana", "")
	walk, _ := svc.CreateHabit("p1", tracker.HabitInput{Title: "Walk"})
	read, _ := svc.CreateHabit("p1", tracker.HabitInput{Title: "Read"})

	for _, date := range []string{"2024-03-09", "2024-03-11", "2024-03-12", "2024-03-13"} {
		store.AddLog("p1", habit.Log{HabitID: walk.ID, Date: date, Completed: true})
	}
	store.AddLog("p1", habit.Log{HabitID: read.ID, Date: "2024-03-12", Completed: true})

	in, err := svc.Insights("p1")
	if err != nil {
		t.Fatalf("Insights failed: %v", err)
	}
	if len(in.Days) != 7 || in.Days[0].Date != "2024-03-07" || in.Days[6].Date != "2024-03-13" {
		t.Fatalf("unexpected window %+v", in.Days)
	}
	// 5 completions over 14 slots.
	if in.CompletionRate != 36 {
		t.Errorf("completion rate = %d, want 36", in.CompletionRate)
	}
	if in.BestDay == nil || in.BestDay.Date != "2024-03-12" {
		t.Errorf("best day = %+v", in.BestDay)
	}
	if in.HardestDay == nil || in.HardestDay.Date != "2024-03-07" {
		t.Errorf("hardest day = %+v", in.HardestDay)
	}
	if in.MostConsistent == nil || in.MostConsistent.Habit.ID != walk.ID || in.MostConsistent.WeekDays != 3 {
		t.Errorf("most consistent = %+v", in.MostConsistent)
	}
	if in.Pro != nil {
		t.Error("free users get no pro insights")
	}

	svc.UpgradeToPro("p1")
	in, _ = svc.Insights("p1")
	if in.Pro == nil || in.Pro.ActiveHabits != 2 || in.Pro.TopStreak != 3 || len(in.Pro.Consistency) != 2 {
		t.Errorf("pro insights = %+v", in.Pro)
	}
}
