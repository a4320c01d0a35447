// Package tracker is the looply application service. It sits between the
// transports (HTTP, CLI) and the Store and owns the rules that are not pure
// analytics: the free plan limit, onboarding, and logging today's progress.
package tracker

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/celerix-dev/looply/pkg/habit"
	"github.com/celerix-dev/looply/pkg/sdk"
	"go.uber.org/zap"
)

// DefaultFreeHabitLimit is the number of active habits a free user may keep.
const DefaultFreeHabitLimit = 3

var (
	// ErrHabitLimit is returned when a free user would exceed the active habit limit.
	ErrHabitLimit = errors.New("active habit limit reached for the free plan")
	// ErrNoUser is returned by operations that need a signed-up user.
	ErrNoUser = errors.New("no user signed up")
	// ErrUnknownPreset is returned for onboarding preset ids that do not exist.
	ErrUnknownPreset = errors.New("unknown preset")
	// ErrEmptyOnboarding is returned when onboarding selects no habit at all.
	ErrEmptyOnboarding = errors.New("select at least one habit")
)

// Clock supplies the current instant. "Today" is its local calendar date.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Service implements the looply use cases on top of a Store.
type Service struct {
	store     sdk.Store
	clock     Clock
	freeLimit int
	log       *zap.Logger

	// locks holds one *sync.Mutex per profile.
	locks sync.Map
}

// Option configures a Service.
type Option func(*Service)

// WithClock injects the time source.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithFreeHabitLimit overrides DefaultFreeHabitLimit. Values below 1 are ignored.
func WithFreeHabitLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.freeLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a Service backed by store.
func New(store sdk.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		clock:     ClockFunc(time.Now),
		freeLimit: DefaultFreeHabitLimit,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FreeHabitLimit reports the configured limit.
func (s *Service) FreeHabitLimit() int { return s.freeLimit }

// --- Account ---

// SignUp creates the local user of a profile on the free plan. Signing up
// again keeps the id, plan and creation time and only updates name and email.
func (s *Service) SignUp(profileID, name, email string) (habit.User, error) {
	u, err := s.store.User(profileID)
	switch {
	case errors.Is(err, sdk.ErrUserNotFound):
		u = habit.User{
			ID:        habit.NewID(),
			Plan:      habit.PlanFree,
			CreatedAt: s.clock.Now().UTC(),
		}
	case err != nil:
		return habit.User{}, err
	}
	u.Name = strings.TrimSpace(name)
	u.Email = strings.TrimSpace(email)

	if err := s.store.SetUser(profileID, u); err != nil {
		return habit.User{}, err
	}
	s.log.Info("user signed up", zap.String("profile", profileID), zap.String("user", u.ID))
	return u, nil
}

// UpgradeToPro switches the user to the pro plan. No payment is involved.
func (s *Service) UpgradeToPro(profileID string) (habit.User, error) {
	u, err := s.user(profileID)
	if err != nil {
		return habit.User{}, err
	}
	if u.IsPro() {
		return u, nil
	}
	u.Plan = habit.PlanPro
	if err := s.store.SetUser(profileID, u); err != nil {
		return habit.User{}, err
	}
	s.log.Info("user upgraded", zap.String("profile", profileID))
	return u, nil
}

func (s *Service) user(profileID string) (habit.User, error) {
	u, err := s.store.User(profileID)
	if errors.Is(err, sdk.ErrUserNotFound) {
		return habit.User{}, ErrNoUser
	}
	return u, err
}

// --- Habits ---

// HabitInput is a user-defined habit. Target and Unit go together.
type HabitInput struct {
	Title  string   `json:"title"`
	Target *float64 `json:"target,omitempty"`
	Unit   *string  `json:"unit,omitempty"`
}

// OnboardingInput is the result of the onboarding flow.
type OnboardingInput struct {
	PresetIDs     []string                     `json:"presetIds"`
	CustomTitle   string                       `json:"customTitle,omitempty"`
	Notifications habit.NotificationPermission `json:"notifications,omitempty"`
}

// Onboard creates the selected preset habits and the optional custom habit,
// then records the notification choice. Onboarding is not subject to the
// free plan limit.
func (s *Service) Onboard(profileID string, in OnboardingInput) ([]habit.Habit, error) {
	custom := strings.TrimSpace(in.CustomTitle)
	if len(in.PresetIDs) == 0 && custom == "" {
		return nil, ErrEmptyOnboarding
	}

	var templates []habit.Habit
	seen := make(map[string]bool, len(in.PresetIDs))
	for _, id := range in.PresetIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		p, ok := habit.PresetByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, id)
		}
		templates = append(templates, p.Habit())
	}
	if custom != "" {
		templates = append(templates, habit.Habit{
			Title:     custom,
			Type:      habit.TypeCustom,
			Frequency: habit.FrequencyDaily,
			Active:    true,
		})
	}

	now := s.clock.Now().UTC()
	created := make([]habit.Habit, 0, len(templates))
	for _, h := range templates {
		h.CreatedAt = now
		out, err := s.store.AddHabit(profileID, h)
		if err != nil {
			return created, err
		}
		created = append(created, out)
	}

	if in.Notifications != "" {
		perm := in.Notifications
		if _, err := s.store.UpdateSettings(profileID, habit.SettingsPatch{NotificationPermission: &perm}); err != nil {
			return created, err
		}
	}

	s.log.Info("onboarding completed",
		zap.String("profile", profileID),
		zap.Int("habits", len(created)),
	)
	return created, nil
}

// CreateHabit adds a custom daily habit, enforcing the free plan limit.
func (s *Service) CreateHabit(profileID string, in HabitInput) (habit.Habit, error) {
	defer s.lock(profileID)()
	if err := s.checkLimit(profileID); err != nil {
		return habit.Habit{}, err
	}

	h := habit.Habit{
		Title:     strings.TrimSpace(in.Title),
		Type:      habit.TypeCustom,
		Frequency: habit.FrequencyDaily,
		Target:    in.Target,
		Unit:      normalizeUnit(in.Unit),
		Active:    true,
		CreatedAt: s.clock.Now().UTC(),
	}
	out, err := s.store.AddHabit(profileID, h)
	if err != nil {
		return habit.Habit{}, err
	}
	s.log.Info("habit created",
		zap.String("profile", profileID),
		zap.String("habit", out.ID),
		zap.Bool("has_target", out.HasTarget()),
	)
	return out, nil
}

// ArchiveHabit deactivates a habit. Its logs are kept.
func (s *Service) ArchiveHabit(profileID, habitID string) (habit.Habit, error) {
	inactive := false
	return s.store.UpdateHabit(profileID, habitID, habit.HabitPatch{Active: &inactive})
}

// RestoreHabit reactivates an archived habit, enforcing the free plan limit.
func (s *Service) RestoreHabit(profileID, habitID string) (habit.Habit, error) {
	defer s.lock(profileID)()
	h, err := s.findHabit(profileID, habitID)
	if err != nil {
		return habit.Habit{}, err
	}
	if h.Active {
		return h, nil
	}
	if err := s.checkLimit(profileID); err != nil {
		return habit.Habit{}, err
	}
	active := true
	return s.store.UpdateHabit(profileID, habitID, habit.HabitPatch{Active: &active})
}

// UpdateHabit applies p as a single write. The merged habit is validated
// first, and reactivating an archived habit is subject to the free plan limit.
func (s *Service) UpdateHabit(profileID, habitID string, p habit.HabitPatch) (habit.Habit, error) {
	defer s.lock(profileID)()
	h, err := s.findHabit(profileID, habitID)
	if err != nil {
		return habit.Habit{}, err
	}
	if err := h.Apply(p).Validate(); err != nil {
		return habit.Habit{}, err
	}
	if p.Active != nil && *p.Active && !h.Active {
		if err := s.checkLimit(profileID); err != nil {
			return habit.Habit{}, err
		}
	}
	return s.store.UpdateHabit(profileID, habitID, p)
}

// lock serializes the limit check and the write that depends on it within a
// profile. It returns the unlock function.
func (s *Service) lock(profileID string) func() {
	v, _ := s.locks.LoadOrStore(profileID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// checkLimit fails when a free user already has the maximum of active habits.
// Profiles without a user are not limited.
func (s *Service) checkLimit(profileID string) error {
	u, err := s.store.User(profileID)
	if errors.Is(err, sdk.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if u.IsPro() {
		return nil
	}

	habits, err := s.store.Habits(profileID)
	if err != nil {
		return err
	}
	active := 0
	for _, h := range habits {
		if h.Active {
			active++
		}
	}
	if active >= s.freeLimit {
		s.log.Info("habit limit reached", zap.String("profile", profileID), zap.Int("active", active))
		return fmt.Errorf("%w (%d)", ErrHabitLimit, s.freeLimit)
	}
	return nil
}

func (s *Service) findHabit(profileID, habitID string) (habit.Habit, error) {
	habits, err := s.store.Habits(profileID)
	if err != nil {
		return habit.Habit{}, err
	}
	for _, h := range habits {
		if h.ID == habitID {
			return h, nil
		}
	}
	return habit.Habit{}, sdk.ErrHabitNotFound
}

func normalizeUnit(u *string) *string {
	if u == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*u)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
