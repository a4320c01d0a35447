package habit

// Fixed storage identifiers. A persisted profile is a JSON object keyed by these.
const (
	KeyUser     = "looply_user"
	KeyHabits   = "looply_habits"
	KeyLogs     = "looply_logs"
	KeySettings = "looply_settings"
)

// Snapshot is the full state of one profile.
type Snapshot struct {
	User     *User    `json:"looply_user,omitempty"`
	Habits   []Habit  `json:"looply_habits"`
	Logs     []Log    `json:"looply_logs"`
	Settings Settings `json:"looply_settings"`
}

// NewSnapshot returns an empty profile state with default settings.
func NewSnapshot() Snapshot {
	return Snapshot{
		Habits:   []Habit{},
		Logs:     []Log{},
		Settings: DefaultSettings(),
	}
}

// Clone deep-copies the snapshot so it can leave a lock safely.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Habits:   make([]Habit, len(s.Habits)),
		Logs:     make([]Log, len(s.Logs)),
		Settings: s.Settings,
	}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	for i, h := range s.Habits {
		out.Habits[i] = cloneHabit(h)
	}
	for i, l := range s.Logs {
		out.Logs[i] = cloneLog(l)
	}
	return out
}

// Normalize fills nil collections and empty settings in place.
func (s *Snapshot) Normalize() {
	if s.Habits == nil {
		s.Habits = []Habit{}
	}
	if s.Logs == nil {
		s.Logs = []Log{}
	}
	if s.Settings.NotificationPermission == "" {
		s.Settings = DefaultSettings()
	}
}

func cloneHabit(h Habit) Habit {
	if h.Target != nil {
		h.Target = Float(*h.Target)
	}
	if h.Unit != nil {
		h.Unit = String(*h.Unit)
	}
	return h
}

func cloneLog(l Log) Log {
	if l.Value != nil {
		l.Value = Float(*l.Value)
	}
	return l
}
