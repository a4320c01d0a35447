package habit

import "time"

// Plan is the subscription tier of a user. Upgrading is cosmetic.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// User is the locally signed-up identity of a profile.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required,max=80"`
	Email     string    `json:"email" validate:"omitempty,email"`
	Plan      Plan      `json:"plan" validate:"oneof=free pro"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsPro reports whether the user is on the pro plan.
func (u User) IsPro() bool {
	return u.Plan == PlanPro
}

// NotificationPermission mirrors the reminder permission the user granted.
type NotificationPermission string

const (
	NotificationsUnknown NotificationPermission = "unknown"
	NotificationsAllowed NotificationPermission = "allowed"
	NotificationsDenied  NotificationPermission = "denied"
)

// Settings are the per-profile app settings.
type Settings struct {
	NotificationPermission NotificationPermission `json:"notificationPermission" validate:"oneof=unknown allowed denied"`
}

// DefaultSettings is what a fresh profile starts with.
func DefaultSettings() Settings {
	return Settings{NotificationPermission: NotificationsUnknown}
}

// SettingsPatch is a partial settings update.
type SettingsPatch struct {
	NotificationPermission *NotificationPermission `json:"notificationPermission,omitempty"`
}

// Apply returns a copy of s with the patch merged in.
func (s Settings) Apply(p SettingsPatch) Settings {
	if p.NotificationPermission != nil {
		s.NotificationPermission = *p.NotificationPermission
	}
	return s
}
