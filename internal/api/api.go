// Package api is the HTTP surface of looply, served by gin.
package api

import (
	"errors"
	"net/http"

	"github.com/celerix-dev/looply/pkg/habit"
	"github.com/celerix-dev/looply/pkg/sdk"
	"github.com/celerix-dev/looply/pkg/tracker"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves the HTTP API on top of a Store and the tracker service.
type Handler struct {
	Store   sdk.Store
	Tracker *tracker.Service
	Log     *zap.Logger
	Metrics *Metrics
}

// NewHandler wires a handler with its own metrics registry.
func NewHandler(store sdk.Store, svc *tracker.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:   store,
		Tracker: svc,
		Log:     logger,
		Metrics: NewMetrics(),
	}
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, sdk.ErrProfileNotFound),
		errors.Is(err, sdk.ErrUserNotFound),
		errors.Is(err, sdk.ErrHabitNotFound),
		errors.Is(err, sdk.ErrLogNotFound):
		return http.StatusNotFound
	case errors.Is(err, sdk.ErrInvalidProfile),
		errors.Is(err, habit.ErrInvalidHabit),
		errors.Is(err, habit.ErrInvalidLog),
		errors.Is(err, habit.ErrInvalidUser),
		errors.Is(err, habit.ErrInvalidSettings),
		errors.Is(err, tracker.ErrUnknownPreset),
		errors.Is(err, tracker.ErrEmptyOnboarding):
		return http.StatusBadRequest
	case errors.Is(err, tracker.ErrHabitLimit):
		return http.StatusPaymentRequired
	case errors.Is(err, sdk.ErrDuplicateID),
		errors.Is(err, tracker.ErrNoUser):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusOf(err)
	switch status {
	case http.StatusInternalServerError:
		h.Log.Error("request failed",
			zap.String("route", c.FullPath()),
			zap.String("profile", c.Param("profile")),
			zap.Error(err),
		)
	case http.StatusPaymentRequired:
		h.Metrics.PaywallShown.WithLabelValues("habit_limit").Inc()
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// --- Profiles ---

func (h *Handler) GetProfiles(c *gin.Context) {
	profiles, err := h.Store.Profiles()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}

func (h *Handler) ResetProfile(c *gin.Context) {
	if err := h.Store.Reset(c.Param("profile")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.Store.User(c.Param("profile"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) PutUser(c *gin.Context) {
	var u habit.User
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profileID := c.Param("profile")
	if err := h.Store.SetUser(profileID, u); err != nil {
		h.fail(c, err)
		return
	}
	saved, err := h.Store.User(profileID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) SignUp(c *gin.Context) {
	var input struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.Tracker.SignUp(c.Param("profile"), input.Name, input.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) Upgrade(c *gin.Context) {
	u, err := h.Tracker.UpgradeToPro(c.Param("profile"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) GetSettings(c *gin.Context) {
	s, err := h.Store.Settings(c.Param("profile"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) PatchSettings(c *gin.Context) {
	var p habit.SettingsPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := h.Store.UpdateSettings(c.Param("profile"), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// --- Habits ---

func (h *Handler) GetHabits(c *gin.Context) {
	habits, err := h.Store.Habits(c.Param("profile"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if c.Query("active") == "true" {
		active := habits[:0]
		for _, hb := range habits {
			if hb.Active {
				active = append(active, hb)
			}
		}
		habits = active
	}
	c.JSON(http.StatusOK, habits)
}

func (h *Handler) CreateHabit(c *gin.Context) {
	var input tracker.HabitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.Tracker.CreateHabit(c.Param("profile"), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Metrics.HabitsCreated.Inc()
	c.JSON(http.StatusCreated, created)
}

// PatchHabit updates a habit in place. Reactivation goes through the
// free plan limit like the restore endpoint.
func (h *Handler) PatchHabit(c *gin.Context) {
	var p habit.HabitPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.Tracker.UpdateHabit(c.Param("profile"), c.Param("id"), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) ArchiveHabit(c *gin.Context) {
	updated, err := h.Tracker.ArchiveHabit(c.Param("profile"), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) RestoreHabit(c *gin.Context) {
	updated, err := h.Tracker.RestoreHabit(c.Param("profile"), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) ToggleToday(c *gin.Context) {
	l, err := h.Tracker.ToggleToday(c.Param("profile"), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Metrics.LogsRecorded.WithLabelValues("toggle").Inc()
	c.JSON(http.StatusOK, l)
}

func (h *Handler) SetTodayValue(c *gin.Context) {
	var input struct {
		Value *float64 `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	l, err := h.Tracker.SetTodayValue(c.Param("profile"), c.Param("id"), *input.Value)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Metrics.LogsRecorded.WithLabelValues("value").Inc()
	c.JSON(http.StatusOK, l)
}

// --- Logs ---

func (h *Handler) GetLogs(c *gin.Context) {
	logs, err := h.Store.Logs(c.Param("profile"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if habitID := c.Query("habitId"); habitID != "" {
		filtered := logs[:0]
		for _, l := range logs {
			if l.HabitID == habitID {
				filtered = append(filtered, l)
			}
		}
		logs = filtered
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) CreateLog(c *gin.Context) {
	var l habit.Log
	if err := c.ShouldBindJSON(&l); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.Store.AddLog(c.Param("profile"), l)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Metrics.LogsRecorded.WithLabelValues("manual").Inc()
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) PatchLog(c *gin.Context) {
	var p habit.LogPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.Store.UpdateLog(c.Param("profile"), c.Param("id"), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// --- Flows and views ---

func (h *Handler) Onboard(c *gin.Context) {
	var input tracker.OnboardingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.Tracker.Onboard(c.Param("profile"), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Metrics.HabitsCreated.Add(float64(len(created)))
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) CompleteDay(c *gin.Context) {
	done, err := h.Tracker.CompleteDay(c.Param("profile"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complete": done})
}

func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.Tracker.Dashboard(c.Param("profile"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) Insights(c *gin.Context) {
	in, err := h.Tracker.Insights(c.Param("profile"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, in)
}
