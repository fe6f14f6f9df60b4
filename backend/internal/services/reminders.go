package services

import (
	"context"
	"sort"
	"time"

	"github.com/gofrs/uuid"

	"hrmspro/backend/internal/apperr"
	"hrmspro/backend/internal/clock"
	"hrmspro/backend/internal/models"
	"hrmspro/backend/internal/repositories"
)

const day = 24 * time.Hour

type ReminderService interface {
	ListReminders(ctx context.Context, p models.Principal) ([]models.Reminder, error)
	Dismiss(ctx context.Context, p models.Principal, taskID uuid.UUID) (*models.TaskReminder, error)
	Snooze(ctx context.Context, p models.Principal, taskID uuid.UUID, hours int) (*models.TaskReminder, error)
}

type ReminderConfig struct {
	WindowDays   int
	DefaultHours int
}

func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{WindowDays: 3, DefaultHours: 24}
}

type ReminderServiceImpl struct {
	store  repositories.Store
	clock  clock.Clock
	config ReminderConfig
}

func NewReminderService(store repositories.Store, clk clock.Clock, config ReminderConfig) *ReminderServiceImpl {
	defaults := DefaultReminderConfig()
	if config.WindowDays <= 0 {
		config.WindowDays = defaults.WindowDays
	}
	if config.DefaultHours <= 0 {
		config.DefaultHours = defaults.DefaultHours
	}
	return &ReminderServiceImpl{store: store, clock: clk, config: config}
}

// DaysRemaining counts whole days until due, rounding partial days away
// from zero: anything due later today is 1, anything already past is at
// most -1, and only due == now yields 0.
func DaysRemaining(due, now time.Time) int {
	diff := due.Sub(now)
	switch {
	case diff == 0:
		return 0
	case diff > 0:
		return int((diff + day - 1) / day)
	default:
		return -int((-diff + day - 1) / day)
	}
}

func LabelFor(daysRemaining int) models.ReminderLabel {
	switch {
	case daysRemaining < 0:
		return models.LabelOverdue
	case daysRemaining == 0:
		return models.LabelDueToday
	}
	return models.LabelUpcoming
}

// suppressed reports whether an overlay hides the reminder at now.
func suppressed(overlay *models.TaskReminder, now time.Time) bool {
	if overlay == nil {
		return false
	}
	switch overlay.Status {
	case models.ReminderDismissed:
		return true
	case models.ReminderSnoozed:
		return overlay.SnoozeUntil != nil && now.Before(*overlay.SnoozeUntil)
	}
	return false
}

// ProjectReminders computes the visible reminders for userID from its
// candidate tasks and overlays. It does not touch storage.
func ProjectReminders(userID uuid.UUID, tasks []models.Task, overlays []models.TaskReminder, now time.Time, window time.Duration) []models.Reminder {
	byTask := make(map[uuid.UUID]*models.TaskReminder, len(overlays))
	for i := range overlays {
		if overlays[i].UserID == userID {
			byTask[overlays[i].TaskID] = &overlays[i]
		}
	}

	horizon := now.Add(window)
	reminders := make([]models.Reminder, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		if t.IsDeleted || !t.IsAssignee(userID) || t.Status == models.StatusDone || t.DueDate == nil {
			continue
		}
		if t.DueDate.After(horizon) {
			continue
		}
		if suppressed(byTask[t.ID], now) {
			continue
		}

		days := DaysRemaining(*t.DueDate, now)
		reminders = append(reminders, models.Reminder{
			TaskID:         t.ID,
			Title:          t.Title,
			DueDate:        *t.DueDate,
			DaysRemaining:  days,
			Status:         LabelFor(days),
			OriginalStatus: t.Status,
			Priority:       t.Priority,
		})
	}

	sort.SliceStable(reminders, func(i, j int) bool {
		return reminders[i].DueDate.Before(reminders[j].DueDate)
	})
	return reminders
}

func (s *ReminderServiceImpl) window() time.Duration {
	return time.Duration(s.config.WindowDays) * day
}

func (s *ReminderServiceImpl) ListReminders(ctx context.Context, p models.Principal) ([]models.Reminder, error) {
	now := s.clock.Now()
	horizon := now.Add(s.window())
	done := models.StatusDone

	tasks, err := s.store.ListTasks(ctx, models.TaskFilter{
		AssigneeID:    &p.ID,
		StatusNot:     &done,
		DueOnOrBefore: &horizon,
		OrderBy:       models.OrderDueAsc,
	})
	if err != nil {
		return nil, storeErr(err, "task")
	}
	if len(tasks) == 0 {
		return []models.Reminder{}, nil
	}

	ids := make([]uuid.UUID, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
	}
	overlays, err := s.store.ListReminders(ctx, p.ID, ids)
	if err != nil {
		return nil, storeErr(err, "reminder")
	}

	return ProjectReminders(p.ID, tasks, overlays, now, s.window()), nil
}

// checkTask requires the task to exist. Overlays on soft-deleted tasks are
// accepted since they never surface.
func (s *ReminderServiceImpl) checkTask(ctx context.Context, taskID uuid.UUID) error {
	if taskID == uuid.Nil {
		return apperr.Validation("taskId is required")
	}
	_, err := s.store.GetTask(ctx, taskID)
	return storeErr(err, "task")
}

func (s *ReminderServiceImpl) Dismiss(ctx context.Context, p models.Principal, taskID uuid.UUID) (*models.TaskReminder, error) {
	if err := s.checkTask(ctx, taskID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	overlay := &models.TaskReminder{
		TaskID:    taskID,
		UserID:    p.ID,
		Status:    models.ReminderDismissed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.UpsertReminder(ctx, overlay); err != nil {
		return nil, storeErr(err, "reminder")
	}
	return overlay, nil
}

// Snooze hides the reminder for hours; non-positive hours use the default.
func (s *ReminderServiceImpl) Snooze(ctx context.Context, p models.Principal, taskID uuid.UUID, hours int) (*models.TaskReminder, error) {
	if err := s.checkTask(ctx, taskID); err != nil {
		return nil, err
	}
	if hours <= 0 {
		hours = s.config.DefaultHours
	}

	now := s.clock.Now()
	until := now.Add(time.Duration(hours) * time.Hour)
	overlay := &models.TaskReminder{
		TaskID:      taskID,
		UserID:      p.ID,
		Status:      models.ReminderSnoozed,
		SnoozeUntil: &until,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.UpsertReminder(ctx, overlay); err != nil {
		return nil, storeErr(err, "reminder")
	}
	return overlay, nil
}
