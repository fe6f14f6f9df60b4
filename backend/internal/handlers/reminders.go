package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hrmspro/backend/internal/services"
)

type ReminderHandler struct {
	reminderService services.ReminderService
}

func NewReminderHandler(reminderService services.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminderService: reminderService}
}

func (h *ReminderHandler) ListReminders(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	reminders, err := h.reminderService.ListReminders(c.Request.Context(), p)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reminders": reminders,
		"total":     len(reminders),
	})
}

func (h *ReminderHandler) Dismiss(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	taskID, ok := uuidParam(c, "taskId")
	if !ok {
		return
	}

	overlay, err := h.reminderService.Dismiss(c.Request.Context(), p, taskID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, overlay)
}

// Snooze takes an optional {"hours": n} body; an empty body uses the
// configured default.
func (h *ReminderHandler) Snooze(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	taskID, ok := uuidParam(c, "taskId")
	if !ok {
		return
	}

	var req struct {
		Hours int `json:"hours"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	overlay, err := h.reminderService.Snooze(c.Request.Context(), p, taskID, req.Hours)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, overlay)
}

func (h *ReminderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reminders := rg.Group("/reminders")
	reminders.GET("", h.ListReminders)
	reminders.POST("/:taskId/dismiss", h.Dismiss)
	reminders.POST("/:taskId/snooze", h.Snooze)
}
