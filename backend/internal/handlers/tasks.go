package handlers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hrmspro/backend/internal/apperr"
	"hrmspro/backend/internal/models"
	"hrmspro/backend/internal/services"
)

type TaskHandler struct {
	taskService services.TaskService
}

func NewTaskHandler(taskService services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// taskPayload is accepted as JSON or as multipart form fields alongside
// an optional "file" part.
type taskPayload struct {
	Title         *string `json:"title" form:"title"`
	Notes         *string `json:"notes" form:"notes"`
	Priority      *string `json:"priority" form:"priority"`
	DueDate       *string `json:"dueDate" form:"dueDate"`
	ClearDueDate  bool    `json:"clearDueDate" form:"clearDueDate"`
	AssignedHours *int    `json:"assignedHours" form:"assignedHours"`
	AssigneeID    *string `json:"assigneeId" form:"assigneeId"`
	EmployeeID    *string `json:"employeeId" form:"employeeId"`
}

func (p taskPayload) assignee() (services.AssigneeRef, error) {
	userID, err := optionalUUID("assigneeId", p.AssigneeID)
	if err != nil {
		return services.AssigneeRef{}, err
	}
	employeeID, err := optionalUUID("employeeId", p.EmployeeID)
	if err != nil {
		return services.AssigneeRef{}, err
	}
	return services.AssigneeRef{UserID: userID, EmployeeID: employeeID}, nil
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

// formFile opens the "file" part when present. The returned closer is
// never nil.
func formFile(c *gin.Context) (*services.FileUpload, func(), error) {
	noop := func() {}
	if !isMultipart(c) {
		return nil, noop, nil
	}
	header, err := c.FormFile("file")
	if err == http.ErrMissingFile {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, apperr.Validation("invalid file upload")
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*services.FileUpload, func(), error) {
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, apperr.Validation("could not read uploaded file")
	}
	return &services.FileUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        f,
	}, func() { f.Close() }, nil
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var payload taskPayload
	if err := c.ShouldBind(&payload); err != nil {
		bindError(c, err)
		return
	}

	in := services.CreateTaskInput{Notes: payload.Notes, AssignedHours: payload.AssignedHours}
	if payload.Title != nil {
		in.Title = *payload.Title
	}
	if payload.Priority != nil {
		priority := models.Priority(strings.ToUpper(*payload.Priority))
		in.Priority = &priority
	}
	var err error
	if in.DueDate, err = parseDate("dueDate", payload.DueDate); err != nil {
		handleError(c, err)
		return
	}
	if in.Assignee, err = payload.assignee(); err != nil {
		handleError(c, err)
		return
	}

	file, closeFile, err := formFile(c)
	if err != nil {
		handleError(c, err)
		return
	}
	defer closeFile()
	in.File = file

	task, err := h.taskService.CreateTask(c.Request.Context(), p, in)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var payload taskPayload
	if err := c.ShouldBind(&payload); err != nil {
		bindError(c, err)
		return
	}

	in := services.UpdateTaskInput{
		Title:         payload.Title,
		Notes:         payload.Notes,
		ClearDueDate:  payload.ClearDueDate,
		AssignedHours: payload.AssignedHours,
	}
	var err error
	if in.DueDate, err = parseDate("dueDate", payload.DueDate); err != nil {
		handleError(c, err)
		return
	}
	if in.Assignee, err = payload.assignee(); err != nil {
		handleError(c, err)
		return
	}

	file, closeFile, err := formFile(c)
	if err != nil {
		handleError(c, err)
		return
	}
	defer closeFile()
	in.File = file

	task, err := h.taskService.UpdateTask(c.Request.Context(), p, id, in)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), p, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

var taskOrders = map[string]models.TaskOrder{
	"":        models.OrderCreatedDesc,
	"created": models.OrderCreatedDesc,
	"due":     models.OrderDueAsc,
	"updated": models.OrderUpdatedDesc,
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var filter models.TaskFilter
	if s := c.Query("status"); s != "" {
		status, valid := models.ParseTaskStatus(s)
		if !valid {
			handleError(c, apperr.Validation("invalid status %q", s))
			return
		}
		filter.Status = &status
	}
	order, valid := taskOrders[c.Query("sortBy")]
	if !valid {
		handleError(c, apperr.Validation("sortBy must be one of created, due, updated"))
		return
	}
	filter.OrderBy = order

	var err error
	assignee := c.Query("assigneeId")
	if filter.AssigneeID, err = optionalUUID("assigneeId", &assignee); err != nil {
		handleError(c, err)
		return
	}
	dueBefore := c.Query("dueBefore")
	if filter.DueOnOrBefore, err = parseDate("dueBefore", &dueBefore); err != nil {
		handleError(c, err)
		return
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), p, filter)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": len(tasks),
	})
}

func (h *TaskHandler) SetStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := h.taskService.SetStatus(c.Request.Context(), p, id, models.TaskStatus(strings.ToUpper(req.Status)))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) SetPriority(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Priority string `json:"priority" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := h.taskService.SetPriority(c.Request.Context(), p, id, models.Priority(strings.ToUpper(req.Priority)))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) TransferTask(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var payload taskPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		bindError(c, err)
		return
	}
	to, err := payload.assignee()
	if err != nil {
		handleError(c, err)
		return
	}
	if to.IsZero() {
		handleError(c, apperr.Validation("assigneeId or employeeId is required"))
		return
	}

	task, err := h.taskService.TransferTask(c.Request.Context(), p, id, to)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.DeleteTask(c.Request.Context(), p, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task deleted", "task": task})
}

func (h *TaskHandler) UploadOperatorFile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	file, closeFile, err := formFile(c)
	if err != nil {
		handleError(c, err)
		return
	}
	defer closeFile()
	if file == nil {
		handleError(c, apperr.Validation("file is required"))
		return
	}

	task, err := h.taskService.AttachOperatorFile(c.Request.Context(), p, id, *file)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) WorkSummary(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	summary, err := h.taskService.WorkSummary(c.Request.Context(), p, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *TaskHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tasks := rg.Group("/tasks")
	tasks.POST("", h.CreateTask)
	tasks.GET("", h.ListTasks)
	tasks.GET("/:id", h.GetTask)
	tasks.PUT("/:id", h.UpdateTask)
	tasks.DELETE("/:id", h.DeleteTask)
	tasks.PATCH("/:id/status", h.SetStatus)
	tasks.PATCH("/:id/priority", h.SetPriority)
	tasks.POST("/:id/transfer", h.TransferTask)
	tasks.POST("/:id/upload", h.UploadOperatorFile)
	tasks.GET("/:id/work-summary", h.WorkSummary)
}
