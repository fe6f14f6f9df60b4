package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hrmspro/backend/internal/apperr"
	"hrmspro/backend/internal/middleware"
	"hrmspro/backend/internal/models"
	"hrmspro/backend/internal/services"
)

type EmployeeHandler struct {
	employeeService services.EmployeeService
}

func NewEmployeeHandler(employeeService services.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{employeeService: employeeService}
}

func (h *EmployeeHandler) CreateOperator(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var in services.CreateOperatorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}

	employee, err := h.employeeService.CreateOperator(c.Request.Context(), p, in)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, employee)
}

func (h *EmployeeHandler) ListTeam(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	team, err := h.employeeService.ListTeam(c.Request.Context(), p)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"employees": team,
		"total":     len(team),
	})
}

func (h *EmployeeHandler) ListNewJoiners(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	joiners, err := h.employeeService.ListNewJoiners(c.Request.Context(), p)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"employees": joiners,
		"total":     len(joiners),
	})
}

func (h *EmployeeHandler) AssignEmployee(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req struct {
		EmployeeID string  `json:"employeeId" binding:"required"`
		ManagerID  string  `json:"managerId" binding:"required"`
		Name       *string `json:"name"`
		Department *string `json:"department"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	employeeID, err := optionalUUID("employeeId", &req.EmployeeID)
	if err != nil {
		handleError(c, err)
		return
	}
	managerID, err := optionalUUID("managerId", &req.ManagerID)
	if err != nil {
		handleError(c, err)
		return
	}
	if employeeID == nil || managerID == nil {
		handleError(c, apperr.Validation("employeeId and managerId are required"))
		return
	}

	employee, err := h.employeeService.AssignEmployee(c.Request.Context(), p, services.AssignEmployeeInput{
		EmployeeID:    *employeeID,
		ManagerUserID: *managerID,
		Name:          req.Name,
		Department:    req.Department,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

func (h *EmployeeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	employees := rg.Group("/employees")
	employees.POST("", h.CreateOperator)
	employees.GET("/team", h.ListTeam)

	assign := rg.Group("/project-manager/employee-assign")
	assign.Use(middleware.RequireRole(models.RoleProjectManager))
	assign.GET("/new-joiners", h.ListNewJoiners)
	assign.POST("", h.AssignEmployee)
}
