package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hrmspro/backend/internal/services"
)

type DashboardHandler struct {
	dashboardService services.DashboardService
}

func NewDashboardHandler(dashboardService services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) OperatorDashboard(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	dashboard, err := h.dashboardService.OperatorDashboard(c.Request.Context(), p)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (h *DashboardHandler) EmployeePerformance(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	performance, err := h.dashboardService.EmployeePerformance(c.Request.Context(), p, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, performance)
}

func (h *DashboardHandler) CompletedTasks(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	tasks, err := h.dashboardService.CompletedTasks(c.Request.Context(), p, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": len(tasks),
	})
}

func (h *DashboardHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/dashboard", h.OperatorDashboard)
	rg.GET("/employees/:id/performance", h.EmployeePerformance)
	rg.GET("/employees/:id/completed", h.CompletedTasks)
}
