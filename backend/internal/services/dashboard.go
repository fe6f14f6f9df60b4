package services

import (
	"context"
	"math"
	"time"

	"github.com/gofrs/uuid"

	"hrmspro/backend/internal/authz"
	"hrmspro/backend/internal/clock"
	"hrmspro/backend/internal/models"
	"hrmspro/backend/internal/repositories"
	"hrmspro/backend/internal/utils"
)

const trendWeeks = 4

type TrendPoint struct {
	Week string `json:"week"`
	Rate int    `json:"rate"`
}

type TaskStats struct {
	TotalTasks      int          `json:"totalTasks"`
	CompletedTasks  int          `json:"completedTasks"`
	InProgressTasks int          `json:"inProgressTasks"`
	PendingTasks    int          `json:"pendingTasks"`
	StuckTasks      int          `json:"stuckTasks"`
	CompletionRate  int          `json:"completionRate"`
	CompletionTrend []TrendPoint `json:"completionTrend"`
}

type OperatorDashboard struct {
	Tasks []models.Task `json:"tasks"`
	Stats TaskStats     `json:"stats"`
}

type PerformanceStats struct {
	TotalTasks     int     `json:"totalTasks"`
	Completed      int     `json:"completed"`
	Working        int     `json:"working"`
	Stuck          int     `json:"stuck"`
	Todo           int     `json:"todo"`
	CompletionRate int     `json:"completionRate"`
	AssignedHours  int     `json:"assignedHours"`
	LoggedHours    float64 `json:"loggedHours"`
}

type EmployeePerformance struct {
	Employee    models.Employee  `json:"employee"`
	Performance PerformanceStats `json:"performance"`
	Tasks       []models.Task    `json:"tasks"`
}

type DashboardService interface {
	OperatorDashboard(ctx context.Context, p models.Principal) (*OperatorDashboard, error)
	EmployeePerformance(ctx context.Context, p models.Principal, employeeID uuid.UUID) (*EmployeePerformance, error)
	CompletedTasks(ctx context.Context, p models.Principal, employeeID uuid.UUID) ([]models.Task, error)
}

type DashboardServiceImpl struct {
	store repositories.Store
	clock clock.Clock
}

func NewDashboardService(store repositories.Store, clk clock.Clock) *DashboardServiceImpl {
	if clk == nil {
		clk = clock.Real()
	}
	return &DashboardServiceImpl{store: store, clock: clk}
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

func countStatus(tasks []models.Task, status models.TaskStatus) int {
	n := 0
	for i := range tasks {
		if tasks[i].Status == status {
			n++
		}
	}
	return n
}

// completionTrend buckets tasks into the last four 7-day windows ending at
// now by updatedAt. Each window spans start through start+6 days.
func completionTrend(tasks []models.Task, now time.Time) []TrendPoint {
	trend := make([]TrendPoint, 0, trendWeeks)
	for i := trendWeeks - 1; i >= 0; i-- {
		start := now.Add(-time.Duration(7*i) * day)
		end := start.Add(6 * day)

		total, done := 0, 0
		for j := range tasks {
			updated := tasks[j].UpdatedAt
			if updated.Before(start) || updated.After(end) {
				continue
			}
			total++
			if tasks[j].Status == models.StatusDone {
				done++
			}
		}
		trend = append(trend, TrendPoint{Week: utils.WeekLabel(start), Rate: percent(done, total)})
	}
	return trend
}

func (s *DashboardServiceImpl) OperatorDashboard(ctx context.Context, p models.Principal) (*OperatorDashboard, error) {
	if err := authz.CanViewOperatorDashboard(p).Err(); err != nil {
		return nil, err
	}

	assignee := p.ID
	tasks, err := s.store.ListTasks(ctx, models.TaskFilter{AssigneeID: &assignee, OrderBy: models.OrderDueAsc})
	if err != nil {
		return nil, storeErr(err, "tasks")
	}

	completed := countStatus(tasks, models.StatusDone)
	return &OperatorDashboard{
		Tasks: tasks,
		Stats: TaskStats{
			TotalTasks:      len(tasks),
			CompletedTasks:  completed,
			InProgressTasks: countStatus(tasks, models.StatusWorking),
			PendingTasks:    countStatus(tasks, models.StatusTodo),
			StuckTasks:      countStatus(tasks, models.StatusStuck),
			CompletionRate:  percent(completed, len(tasks)),
			CompletionTrend: completionTrend(tasks, s.clock.Now()),
		},
	}, nil
}

func (s *DashboardServiceImpl) EmployeePerformance(ctx context.Context, p models.Principal, employeeID uuid.UUID) (*EmployeePerformance, error) {
	employee, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, storeErr(err, "employee")
	}
	if err := authz.CanViewPerformance(p).Err(); err != nil {
		return nil, err
	}

	assignee := employee.UserID
	tasks, err := s.store.ListTasks(ctx, models.TaskFilter{AssigneeID: &assignee})
	if err != nil {
		return nil, storeErr(err, "tasks")
	}
	logs, err := s.store.ListWorkLogsByUser(ctx, employee.UserID)
	if err != nil {
		return nil, storeErr(err, "work logs")
	}

	now := s.clock.Now()
	var logged time.Duration
	for i := range logs {
		logged += logs[i].Duration(now)
	}
	assigned := 0
	for i := range tasks {
		if tasks[i].AssignedHours != nil {
			assigned += *tasks[i].AssignedHours
		}
	}

	completed := countStatus(tasks, models.StatusDone)
	return &EmployeePerformance{
		Employee: *employee,
		Tasks:    tasks,
		Performance: PerformanceStats{
			TotalTasks:     len(tasks),
			Completed:      completed,
			Working:        countStatus(tasks, models.StatusWorking),
			Stuck:          countStatus(tasks, models.StatusStuck),
			Todo:           countStatus(tasks, models.StatusTodo),
			CompletionRate: percent(completed, len(tasks)),
			AssignedHours:  assigned,
			LoggedHours:    math.Round(logged.Hours()*100) / 100,
		},
	}, nil
}

func (s *DashboardServiceImpl) CompletedTasks(ctx context.Context, p models.Principal, employeeID uuid.UUID) ([]models.Task, error) {
	employee, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, storeErr(err, "employee")
	}
	if err := authz.CanViewCompleted(p, employee.UserID).Err(); err != nil {
		return nil, err
	}

	assignee := employee.UserID
	done := models.StatusDone
	tasks, err := s.store.ListTasks(ctx, models.TaskFilter{AssigneeID: &assignee, Status: &done, OrderBy: models.OrderUpdatedDesc})
	if err != nil {
		return nil, storeErr(err, "tasks")
	}
	return tasks, nil
}
