package authz

import (
	"github.com/gofrs/uuid"

	"hrmspro/backend/internal/apperr"
	"hrmspro/backend/internal/models"
)

type Decision struct {
	Allowed bool
	Reason  string
}

var allow = Decision{Allowed: true}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Err converts a denial into a FORBIDDEN error, nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperr.Forbidden(d.Reason)
}

func CanCreateTask(p models.Principal) Decision {
	if !p.IsManagement() {
		return deny("only managers can create tasks")
	}
	return allow
}

// CanEditTask covers title, notes, due date, hours, assignee and manager
// file. Any management principal may edit, not only the creator.
func CanEditTask(p models.Principal, t *models.Task) Decision {
	if !p.IsManagement() {
		return deny("only managers can edit tasks")
	}
	return allow
}

func CanViewTask(p models.Principal, t *models.Task) Decision {
	if p.IsManagement() || t.IsCreator(p.ID) || t.IsAssignee(p.ID) {
		return allow
	}
	return deny("not allowed to view this task")
}

// CanSetStatus also gates priority changes and work-summary reads.
func CanSetStatus(p models.Principal, t *models.Task) Decision {
	if p.IsManagement() || t.IsAssignee(p.ID) {
		return allow
	}
	return deny("only a manager or the assignee can change this task")
}

func CanSetPriority(p models.Principal, t *models.Task) Decision {
	return CanSetStatus(p, t)
}

func CanAttachOperatorFile(p models.Principal, t *models.Task) Decision {
	return CanSetStatus(p, t)
}

// CanDeleteTask allows only the management principal who created the task.
func CanDeleteTask(p models.Principal, t *models.Task) Decision {
	if !p.IsManagement() {
		return deny("only managers can delete tasks")
	}
	if !t.IsCreator(p.ID) {
		return deny("not authorized to delete this task")
	}
	return allow
}

func CanTransferTask(p models.Principal) Decision {
	if !p.IsManagement() {
		return deny("only managers can transfer tasks")
	}
	return allow
}

// ScopeTaskList narrows a listing filter to what the principal may see:
// management sees every non-deleted task, operators only their own.
func ScopeTaskList(p models.Principal, f models.TaskFilter) models.TaskFilter {
	f.IncludeDeleted = false
	if !p.IsManagement() {
		id := p.ID
		f.AssigneeID = &id
	}
	return f
}

func CanAccessComments(p models.Principal, t *models.Task) Decision {
	if t.IsCreator(p.ID) || t.IsAssignee(p.ID) {
		return allow
	}
	return deny("only the task's creator or assignee can access comments")
}

// SeenSide resolves which read flag the principal owns on this task. The
// assignee side wins when one user is both creator and assignee.
func SeenSide(p models.Principal, t *models.Task) (models.SeenSide, Decision) {
	switch {
	case t.IsAssignee(p.ID):
		return models.SeenByAssignee, allow
	case t.IsCreator(p.ID):
		return models.SeenByManager, allow
	}
	return "", deny("only the task's creator or assignee can mark comments seen")
}

func CanManageEmployees(p models.Principal) Decision {
	if !p.IsManagement() {
		return deny("only managers can manage employees")
	}
	return allow
}

func CanViewPerformance(p models.Principal) Decision {
	if !p.IsManagement() {
		return deny("only managers can view performance data")
	}
	return allow
}

// CanAssignEmployees is the operator-to-manager assignment, PM only.
func CanAssignEmployees(p models.Principal) Decision {
	if p.Role != models.RoleProjectManager {
		return deny("only project managers can assign employees")
	}
	return allow
}

func CanViewOperatorDashboard(p models.Principal) Decision {
	if p.Role != models.RoleOperator {
		return deny("dashboard is available to operators only")
	}
	return allow
}

// CanViewCompleted lets management, or the employee themself, read an
// employee's completed tasks.
func CanViewCompleted(p models.Principal, employeeUserID uuid.UUID) Decision {
	if p.IsManagement() || p.ID == employeeUserID {
		return allow
	}
	return deny("not allowed to view this employee's tasks")
}
