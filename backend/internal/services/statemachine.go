package services

import "hrmspro/backend/internal/models"

// statusPlan is the bookkeeping a status change requires. Any transition
// is allowed; only WORKING exclusivity and work-log timing are enforced.
type statusPlan struct {
	From models.TaskStatus
	To   models.TaskStatus

	// CheckExclusive asks for no other live WORKING task on the assignee.
	CheckExclusive bool
	// OpenLog starts a new work session.
	OpenLog bool
	// CloseLogs ends every open session for the task and assignee.
	CloseLogs bool
}

func planStatusChange(from, to models.TaskStatus) statusPlan {
	plan := statusPlan{From: from, To: to}
	if to == models.StatusWorking {
		plan.CheckExclusive = true
		// staying in WORKING keeps the running session
		plan.OpenLog = from != models.StatusWorking
		return plan
	}
	// an open session implies WORKING, so leaving it always stops the timer
	plan.CloseLogs = true
	return plan
}
