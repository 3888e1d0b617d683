// Package lifecycle defines the grievance status machine: the canonical
// status and priority sets and the transitions a grievance may take.
package lifecycle

type Status string
type Priority string

const (
	StatusNew                 Status = "New"
	StatusAssigned            Status = "Assigned"
	StatusInProgress          Status = "In Progress"
	StatusPendingVerification Status = "Pending Verification"
	StatusResolved            Status = "Resolved"
	StatusClosed              Status = "Closed"
	StatusEscalated           Status = "Escalated"
	StatusRejected            Status = "Rejected"
	StatusSpam                Status = "Spam"
)

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusNew, StatusAssigned, StatusInProgress, StatusPendingVerification,
		StatusResolved, StatusClosed, StatusEscalated, StatusRejected, StatusSpam:
		return true
	default:
		return false
	}
}

func ValidPriority(p string) bool {
	switch Priority(p) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}
