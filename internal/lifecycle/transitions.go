package lifecycle

// transitionMap lists, per current status, the statuses a grievance may move
// to next. Escalated, Rejected and Spam are reachable from every active
// state; Pending Verification may fall back to In Progress when verification
// fails, and a Resolved grievance may be reopened.
var transitionMap = map[Status][]Status{
	StatusNew:                 {StatusAssigned, StatusEscalated, StatusRejected, StatusSpam},
	StatusAssigned:            {StatusInProgress, StatusEscalated, StatusRejected, StatusSpam},
	StatusInProgress:          {StatusPendingVerification, StatusEscalated, StatusRejected, StatusSpam},
	StatusPendingVerification: {StatusResolved, StatusInProgress, StatusEscalated},
	StatusResolved:            {StatusClosed, StatusInProgress},
	StatusEscalated:           {StatusAssigned, StatusInProgress, StatusRejected, StatusSpam},
	StatusClosed:              {},
	StatusRejected:            {},
	StatusSpam:                {},
}

// CanTransition reports whether a grievance may move from one status to
// another. A same-status update is not a transition.
func CanTransition(from, to Status) bool {
	if from == to {
		return false
	}
	allowed, ok := transitionMap[from]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func Terminal(s Status) bool {
	return len(transitionMap[s]) == 0
}
