// Package rbac maps user roles to the lifecycle operations they may perform.
// Ownership checks (own grievance, assigned grievance) belong to the service
// layer; this package only answers "may this role ever do this".
package rbac

type Role string
type Action string

const (
	RoleCitizen      Role = "Citizen"
	RoleFieldOfficer Role = "FieldOfficer"
	RoleAdmin        Role = "Admin"
	RoleZonalOfficer Role = "ZonalOfficer"
	RolePolicyMaker  Role = "PolicyMaker"
	RoleAuditor      Role = "Auditor"
)

const (
	ActionRead         Action = "read"
	ActionSubmit       Action = "submit"
	ActionFeedback     Action = "feedback"
	ActionUpdateStatus Action = "update_status"
	ActionResolve      Action = "resolve"
	ActionAssign       Action = "assign"
	ActionVerify       Action = "verify"
	ActionViewReports  Action = "view_reports"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleCitizen:
		return action == ActionRead || action == ActionSubmit || action == ActionFeedback
	case RoleFieldOfficer:
		return action == ActionRead || action == ActionUpdateStatus || action == ActionResolve
	case RoleZonalOfficer, RolePolicyMaker, RoleAuditor:
		// Read-only oversight roles.
		return action == ActionRead || action == ActionViewReports
	default:
		return false
	}
}

// Staff reports whether the role belongs to government staff rather than a
// citizen. Staff may list and read grievances beyond their own.
func Staff(role Role) bool {
	switch role {
	case RoleFieldOfficer, RoleAdmin, RoleZonalOfficer, RolePolicyMaker, RoleAuditor:
		return true
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleCitizen, RoleFieldOfficer, RoleAdmin, RoleZonalOfficer, RolePolicyMaker, RoleAuditor:
		return Role(role)
	default:
		return RoleCitizen
	}
}
