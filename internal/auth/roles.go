// Package auth implements portal sign-in: credential verification against
// the remote profile store, authoritative role resolution, and JWT session
// issuance.
package auth

// Role is a portal role as stored on the profile row.
type Role string

const (
	RolePatient   Role = "patient"
	RoleDoctor    Role = "doctor"
	RoleClinician Role = "clinician"
	RoleAdmin     Role = "admin"
)

// Permission is a named capability granted to a role.
type Permission string

const (
	PermViewOwnRecords    Permission = "records:view:own"
	PermViewPatientRecord Permission = "records:view:patient"
	PermCreateReport      Permission = "reports:create"
	PermBookAppointment   Permission = "appointments:book"
	PermManageAppointment Permission = "appointments:manage"
	PermSendMessage       Permission = "messages:send"
	PermRunTraining       Permission = "admin:training"
	PermViewAnalytics     Permission = "admin:analytics"
	PermManageUsers       Permission = "admin:users"
	PermQueryAudit        Permission = "admin:audit"
)

// RolePermissions maps each role to its capabilities.
var RolePermissions = map[Role][]Permission{
	RolePatient: {
		PermViewOwnRecords,
		PermBookAppointment,
		PermSendMessage,
	},
	RoleDoctor: {
		PermViewOwnRecords,
		PermViewPatientRecord,
		PermCreateReport,
		PermManageAppointment,
		PermSendMessage,
	},
	RoleClinician: {
		PermViewOwnRecords,
		PermViewPatientRecord,
		PermManageAppointment,
		PermSendMessage,
	},
	RoleAdmin: {
		PermViewOwnRecords,
		PermManageUsers,
		PermRunTraining,
		PermViewAnalytics,
		PermQueryAudit,
	},
}

// HasPermission reports whether the role grants the permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// ValidRole reports whether the string names a portal role.
func ValidRole(s string) bool {
	switch Role(s) {
	case RolePatient, RoleDoctor, RoleClinician, RoleAdmin:
		return true
	}
	return false
}
