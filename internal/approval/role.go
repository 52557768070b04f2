package approval

import (
	"fmt"
	"strings"
)

// RoleLabel is the closed set of roles a chain step can hold.
type RoleLabel string

const (
	RoleSupervisor     RoleLabel = "supervisor"
	RoleDepartmentHead RoleLabel = "department_head"
	RoleFinanceOfficer RoleLabel = "finance_officer"
	RoleBusinessHead   RoleLabel = "business_head"
	RoleITDepartment   RoleLabel = "it_department"
	RoleHumanResources RoleLabel = "human_resources"
	RoleProcurement    RoleLabel = "procurement"
	// RoleApprover is the generic positional role for levels beyond the second.
	RoleApprover RoleLabel = "approver"
)

var knownRoles = map[RoleLabel]RequestStatus{
	RoleSupervisor:     StatusPendingSupervisor,
	RoleDepartmentHead: StatusPendingDepartmentalHead,
	RoleFinanceOfficer: StatusPendingFinance,
	RoleBusinessHead:   StatusPendingHeadOfBusiness,
	RoleITDepartment:   StatusPendingITApproval,
	RoleHumanResources: StatusPendingHR,
	RoleProcurement:    StatusPendingProcurement,
	RoleApprover:       StatusPendingApproval,
}

// ParseRole converts a configured role key into a RoleLabel.
func ParseRole(s string) (RoleLabel, error) {
	r := RoleLabel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownRoles[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// IsValid reports whether r belongs to the closed role set.
func (r RoleLabel) IsValid() bool {
	_, ok := knownRoles[r]
	return ok
}

func (r RoleLabel) String() string {
	return string(r)
}

// PendingStatus returns the status a request holds while waiting on r.
func (r RoleLabel) PendingStatus() RequestStatus {
	if s, ok := knownRoles[r]; ok {
		return s
	}
	return StatusPendingApproval
}
