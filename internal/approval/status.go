package approval

// RequestStatus is the overall status of a request, derived from its chain.
type RequestStatus string

const (
	StatusPendingSupervisor       RequestStatus = "pending_supervisor"
	StatusPendingDepartmentalHead RequestStatus = "pending_departmental_head"
	StatusPendingFinance          RequestStatus = "pending_finance"
	StatusPendingHeadOfBusiness   RequestStatus = "pending_head_of_business"
	StatusPendingITApproval       RequestStatus = "pending_it_approval"
	StatusPendingHR               RequestStatus = "pending_hr"
	StatusPendingProcurement      RequestStatus = "pending_procurement"
	StatusPendingApproval         RequestStatus = "pending_approval"

	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// IsTerminal reports whether no further transitions are accepted.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s RequestStatus) String() string {
	return string(s)
}

// StepStatus is the state of a single chain level.
type StepStatus string

const (
	StepPending  StepStatus = "pending"
	StepApproved StepStatus = "approved"
	StepRejected StepStatus = "rejected"
)

// Decision is an approver's verdict on a level.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// IsValid reports whether d is approve or reject.
func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// DeriveStatus recomputes the overall status from the chain's step states.
// A rejected step anywhere is terminal; otherwise the first pending level
// decides, and a chain with no pending level is approved. A chain with no
// steps never counts as approved; it reports the generic pending status.
func DeriveStatus(c ApprovalChain) RequestStatus {
	if len(c.Steps) == 0 {
		return StatusPendingApproval
	}
	for _, s := range c.Steps {
		if s.Status == StepRejected {
			return StatusRejected
		}
	}
	level := CurrentLevel(c)
	if level == 0 {
		return StatusApproved
	}
	return StatusAt(c, level)
}

// StatusAt returns the pending status for the given level, or approved when
// the level is past the end of the chain.
func StatusAt(c ApprovalChain, level int) RequestStatus {
	step, ok := c.StepAt(level)
	if !ok {
		return StatusApproved
	}
	return step.Approver.Role.PendingStatus()
}

// CurrentLevel returns the first pending level, or 0 when none remains.
func CurrentLevel(c ApprovalChain) int {
	for _, s := range c.Steps {
		if s.Status == StepPending {
			return s.Level
		}
	}
	return 0
}
