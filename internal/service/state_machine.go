package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/pesio-ai/be-approval-chains/internal/approval"
	"github.com/pesio-ai/be-approval-chains/internal/errors"
	"github.com/pesio-ai/be-approval-chains/internal/logger"
)

// FaultReporter receives consistency faults that need operator attention.
type FaultReporter interface {
	ReportFault(err error, chain approval.ApprovalChain)
}

// Outcome is the result of a decision: the updated chain and overall status.
type Outcome struct {
	Chain  approval.ApprovalChain
	Status approval.RequestStatus
}

// ApprovalStateMachine advances a chain one level per decision. It assumes a
// single writer per chain; callers serialize decisions on the same request.
type ApprovalStateMachine struct {
	reporter FaultReporter
	log      *logger.Logger
	Now      func() time.Time
}

// NewApprovalStateMachine creates a state machine that reports faults to reporter.
func NewApprovalStateMachine(reporter FaultReporter, log *logger.Logger) *ApprovalStateMachine {
	return &ApprovalStateMachine{
		reporter: reporter,
		log:      log.Component("state_machine"),
		Now:      time.Now,
	}
}

func (m *ApprovalStateMachine) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Initial returns the status of a freshly built chain, derived from level 1.
func (m *ApprovalStateMachine) Initial(chain approval.ApprovalChain) (approval.RequestStatus, error) {
	step, ok := chain.StepAt(1)
	if !ok {
		err := errors.New(errors.ErrCodeChainConsistencyFault, "chain has no level 1").
			WithDetail("chain_id", chain.ID)
		m.fault(err, chain)
		return "", err
	}
	return step.Approver.Role.PendingStatus(), nil
}

// Decide applies one approve or reject decision at level. The input chain is
// never modified; on error it should be treated as unchanged.
//
// When approval succeeds but no step exists at level+1, the outcome is the
// terminal approved status together with a ChainConsistencyFault error, and
// the fault is reported.
func (m *ApprovalStateMachine) Decide(
	chain approval.ApprovalChain,
	level int,
	decision approval.Decision,
	actorID string,
	comments string,
) (Outcome, error) {
	if !decision.IsValid() {
		return Outcome{}, errors.InvalidInput("decision", fmt.Sprintf("unknown decision %q", decision))
	}
	idx := -1
	for i, s := range chain.Steps {
		if s.Level == level {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Outcome{}, errors.InvalidInput("level", fmt.Sprintf("no step at level %d", level))
	}
	step := chain.Steps[idx]
	if step.Status != approval.StepPending {
		return Outcome{}, errors.New(errors.ErrCodeAlreadyDecided,
			fmt.Sprintf("level %d is already %s", level, step.Status))
	}
	if current := approval.DeriveStatus(chain); current.IsTerminal() {
		return Outcome{}, errors.New(errors.ErrCodeAlreadyDecided,
			fmt.Sprintf("request is already %s", current))
	}
	for _, s := range chain.Steps[:idx] {
		if s.Status != approval.StepApproved {
			return Outcome{}, errors.New(errors.ErrCodeConflict,
				fmt.Sprintf("level %d is still %s; decisions must follow level order", s.Level, s.Status))
		}
	}
	if !strings.EqualFold(strings.TrimSpace(actorID), step.Approver.Identity) {
		return Outcome{}, errors.New(errors.ErrCodeUnauthorized,
			fmt.Sprintf("actor %s is not the approver for level %d", actorID, level))
	}

	out := Outcome{Chain: chain.Clone()}
	decidedAt := m.now().UTC()
	target := &out.Chain.Steps[idx]
	target.Comments = comments
	target.DecidedAt = &decidedAt
	target.DecidedBy = step.Approver.Identity

	if decision == approval.DecisionReject {
		target.Status = approval.StepRejected
		out.Status = approval.StatusRejected
		return out, nil
	}

	target.Status = approval.StepApproved
	if idx == len(chain.Steps)-1 {
		out.Status = approval.StatusApproved
		return out, nil
	}
	if _, ok := out.Chain.StepAt(level + 1); !ok {
		out.Status = approval.StatusApproved
		err := errors.New(errors.ErrCodeChainConsistencyFault,
			fmt.Sprintf("no step at level %d after approving level %d", level+1, level)).
			WithDetail("chain_id", chain.ID)
		m.fault(err, out.Chain)
		return out, err
	}
	out.Status = approval.DeriveStatus(out.Chain)
	return out, nil
}

func (m *ApprovalStateMachine) fault(err error, chain approval.ApprovalChain) {
	m.log.Error().Err(err).
		Str("chain_id", chain.ID).
		Str("request_type", string(chain.RequestType)).
		Int("levels", chain.Len()).
		Msg("approval chain consistency fault")
	if m.reporter != nil {
		m.reporter.ReportFault(err, chain)
	}
}
