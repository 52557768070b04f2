package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-approval-chains/internal/approval"
	"github.com/pesio-ai/be-approval-chains/internal/errors"
	"github.com/pesio-ai/be-approval-chains/internal/logger"
)

// RequestStore persists requests and their audit trail. Update must reject a
// write whose expectedVersion does not match the stored version with a
// Conflict error; that check is what serializes decisions on one request.
type RequestStore interface {
	Create(ctx context.Context, req *approval.Request) error
	GetByID(ctx context.Context, id string) (*approval.Request, error)
	Update(ctx context.Context, req *approval.Request, expectedVersion int) error
	ListPendingFor(ctx context.Context, identity string) ([]*approval.Request, error)
	AppendAudit(ctx context.Context, entry *approval.AuditEntry) error
	History(ctx context.Context, requestID string) ([]*approval.AuditEntry, error)
}

// NotificationDispatcher is told about every state transition. Delivery
// failures are the dispatcher's concern and never reach the caller.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, recipient string, status approval.RequestStatus, req *approval.Request)
}

// ApprovalService orchestrates submission and decisions over the engine and
// its collaborators.
type ApprovalService struct {
	builder  *ChainBuilder
	machine  *ApprovalStateMachine
	store    RequestStore
	notifier NotificationDispatcher
	log      *logger.Logger
	now      func() time.Time
}

// NewApprovalService creates a new ApprovalService.
func NewApprovalService(
	builder *ChainBuilder,
	machine *ApprovalStateMachine,
	store RequestStore,
	notifier NotificationDispatcher,
	log *logger.Logger,
) *ApprovalService {
	return &ApprovalService{
		builder:  builder,
		machine:  machine,
		store:    store,
		notifier: notifier,
		log:      log.Component("approval_service"),
		now:      time.Now,
	}
}

// SubmitRequest is the input to Submit.
type SubmitRequest struct {
	Type        approval.RequestType
	RequesterID string
	Metadata    approval.RequestMetadata
}

// DecideRequest is the input to Decide.
type DecideRequest struct {
	RequestID string
	Level     int
	Decision  approval.Decision
	ActorID   string
	Comments  string
}

// ── Submission ────────────────────────────────────────────────────────────────

// Submit builds the chain for a new request, stores it and notifies the
// first approver.
func (s *ApprovalService) Submit(ctx context.Context, in SubmitRequest) (*approval.Request, error) {
	if in.RequesterID == "" {
		return nil, errors.InvalidInput("requester_id", "requester is required")
	}
	chain, err := s.builder.Build(in.RequesterID, in.Type, in.Metadata)
	if err != nil {
		return nil, err
	}
	status, err := s.machine.Initial(chain)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	req := &approval.Request{
		ID:          uuid.NewString(),
		Type:        in.Type,
		RequesterID: in.RequesterID,
		Metadata:    in.Metadata,
		Chain:       chain,
		Status:      status,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("request_id", req.ID).
		Str("request_type", string(req.Type)).
		Str("status", string(req.Status)).
		Int("levels", chain.Len()).
		Bool("fallback", chain.Fallback).
		Msg("approval request submitted")

	s.appendAudit(ctx, &approval.AuditEntry{
		RequestID:   req.ID,
		Action:      "submitted",
		PerformedBy: in.RequesterID,
		PerformedAt: now,
		StatusAfter: req.Status,
		Metadata: map[string]string{
			"chain_id": chain.ID,
			"fallback": strconv.FormatBool(chain.Fallback),
		},
	})
	s.notifyCurrent(ctx, req)
	return req, nil
}

// ── Decisions ─────────────────────────────────────────────────────────────────

// Decide applies one approver decision. Rejected actions leave the stored
// request untouched. A consistency fault is persisted as approved and the
// fault error is returned alongside the updated request.
func (s *ApprovalService) Decide(ctx context.Context, in DecideRequest) (*approval.Request, error) {
	req, err := s.store.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}

	outcome, decideErr := s.machine.Decide(req.Chain, in.Level, in.Decision, in.ActorID, in.Comments)
	if decideErr != nil && !errors.IsCode(decideErr, errors.ErrCodeChainConsistencyFault) {
		s.log.Info().
			Str("request_id", req.ID).
			Int("level", in.Level).
			Str("actor_id", in.ActorID).
			Str("code", string(errors.CodeOf(decideErr))).
			Msg("decision refused")
		return nil, decideErr
	}

	before := req.Status
	updated := *req
	updated.Chain = outcome.Chain
	updated.Status = outcome.Status
	updated.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, &updated, req.Version); err != nil {
		return nil, err
	}

	action := "approved"
	if in.Decision == approval.DecisionReject {
		action = "rejected"
	}
	s.appendAudit(ctx, &approval.AuditEntry{
		RequestID:    updated.ID,
		Action:       action,
		PerformedBy:  in.ActorID,
		PerformedAt:  updated.UpdatedAt,
		Level:        in.Level,
		StatusBefore: before,
		StatusAfter:  updated.Status,
		Metadata:     map[string]string{"comments": in.Comments},
	})

	s.log.Info().
		Str("request_id", updated.ID).
		Int("level", in.Level).
		Str("action", action).
		Str("status_before", string(before)).
		Str("status_after", string(updated.Status)).
		Msg("approval decision applied")

	if updated.Status.IsTerminal() {
		s.notify(ctx, updated.RequesterID, &updated)
	} else {
		s.notifyCurrent(ctx, &updated)
	}
	return &updated, decideErr
}

// ── Rebuild ───────────────────────────────────────────────────────────────────

// Rebuild replaces a request's chain with a freshly built one, carrying
// decisions forward onto levels held by the same approver. The new chain is
// complete before it is swapped in with a single versioned update.
func (s *ApprovalService) Rebuild(ctx context.Context, requestID, actorID string) (*approval.Request, error) {
	req, err := s.store.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("request %s is already %s", req.ID, req.Status))
	}

	fresh, err := s.builder.Build(req.RequesterID, req.Type, req.Metadata)
	if err != nil {
		return nil, err
	}
	rebuilt := CarryForward(req.Chain, fresh)

	before := req.Status
	updated := *req
	updated.Chain = rebuilt
	updated.Status = approval.DeriveStatus(rebuilt)
	updated.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, &updated, req.Version); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, &approval.AuditEntry{
		RequestID:    updated.ID,
		Action:       "rebuilt",
		PerformedBy:  actorID,
		PerformedAt:  updated.UpdatedAt,
		StatusBefore: before,
		StatusAfter:  updated.Status,
		Metadata: map[string]string{
			"previous_chain_id": req.Chain.ID,
			"chain_id":          rebuilt.ID,
		},
	})
	if updated.Status != before {
		s.notifyCurrent(ctx, &updated)
	}
	return &updated, nil
}

// CarryForward copies decisions from prev onto next for the unbroken run of
// levels, starting at level 1, that keep the same approver identity. The
// first level that changed approver or is still pending ends the run, so no
// decided level ever follows a pending one.
func CarryForward(prev, next approval.ApprovalChain) approval.ApprovalChain {
	out := next.Clone()
	for i, step := range out.Steps {
		old, ok := prev.StepAt(step.Level)
		if !ok || old.Status == approval.StepPending || old.Approver.Identity != step.Approver.Identity {
			break
		}
		out.Steps[i].Status = old.Status
		out.Steps[i].Comments = old.Comments
		out.Steps[i].DecidedBy = old.DecidedBy
		if old.DecidedAt != nil {
			t := *old.DecidedAt
			out.Steps[i].DecidedAt = &t
		}
	}
	return out
}

// ── Query helpers ─────────────────────────────────────────────────────────────

// GetRequest returns a stored request.
func (s *ApprovalService) GetRequest(ctx context.Context, requestID string) (*approval.Request, error) {
	return s.store.GetByID(ctx, requestID)
}

// PendingFor returns requests currently waiting on identity.
func (s *ApprovalService) PendingFor(ctx context.Context, identity string) ([]*approval.Request, error) {
	return s.store.ListPendingFor(ctx, identity)
}

// History returns the audit trail for a request, oldest first.
func (s *ApprovalService) History(ctx context.Context, requestID string) ([]*approval.AuditEntry, error) {
	return s.store.History(ctx, requestID)
}

// ── Internal helpers ──────────────────────────────────────────────────────────

// appendAudit writes an audit entry and logs a warning on failure (never returns error).
func (s *ApprovalService) appendAudit(ctx context.Context, entry *approval.AuditEntry) {
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("request_id", entry.RequestID).
			Str("action", entry.Action).
			Msg("Failed to write audit log entry")
	}
}

func (s *ApprovalService) notifyCurrent(ctx context.Context, req *approval.Request) {
	step, ok := req.Chain.StepAt(approval.CurrentLevel(req.Chain))
	if !ok {
		return
	}
	s.notify(ctx, step.Approver.Identity, req)
}

func (s *ApprovalService) notify(ctx context.Context, recipient string, req *approval.Request) {
	if s.notifier == nil || recipient == "" {
		return
	}
	s.notifier.Dispatch(ctx, recipient, req.Status, req)
}
