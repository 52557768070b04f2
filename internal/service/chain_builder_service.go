package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-approval-chains/internal/approval"
	"github.com/pesio-ai/be-approval-chains/internal/errors"
	"github.com/pesio-ai/be-approval-chains/internal/logger"
	"github.com/pesio-ai/be-approval-chains/internal/orggraph"
)

// ChainBuilder derives approval chains from the org graph and the request
// type's policy. It holds no mutable state; Build may run concurrently.
type ChainBuilder struct {
	graphs     *orggraph.Holder
	policies   map[approval.RequestType]Policy
	classifier *RoleClassifier
	fallback   *FallbackProvider
	log        *logger.Logger
	now        func() time.Time
}

// NewChainBuilder creates a new ChainBuilder.
func NewChainBuilder(
	graphs *orggraph.Holder,
	policies map[approval.RequestType]Policy,
	classifier *RoleClassifier,
	fallback *FallbackProvider,
	log *logger.Logger,
) *ChainBuilder {
	return &ChainBuilder{
		graphs:     graphs,
		policies:   policies,
		classifier: classifier,
		fallback:   fallback,
		log:        log.Component("chain_builder"),
		now:        time.Now,
	}
}

// Policy returns the policy for a request type.
func (b *ChainBuilder) Policy(t approval.RequestType) (Policy, bool) {
	p, ok := b.policies[t]
	return p, ok
}

// Build returns a chain that passes ValidateChain. When the requester is
// unknown, sits at the root, or the assembled chain is invalid, the fallback
// chain is returned instead. The only error is an unknown request type.
func (b *ChainBuilder) Build(requesterID string, t approval.RequestType, meta approval.RequestMetadata) (approval.ApprovalChain, error) {
	policy, ok := b.policies[t]
	if !ok {
		return approval.ApprovalChain{}, errors.InvalidInput("request_type", fmt.Sprintf("no policy for request type %q", t))
	}

	g := b.graphs.Current()
	requester, found := g.FindByIdentity(requesterID)
	if !found {
		return b.useFallback(t, meta, FallbackNotFound, requesterID)
	}

	path := g.UpwardPath(requester.Identity)
	if policy.StopAtAnchor {
		path = truncateAt(path, policy.Anchor.Identity)
	}
	if len(path) == 0 {
		return b.useFallback(t, meta, FallbackEmptyPath, requester.Identity)
	}

	anchorID := policy.Anchor.Identity
	seen := make(map[string]bool, len(path)+len(policy.MandatoryInsertions)+1)
	steps := make([]approval.ApprovalStep, 0, len(path)+len(policy.MandatoryInsertions)+1)

	// Organizational path: the anchor is dropped here and appended last.
	for _, e := range path {
		if e.Identity == anchorID || seen[e.Identity] {
			continue
		}
		seen[e.Identity] = true
		level := len(steps) + 1
		steps = append(steps, approval.ApprovalStep{
			Level: level,
			Approver: approval.Approver{
				Name:       e.Name,
				Identity:   e.Identity,
				Role:       b.classifier.Classify(e, level),
				Department: e.Department,
			},
			Status: approval.StepPending,
		})
	}

	insert := func(ins Insertion) {
		a, ok := resolveInsertion(g, ins, requester.Identity)
		if !ok {
			b.log.Debug().
				Str("request_type", string(t)).
				Str("role", string(ins.Role)).
				Str("requester_id", requester.Identity).
				Msg("insertion has no eligible approver; skipped")
			return
		}
		if a.Identity == anchorID || seen[a.Identity] {
			return
		}
		seen[a.Identity] = true
		steps = append(steps, approval.ApprovalStep{
			Level:    len(steps) + 1,
			Approver: a,
			Status:   approval.StepPending,
		})
	}
	for _, ins := range policy.ConditionalInsertions {
		if ins.When.Matches(meta) {
			insert(ins)
		}
	}
	for _, ins := range policy.MandatoryInsertions {
		insert(ins)
	}

	steps = append(steps, approval.ApprovalStep{
		Level:    len(steps) + 1,
		Approver: resolveParticipant(g, policy.Anchor),
		Status:   approval.StepPending,
	})

	chain := approval.ApprovalChain{
		ID:          uuid.NewString(),
		RequestType: t,
		AnchorRole:  policy.Anchor.Role,
		Steps:       steps,
		BuiltAt:     b.now().UTC(),
	}

	if v := ValidateChain(chain); !v.Valid {
		b.log.Warn().
			Str("request_type", string(t)).
			Str("requester_id", requester.Identity).
			Str("violation", string(v.Violation)).
			Str("reason", v.Reason).
			Msg("assembled chain failed validation")
		return b.useFallback(t, meta, FallbackInvalidChain, requester.Identity)
	}

	b.log.Debug().
		Str("request_type", string(t)).
		Str("requester_id", requester.Identity).
		Int("levels", chain.Len()).
		Msg("approval chain built")
	return chain, nil
}

func (b *ChainBuilder) useFallback(t approval.RequestType, meta approval.RequestMetadata, reason FallbackReason, requesterID string) (approval.ApprovalChain, error) {
	b.fallback.record(t, reason, requesterID)
	return b.fallback.Fallback(t, meta, requesterID)
}

// truncateAt cuts path after the anchor identity, keeping the anchor itself.
func truncateAt(path []orggraph.Employee, anchorID string) []orggraph.Employee {
	for i, e := range path {
		if e.Identity == anchorID {
			return path[:i+1]
		}
	}
	return path
}
