package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-approval-chains/internal/approval"
	"github.com/pesio-ai/be-approval-chains/internal/errors"
	"github.com/pesio-ai/be-approval-chains/internal/logger"
	"github.com/pesio-ai/be-approval-chains/internal/orggraph"
)

// FallbackReason records why the fallback chain was used.
type FallbackReason string

const (
	FallbackNotFound     FallbackReason = "not_found"
	FallbackEmptyPath    FallbackReason = "empty_path"
	FallbackInvalidChain FallbackReason = "invalid_chain"
)

// FallbackProvider serves the configured static chain per request type when
// the directory cannot resolve a requester. Every configured chain is
// validated at construction.
type FallbackProvider struct {
	policies map[approval.RequestType]Policy
	graphs   *orggraph.Holder
	log      *logger.Logger
	now      func() time.Time

	mu     sync.Mutex
	counts map[string]uint64
}

// NewFallbackProvider validates every policy's fallback chain. graphs may be
// nil, in which case conditional insertions use only configured display data.
func NewFallbackProvider(policies map[approval.RequestType]Policy, graphs *orggraph.Holder, log *logger.Logger) (*FallbackProvider, error) {
	p := &FallbackProvider{
		policies: policies,
		graphs:   graphs,
		log:      log.Component("fallback"),
		now:      time.Now,
		counts:   make(map[string]uint64),
	}
	for t, policy := range policies {
		if n := len(policy.Fallback); n < 3 || n > 6 {
			return nil, fmt.Errorf("fallback chain for %s must have 3 to 6 steps, got %d", t, n)
		}
		if v := ValidateChain(p.base(policy)); !v.Valid {
			return nil, fmt.Errorf("fallback chain for %s is invalid: %s", t, v.Reason)
		}
	}
	return p, nil
}

// Fallback returns the static chain for the request type, with matching
// conditional insertions placed before the anchor. An insertion never
// resolves to the requester.
func (p *FallbackProvider) Fallback(t approval.RequestType, meta approval.RequestMetadata, requesterID string) (approval.ApprovalChain, error) {
	policy, ok := p.policies[t]
	if !ok {
		return approval.ApprovalChain{}, errors.InvalidInput("request_type", fmt.Sprintf("no policy for request type %q", t))
	}
	base := p.base(policy)

	var g *orggraph.Graph
	if p.graphs != nil {
		g = p.graphs.Current()
	}

	head := base.Steps[:len(base.Steps)-1]
	anchor := base.Steps[len(base.Steps)-1]
	steps := append([]approval.ApprovalStep(nil), head...)
	seen := make(map[string]bool, len(base.Steps))
	for _, s := range base.Steps {
		seen[s.Approver.Identity] = true
	}
	exclude := orggraph.NormalizeIdentity(requesterID)
	for _, ins := range policy.ConditionalInsertions {
		if !ins.When.Matches(meta) {
			continue
		}
		a, ok := resolveInsertion(g, ins, exclude)
		if !ok || seen[a.Identity] {
			continue
		}
		seen[a.Identity] = true
		steps = append(steps, approval.ApprovalStep{Approver: a, Status: approval.StepPending})
	}
	steps = append(steps, anchor)

	chain := base
	chain.Steps = renumber(steps)
	if v := ValidateChain(chain); !v.Valid {
		p.log.Warn().
			Str("request_type", string(t)).
			Str("violation", string(v.Violation)).
			Str("reason", v.Reason).
			Msg("conditional insertion broke fallback chain; serving base fallback")
		return base, nil
	}
	return chain, nil
}

// Stats returns usage counts keyed by "<request_type>/<reason>".
func (p *FallbackProvider) Stats() map[string]uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]uint64, len(p.counts))
	for k, v := range p.counts {
		out[k] = v
	}
	return out
}

// StatKeys returns the Stats keys in sorted order.
func (p *FallbackProvider) StatKeys() []string {
	stats := p.Stats()
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p *FallbackProvider) record(t approval.RequestType, reason FallbackReason, requesterID string) {
	key := string(t) + "/" + string(reason)
	p.mu.Lock()
	p.counts[key]++
	n := p.counts[key]
	p.mu.Unlock()

	p.log.Warn().
		Str("request_type", string(t)).
		Str("reason", string(reason)).
		Str("requester_id", requesterID).
		Uint64("count", n).
		Msg("serving fallback approval chain")
}

func (p *FallbackProvider) base(policy Policy) approval.ApprovalChain {
	steps := make([]approval.ApprovalStep, 0, len(policy.Fallback))
	for _, fb := range policy.Fallback {
		steps = append(steps, approval.ApprovalStep{
			Approver: approval.Approver{
				Name:       fb.Name,
				Identity:   fb.Identity,
				Role:       fb.Role,
				Department: fb.Department,
			},
			Status: approval.StepPending,
		})
	}
	return approval.ApprovalChain{
		ID:          uuid.NewString(),
		RequestType: policy.Type,
		AnchorRole:  policy.Anchor.Role,
		Steps:       renumber(steps),
		Fallback:    true,
		BuiltAt:     p.now().UTC(),
	}
}

// renumber assigns contiguous levels starting at 1.
func renumber(steps []approval.ApprovalStep) []approval.ApprovalStep {
	for i := range steps {
		steps[i].Level = i + 1
	}
	return steps
}
