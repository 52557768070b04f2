package service

import (
	"fmt"
	"strings"

	"github.com/pesio-ai/be-approval-chains/internal/approval"
	"github.com/pesio-ai/be-approval-chains/internal/config"
	"github.com/pesio-ai/be-approval-chains/internal/orggraph"
)

// Participant is a fixed role holder named by policy.
type Participant struct {
	Role       approval.RoleLabel
	Identity   string
	Name       string // used when Identity is not in the directory
	Department string
}

// Insertion adds a role to a chain, resolved by identity or by the first
// employee holding Capability. When is nil for mandatory insertions.
type Insertion struct {
	Role       approval.RoleLabel
	Identity   string
	Capability string
	Name       string
	Department string
	When       *Predicate
}

// Predicate is evaluated against request metadata.
type Predicate struct {
	Field     string
	Equals    string
	OneOf     []string
	MinAmount *int64
}

// Policy is the chain shape for one request type.
type Policy struct {
	Type                  approval.RequestType
	Anchor                Participant
	StopAtAnchor          bool
	ConditionalInsertions []Insertion
	MandatoryInsertions   []Insertion
	Fallback              []Participant
}

// Matches reports whether the predicate holds for meta. A nil predicate matches.
func (p *Predicate) Matches(meta approval.RequestMetadata) bool {
	if p == nil {
		return true
	}
	if p.MinAmount != nil {
		return meta.Amount >= *p.MinAmount
	}
	value, ok := meta.Field(p.Field)
	if !ok {
		return false
	}
	if p.Equals != "" && strings.EqualFold(value, p.Equals) {
		return true
	}
	for _, candidate := range p.OneOf {
		if strings.EqualFold(value, candidate) {
			return true
		}
	}
	return false
}

// CompilePolicies converts the configured policies into typed values. Every
// request type must have a policy and no unknown policy names are allowed.
func CompilePolicies(f *config.DirectoryFile) (map[approval.RequestType]Policy, error) {
	out := make(map[approval.RequestType]Policy, len(f.Policies))
	for name, raw := range f.Policies {
		t, ok := approval.ParseRequestType(name)
		if !ok {
			return nil, fmt.Errorf("policies.%s: unknown request type", name)
		}
		p, err := compilePolicy(t, raw)
		if err != nil {
			return nil, fmt.Errorf("policies.%s: %w", name, err)
		}
		out[t] = p
	}
	for _, t := range approval.RequestTypes() {
		if _, ok := out[t]; !ok {
			return nil, fmt.Errorf("policies.%s is required", t)
		}
	}
	return out, nil
}

func compilePolicy(t approval.RequestType, raw config.Policy) (Policy, error) {
	anchor, err := compileParticipant(raw.Anchor)
	if err != nil {
		return Policy{}, fmt.Errorf("anchor: %w", err)
	}
	p := Policy{Type: t, Anchor: anchor, StopAtAnchor: raw.StopAtAnchor}

	for i, ins := range raw.ConditionalInsertions {
		c, err := compileInsertion(ins)
		if err != nil {
			return Policy{}, fmt.Errorf("conditional_insertions[%d]: %w", i, err)
		}
		p.ConditionalInsertions = append(p.ConditionalInsertions, c)
	}
	for i, ins := range raw.MandatoryInsertions {
		m, err := compileInsertion(ins)
		if err != nil {
			return Policy{}, fmt.Errorf("mandatory_insertions[%d]: %w", i, err)
		}
		p.MandatoryInsertions = append(p.MandatoryInsertions, m)
	}
	for i, fb := range raw.Fallback {
		f, err := compileParticipant(fb)
		if err != nil {
			return Policy{}, fmt.Errorf("fallback[%d]: %w", i, err)
		}
		p.Fallback = append(p.Fallback, f)
	}
	return p, nil
}

func compileParticipant(raw config.Participant) (Participant, error) {
	role, err := approval.ParseRole(raw.Role)
	if err != nil {
		return Participant{}, err
	}
	return Participant{
		Role:       role,
		Identity:   orggraph.NormalizeIdentity(raw.Identity),
		Name:       raw.Name,
		Department: raw.Department,
	}, nil
}

func compileInsertion(raw config.Insertion) (Insertion, error) {
	role, err := approval.ParseRole(raw.Role)
	if err != nil {
		return Insertion{}, err
	}
	ins := Insertion{
		Role:       role,
		Identity:   orggraph.NormalizeIdentity(raw.Identity),
		Capability: raw.Capability,
		Name:       raw.Name,
		Department: raw.Department,
	}
	if raw.When != nil {
		ins.When = &Predicate{
			Field:     raw.When.Field,
			Equals:    raw.When.Equals,
			OneOf:     append([]string(nil), raw.When.OneOf...),
			MinAmount: raw.When.MinAmount,
		}
	}
	return ins, nil
}

// resolveInsertion picks the approver for an insertion. Capability-based
// insertions skip the excluded identity (the requester) and take the next
// holder. The boolean is false when nobody can hold the step.
func resolveInsertion(g *orggraph.Graph, ins Insertion, exclude string) (approval.Approver, bool) {
	if ins.Capability != "" {
		if g == nil {
			return approval.Approver{}, false
		}
		for _, e := range g.WithCapability(ins.Capability) {
			if e.Identity == exclude {
				continue
			}
			return approval.Approver{
				Name:       e.Name,
				Identity:   e.Identity,
				Role:       ins.Role,
				Department: e.Department,
			}, true
		}
		return approval.Approver{}, false
	}
	if ins.Identity == exclude {
		return approval.Approver{}, false
	}
	return resolveParticipant(g, Participant{
		Role:       ins.Role,
		Identity:   ins.Identity,
		Name:       ins.Name,
		Department: ins.Department,
	}), true
}

// resolveParticipant snapshots a fixed participant, preferring directory data.
func resolveParticipant(g *orggraph.Graph, p Participant) approval.Approver {
	a := approval.Approver{
		Name:       p.Name,
		Identity:   p.Identity,
		Role:       p.Role,
		Department: p.Department,
	}
	if g == nil {
		return a
	}
	if e, ok := g.FindByIdentity(p.Identity); ok {
		a.Name = e.Name
		a.Department = e.Department
	}
	return a
}
