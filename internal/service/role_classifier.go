package service

import (
	"fmt"
	"strings"

	"github.com/pesio-ai/be-approval-chains/internal/approval"
	"github.com/pesio-ai/be-approval-chains/internal/config"
	"github.com/pesio-ai/be-approval-chains/internal/orggraph"
)

// RoleClassifier is the single translation point from directory titles to
// role labels. Precedence: identity override, then title keyword, then level.
type RoleClassifier struct {
	overrides map[string]approval.RoleLabel
}

// titleRule is one keyword rule; rules are checked in order.
type titleRule struct {
	role     approval.RoleLabel
	contains []string
	exact    []string
}

var titleRules = []titleRule{
	{role: approval.RoleFinanceOfficer, contains: []string{"finance"}},
	{role: approval.RoleBusinessHead, contains: []string{"president"}, exact: []string{"head of business"}},
	{role: approval.RoleDepartmentHead, contains: []string{"head", "director"}},
	{role: approval.RoleSupervisor, contains: []string{"supervisor", "manager", "coordinator"}},
}

// NewRoleClassifier builds a classifier with identity overrides.
func NewRoleClassifier(overrides map[string]approval.RoleLabel) *RoleClassifier {
	c := &RoleClassifier{overrides: make(map[string]approval.RoleLabel, len(overrides))}
	for id, role := range overrides {
		c.overrides[orggraph.NormalizeIdentity(id)] = role
	}
	return c
}

// ClassifierFromConfig parses configured overrides.
func ClassifierFromConfig(cfg config.ClassifierConfig) (*RoleClassifier, error) {
	overrides := make(map[string]approval.RoleLabel, len(cfg.IdentityOverrides))
	for id, raw := range cfg.IdentityOverrides {
		role, err := approval.ParseRole(raw)
		if err != nil {
			return nil, fmt.Errorf("classifier.identity_overrides.%s: %w", id, err)
		}
		overrides[id] = role
	}
	return NewRoleClassifier(overrides), nil
}

// Classify returns the role for e at the given 1-based level.
func (c *RoleClassifier) Classify(e orggraph.Employee, levelHint int) approval.RoleLabel {
	if role, ok := c.overrides[orggraph.NormalizeIdentity(e.Identity)]; ok {
		return role
	}
	if role, ok := classifyTitle(e.Title); ok {
		return role
	}
	switch {
	case levelHint <= 1:
		return approval.RoleSupervisor
	case levelHint == 2:
		return approval.RoleDepartmentHead
	default:
		return approval.RoleApprover
	}
}

func classifyTitle(title string) (approval.RoleLabel, bool) {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return "", false
	}
	for _, rule := range titleRules {
		for _, exact := range rule.exact {
			if t == exact {
				return rule.role, true
			}
		}
		for _, kw := range rule.contains {
			if strings.Contains(t, kw) {
				return rule.role, true
			}
		}
	}
	return "", false
}
