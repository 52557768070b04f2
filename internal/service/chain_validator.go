package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pesio-ai/be-approval-chains/internal/approval"
	"github.com/pesio-ai/be-approval-chains/internal/errors"
)

// Violation names the invariant a chain broke.
type Violation string

const (
	ViolationEmpty             Violation = "empty_chain"
	ViolationAnchorNotLast     Violation = "anchor_not_last"
	ViolationLevelSequence     Violation = "level_sequence"
	ViolationMissingField      Violation = "missing_field"
	ViolationMalformedIdentity Violation = "malformed_identity"
	ViolationDuplicateApprover Violation = "duplicate_approver"
)

var identityPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+$`)

// Verdict is the validator result.
type Verdict struct {
	Valid     bool
	Violation Violation
	Reason    string
}

// Err returns an InvalidChain error for a failed verdict, nil otherwise.
func (v Verdict) Err() error {
	if v.Valid {
		return nil
	}
	return errors.New(errors.ErrCodeInvalidChain, v.Reason).WithDetail("violation", string(v.Violation))
}

func fail(v Violation, format string, args ...any) Verdict {
	return Verdict{Violation: v, Reason: fmt.Sprintf(format, args...)}
}

// ValidateChain checks structural invariants in order and stops at the first
// failure. It has no side effects.
func ValidateChain(c approval.ApprovalChain) Verdict {
	if len(c.Steps) == 0 {
		return fail(ViolationEmpty, "chain has no steps")
	}
	last := c.Steps[len(c.Steps)-1]
	if c.AnchorRole == "" || last.Approver.Role != c.AnchorRole {
		return fail(ViolationAnchorNotLast, "last step role %q does not match anchor role %q", last.Approver.Role, c.AnchorRole)
	}
	for i, s := range c.Steps {
		if s.Level != i+1 {
			return fail(ViolationLevelSequence, "step at position %d has level %d", i+1, s.Level)
		}
	}
	for _, s := range c.Steps {
		a := s.Approver
		switch {
		case strings.TrimSpace(a.Name) == "":
			return fail(ViolationMissingField, "level %d: approver name is empty", s.Level)
		case strings.TrimSpace(a.Identity) == "":
			return fail(ViolationMissingField, "level %d: approver identity is empty", s.Level)
		case !a.Role.IsValid():
			return fail(ViolationMissingField, "level %d: approver role %q is empty or unknown", s.Level, a.Role)
		case strings.TrimSpace(a.Department) == "":
			return fail(ViolationMissingField, "level %d: approver department is empty", s.Level)
		}
	}
	for _, s := range c.Steps {
		if !identityPattern.MatchString(s.Approver.Identity) {
			return fail(ViolationMalformedIdentity, "level %d: identity %q is not local@domain", s.Level, s.Approver.Identity)
		}
	}
	seen := make(map[string]int, len(c.Steps))
	for _, s := range c.Steps {
		id := strings.ToLower(s.Approver.Identity)
		if first, dup := seen[id]; dup {
			return fail(ViolationDuplicateApprover, "identity %s appears at levels %d and %d", id, first, s.Level)
		}
		seen[id] = s.Level
	}
	return Verdict{Valid: true}
}
