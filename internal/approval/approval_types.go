package approval

import (
	"strings"
	"time"
)

// RequestType selects the chain policy.
type RequestType string

const (
	RequestCash          RequestType = "cash"
	RequestIT            RequestType = "it"
	RequestPurchaseOrder RequestType = "purchase_order"
)

// RequestTypes lists every supported request type in a stable order.
func RequestTypes() []RequestType {
	return []RequestType{RequestCash, RequestIT, RequestPurchaseOrder}
}

// ParseRequestType converts user input into a RequestType.
func ParseRequestType(s string) (RequestType, bool) {
	t := RequestType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case RequestCash, RequestIT, RequestPurchaseOrder:
		return t, true
	}
	return "", false
}

// Approver is a snapshot of the person holding a step, copied at build time
// so later directory changes do not alter in-flight requests.
type Approver struct {
	Name       string    `json:"name"`
	Identity   string    `json:"identity"`
	Role       RoleLabel `json:"role"`
	Department string    `json:"department"`
}

// ApprovalStep is one level of a chain.
type ApprovalStep struct {
	Level     int        `json:"level"`
	Approver  Approver   `json:"approver"`
	Status    StepStatus `json:"status"`
	Comments  string     `json:"comments,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	DecidedBy string     `json:"decided_by,omitempty"`
}

// ApprovalChain is the ordered sequence of steps for one request.
type ApprovalChain struct {
	ID          string         `json:"id"`
	RequestType RequestType    `json:"request_type"`
	AnchorRole  RoleLabel      `json:"anchor_role"`
	Steps       []ApprovalStep `json:"steps"`
	// Fallback is set when the chain came from the fallback provider.
	Fallback bool      `json:"fallback"`
	BuiltAt  time.Time `json:"built_at"`
}

// Len returns the number of levels.
func (c ApprovalChain) Len() int {
	return len(c.Steps)
}

// StepAt returns the step whose Level equals level.
func (c ApprovalChain) StepAt(level int) (ApprovalStep, bool) {
	for _, s := range c.Steps {
		if s.Level == level {
			return s, true
		}
	}
	return ApprovalStep{}, false
}

// Clone returns a deep copy; decision timestamps are copied, not shared.
func (c ApprovalChain) Clone() ApprovalChain {
	out := c
	out.Steps = make([]ApprovalStep, len(c.Steps))
	for i, s := range c.Steps {
		if s.DecidedAt != nil {
			t := *s.DecidedAt
			s.DecidedAt = &t
		}
		out.Steps[i] = s
	}
	return out
}

// Identities returns approver identities in level order.
func (c ApprovalChain) Identities() []string {
	ids := make([]string, len(c.Steps))
	for i, s := range c.Steps {
		ids[i] = s.Approver.Identity
	}
	return ids
}

// Roles returns role labels in level order.
func (c ApprovalChain) Roles() []RoleLabel {
	roles := make([]RoleLabel, len(c.Steps))
	for i, s := range c.Steps {
		roles[i] = s.Approver.Role
	}
	return roles
}

// RequestMetadata carries the request attributes policy predicates read.
type RequestMetadata struct {
	Category   string            `json:"category,omitempty"`
	Amount     int64             `json:"amount,omitempty"` // minor units
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Field returns the named attribute; category is addressable by name.
func (m RequestMetadata) Field(name string) (string, bool) {
	if strings.EqualFold(name, "category") {
		return m.Category, m.Category != ""
	}
	v, ok := m.Attributes[name]
	return v, ok
}

// Request is a submitted request together with its chain.
type Request struct {
	ID          string          `json:"id"`
	Type        RequestType     `json:"type"`
	RequesterID string          `json:"requester_id"`
	Metadata    RequestMetadata `json:"metadata"`
	Chain       ApprovalChain   `json:"chain"`
	Status      RequestStatus   `json:"status"`
	Version     int             `json:"version"`
	SubmittedAt time.Time       `json:"submitted_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AuditEntry is one immutable record of an action on a request.
type AuditEntry struct {
	RequestID    string            `json:"request_id"`
	Action       string            `json:"action"` // submitted | approved | rejected | rebuilt
	PerformedBy  string            `json:"performed_by"`
	PerformedAt  time.Time         `json:"performed_at"`
	Level        int               `json:"level,omitempty"`
	StatusBefore RequestStatus     `json:"status_before,omitempty"`
	StatusAfter  RequestStatus     `json:"status_after"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}
