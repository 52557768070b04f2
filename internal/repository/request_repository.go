package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pesio-ai/be-approval-chains/internal/approval"
	"github.com/pesio-ai/be-approval-chains/internal/errors"
)

// RequestRepository is an in-memory request store with optimistic
// versioning. Every read and write copies, so callers never share chain
// storage with the repository.
type RequestRepository struct {
	mu       sync.RWMutex
	requests map[string]*approval.Request
	audit    map[string][]*approval.AuditEntry
}

// NewRequestRepository creates an empty RequestRepository.
func NewRequestRepository() *RequestRepository {
	return &RequestRepository{
		requests: make(map[string]*approval.Request),
		audit:    make(map[string][]*approval.AuditEntry),
	}
}

// Create inserts a new request at version 1.
func (r *RequestRepository) Create(ctx context.Context, req *approval.Request) error {
	if req.ID == "" {
		return errors.InvalidInput("id", "request id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.requests[req.ID]; exists {
		return errors.New(errors.ErrCodeConflict, fmt.Sprintf("request %s already exists", req.ID))
	}
	req.Version = 1
	r.requests[req.ID] = cloneRequest(req)
	return nil
}

// GetByID retrieves a request by its primary key.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*approval.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, errors.NotFound("request", id)
	}
	return cloneRequest(req), nil
}

// Update replaces the stored request when its version equals expectedVersion,
// then bumps req.Version.
func (r *RequestRepository) Update(ctx context.Context, req *approval.Request, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.requests[req.ID]
	if !ok {
		return errors.NotFound("request", req.ID)
	}
	if current.Version != expectedVersion {
		return errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("request %s was modified (version %d, expected %d)", req.ID, current.Version, expectedVersion))
	}
	req.Version = expectedVersion + 1
	r.requests[req.ID] = cloneRequest(req)
	return nil
}

// ListPendingFor returns non-terminal requests whose current level belongs to
// identity, oldest submission first.
func (r *RequestRepository) ListPendingFor(ctx context.Context, identity string) ([]*approval.Request, error) {
	id := strings.ToLower(strings.TrimSpace(identity))

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*approval.Request
	for _, req := range r.requests {
		if req.Status.IsTerminal() {
			continue
		}
		step, ok := req.Chain.StepAt(approval.CurrentLevel(req.Chain))
		if !ok || !strings.EqualFold(step.Approver.Identity, id) {
			continue
		}
		out = append(out, cloneRequest(req))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

// AppendAudit records one audit entry. Entries are never modified or removed.
func (r *RequestRepository) AppendAudit(ctx context.Context, entry *approval.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.requests[entry.RequestID]; !ok {
		return errors.NotFound("request", entry.RequestID)
	}
	e := *entry
	e.Metadata = copyMap(entry.Metadata)
	r.audit[entry.RequestID] = append(r.audit[entry.RequestID], &e)
	return nil
}

// History returns the audit trail for a request in insertion order.
func (r *RequestRepository) History(ctx context.Context, requestID string) ([]*approval.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.requests[requestID]; !ok {
		return nil, errors.NotFound("request", requestID)
	}
	entries := r.audit[requestID]
	out := make([]*approval.AuditEntry, len(entries))
	for i, e := range entries {
		c := *e
		c.Metadata = copyMap(e.Metadata)
		out[i] = &c
	}
	return out, nil
}

func cloneRequest(req *approval.Request) *approval.Request {
	c := *req
	c.Chain = req.Chain.Clone()
	c.Metadata.Attributes = copyMap(req.Metadata.Attributes)
	return &c
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
