package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-approval-chains/internal/approval"
	"github.com/pesio-ai/be-approval-chains/internal/errors"
)

func testRequest(id string) *approval.Request {
	return &approval.Request{
		ID:   id,
		Type: approval.RequestCash,
		Chain: approval.ApprovalChain{
			ID:          "chain-" + id,
			RequestType: approval.RequestCash,
			AnchorRole:  approval.RoleBusinessHead,
			Steps: []approval.ApprovalStep{
				{Level: 1, Approver: approval.Approver{Identity: "sup@acme.example", Role: approval.RoleSupervisor}, Status: approval.StepPending},
				{Level: 3, Approver: approval.Approver{Identity: "boss@acme.example", Role: approval.RoleBusinessHead}, Status: approval.StepPending},
			},
		},
	}
}

func TestLogNotificationDispatcher_Dispatch(t *testing.T) {
	var buf bytes.Buffer
	d := NewLogNotificationDispatcher(zerolog.New(&buf).Level(zerolog.DebugLevel), 0)

	d.Dispatch(context.Background(), "sup@acme.example", approval.StatusPendingSupervisor, testRequest("r-1"))
	d.Dispatch(context.Background(), "kofi@acme.example", approval.StatusRejected, testRequest("r-1"))
	d.Dispatch(context.Background(), "", approval.StatusApproved, testRequest("r-1"))

	events := d.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "request_approval_required", events[0].EventType)
	assert.True(t, events[0].IsActionable)
	assert.Equal(t, "request_rejected", events[1].EventType)
	assert.False(t, events[1].IsActionable)

	var line map[string]any
	first := bytes.SplitN(buf.Bytes(), []byte("\n"), 2)[0]
	require.NoError(t, json.Unmarshal(first, &line))
	assert.Equal(t, "notifications", line["component"])
	event, ok := line["event"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "r-1", event["request_id"])
}

func TestLogNotificationDispatcher_KeepsLimit(t *testing.T) {
	d := NewLogNotificationDispatcher(zerolog.Nop(), 2)
	for i := 0; i < 5; i++ {
		d.Dispatch(context.Background(), "sup@acme.example", approval.StatusPendingSupervisor, testRequest(fmt.Sprintf("r-%d", i)))
	}

	events := d.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "r-3", events[0].RequestID)
	assert.Equal(t, "r-4", events[1].RequestID)
}

func TestLogAlertReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogAlertReporter(zerolog.New(&buf))

	err := errors.New(errors.ErrCodeChainConsistencyFault, "no step at level 2")
	r.ReportFault(err, testRequest("r-1").Chain)
	r.ReportFault(err, testRequest("r-2").Chain)

	assert.Equal(t, uint64(2), r.Faults())

	var line map[string]any
	first := bytes.SplitN(buf.Bytes(), []byte("\n"), 2)[0]
	require.NoError(t, json.Unmarshal(first, &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "CHAIN_CONSISTENCY_FAULT", line["code"])
	assert.Equal(t, []any{float64(1), float64(3)}, line["levels"])
}
