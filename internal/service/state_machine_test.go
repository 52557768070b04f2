package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-approval-chains/internal/approval"
	"github.com/pesio-ai/be-approval-chains/internal/errors"
	"github.com/pesio-ai/be-approval-chains/internal/logger"
)

var decidedAt = time.Date(2026, 3, 9, 10, 30, 0, 0, time.UTC)

func newMachine() (*ApprovalStateMachine, *recordingReporter) {
	r := &recordingReporter{}
	m := NewApprovalStateMachine(r, logger.Nop())
	m.Now = func() time.Time { return decidedAt }
	return m, r
}

func cashChain(t *testing.T) approval.ApprovalChain {
	t.Helper()
	c, err := sampleEngine(t).builder.Build(kofi, approval.RequestCash, approval.RequestMetadata{})
	require.NoError(t, err)
	require.Equal(t, 4, c.Len())
	return c
}

func approveThrough(t *testing.T, m *ApprovalStateMachine, c approval.ApprovalChain, upTo int) approval.ApprovalChain {
	t.Helper()
	for level := 1; level <= upTo; level++ {
		step, _ := c.StepAt(level)
		out, err := m.Decide(c, level, approval.DecisionApprove, step.Approver.Identity, "")
		require.NoError(t, err)
		c = out.Chain
	}
	return c
}

func TestInitial(t *testing.T) {
	m, _ := newMachine()

	status, err := m.Initial(cashChain(t))
	require.NoError(t, err)
	assert.Equal(t, approval.StatusPendingSupervisor, status)
}

func TestInitial_MissingLevelOneIsFault(t *testing.T) {
	m, r := newMachine()
	c := cashChain(t)
	c.Steps = c.Steps[1:]

	_, err := m.Initial(c)
	assert.True(t, errors.IsCode(err, errors.ErrCodeChainConsistencyFault))
	assert.Equal(t, 1, r.count())
}

func TestDecide_ApproveLevelTwoOfFour(t *testing.T) {
	m, _ := newMachine()
	c := approveThrough(t, m, cashChain(t), 1)
	before := c.Clone()

	out, err := m.Decide(c, 2, approval.DecisionApprove, daniel, "ok")
	require.NoError(t, err)

	assert.Equal(t, approval.StatusPendingFinance, out.Status)
	step, _ := out.Chain.StepAt(2)
	assert.Equal(t, approval.StepApproved, step.Status)
	require.NotNil(t, step.DecidedAt)
	assert.Equal(t, decidedAt, *step.DecidedAt)
	assert.Equal(t, daniel, step.DecidedBy)
	assert.Equal(t, "ok", step.Comments)

	for _, level := range []int{1, 3, 4} {
		got, _ := out.Chain.StepAt(level)
		want, _ := before.StepAt(level)
		assert.Equal(t, want, got, "level %d", level)
	}
	assert.Equal(t, before, c, "input chain must not change")
}

func TestDecide_RejectIsTerminal(t *testing.T) {
	m, _ := newMachine()
	c := approveThrough(t, m, cashChain(t), 1)

	out, err := m.Decide(c, 2, approval.DecisionReject, daniel, "")
	require.NoError(t, err)
	assert.Equal(t, approval.StatusRejected, out.Status)

	for _, level := range []int{3, 4} {
		s, _ := out.Chain.StepAt(level)
		assert.Equal(t, approval.StepPending, s.Status)
	}

	_, err = m.Decide(out.Chain, 3, approval.DecisionApprove, lena, "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeAlreadyDecided))
}

func TestDecide_LastLevelApproves(t *testing.T) {
	m, r := newMachine()
	c := approveThrough(t, m, cashChain(t), 3)

	out, err := m.Decide(c, 4, approval.DecisionApprove, amara, "")
	require.NoError(t, err)
	assert.Equal(t, approval.StatusApproved, out.Status)
	assert.Equal(t, approval.StatusApproved, approval.DeriveStatus(out.Chain))
	assert.Zero(t, r.count())
}

func TestDecide_Refusals(t *testing.T) {
	m, _ := newMachine()
	fresh := cashChain(t)
	decided := approveThrough(t, m, fresh, 1)

	cases := []struct {
		name     string
		chain    approval.ApprovalChain
		level    int
		decision approval.Decision
		actor    string
		want     errors.Code
	}{
		{"unknown decision", fresh, 1, approval.Decision("maybe"), ruth, errors.ErrCodeInvalidInput},
		{"missing level", fresh, 9, approval.DecisionApprove, ruth, errors.ErrCodeInvalidInput},
		{"decided twice", decided, 1, approval.DecisionApprove, ruth, errors.ErrCodeAlreadyDecided},
		{"out of order", fresh, 3, approval.DecisionApprove, lena, errors.ErrCodeConflict},
		{"wrong actor", fresh, 1, approval.DecisionApprove, daniel, errors.ErrCodeUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Decide(tc.chain, tc.level, tc.decision, tc.actor, "")
			require.Error(t, err)
			assert.Equal(t, tc.want, errors.CodeOf(err))
		})
	}
}

func TestDecide_ActorMatchIgnoresCase(t *testing.T) {
	m, _ := newMachine()

	out, err := m.Decide(cashChain(t), 1, approval.DecisionApprove, " Ruth.Adeyemi@ACME.example ", "")
	require.NoError(t, err)
	assert.Equal(t, approval.StatusPendingDepartmentalHead, out.Status)
}

func TestDecide_MissingNextLevelIsFault(t *testing.T) {
	m, r := newMachine()
	c := cashChain(t)
	// Corrupt the chain: levels 1, 2, 4, 5.
	c.Steps[2].Level = 4
	c.Steps[3].Level = 5
	c = approveThrough(t, m, c, 1)

	out, err := m.Decide(c, 2, approval.DecisionApprove, daniel, "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeChainConsistencyFault))
	assert.Equal(t, approval.StatusApproved, out.Status)
	assert.Equal(t, 1, r.count())
}

func TestDecide_RepeatedDecisionNeverAdvancesTwice(t *testing.T) {
	m, _ := newMachine()
	c := approveThrough(t, m, cashChain(t), 1)

	for i := 0; i < 2; i++ {
		out, err := m.Decide(c, 1, approval.DecisionApprove, ruth, "")
		assert.True(t, errors.IsCode(err, errors.ErrCodeAlreadyDecided))
		assert.Empty(t, out.Chain.Steps)
	}
	assert.Equal(t, 2, approval.CurrentLevel(c))
}

func TestDecide_StatusFollowsFirstPendingLevel(t *testing.T) {
	m, _ := newMachine()
	c := cashChain(t)
	// level 2 was decided earlier, out of band.
	c.Steps[1].Status = approval.StepApproved

	out, err := m.Decide(c, 1, approval.DecisionApprove, ruth, "")
	require.NoError(t, err)
	assert.Equal(t, approval.StatusPendingFinance, out.Status)
	assert.Equal(t, approval.DeriveStatus(out.Chain), out.Status)
}
