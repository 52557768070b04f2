package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-approval-chains/internal/app"
	"github.com/pesio-ai/be-approval-chains/internal/approval"
	"github.com/pesio-ai/be-approval-chains/internal/config"
	"github.com/pesio-ai/be-approval-chains/internal/logger"
	"github.com/pesio-ai/be-approval-chains/internal/service"
)

func sampleApp(t *testing.T) *app.App {
	t.Helper()
	a, err := app.New(config.Config{}, logger.Nop())
	require.NoError(t, err)
	return a
}

func TestRenderChainJSON_Golden(t *testing.T) {
	a := sampleApp(t)
	chain, err := a.Builder.Build("kofi.boateng@acme.example", approval.RequestCash, approval.RequestMetadata{Category: "mission"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, renderChainJSON(&buf, chain))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "cash_mission_chain", buf.Bytes())
}

func TestRenderChainTable(t *testing.T) {
	a := sampleApp(t)
	chain, err := a.Builder.Build("ghost@acme.example", approval.RequestIT, approval.RequestMetadata{})
	require.NoError(t, err)

	var buf bytes.Buffer
	renderChainTable(&buf, chain)

	out := strings.ToLower(buf.String())
	assert.Contains(t, out, "it chain (anchor: it_department)")
	assert.Contains(t, out, "samuel.ito@acme.example")
	assert.Contains(t, out, "fallback")
}

func TestLintDirectory(t *testing.T) {
	a := sampleApp(t)

	report, err := lintDirectory(a)
	require.NoError(t, err)

	assert.Len(t, report.Rows, 9*3)
	assert.Empty(t, report.Dangling)
	assert.False(t, report.invalid())
	// amara sits at the root, so each of her chains falls back.
	assert.Equal(t, uint64(1), report.Stats["cash/empty_path"])

	var buf bytes.Buffer
	renderLint(&buf, report)
	assert.Contains(t, strings.ToLower(buf.String()), "fallback usage")
}

func TestSimulate(t *testing.T) {
	a := sampleApp(t)
	in := service.SubmitRequest{
		Type:        approval.RequestCash,
		RequesterID: "kofi.boateng@acme.example",
		Metadata:    approval.RequestMetadata{Category: "mission"},
	}

	sim, err := simulate(context.Background(), a, in, nil)
	require.NoError(t, err)
	assert.Equal(t, string(approval.StatusPendingSupervisor), sim.Initial)
	assert.Len(t, sim.Steps, 5)
	assert.Equal(t, string(approval.StatusApproved), sim.Final)

	decisions, err := parseDecisions([]string{"approve", " Reject "})
	require.NoError(t, err)
	sim, err = simulate(context.Background(), a, in, decisions)
	require.NoError(t, err)
	require.Len(t, sim.Steps, 2)
	assert.Equal(t, "daniel.mensah@acme.example", sim.Steps[1].Actor)
	assert.Equal(t, string(approval.StatusRejected), sim.Final)

	_, err = parseDecisions([]string{"escalate"})
	assert.Error(t, err)
}
