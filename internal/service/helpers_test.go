package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-approval-chains/configs"
	"github.com/pesio-ai/be-approval-chains/internal/approval"
	"github.com/pesio-ai/be-approval-chains/internal/config"
	"github.com/pesio-ai/be-approval-chains/internal/logger"
	"github.com/pesio-ai/be-approval-chains/internal/orggraph"
)

const (
	amara  = "amara.obi@acme.example"
	daniel = "daniel.mensah@acme.example"
	ruth   = "ruth.adeyemi@acme.example"
	kofi   = "kofi.boateng@acme.example"
	lena   = "lena.fischer@acme.example"
	tom    = "tom.keller@acme.example"
	samuel = "samuel.ito@acme.example"
	priya  = "priya.nair@acme.example"
	nadia  = "nadia.haddad@acme.example"
)

type engine struct {
	graphs   *orggraph.Holder
	policies map[approval.RequestType]Policy
	fallback *FallbackProvider
	builder  *ChainBuilder
}

func newEngine(t *testing.T, yaml []byte) *engine {
	t.Helper()
	dir, err := config.DirectoryFromYAML(yaml)
	require.NoError(t, err)
	g, err := orggraph.FromConfig(dir)
	require.NoError(t, err)
	graphs := orggraph.NewHolder(g)
	policies, err := CompilePolicies(dir)
	require.NoError(t, err)
	classifier, err := ClassifierFromConfig(dir.Classifier)
	require.NoError(t, err)
	fallback, err := NewFallbackProvider(policies, graphs, logger.Nop())
	require.NoError(t, err)
	return &engine{
		graphs:   graphs,
		policies: policies,
		fallback: fallback,
		builder:  NewChainBuilder(graphs, policies, classifier, fallback, logger.Nop()),
	}
}

func sampleEngine(t *testing.T) *engine {
	t.Helper()
	data, err := configs.Load(configs.SampleDirectory)
	require.NoError(t, err)
	return newEngine(t, data)
}

type recordingReporter struct {
	mu     sync.Mutex
	faults []error
}

func (r *recordingReporter) ReportFault(err error, chain approval.ApprovalChain) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults = append(r.faults, err)
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.faults)
}

func levels(c approval.ApprovalChain) []int {
	out := make([]int, len(c.Steps))
	for i, s := range c.Steps {
		out[i] = s.Level
	}
	return out
}
