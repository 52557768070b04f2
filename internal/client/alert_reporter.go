package client

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/pesio-ai/be-approval-chains/internal/approval"
	"github.com/pesio-ai/be-approval-chains/internal/errors"
)

// LogAlertReporter surfaces chain consistency faults at error level with the
// chain's shape attached, and counts them for operators.
type LogAlertReporter struct {
	log    zerolog.Logger
	faults atomic.Uint64
}

// NewLogAlertReporter creates a reporter that writes to log.
func NewLogAlertReporter(log zerolog.Logger) *LogAlertReporter {
	return &LogAlertReporter{log: log.With().Str("component", "alerts").Logger()}
}

// ReportFault implements service.FaultReporter.
func (r *LogAlertReporter) ReportFault(err error, chain approval.ApprovalChain) {
	n := r.faults.Add(1)
	levels := make([]int, len(chain.Steps))
	for i, s := range chain.Steps {
		levels[i] = s.Level
	}
	r.log.Error().Err(err).
		Str("code", string(errors.CodeOf(err))).
		Str("chain_id", chain.ID).
		Str("request_type", string(chain.RequestType)).
		Ints("levels", levels).
		Uint64("fault_count", n).
		Msg("ALERT: approval chain consistency fault")
}

// Faults returns the number of faults reported so far.
func (r *LogAlertReporter) Faults() uint64 {
	return r.faults.Load()
}
