package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/pesio-ai/be-approval-chains/internal/approval"
)

type chainView struct {
	RequestType   string     `json:"request_type"`
	AnchorRole    string     `json:"anchor_role"`
	Fallback      bool       `json:"fallback"`
	InitialStatus string     `json:"initial_status"`
	Steps         []stepView `json:"steps"`
}

type stepView struct {
	Level      int    `json:"level"`
	Role       string `json:"role"`
	Name       string `json:"name"`
	Identity   string `json:"identity"`
	Department string `json:"department"`
	Status     string `json:"status"`
}

// newChainView drops the chain ID and build time so output is stable.
func newChainView(c approval.ApprovalChain) chainView {
	v := chainView{
		RequestType:   string(c.RequestType),
		AnchorRole:    string(c.AnchorRole),
		Fallback:      c.Fallback,
		InitialStatus: string(approval.StatusAt(c, 1)),
		Steps:         make([]stepView, 0, len(c.Steps)),
	}
	for _, s := range c.Steps {
		v.Steps = append(v.Steps, stepView{
			Level:      s.Level,
			Role:       string(s.Approver.Role),
			Name:       s.Approver.Name,
			Identity:   s.Approver.Identity,
			Department: s.Approver.Department,
			Status:     string(s.Status),
		})
	}
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderChainJSON(w io.Writer, c approval.ApprovalChain) error {
	return writeJSON(w, newChainView(c))
}

func renderChainTable(w io.Writer, c approval.ApprovalChain) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(fmt.Sprintf("%s chain (anchor: %s)", c.RequestType, c.AnchorRole))
	tw.AppendHeader(table.Row{"Level", "Role", "Name", "Identity", "Department", "Status", "Decided"})
	for _, s := range c.Steps {
		decided := ""
		if s.DecidedAt != nil {
			decided = s.DecidedAt.Format(time.RFC3339)
		}
		tw.AppendRow(table.Row{s.Level, s.Approver.Role, s.Approver.Name, s.Approver.Identity, s.Approver.Department, s.Status, decided})
	}
	if c.Fallback {
		tw.AppendFooter(table.Row{"", "", "", "", "", "", "fallback"})
	}
	tw.Render()
}

func renderStats(w io.Writer, stats map[string]uint64) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("fallback usage")
	tw.AppendHeader(table.Row{"Type/Reason", "Count"})
	for _, k := range keys {
		tw.AppendRow(table.Row{k, stats[k]})
	}
	tw.Render()
}
