package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pesio-ai/be-approval-chains/internal/app"
	"github.com/pesio-ai/be-approval-chains/internal/approval"
)

type lintRow struct {
	Requester string   `json:"requester"`
	Type      string   `json:"type"`
	Levels    int      `json:"levels"`
	Roles     []string `json:"roles"`
	Fallback  bool     `json:"fallback"`
}

type lintReport struct {
	Rows     []lintRow         `json:"rows"`
	Dangling []string          `json:"dangling_reports_to,omitempty"`
	Stats    map[string]uint64 `json:"fallback_usage"`
}

// invalid reports whether any composed chain was rejected by the validator.
func (r lintReport) invalid() bool {
	for k, n := range r.Stats {
		if n > 0 && strings.HasSuffix(k, "/invalid_chain") {
			return true
		}
	}
	return false
}

// lintDirectory builds a chain for every employee and request type against
// the current graph snapshot.
func lintDirectory(a *app.App) (lintReport, error) {
	g := a.Graphs.Current()
	var report lintReport
	for _, id := range g.Identities() {
		for _, t := range approval.RequestTypes() {
			chain, err := a.Builder.Build(id, t, approval.RequestMetadata{})
			if err != nil {
				return lintReport{}, fmt.Errorf("build %s chain for %s: %w", t, id, err)
			}
			roles := make([]string, 0, chain.Len())
			for _, r := range chain.Roles() {
				roles = append(roles, string(r))
			}
			report.Rows = append(report.Rows, lintRow{
				Requester: id,
				Type:      string(t),
				Levels:    chain.Len(),
				Roles:     roles,
				Fallback:  chain.Fallback,
			})
		}
	}
	report.Dangling = g.Dangling()
	report.Stats = a.Fallback.Stats()
	return report, nil
}

func renderLint(w io.Writer, report lintReport) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Requester", "Type", "Levels", "Roles", "Fallback"})
	for _, row := range report.Rows {
		fb := ""
		if row.Fallback {
			fb = "yes"
		}
		tw.AppendRow(table.Row{row.Requester, row.Type, row.Levels, strings.Join(row.Roles, " > "), fb})
	}
	tw.Render()
	if len(report.Dangling) > 0 {
		fmt.Fprintf(w, "dangling reports_to: %s\n", strings.Join(report.Dangling, ", "))
	}
	if len(report.Stats) > 0 {
		renderStats(w, report.Stats)
	}
}

func lintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Build every employee's chains and report fallback usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			report, err := lintDirectory(a)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				renderLint(cmd.OutOrStdout(), report)
			}
			strict, _ := cmd.Flags().GetBool("strict")
			if strict && report.invalid() {
				return fmt.Errorf("directory produced chains that failed validation")
			}
			return nil
		},
	}
	cmd.Flags().Bool("strict", false, "fail when any composed chain is rejected by the validator")
	return cmd
}
