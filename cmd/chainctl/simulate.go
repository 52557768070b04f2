package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pesio-ai/be-approval-chains/internal/app"
	"github.com/pesio-ai/be-approval-chains/internal/approval"
	"github.com/pesio-ai/be-approval-chains/internal/service"
)

type simulationStep struct {
	Level    int    `json:"level"`
	Actor    string `json:"actor"`
	Decision string `json:"decision"`
	Status   string `json:"status"`
}

type simulation struct {
	RequestID string           `json:"request_id"`
	Initial   string           `json:"initial_status"`
	Steps     []simulationStep `json:"steps"`
	Final     string           `json:"final_status"`
}

func parseDecisions(raw []string) ([]approval.Decision, error) {
	out := make([]approval.Decision, 0, len(raw))
	for _, r := range raw {
		d := approval.Decision(strings.ToLower(strings.TrimSpace(r)))
		if !d.IsValid() {
			return nil, fmt.Errorf("unknown decision %q", r)
		}
		out = append(out, d)
	}
	return out, nil
}

// simulate submits a request and has each current approver act in turn until
// the decisions run out or the request is terminal. An empty decision list
// approves every level.
func simulate(ctx context.Context, a *app.App, in service.SubmitRequest, decisions []approval.Decision) (simulation, error) {
	req, err := a.Service.Submit(ctx, in)
	if err != nil {
		return simulation{}, err
	}
	sim := simulation{RequestID: req.ID, Initial: string(req.Status)}
	for i := 0; !req.Status.IsTerminal(); i++ {
		d := approval.DecisionApprove
		if len(decisions) > 0 {
			if i >= len(decisions) {
				break
			}
			d = decisions[i]
		}
		level := approval.CurrentLevel(req.Chain)
		step, _ := req.Chain.StepAt(level)
		req, err = a.Service.Decide(ctx, service.DecideRequest{
			RequestID: req.ID,
			Level:     level,
			Decision:  d,
			ActorID:   step.Approver.Identity,
			Comments:  "simulated",
		})
		if err != nil {
			return sim, err
		}
		sim.Steps = append(sim.Steps, simulationStep{
			Level:    level,
			Actor:    step.Approver.Identity,
			Decision: string(d),
			Status:   string(req.Status),
		})
	}
	sim.Final = string(req.Status)
	return sim, nil
}

func renderSimulation(w io.Writer, sim simulation) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(fmt.Sprintf("request %s (initial: %s)", sim.RequestID, sim.Initial))
	tw.AppendHeader(table.Row{"Level", "Actor", "Decision", "Status"})
	for _, s := range sim.Steps {
		tw.AppendRow(table.Row{s.Level, s.Actor, s.Decision, s.Status})
	}
	tw.AppendFooter(table.Row{"", "", "final", sim.Final})
	tw.Render()
}

func simulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Submit a request and walk it through its approvers",
		RunE: func(cmd *cobra.Command, args []string) error {
			requester, t, meta, err := requestFromFlags(cmd)
			if err != nil {
				return err
			}
			raw, _ := cmd.Flags().GetStringSlice("decisions")
			decisions, err := parseDecisions(raw)
			if err != nil {
				return err
			}
			a, err := loadApp()
			if err != nil {
				return err
			}
			sim, err := simulate(cmd.Context(), a, service.SubmitRequest{
				Type:        t,
				RequesterID: requester,
				Metadata:    meta,
			}, decisions)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return writeJSON(cmd.OutOrStdout(), sim)
			}
			renderSimulation(cmd.OutOrStdout(), sim)
			return nil
		},
	}
	requestFlags(cmd)
	cmd.Flags().StringSlice("decisions", nil, "decisions in level order (approve,reject); default approves every level")
	return cmd
}
