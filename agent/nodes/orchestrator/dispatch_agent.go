package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/contract"
	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
	toolx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/tool"
)

// historyWindow is how many recent turns the responder sees.
const historyWindow = 10

// DispatchAgent runs the current agent against the utterance. When the
// agent requests tools, each request is checked against this turn's
// gated set, executed, and the results handed back to the agent for a
// final phrasing pass.
//
// A request outside the gated set aborts the turn before any tool in
// the batch runs. A tool that fails mid-execution is recovered: the failed
// attempt is recorded and the turn still commits.
func DispatchAgent(
	ctx context.Context,
	in *GraphState,
	agents contractx.Registry,
	gateway contractx.ToolGateway,
) (*GraphState, error) {
	if in.Reply != "" {
		return in, nil
	}

	responder, err := responderFor(agents, in.Session.CurrentAgent)
	if err != nil {
		return nil, err
	}

	req := contractx.RespondRequest{
		Utterance:  in.Text,
		Attributes: maps.Clone(in.Session.Attributes),
		History:    in.Session.RecentHistory(historyWindow),
		GatedTools: in.GatedTools,
	}

	resp, err := responder.Respond(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.ToolRequests) == 0 {
		in.Reply = resp.Message
		return in, nil
	}

	// Every request must clear the gate before any of them runs.
	for _, tr := range resp.ToolRequests {
		if !slices.Contains(in.GatedTools, tr.Tool) {
			return nil, fmt.Errorf("%w: %s for agent %s",
				contractx.ErrToolNotPermitted, tr.Tool, in.Session.CurrentAgent)
		}
	}

	results := make([]contractx.ToolResult, 0, len(resp.ToolRequests))
	for _, tr := range resp.ToolRequests {
		res, execErr := gateway.Execute(ctx, in.Session.CurrentAgent, tr, in.Session)
		if execErr != nil {
			if errors.Is(execErr, contractx.ErrToolNotPermitted) {
				return nil, execErr
			}
			log.Error().
				Err(execErr).
				Str("session_id", in.SessionID).
				Str("tool", tr.Tool).
				Msg("tool execution failed")
			in.Session.AppendHistory(statex.SpeakerTool,
				fmt.Sprintf("tool %s failed: %v", tr.Tool, execErr), in.Now)
			in.ToolFailed = true
			in.Reply = ToolFailureReply
			return in, nil
		}

		for k, v := range res.ContextPatch {
			in.Session.SetAttribute(k, v)
		}
		in.Session.AppendHistory(statex.SpeakerTool,
			fmt.Sprintf("%s: %v", res.Tool, res.Result), in.Now)
		if res.Tool == toolx.ToolEscalateIssue {
			in.Session.Escalated = true
		}
		in.ToolInvoked = res.Tool
		results = append(results, res)
	}

	req.ToolResults = results
	final, err := responder.Respond(ctx, req)
	if err != nil {
		return nil, err
	}
	in.Reply = final.Message
	return in, nil
}

func responderFor(agents contractx.Registry, agent statex.AgentType) (contractx.Responder, error) {
	switch agent {
	case statex.AgentTriage:
		return agents.Triage(), nil
	case statex.AgentBilling:
		return agents.Billing(), nil
	case statex.AgentTechnical:
		return agents.Technical(), nil
	case statex.AgentGeneral:
		return agents.General(), nil
	default:
		return nil, fmt.Errorf("no responder registered for agent %q", agent)
	}
}
