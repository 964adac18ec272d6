package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
)

// intentAgents maps each non-terminal intent to the agent that owns it.
var intentAgents = map[statex.IntentLabel]statex.AgentType{
	statex.IntentBilling:   statex.AgentBilling,
	statex.IntentTechnical: statex.AgentTechnical,
	statex.IntentGeneral:   statex.AgentGeneral,
}

// ApplyHandoff moves the session to the agent that owns the classified
// intent. A human_escalation intent is terminal: the session is marked
// escalated, the event is recorded, and the fixed reply short-circuits
// the rest of the turn.
func ApplyHandoff(ctx context.Context, in *GraphState) (*GraphState, error) {
	if in.Reply != "" {
		// Already terminal, nothing to route.
		return in, nil
	}

	if in.Intent == statex.IntentHumanEscalation {
		in.Session.Escalated = true
		in.Session.LastIntent = in.Intent
		in.Session.AppendHistory(statex.SpeakerSystem, "escalated to human support", in.Now)
		in.Reply = EscalationReply
		log.Info().
			Str("session_id", in.SessionID).
			Str("agent", string(in.Session.CurrentAgent)).
			Msg("session escalated to human support")
		return in, nil
	}

	target, ok := intentAgents[in.Intent]
	if !ok {
		return nil, fmt.Errorf("no agent registered for intent %q", in.Intent)
	}

	if in.Session.CurrentAgent != target {
		from := in.Session.CurrentAgent
		in.Session.CurrentAgent = target
		in.Session.AppendHistory(statex.SpeakerSystem,
			fmt.Sprintf("transferred to %s", target.DisplayName()), in.Now)
		log.Info().
			Str("session_id", in.SessionID).
			Str("from", string(from)).
			Str("to", string(target)).
			Str("intent", string(in.Intent)).
			Msg("handoff applied")
	}

	in.Session.LastIntent = in.Intent
	in.Session.SetAttribute(statex.AttrIssueType, string(in.Intent))
	return in, nil
}
