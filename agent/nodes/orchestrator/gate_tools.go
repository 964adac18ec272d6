package orchestratornode

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/contract"
)

// GateTools recomputes the usable tool set for the current agent from
// this turn's session attributes. The set is recomputed on every turn,
// attribute changes from earlier turns take effect here.
func GateTools(ctx context.Context, in *GraphState, gateway contractx.ToolGateway) (*GraphState, error) {
	if in.Reply != "" {
		return in, nil
	}

	in.GatedTools = gateway.GatedFor(in.Session.CurrentAgent, in.Session)
	log.Debug().
		Str("session_id", in.SessionID).
		Str("agent", string(in.Session.CurrentAgent)).
		Strs("gated_tools", in.GatedTools).
		Msg("tool gates evaluated")
	return in, nil
}
