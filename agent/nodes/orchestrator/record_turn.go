package orchestratornode

import (
	"context"

	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
)

// RecordUserTurn appends the incoming utterance to the session history
// before any routing happens, so handoff events land after it.
func RecordUserTurn(ctx context.Context, in *GraphState) (*GraphState, error) {
	in.Session.AppendHistory(statex.SpeakerUser, in.Text, in.Now)
	return in, nil
}

// RecordAgentTurn appends the agent's final reply for this turn.
func RecordAgentTurn(ctx context.Context, in *GraphState) (*GraphState, error) {
	in.Session.AppendHistory(statex.SpeakerAgent, in.Reply, in.Now)
	return in, nil
}
