package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/contract"
	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
)

// SaveState is the turn's single commit point. Everything before it
// mutates a working copy only, so a turn that errors out leaves the
// session exactly as its last commit left it.
func SaveState(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	in.Session.Touch(in.Now)
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, fmt.Errorf("save session %s: %w", in.SessionID, err)
	}
	return in, nil
}

// FinalizeReply shapes the graph's output from the turn state.
func FinalizeReply(ctx context.Context, in *GraphState) (GraphOutput, error) {
	if in.Reply == "" {
		return GraphOutput{}, fmt.Errorf("turn for session %s produced no reply", in.SessionID)
	}
	return GraphOutput{Reply: in.Reply}, nil
}
