package contract

import (
	"context"

	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
)

// Classifier maps one utterance (plus a context snapshot) to an intent
// label. Implementations wrap the external AI call and must report
// transport or model failures as ErrClassifierUnavailable.
type Classifier interface {
	Classify(ctx context.Context, utterance string, snapshot *statex.SessionState) (statex.IntentLabel, error)
}

// Responder is one agent's response policy. Responders never mutate
// session state; they only see snapshots.
type Responder interface {
	Respond(ctx context.Context, req RespondRequest) (RespondResponse, error)
}

// Registry is the closed set of agent responders.
type Registry interface {
	Triage() Responder
	Billing() Responder
	Technical() Responder
	General() Responder
}

// ToolGateway computes the gated tool set for a turn and executes
// gated tool invocations.
type ToolGateway interface {
	GatedFor(agent statex.AgentType, snapshot *statex.SessionState) []string
	Execute(ctx context.Context, agent statex.AgentType, req ToolRequest, snapshot *statex.SessionState) (ToolResult, error)
}
