package contract

import (
	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
)

// RespondRequest is the input to one agent response. GatedTools is the
// tool set computed for this turn; the agent must not surface anything
// outside it, and the orchestrator verifies the selection anyway.
type RespondRequest struct {
	Utterance  string            `json:"utterance"`
	Attributes map[string]string `json:"attributes,omitempty"`
	History    []statex.Turn     `json:"history,omitempty"`
	GatedTools []string          `json:"gated_tools,omitempty"`

	// ToolResults is set on the phrasing pass after a tool ran.
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

type RespondResponse struct {
	Message      string        `json:"message"`
	ToolRequests []ToolRequest `json:"tool_requests,omitempty"`
}

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult carries a tool's outcome back into the turn. ContextPatch
// holds attribute updates the orchestrator folds into the session (for
// example a subscription change flipping user_tier mid-conversation).
type ToolResult struct {
	Tool         string            `json:"tool"`
	Result       any               `json:"result,omitempty"`
	ContextPatch map[string]string `json:"context_patch,omitempty"`
}
