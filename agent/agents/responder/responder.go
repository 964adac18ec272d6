package responder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/contract"
	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
	toolx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/tool"
)

// responderImpl is one LLM-backed agent. The model is bound to the
// agent's full declared tool set; the gated subset for the current turn
// travels in the prompt payload and the orchestrator enforces it on the
// way back regardless of what the model picked.
type responderImpl struct {
	agentType        statex.AgentType
	structuredRunner compose.Runnable[map[string]any, responderLLMOutput]
	toolRunner       compose.Runnable[map[string]any, *schema.Message]
	declaredTools    map[string]struct{}
}

type responderLLMOutput struct {
	Message string `json:"message"`
}

func newResponder(
	ctx context.Context,
	agentType statex.AgentType,
	chatModel einomodel.ToolCallingChatModel,
	systemPrompt string,
) (*responderImpl, error) {
	structuredRunner, err := compileStructuredGraph(ctx, chatModel, systemPrompt, string(agentType)+".structured_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile structured graph for agent=%s: %v", contractx.ErrModelInvoke, agentType, err)
	}

	r := &responderImpl{
		agentType:        agentType,
		structuredRunner: structuredRunner,
		declaredTools:    map[string]struct{}{},
	}

	infos := toolInfosFor(agentType)
	if len(infos) > 0 {
		toolModel, err := chatModel.WithTools(infos)
		if err != nil {
			return nil, fmt.Errorf("%w: bind tools for agent=%s: %v", contractx.ErrModelInvoke, agentType, err)
		}
		toolRunner, err := compileToolPlanningGraph(ctx, toolModel, systemPrompt, string(agentType)+".tool_planning_graph")
		if err != nil {
			return nil, fmt.Errorf("%w: compile tool planning graph for agent=%s: %v", contractx.ErrModelInvoke, agentType, err)
		}
		r.toolRunner = toolRunner

		for _, info := range infos {
			if info == nil || strings.TrimSpace(info.Name) == "" {
				continue
			}
			r.declaredTools[info.Name] = struct{}{}
		}
	}

	return r, nil
}

func (r *responderImpl) Respond(ctx context.Context, req contractx.RespondRequest) (contractx.RespondResponse, error) {
	if strings.TrimSpace(req.Utterance) == "" {
		return contractx.RespondResponse{}, fmt.Errorf("%w: utterance is required", contractx.ErrValidation)
	}

	// Tool planning only makes sense on the first pass of a turn and
	// only when the agent carries tools at all.
	if r.toolRunner != nil && len(req.ToolResults) == 0 {
		return r.runToolPlanning(ctx, req)
	}
	return r.runStructured(ctx, req)
}

func (r *responderImpl) runStructured(ctx context.Context, req contractx.RespondRequest) (contractx.RespondResponse, error) {
	input, err := marshalPayload("finalize", req)
	if err != nil {
		return contractx.RespondResponse{}, err
	}

	out, err := r.structuredRunner.Invoke(ctx, map[string]any{
		"input": input,
	})
	if err != nil {
		return contractx.RespondResponse{}, fmt.Errorf("%w: responder invoke for agent=%s: %v", contractx.ErrModelInvoke, r.agentType, err)
	}

	message := strings.TrimSpace(out.Message)
	if message == "" {
		return contractx.RespondResponse{}, fmt.Errorf("%w: responder message is empty", contractx.ErrSchemaViolation)
	}

	return contractx.RespondResponse{Message: message}, nil
}

func (r *responderImpl) runToolPlanning(ctx context.Context, req contractx.RespondRequest) (contractx.RespondResponse, error) {
	input, err := marshalPayload("act", req)
	if err != nil {
		return contractx.RespondResponse{}, err
	}

	msg, err := r.toolRunner.Invoke(ctx, map[string]any{
		"input": input,
	})
	if err != nil {
		return contractx.RespondResponse{}, fmt.Errorf("%w: tool planning invoke for agent=%s: %v", contractx.ErrModelInvoke, r.agentType, err)
	}
	if msg == nil {
		return contractx.RespondResponse{}, fmt.Errorf("%w: empty tool planning response", contractx.ErrSchemaViolation)
	}

	toolRequests, err := toToolRequests(msg.ToolCalls)
	if err != nil {
		return contractx.RespondResponse{}, err
	}

	if len(toolRequests) == 0 {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			return contractx.RespondResponse{}, fmt.Errorf("%w: responder returned neither message nor tool call", contractx.ErrSchemaViolation)
		}
		return contractx.RespondResponse{Message: content}, nil
	}

	for _, tr := range toolRequests {
		if _, ok := r.declaredTools[tr.Tool]; !ok {
			return contractx.RespondResponse{}, fmt.Errorf(
				"%w: tool=%s is not declared for agent=%s", contractx.ErrSchemaViolation, tr.Tool, r.agentType)
		}
	}

	return contractx.RespondResponse{ToolRequests: toolRequests}, nil
}

func marshalPayload(mode string, req contractx.RespondRequest) (string, error) {
	payload := map[string]any{
		"mode":         mode,
		"user_message": req.Utterance,
		"attributes":   req.Attributes,
		"recent_turns": summarizeTurns(req.History),
		"gated_tools":  req.GatedTools,
	}
	if len(req.ToolResults) > 0 {
		payload["tool_results"] = req.ToolResults
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal responder payload: %v", contractx.ErrValidation, err)
	}
	return string(raw), nil
}

func toToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		tool := strings.TrimSpace(call.Function.Name)
		if tool == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		args := map[string]any{}
		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, tool, err)
			}
		}

		reqs = append(reqs, contractx.ToolRequest{
			Tool: tool,
			Args: args,
		})
	}
	return reqs, nil
}

func summarizeTurns(turns []statex.Turn) []string {
	if len(turns) == 0 {
		return nil
	}
	out := make([]string, 0, len(turns))
	for _, t := range turns {
		out = append(out, string(t.Speaker)+": "+t.Text)
	}
	return out
}

// toolInfoSpecs describes each tool for model binding. Arguments stay
// minimal; actions tolerate missing args.
var toolInfoSpecs = map[string]*schema.ToolInfo{
	toolx.ToolProcessRefund: {
		Name: toolx.ToolProcessRefund,
		Desc: "Process a refund for the user's account.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"reason": {Type: schema.String, Desc: "Why the user wants the refund"},
		}),
	},
	toolx.ToolExplainCharges: {
		Name:        toolx.ToolExplainCharges,
		Desc:        "Explain recent charges on the user's account.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
	},
	toolx.ToolUpdateSubscription: {
		Name: toolx.ToolUpdateSubscription,
		Desc: "Update the user's subscription plan.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"plan": {Type: schema.String, Desc: "Target plan: free or premium", Required: true},
		}),
	},
	toolx.ToolRestartService: {
		Name: toolx.ToolRestartService,
		Desc: "Restart a service for the user.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"service": {Type: schema.String, Desc: "Service to restart"},
		}),
	},
	toolx.ToolResetPassword: {
		Name:        toolx.ToolResetPassword,
		Desc:        "Send the user a password reset link.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
	},
	toolx.ToolCheckStatus: {
		Name:        toolx.ToolCheckStatus,
		Desc:        "Check the current status of services.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
	},
	toolx.ToolProvideInfo: {
		Name: toolx.ToolProvideInfo,
		Desc: "Provide general information about services.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"topic": {Type: schema.String, Desc: "Topic the user asked about"},
		}),
	},
	toolx.ToolEscalateIssue: {
		Name: toolx.ToolEscalateIssue,
		Desc: "Escalate the issue to a human representative.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"summary": {Type: schema.String, Desc: "Short summary of the issue"},
		}),
	},
}

func toolInfosFor(agentType statex.AgentType) []*schema.ToolInfo {
	declared := toolx.DeclaredFor(agentType)
	if len(declared) == 0 {
		return nil
	}
	out := make([]*schema.ToolInfo, 0, len(declared))
	for _, name := range declared {
		if info, ok := toolInfoSpecs[name]; ok {
			out = append(out, info)
		}
	}
	return out
}
