package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/contract"
	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
)

const historyWindow = 6

// LLMClassifier maps an utterance plus a context snapshot to one intent
// label using a chat completion. The model is an opaque oracle; any
// transport or API failure surfaces as ErrClassifierUnavailable and the
// orchestrator falls back without it.
type LLMClassifier struct {
	client       *openaisdk.Client
	model        string
	systemPrompt string
}

func NewLLMClassifier(client *openaisdk.Client, model, systemPrompt string) (*LLMClassifier, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: openai client is required", contractx.ErrValidation)
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("%w: classifier model is required", contractx.ErrValidation)
	}
	return &LLMClassifier{
		client:       client,
		model:        model,
		systemPrompt: strings.TrimSpace(systemPrompt),
	}, nil
}

func (c *LLMClassifier) Classify(
	ctx context.Context,
	utterance string,
	snapshot *statex.SessionState,
) (statex.IntentLabel, error) {
	payload, err := classifyPayload(utterance, snapshot)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(c.systemPrompt),
			openaisdk.UserMessage(payload),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrClassifierUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", contractx.ErrClassifierUnavailable)
	}

	return ParseLabel(resp.Choices[0].Message.Content), nil
}

// ParseLabel normalizes raw model output to a known intent label.
// Anything unrecognized becomes general rather than an error: a wrong
// route is recoverable, a stalled conversation is not.
func ParseLabel(raw string) statex.IntentLabel {
	label := strings.ToLower(strings.TrimSpace(raw))
	label = strings.Trim(label, `"'.`)

	switch statex.IntentLabel(label) {
	case statex.IntentBilling:
		return statex.IntentBilling
	case statex.IntentTechnical:
		return statex.IntentTechnical
	case statex.IntentHumanEscalation:
		return statex.IntentHumanEscalation
	default:
		return statex.IntentGeneral
	}
}

func classifyPayload(utterance string, snapshot *statex.SessionState) (string, error) {
	body := map[string]any{
		"query": utterance,
	}
	if snapshot != nil {
		body["last_intent"] = snapshot.LastIntent
		body["issue_type"] = snapshot.Attribute(statex.AttrIssueType)
		body["recent_turns"] = summarizeTurns(snapshot.RecentHistory(historyWindow))
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: marshal classify payload: %v", contractx.ErrValidation, err)
	}
	return string(raw), nil
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
