package orchestratornode

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/contract"
	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func TestValidateRequestTrimsInput(t *testing.T) {
	t.Parallel()

	st, err := ValidateRequest(GraphInput{SessionID: " s1 ", Text: "  hello  "}, fixedNow)
	if err != nil {
		t.Fatalf("ValidateRequest() error = %v", err)
	}
	if st.SessionID != "s1" || st.Text != "hello" {
		t.Fatalf("expected trimmed input, got %+v", st)
	}

	if _, err := ValidateRequest(GraphInput{SessionID: "", Text: "x"}, fixedNow); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if _, err := ValidateRequest(GraphInput{SessionID: "s1", Text: " "}, fixedNow); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func handoffState(agent statex.AgentType, intent statex.IntentLabel) *GraphState {
	st := statex.NewSessionState("s1", fixedNow())
	st.CurrentAgent = agent
	return &GraphState{
		SessionID: "s1",
		Text:      "hello",
		Now:       fixedNow(),
		Session:   st,
		Intent:    intent,
	}
}

func TestApplyHandoffRoutesIntent(t *testing.T) {
	t.Parallel()

	in, err := ApplyHandoff(context.Background(), handoffState(statex.AgentTriage, statex.IntentTechnical))
	if err != nil {
		t.Fatalf("ApplyHandoff() error = %v", err)
	}
	if in.Session.CurrentAgent != statex.AgentTechnical {
		t.Fatalf("expected technical, got %s", in.Session.CurrentAgent)
	}
	if in.Session.LastIntent != statex.IntentTechnical {
		t.Fatalf("expected last intent technical, got %s", in.Session.LastIntent)
	}
	if got := in.Session.Attribute(statex.AttrIssueType); got != "technical" {
		t.Fatalf("expected issue_type technical, got %q", got)
	}
	if len(in.Session.History) != 1 || !strings.Contains(in.Session.History[0].Text, "Technical Agent") {
		t.Fatalf("expected transfer event, got %+v", in.Session.History)
	}
}

func TestApplyHandoffSameAgentNoTransferEvent(t *testing.T) {
	t.Parallel()

	in, err := ApplyHandoff(context.Background(), handoffState(statex.AgentBilling, statex.IntentBilling))
	if err != nil {
		t.Fatalf("ApplyHandoff() error = %v", err)
	}
	if in.Session.CurrentAgent != statex.AgentBilling {
		t.Fatalf("expected billing, got %s", in.Session.CurrentAgent)
	}
	if len(in.Session.History) != 0 {
		t.Fatalf("same-agent turn must not append a transfer event: %+v", in.Session.History)
	}
}

func TestApplyHandoffSetsIssueTypePerIntent(t *testing.T) {
	t.Parallel()

	for _, intent := range []statex.IntentLabel{
		statex.IntentBilling, statex.IntentTechnical, statex.IntentGeneral,
	} {
		in, err := ApplyHandoff(context.Background(), handoffState(statex.AgentTriage, intent))
		if err != nil {
			t.Fatalf("ApplyHandoff(%s) error = %v", intent, err)
		}
		if got := in.Session.Attribute(statex.AttrIssueType); got != string(intent) {
			t.Fatalf("ApplyHandoff(%s): issue_type = %q, want %q", intent, got, intent)
		}
	}
}

func TestApplyHandoffEscalationIsTerminal(t *testing.T) {
	t.Parallel()

	in, err := ApplyHandoff(context.Background(), handoffState(statex.AgentGeneral, statex.IntentHumanEscalation))
	if err != nil {
		t.Fatalf("ApplyHandoff() error = %v", err)
	}
	if !in.Session.Escalated {
		t.Fatal("expected escalated session")
	}
	if in.Reply != EscalationReply {
		t.Fatalf("expected escalation reply, got %q", in.Reply)
	}
	// The owning agent does not change on escalation.
	if in.Session.CurrentAgent != statex.AgentGeneral {
		t.Fatalf("expected general, got %s", in.Session.CurrentAgent)
	}
}

func TestApplyHandoffUnknownIntent(t *testing.T) {
	t.Parallel()

	if _, err := ApplyHandoff(context.Background(), handoffState(statex.AgentTriage, "chitchat")); err == nil {
		t.Fatal("expected error for unknown intent")
	}
}

type stubClassifier struct {
	intent statex.IntentLabel
	err    error
}

func (s stubClassifier) Classify(ctx context.Context, utterance string, snapshot *statex.SessionState) (statex.IntentLabel, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.intent, nil
}

func TestClassifyIntentFallbackWithoutLastIntent(t *testing.T) {
	t.Parallel()

	in := handoffState(statex.AgentTriage, "")
	out, err := ClassifyIntent(context.Background(), in,
		stubClassifier{err: context.DeadlineExceeded}, time.Second)
	if err != nil {
		t.Fatalf("ClassifyIntent() error = %v", err)
	}
	if out.Intent != statex.IntentGeneral {
		t.Fatalf("expected general fallback, got %s", out.Intent)
	}
}

func TestClassifyIntentCancelledParentAborts(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := handoffState(statex.AgentTriage, "")
	if _, err := ClassifyIntent(ctx, in, stubClassifier{err: ctx.Err()}, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type stubResponder struct {
	resp    contractx.RespondResponse
	mutated map[string]string
}

func (s *stubResponder) Respond(ctx context.Context, req contractx.RespondRequest) (contractx.RespondResponse, error) {
	if s.mutated != nil {
		for k, v := range s.mutated {
			req.Attributes[k] = v
		}
	}
	return s.resp, nil
}

type stubRegistry struct {
	responder contractx.Responder
}

func (r stubRegistry) Triage() contractx.Responder    { return r.responder }
func (r stubRegistry) Billing() contractx.Responder   { return r.responder }
func (r stubRegistry) Technical() contractx.Responder { return r.responder }
func (r stubRegistry) General() contractx.Responder   { return r.responder }

type countingGateway struct {
	executed []string
}

func (g *countingGateway) GatedFor(agent statex.AgentType, snapshot *statex.SessionState) []string {
	return nil
}

func (g *countingGateway) Execute(ctx context.Context, agent statex.AgentType, req contractx.ToolRequest, snapshot *statex.SessionState) (contractx.ToolResult, error) {
	g.executed = append(g.executed, req.Tool)
	return contractx.ToolResult{Tool: req.Tool, Result: "ok"}, nil
}

func dispatchState(agent statex.AgentType, gated []string) *GraphState {
	st := statex.NewSessionState("s1", fixedNow())
	st.CurrentAgent = agent
	return &GraphState{
		SessionID:  "s1",
		Text:       "hello",
		Now:        fixedNow(),
		Session:    st,
		GatedTools: gated,
	}
}

func TestDispatchAgentRejectsBatchBeforeAnyToolRuns(t *testing.T) {
	t.Parallel()

	responder := &stubResponder{resp: contractx.RespondResponse{
		ToolRequests: []contractx.ToolRequest{
			{Tool: "explain_charges"},
			{Tool: "process_refund"},
		},
	}}
	gateway := &countingGateway{}

	in := dispatchState(statex.AgentBilling, []string{"explain_charges", "update_subscription"})
	_, err := DispatchAgent(context.Background(), in, stubRegistry{responder}, gateway)
	if !errors.Is(err, contractx.ErrToolNotPermitted) {
		t.Fatalf("expected ErrToolNotPermitted, got %v", err)
	}
	if len(gateway.executed) != 0 {
		t.Fatalf("no tool may run when any request is ungated, executed %v", gateway.executed)
	}
	if len(in.Session.History) != 0 {
		t.Fatalf("rejected batch must leave history untouched: %+v", in.Session.History)
	}
}

func TestDispatchAgentResponderCannotMutateSession(t *testing.T) {
	t.Parallel()

	responder := &stubResponder{
		resp:    contractx.RespondResponse{Message: "all set"},
		mutated: map[string]string{statex.AttrUserTier: statex.TierPremium},
	}

	in := dispatchState(statex.AgentGeneral, nil)
	in.Session.SetAttribute(statex.AttrUserTier, statex.TierFree)
	out, err := DispatchAgent(context.Background(), in, stubRegistry{responder}, &countingGateway{})
	if err != nil {
		t.Fatalf("DispatchAgent() error = %v", err)
	}
	if out.Reply != "all set" {
		t.Fatalf("expected direct reply, got %q", out.Reply)
	}
	if got := in.Session.Attribute(statex.AttrUserTier); got != statex.TierFree {
		t.Fatalf("responder mutation leaked into session, user_tier = %q", got)
	}
}
