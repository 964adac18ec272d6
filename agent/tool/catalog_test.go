package tool

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/contract"
	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
)

func snapshot(attrs map[string]string) *statex.SessionState {
	st := statex.NewSessionState("s1", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	for k, v := range attrs {
		st.SetAttribute(k, v)
	}
	return st
}

func TestGatedForBillingTiers(t *testing.T) {
	t.Parallel()

	c := NewCatalog()

	free := c.GatedFor(statex.AgentBilling, snapshot(nil))
	want := []string{ToolExplainCharges, ToolUpdateSubscription}
	if !reflect.DeepEqual(free, want) {
		t.Fatalf("free tier gated set = %v, want %v", free, want)
	}

	premium := c.GatedFor(statex.AgentBilling, snapshot(map[string]string{
		statex.AttrUserTier: statex.TierPremium,
	}))
	want = []string{ToolProcessRefund, ToolExplainCharges, ToolUpdateSubscription}
	if !reflect.DeepEqual(premium, want) {
		t.Fatalf("premium gated set = %v, want %v", premium, want)
	}
}

func TestGatedForTechnicalIssueType(t *testing.T) {
	t.Parallel()

	c := NewCatalog()

	unknown := c.GatedFor(statex.AgentTechnical, snapshot(nil))
	want := []string{ToolResetPassword, ToolCheckStatus}
	if !reflect.DeepEqual(unknown, want) {
		t.Fatalf("unknown issue gated set = %v, want %v", unknown, want)
	}

	technical := c.GatedFor(statex.AgentTechnical, snapshot(map[string]string{
		statex.AttrIssueType: "technical",
	}))
	want = []string{ToolRestartService, ToolResetPassword, ToolCheckStatus}
	if !reflect.DeepEqual(technical, want) {
		t.Fatalf("technical issue gated set = %v, want %v", technical, want)
	}
}

func TestGatedForTriageAndGeneral(t *testing.T) {
	t.Parallel()

	c := NewCatalog()

	if got := c.GatedFor(statex.AgentTriage, snapshot(nil)); len(got) != 0 {
		t.Fatalf("triage must carry no tools, got %v", got)
	}

	general := c.GatedFor(statex.AgentGeneral, snapshot(nil))
	want := []string{ToolProvideInfo, ToolEscalateIssue}
	if !reflect.DeepEqual(general, want) {
		t.Fatalf("general gated set = %v, want %v", general, want)
	}
}

func TestGatedForIsIdempotent(t *testing.T) {
	t.Parallel()

	c := NewCatalog()
	st := snapshot(map[string]string{statex.AttrUserTier: statex.TierPremium})
	before := st.Clone()

	first := c.GatedFor(statex.AgentBilling, st)
	second := c.GatedFor(statex.AgentBilling, st)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated evaluation diverged: %v vs %v", first, second)
	}
	if !reflect.DeepEqual(st.Attributes, before.Attributes) {
		t.Fatalf("gate evaluation mutated the snapshot: %v", st.Attributes)
	}
}

func TestExecuteRefusesUndeclaredOrUngated(t *testing.T) {
	t.Parallel()

	c := NewCatalog()
	ctx := context.Background()

	// Declared by technical, not by billing.
	_, err := c.Execute(ctx, statex.AgentBilling,
		contractx.ToolRequest{Tool: ToolRestartService}, snapshot(nil))
	if !errors.Is(err, contractx.ErrToolNotPermitted) {
		t.Fatalf("expected ErrToolNotPermitted, got %v", err)
	}

	// Declared by billing, gate closed on free tier.
	_, err = c.Execute(ctx, statex.AgentBilling,
		contractx.ToolRequest{Tool: ToolProcessRefund}, snapshot(nil))
	if !errors.Is(err, contractx.ErrToolNotPermitted) {
		t.Fatalf("expected ErrToolNotPermitted, got %v", err)
	}

	_, err = c.Execute(ctx, statex.AgentBilling,
		contractx.ToolRequest{Tool: "  "}, snapshot(nil))
	if !errors.Is(err, contractx.ErrToolNotPermitted) {
		t.Fatalf("expected ErrToolNotPermitted for empty tool, got %v", err)
	}
}

func TestExecuteRunsGatedTool(t *testing.T) {
	t.Parallel()

	c := NewCatalog()
	out, err := c.Execute(context.Background(), statex.AgentBilling,
		contractx.ToolRequest{Tool: ToolProcessRefund},
		snapshot(map[string]string{statex.AttrUserTier: statex.TierPremium}))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Tool != ToolProcessRefund {
		t.Fatalf("result tool = %q", out.Tool)
	}
	if out.Result == nil {
		t.Fatal("expected a result payload")
	}
}

func TestExecuteWrapsActionError(t *testing.T) {
	t.Parallel()

	boom := errors.New("backend down")
	c := NewCatalog(WithAction(ToolCheckStatus,
		func(ctx context.Context, args map[string]any, st *statex.SessionState) (contractx.ToolResult, error) {
			return contractx.ToolResult{}, boom
		}))

	_, err := c.Execute(context.Background(), statex.AgentTechnical,
		contractx.ToolRequest{Tool: ToolCheckStatus}, snapshot(nil))
	if !errors.Is(err, contractx.ErrToolExecution) {
		t.Fatalf("expected ErrToolExecution, got %v", err)
	}
}

func TestUpdateSubscriptionPatchesTier(t *testing.T) {
	t.Parallel()

	c := NewCatalog()
	out, err := c.Execute(context.Background(), statex.AgentBilling,
		contractx.ToolRequest{
			Tool: ToolUpdateSubscription,
			Args: map[string]any{"plan": "Premium"},
		}, snapshot(nil))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.ContextPatch[statex.AttrUserTier] != statex.TierPremium {
		t.Fatalf("expected premium patch, got %v", out.ContextPatch)
	}

	// Unrecognized plans update nothing.
	out, err = c.Execute(context.Background(), statex.AgentBilling,
		contractx.ToolRequest{
			Tool: ToolUpdateSubscription,
			Args: map[string]any{"plan": "platinum"},
		}, snapshot(nil))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(out.ContextPatch) != 0 {
		t.Fatalf("unexpected patch for unknown plan: %v", out.ContextPatch)
	}
}

func TestDeclaredForCopies(t *testing.T) {
	t.Parallel()

	declared := DeclaredFor(statex.AgentBilling)
	if len(declared) != 3 {
		t.Fatalf("unexpected declared set: %v", declared)
	}
	declared[0] = "tampered"
	if DeclaredFor(statex.AgentBilling)[0] != ToolProcessRefund {
		t.Fatal("DeclaredFor must return a copy")
	}
}
