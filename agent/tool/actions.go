package tool

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/contract"
	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
	ticketx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/ticket"
	billingx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/pkg/billing"
	statuspagex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/pkg/statuspage"
)

// defaultActions returns the stub action set. Every tool is runnable
// out of the box; client-backed actions are wired over these via
// WithAction when the corresponding collaborator is configured.
func defaultActions() map[string]ActionFunc {
	return map[string]ActionFunc{
		ToolProcessRefund: func(_ context.Context, _ map[string]any, _ *statex.SessionState) (contractx.ToolResult, error) {
			return contractx.ToolResult{
				Result: "Your refund has been processed successfully. It will reflect in your account within 5-7 business days.",
			}, nil
		},
		ToolExplainCharges: func(_ context.Context, _ map[string]any, _ *statex.SessionState) (contractx.ToolResult, error) {
			return contractx.ToolResult{
				Result: "Your recent charge of $49.99 is for your monthly subscription. This includes access to all premium features.",
			}, nil
		},
		ToolUpdateSubscription: updateSubscriptionStub,
		ToolRestartService: func(_ context.Context, _ map[string]any, _ *statex.SessionState) (contractx.ToolResult, error) {
			return contractx.ToolResult{
				Result: "The service has been restarted successfully. Please allow a few minutes for it to become fully operational.",
			}, nil
		},
		ToolResetPassword: func(_ context.Context, _ map[string]any, _ *statex.SessionState) (contractx.ToolResult, error) {
			return contractx.ToolResult{
				Result: "A password reset link has been sent to your email. Please check your inbox and follow the instructions.",
			}, nil
		},
		ToolCheckStatus: func(_ context.Context, _ map[string]any, _ *statex.SessionState) (contractx.ToolResult, error) {
			return contractx.ToolResult{
				Result: "All systems are operational. No outages reported at this time.",
			}, nil
		},
		ToolProvideInfo: func(_ context.Context, _ map[string]any, _ *statex.SessionState) (contractx.ToolResult, error) {
			return contractx.ToolResult{
				Result: "Our company provides a range of services designed to meet your needs. For more specific information, please visit our website or contact our support team.",
			}, nil
		},
		ToolEscalateIssue: func(_ context.Context, _ map[string]any, _ *statex.SessionState) (contractx.ToolResult, error) {
			return contractx.ToolResult{
				Result: "Your issue has been escalated to a human representative. They will contact you within 24 hours.",
			}, nil
		},
	}
}

// updateSubscriptionStub patches user_tier when the requested plan is a
// known tier, which is how gating can change mid-conversation.
func updateSubscriptionStub(_ context.Context, args map[string]any, _ *statex.SessionState) (contractx.ToolResult, error) {
	result := contractx.ToolResult{
		Result: "Your subscription has been updated successfully. Your new plan will take effect in the next billing cycle.",
	}
	if plan := planArg(args); plan != "" {
		result.ContextPatch = map[string]string{statex.AttrUserTier: plan}
	}
	return result, nil
}

func planArg(args map[string]any) string {
	raw, ok := args["plan"]
	if !ok {
		return ""
	}
	plan, ok := raw.(string)
	if !ok {
		return ""
	}
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case statex.TierFree:
		return statex.TierFree
	case statex.TierPremium:
		return statex.TierPremium
	default:
		return ""
	}
}

/* ------------------------- client-backed actions ------------------------- */

// NewRefundAction backs process_refund with the billing platform.
func NewRefundAction(client *billingx.Client) ActionFunc {
	return func(ctx context.Context, args map[string]any, snapshot *statex.SessionState) (contractx.ToolResult, error) {
		reason, _ := args["reason"].(string)
		refund, err := client.CreateRefund(ctx, snapshot.SessionID, reason)
		if err != nil {
			return contractx.ToolResult{}, err
		}
		return contractx.ToolResult{
			Result: fmt.Sprintf(
				"Your refund %s has been %s. It will reflect in your account within %s.",
				refund.RefundID, refund.Status, etaOrDefault(refund.ETA),
			),
		}, nil
	}
}

// NewChargesAction backs explain_charges with the billing platform.
func NewChargesAction(client *billingx.Client) ActionFunc {
	return func(ctx context.Context, _ map[string]any, snapshot *statex.SessionState) (contractx.ToolResult, error) {
		charges, err := client.RecentCharges(ctx, snapshot.SessionID)
		if err != nil {
			return contractx.ToolResult{}, err
		}
		if len(charges) == 0 {
			return contractx.ToolResult{Result: "There are no recent charges on your account."}, nil
		}
		lines := make([]string, 0, len(charges))
		for _, ch := range charges {
			lines = append(lines, fmt.Sprintf("$%.2f (%s)", ch.Amount, ch.Description))
		}
		return contractx.ToolResult{
			Result: "Your recent charges: " + strings.Join(lines, "; "),
		}, nil
	}
}

// NewSubscriptionAction backs update_subscription with the billing
// platform; a successful plan switch patches user_tier.
func NewSubscriptionAction(client *billingx.Client) ActionFunc {
	return func(ctx context.Context, args map[string]any, snapshot *statex.SessionState) (contractx.ToolResult, error) {
		plan := planArg(args)
		if plan == "" {
			return updateSubscriptionStub(ctx, args, snapshot)
		}
		sub, err := client.UpdateSubscription(ctx, snapshot.SessionID, plan)
		if err != nil {
			return contractx.ToolResult{}, err
		}
		return contractx.ToolResult{
			Result: fmt.Sprintf(
				"Your subscription is now on the %s plan (%s).",
				sub.Plan, sub.Status,
			),
			ContextPatch: map[string]string{statex.AttrUserTier: sub.Plan},
		}, nil
	}
}

// NewCheckStatusAction backs check_status with the live status page.
func NewCheckStatusAction(client *statuspagex.Client) ActionFunc {
	return func(ctx context.Context, _ map[string]any, _ *statex.SessionState) (contractx.ToolResult, error) {
		summary, err := client.CurrentSummary(ctx)
		if err != nil {
			return contractx.ToolResult{}, err
		}
		if summary.Operational() {
			return contractx.ToolResult{
				Result: "All systems are operational. No outages reported at this time.",
			}, nil
		}
		return contractx.ToolResult{
			Result: fmt.Sprintf("Service impact reported: %s.", summary.Description),
		}, nil
	}
}

// NewEscalateAction files an escalation ticket for the human channel.
func NewEscalateAction(store ticketx.Store) ActionFunc {
	return func(ctx context.Context, args map[string]any, snapshot *statex.SessionState) (contractx.ToolResult, error) {
		summary, _ := args["summary"].(string)
		if strings.TrimSpace(summary) == "" {
			summary = "escalated from " + string(snapshot.CurrentAgent) + " agent"
		}
		t := &ticketx.Ticket{
			SessionID: snapshot.SessionID,
			Summary:   summary,
		}
		if err := store.Create(ctx, t); err != nil {
			return contractx.ToolResult{}, err
		}
		return contractx.ToolResult{
			Result: fmt.Sprintf(
				"Your issue has been escalated to a human representative (ticket #%d). They will contact you within 24 hours.",
				t.ID,
			),
		}, nil
	}
}

func etaOrDefault(eta string) string {
	if strings.TrimSpace(eta) == "" {
		return "5-7 business days"
	}
	return eta
}
