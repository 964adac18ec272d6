package tool

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/contract"
	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
)

// Tool identifiers. The set is closed; agents declare subsets of it.
const (
	ToolProcessRefund      = "process_refund"
	ToolExplainCharges     = "explain_charges"
	ToolUpdateSubscription = "update_subscription"
	ToolRestartService     = "restart_service"
	ToolResetPassword      = "reset_password"
	ToolCheckStatus        = "check_status"
	ToolProvideInfo        = "provide_info"
	ToolEscalateIssue      = "escalate_issue"
)

// GateFunc is a gating predicate: a pure function of the context
// snapshot, no hidden state. Recomputed fresh every turn, never cached,
// because context can change within a turn.
type GateFunc func(snapshot *statex.SessionState) bool

func allowAlways(*statex.SessionState) bool { return true }

// gates holds the gating policy as data so the rule set stays centrally
// auditable instead of scattered through agent code.
var gates = map[string]GateFunc{
	ToolProcessRefund: func(st *statex.SessionState) bool {
		return st.Attribute(statex.AttrUserTier) == statex.TierPremium
	},
	ToolExplainCharges:     allowAlways,
	ToolUpdateSubscription: allowAlways,
	ToolRestartService: func(st *statex.SessionState) bool {
		return st.Attribute(statex.AttrIssueType) == string(statex.IntentTechnical)
	},
	ToolResetPassword: allowAlways,
	ToolCheckStatus:   allowAlways,
	ToolProvideInfo:   allowAlways,
	ToolEscalateIssue: allowAlways,
}

// agentTools declares, in display order, which tools each agent may
// surface. Triage only routes and carries no tools.
var agentTools = map[statex.AgentType][]string{
	statex.AgentTriage: nil,
	statex.AgentBilling: {
		ToolProcessRefund,
		ToolExplainCharges,
		ToolUpdateSubscription,
	},
	statex.AgentTechnical: {
		ToolRestartService,
		ToolResetPassword,
		ToolCheckStatus,
	},
	statex.AgentGeneral: {
		ToolProvideInfo,
		ToolEscalateIssue,
	},
}

// ActionFunc is the side-effecting tool body. It receives a context
// snapshot only; attribute changes travel back via ToolResult.ContextPatch.
type ActionFunc func(ctx context.Context, args map[string]any, snapshot *statex.SessionState) (contractx.ToolResult, error)

// Catalog implements contractx.ToolGateway over the declared tool sets
// and gating policy above. Tool definitions are stateless.
type Catalog struct {
	actions map[string]ActionFunc
}

type Option func(*Catalog)

// WithAction overrides the action behind one tool identifier. Used to
// wire client-backed actions over the default stubs.
func WithAction(tool string, fn ActionFunc) Option {
	return func(c *Catalog) {
		if strings.TrimSpace(tool) != "" && fn != nil {
			c.actions[tool] = fn
		}
	}
}

func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{
		actions: defaultActions(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// DeclaredFor returns the agent's declared tool identifiers.
func DeclaredFor(agent statex.AgentType) []string {
	return append([]string(nil), agentTools[agent]...)
}

func (c *Catalog) DeclaredFor(agent statex.AgentType) []string {
	return DeclaredFor(agent)
}

// GatedFor returns the tools the agent declares whose gate passes on
// the snapshot, in declaration order for display determinism.
func (c *Catalog) GatedFor(agent statex.AgentType, snapshot *statex.SessionState) []string {
	declared := agentTools[agent]
	if len(declared) == 0 {
		return nil
	}
	out := make([]string, 0, len(declared))
	for _, name := range declared {
		gate, ok := gates[name]
		if !ok {
			continue
		}
		if gate(snapshot) {
			out = append(out, name)
		}
	}
	return out
}

// Allowed reports whether the tool is declared by the agent and its
// gate passes on the snapshot.
func (c *Catalog) Allowed(agent statex.AgentType, tool string, snapshot *statex.SessionState) bool {
	for _, name := range agentTools[agent] {
		if name != tool {
			continue
		}
		gate, ok := gates[name]
		return ok && gate(snapshot)
	}
	return false
}

// Execute runs one gated tool invocation. Membership and gate are
// re-verified here; the orchestrator never trusts the agent's selection.
func (c *Catalog) Execute(
	ctx context.Context,
	agent statex.AgentType,
	req contractx.ToolRequest,
	snapshot *statex.SessionState,
) (contractx.ToolResult, error) {
	name := strings.TrimSpace(req.Tool)
	if name == "" {
		return contractx.ToolResult{}, fmt.Errorf("%w: tool name is empty", contractx.ErrToolNotPermitted)
	}
	if !c.Allowed(agent, name, snapshot) {
		return contractx.ToolResult{}, fmt.Errorf("%w: tool=%s agent=%s", contractx.ErrToolNotPermitted, name, agent)
	}

	action, ok := c.actions[name]
	if !ok {
		return contractx.ToolResult{}, fmt.Errorf("%w: tool=%s has no action", contractx.ErrToolNotPermitted, name)
	}

	out, err := action(ctx, req.Args, snapshot)
	if err != nil {
		return contractx.ToolResult{}, fmt.Errorf("%w: tool=%s: %v", contractx.ErrToolExecution, name, err)
	}
	out.Tool = name
	return out, nil
}
