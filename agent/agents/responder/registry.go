package responder

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/contract"
	llmx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/llm"
	promptx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/prompt"
	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
)

type registryImpl struct {
	triage    contractx.Responder
	billing   contractx.Responder
	technical contractx.Responder
	general   contractx.Responder
}

func (r *registryImpl) Triage() contractx.Responder {
	return r.triage
}

func (r *registryImpl) Billing() contractx.Responder {
	return r.billing
}

func (r *registryImpl) Technical() contractx.Responder {
	return r.technical
}

func (r *registryImpl) General() contractx.Responder {
	return r.general
}

// NewRegistry builds the closed set of agent responders. Agents are
// immutable definitions instantiated once at startup; the orchestrator
// only ever moves a pointer between them.
func NewRegistry(ctx context.Context, cfg llmx.Config) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()

	build := func(agentType statex.AgentType) (contractx.Responder, error) {
		modelCfg := cfg.ResponderConfig(agentType)
		chatModel, err := modelCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create model for agent=%s: %v", contractx.ErrModelInvoke, agentType, err)
		}
		return newResponder(ctx, agentType, chatModel, prompts.ForAgent(agentType))
	}

	triage, err := build(statex.AgentTriage)
	if err != nil {
		return nil, err
	}
	billing, err := build(statex.AgentBilling)
	if err != nil {
		return nil, err
	}
	technical, err := build(statex.AgentTechnical)
	if err != nil {
		return nil, err
	}
	general, err := build(statex.AgentGeneral)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		triage:    triage,
		billing:   billing,
		technical: technical,
		general:   general,
	}, nil
}
