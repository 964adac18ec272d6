package prompt

import (
	_ "embed"
	"strings"

	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/triage.txt
	triageRaw string

	//go:embed template/billing.txt
	billingRaw string

	//go:embed template/technical.txt
	technicalRaw string

	//go:embed template/general.txt
	generalRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Classifier string
	Triage     string
	Billing    string
	Technical  string
	General    string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// Safe to call concurrently; the embed is compile-time.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier: strings.TrimSpace(classifierRaw),
		Triage:     strings.TrimSpace(triageRaw),
		Billing:    strings.TrimSpace(billingRaw),
		Technical:  strings.TrimSpace(technicalRaw),
		General:    strings.TrimSpace(generalRaw),
	}
}

// ForAgent returns the system prompt for one agent type.
func (p PromptSet) ForAgent(agentType statex.AgentType) string {
	switch agentType {
	case statex.AgentTriage:
		return p.Triage
	case statex.AgentBilling:
		return p.Billing
	case statex.AgentTechnical:
		return p.Technical
	case statex.AgentGeneral:
		return p.General
	default:
		return ""
	}
}
