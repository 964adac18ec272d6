package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/contract"
	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
	openrouterx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/pkg/openrouter"
)

// Config carries the shared model settings plus optional per-agent
// overrides. The classifier and each responder can run on a different
// model and temperature.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"1500"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ClassifierModel       string  `envconfig:"CLASSIFIER_MODEL" split_words:"true"`
	BillingModel          string  `envconfig:"BILLING_MODEL" split_words:"true"`
	TechnicalModel        string  `envconfig:"TECHNICAL_MODEL" split_words:"true"`
	GeneralModel          string  `envconfig:"GENERAL_MODEL" split_words:"true"`
	ClassifierTemperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" split_words:"true" default:"-1"`
	AgentTemperature      float32 `envconfig:"AGENT_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// ClassifierConfig resolves the classifier's model settings. The
// classifier prefers temperature 0 unless overridden: label output
// should be deterministic.
func (c Config) ClassifierConfig() openrouterx.Config {
	out := c.base()
	if v := strings.TrimSpace(c.ClassifierModel); v != "" {
		out.Model = v
	}
	if c.ClassifierTemperature >= 0 {
		out.Temperature = c.ClassifierTemperature
	} else {
		out.Temperature = 0
	}
	return out
}

// ResponderConfig resolves one agent's model settings.
func (c Config) ResponderConfig(agentType statex.AgentType) openrouterx.Config {
	out := c.base()

	switch agentType {
	case statex.AgentBilling:
		if v := strings.TrimSpace(c.BillingModel); v != "" {
			out.Model = v
		}
	case statex.AgentTechnical:
		if v := strings.TrimSpace(c.TechnicalModel); v != "" {
			out.Model = v
		}
	case statex.AgentGeneral:
		if v := strings.TrimSpace(c.GeneralModel); v != "" {
			out.Model = v
		}
	}

	if c.AgentTemperature >= 0 {
		out.Temperature = c.AgentTemperature
	}
	return out
}

func (c Config) base() openrouterx.Config {
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
