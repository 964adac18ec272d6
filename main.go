package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	orchestratorx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/agents/orchestrator"
	"github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/agents/responder"
	"github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/classify"
	llmx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/llm"
	promptx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/prompt"
	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
	ticketx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/ticket"
	toolx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/tool"
	billingx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/pkg/billing"
	configx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/pkg/config"
	logx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/pkg/logger"
	openrouterx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/pkg/openrouter"
	statuspagex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/pkg/statuspage"
)

type AppConfig struct {
	UserTier string `envconfig:"USER_TIER" split_words:"true" default:"free"`
	UserName string `envconfig:"USER_NAME" split_words:"true"`
}

func main() {
	logCfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*logCfg)

	appCfg := configx.MustNew[AppConfig]("APP")

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid llm config")
	}

	ctx := context.Background()
	prompts := promptx.LoadPromptSet()

	classifierCfg := llmCfg.ClassifierConfig()
	base, err := classify.NewLLMClassifier(
		openrouterx.NewClient(classifierCfg),
		classifierCfg.Model,
		prompts.Classifier,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build classifier")
	}
	breakerCfg := configx.MustNew[classify.BreakerConfig]("CLASSIFIER_BREAKER")
	classifier := classify.NewBreaker(base, *breakerCfg)

	agents, err := responder.NewRegistry(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build agent registry")
	}

	catalog := toolx.NewCatalog(toolBackends(ctx)...)
	store := statex.NewMemoryStore()

	orch, err := orchestratorx.New(store, agents, classifier, catalog)
	if err != nil {
		log.Fatal().Err(err).Msg("build orchestrator")
	}

	sessionOpts := []orchestratorx.SessionOption{
		orchestratorx.WithAttribute(statex.AttrUserTier, appCfg.UserTier),
	}
	if appCfg.UserName != "" {
		sessionOpts = append(sessionOpts,
			orchestratorx.WithAttribute(statex.AttrUserName, appCfg.UserName))
	}
	sessionID, err := orch.StartSession(ctx, sessionOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("start session")
	}

	fmt.Println("Support desk ready. Type your question, or 'quit' to leave.")
	runShell(ctx, orch, store, sessionID)
}

// toolBackends wires the optional external tool clients. Each backend
// is wired only when its environment config is present; otherwise the
// built-in stub action stays in place.
func toolBackends(ctx context.Context) []toolx.Option {
	var opts []toolx.Option

	if cfg, err := configx.New[billingx.Config]("BILLING"); err == nil {
		client := billingx.MustNew(*cfg)
		opts = append(opts,
			toolx.WithAction(toolx.ToolProcessRefund, toolx.NewRefundAction(client)),
			toolx.WithAction(toolx.ToolExplainCharges, toolx.NewChargesAction(client)),
			toolx.WithAction(toolx.ToolUpdateSubscription, toolx.NewSubscriptionAction(client)),
		)
		log.Info().Msg("billing backend enabled")
	}

	if cfg, err := configx.New[statuspagex.Config]("STATUSPAGE"); err == nil {
		client := statuspagex.MustNew(*cfg)
		opts = append(opts,
			toolx.WithAction(toolx.ToolCheckStatus, toolx.NewCheckStatusAction(client)))
		log.Info().Msg("status page backend enabled")
	}

	var tickets ticketx.Store
	if cfg, err := configx.New[ticketx.BunConfig]("TICKET_PG"); err == nil {
		bunStore, berr := ticketx.NewBunStore(*cfg)
		if berr != nil {
			log.Fatal().Err(berr).Msg("open ticket store")
		}
		if ierr := bunStore.Init(ctx); ierr != nil {
			log.Fatal().Err(ierr).Msg("init ticket store")
		}
		tickets = bunStore
		log.Info().Msg("postgres ticket store enabled")
	} else {
		tickets = ticketx.NewMemoryStore()
	}
	opts = append(opts,
		toolx.WithAction(toolx.ToolEscalateIssue, toolx.NewEscalateAction(tickets)))

	return opts
}

func runShell(ctx context.Context, orch *orchestratorx.Orchestrator, store statex.Store, sessionID string) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if line == "reset" {
			if err := resetSession(ctx, store, sessionID); err != nil {
				log.Error().Err(err).Str("session_id", sessionID).Msg("reset session")
				continue
			}
			fmt.Println("desk> Session reset. You are back with the triage agent.")
			continue
		}

		reply, err := orch.SubmitUtterance(ctx, sessionID, line)
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			fmt.Println("desk> Sorry, something went wrong on our side. Please try again.")
			continue
		}
		fmt.Printf("desk> %s\n", reply)
	}

	if st, err := store.Load(ctx, sessionID); err == nil {
		fmt.Println(st.Summary())
	}
	if err := orch.EndSession(ctx, sessionID); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("end session")
	}
	fmt.Println("Goodbye.")
}

func resetSession(ctx context.Context, store statex.Store, sessionID string) error {
	st, err := store.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	st.Reset(time.Now())
	return store.Save(ctx, st)
}
