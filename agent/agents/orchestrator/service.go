package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/contract"
	nodex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
	ErrUnknownSession = nodex.ErrUnknownSession
)

// Orchestrator owns the submit-utterance turn pipeline: classify,
// hand off, gate tools, dispatch the owning agent, commit state.
type Orchestrator struct {
	store      statex.Store
	agents     contractx.Registry
	classifier contractx.Classifier
	tools      contractx.ToolGateway

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	classifyTimeout time.Duration
	now             func() time.Time
}

// Option tweaks orchestrator construction.
type Option func(*Orchestrator)

// WithClassifyTimeout bounds each classifier call.
func WithClassifyTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.classifyTimeout = d
		}
	}
}

// WithClock overrides the time source, tests use this.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func New(
	store statex.Store,
	agents contractx.Registry,
	classifier contractx.Classifier,
	tools contractx.ToolGateway,
	opts ...Option,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if agents == nil {
		return nil, errors.New("agent registry is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if tools == nil {
		return nil, errors.New("tool gateway is required")
	}

	o := &Orchestrator{
		store:           store,
		agents:          agents,
		classifier:      classifier,
		tools:           tools,
		classifyTimeout: nodex.DefaultClassifyTimeout,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	graphRunner, err := o.compileSubmitUtteranceGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// SessionOption seeds a new session at creation time.
type SessionOption func(*statex.SessionState)

// WithAttribute sets an initial session attribute, for example the
// user's subscription tier known at intake.
func WithAttribute(key, value string) SessionOption {
	return func(s *statex.SessionState) {
		if strings.TrimSpace(key) != "" {
			s.SetAttribute(key, value)
		}
	}
}

// StartSession creates a fresh session owned by the triage agent and
// returns its id.
func (o *Orchestrator) StartSession(ctx context.Context, opts ...SessionOption) (string, error) {
	st := statex.NewSessionState(ulid.Make().String(), o.now())
	for _, opt := range opts {
		opt(st)
	}
	if err := o.store.Save(ctx, st); err != nil {
		return "", err
	}
	log.Info().
		Str("session_id", st.SessionID).
		Str("agent", string(st.CurrentAgent)).
		Msg("session started")
	return st.SessionID, nil
}

// SubmitUtterance processes one user turn and returns the reply shown
// to the user.
//
// A tool selection outside the turn's gated set is an internal
// invariant violation: it is logged, the session is left at its last
// committed state, and the user sees a polite refusal rather than the
// error.
func (o *Orchestrator) SubmitUtterance(ctx context.Context, sessionID string, text string) (string, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		if errors.Is(err, contractx.ErrToolNotPermitted) {
			log.Error().
				Err(err).
				Str("session_id", sessionID).
				Msg("gated tool invariant violated")
			return nodex.ToolNotPermittedReply, nil
		}
		return "", err
	}
	return out.Reply, nil
}

// EndSession discards the session. Ending an unknown session is a no-op.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) error {
	if err := o.store.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, statex.ErrStateNotFound) {
			return nil
		}
		return err
	}
	log.Info().Str("session_id", sessionID).Msg("session ended")
	return nil
}
