package orchestratornode

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/contract"
	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
)

// DefaultClassifyTimeout bounds a single classifier call. The turn as
// a whole keeps the caller's context.
const DefaultClassifyTimeout = 10 * time.Second

// ClassifyIntent labels the incoming utterance. Escalated sessions
// short-circuit: no classifier call, the fixed escalation reply is the
// only thing left to produce for them.
//
// When the classifier is unavailable or times out, the turn falls back
// to the session's last intent, or general when the session has none.
// Cancellation of the caller's context still aborts the turn.
func ClassifyIntent(
	ctx context.Context,
	in *GraphState,
	classifier contractx.Classifier,
	timeout time.Duration,
) (*GraphState, error) {
	if in.Session.Escalated {
		in.Reply = EscalationReply
		return in, nil
	}

	if timeout <= 0 {
		timeout = DefaultClassifyTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	intent, err := classifier.Classify(cctx, in.Text, in.Session)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, contractx.ErrClassifierUnavailable) || errors.Is(err, context.DeadlineExceeded) {
			fallback := in.Session.LastIntent
			if fallback == "" {
				fallback = statex.IntentGeneral
			}
			log.Warn().
				Err(err).
				Str("session_id", in.SessionID).
				Str("fallback_intent", string(fallback)).
				Msg("classifier unavailable, falling back")
			in.Intent = fallback
			return in, nil
		}
		return nil, err
	}

	in.Intent = intent
	return in, nil
}
