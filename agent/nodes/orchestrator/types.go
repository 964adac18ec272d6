package orchestratornode

import (
	"errors"
	"strings"
	"time"

	statex "github.com/tanpawarit/Deskline-Gated-Support-Handoff/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
	ErrUnknownSession = errors.New("unknown session id")
)

// User-visible replies. Internal errors are never shown verbatim.
const (
	EscalationReply = "Connecting you to a human representative. Please hold while we transfer you."

	ToolNotPermittedReply = "I'm sorry, that action is not available for your account."

	ToolFailureReply = "I apologize, I ran into a problem completing that action. Please try again in a moment."
)

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	Reply string
}

// GraphState is the working state threaded through one turn. Session is
// a working copy; nothing becomes visible until SaveState commits it.
type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time

	Session    *statex.SessionState
	Intent     statex.IntentLabel
	GatedTools []string

	Reply       string
	ToolInvoked string
	ToolFailed  bool
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}
