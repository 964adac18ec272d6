package state

import (
	"errors"
	"fmt"
	"time"
)

// SessionState is the per-session source-of-truth for handoff control:
// which agent currently owns the conversation, what the classifier last
// decided, and the user attributes gating predicates read.
// Mutated only by the orchestrator; agents receive snapshots.
type SessionState struct {
	SessionID string `json:"session_id"`

	CurrentAgent AgentType   `json:"current_agent"`
	LastIntent   IntentLabel `json:"last_intent,omitempty"`
	Escalated    bool        `json:"escalated,omitempty"`

	Attributes map[string]string `json:"attributes,omitempty"`
	History    []Turn            `json:"history,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// AgentType identifies one of the fixed set of conversational agents.
type AgentType string

const (
	AgentTriage    AgentType = "triage"
	AgentBilling   AgentType = "billing"
	AgentTechnical AgentType = "technical"
	AgentGeneral   AgentType = "general"
)

// IntentLabel is the classifier's categorical judgment for one turn.
type IntentLabel string

const (
	IntentBilling         IntentLabel = "billing"
	IntentTechnical       IntentLabel = "technical"
	IntentGeneral         IntentLabel = "general"
	IntentHumanEscalation IntentLabel = "human_escalation"
)

type Speaker string

const (
	SpeakerUser   Speaker = "user"
	SpeakerAgent  Speaker = "agent"
	SpeakerSystem Speaker = "system"
	SpeakerTool   Speaker = "tool"
)

// Turn is one entry of the ordered conversation history.
type Turn struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Attribute keys and their documented defaults.
const (
	AttrUserTier  = "user_tier"
	AttrIssueType = "issue_type"
	AttrUserName  = "user_name"

	TierFree    = "free"
	TierPremium = "premium"

	IssueUnknown = "unknown"

	defaultUserName = "Guest"
)

var (
	ErrNilSessionState = errors.New("session state is nil")
	ErrInvalidSession  = errors.New("session id is empty")
	ErrUnknownAgent    = errors.New("unknown agent type")
)

func NewSessionState(sessionID string, now time.Time) *SessionState {
	return &SessionState{
		SessionID:    sessionID,
		CurrentAgent: AgentTriage,
		Attributes:   make(map[string]string, 4),
		UpdatedAt:    now.UTC(),
	}
}

// DisplayName renders the agent name used in transfer history events.
func (t AgentType) DisplayName() string {
	switch t {
	case AgentTriage:
		return "Triage Agent"
	case AgentBilling:
		return "Billing Agent"
	case AgentTechnical:
		return "Technical Agent"
	case AgentGeneral:
		return "General Agent"
	default:
		return string(t)
	}
}

// KnownAgent reports whether t belongs to the closed agent set.
func KnownAgent(t AgentType) bool {
	switch t {
	case AgentTriage, AgentBilling, AgentTechnical, AgentGeneral:
		return true
	default:
		return false
	}
}

func (s *SessionState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// EnsureAttributes makes sure s.Attributes is initialized.
func (s *SessionState) EnsureAttributes() {
	if s.Attributes == nil {
		s.Attributes = make(map[string]string, 4)
	}
}

// Attribute returns the stored value or the documented default:
// user_tier -> "free", issue_type -> "unknown", user_name -> "Guest",
// anything else -> "". Missing keys are never an error.
func (s *SessionState) Attribute(key string) string {
	if s != nil && s.Attributes != nil {
		if v, ok := s.Attributes[key]; ok && v != "" {
			return v
		}
	}
	switch key {
	case AttrUserTier:
		return TierFree
	case AttrIssueType:
		return IssueUnknown
	case AttrUserName:
		return defaultUserName
	default:
		return ""
	}
}

// SetAttribute overwrites the attribute value.
func (s *SessionState) SetAttribute(key, value string) {
	if s == nil {
		return
	}
	s.EnsureAttributes()
	s.Attributes[key] = value
}

// AppendHistory appends one turn. History is only ever appended to;
// Reset is the sole truncation path.
func (s *SessionState) AppendHistory(speaker Speaker, text string, now time.Time) {
	if s == nil {
		return
	}
	s.History = append(s.History, Turn{
		Speaker: speaker,
		Text:    text,
		At:      now.UTC(),
	})
}

// RecentHistory returns up to n most recent turns (oldest first).
func (s *SessionState) RecentHistory(n int) []Turn {
	if s == nil || n <= 0 || len(s.History) == 0 {
		return nil
	}
	if len(s.History) <= n {
		return append([]Turn(nil), s.History...)
	}
	return append([]Turn(nil), s.History[len(s.History)-n:]...)
}

// Reset is the explicit session-reset operation: it clears history,
// attributes, and routing state but keeps the session identity.
func (s *SessionState) Reset(now time.Time) {
	if s == nil {
		return
	}
	s.CurrentAgent = AgentTriage
	s.LastIntent = ""
	s.Escalated = false
	s.Attributes = make(map[string]string, 4)
	s.History = nil
	s.Touch(now)
}

// UserTurns counts the user utterances handled so far.
func (s *SessionState) UserTurns() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, t := range s.History {
		if t.Speaker == SpeakerUser {
			n++
		}
	}
	return n
}

// Summary renders the end-of-session summary shown by the console shell.
func (s *SessionState) Summary() string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf(
		"user=%s tier=%s issue_type=%s queries_handled=%d escalated=%t",
		s.Attribute(AttrUserName),
		s.Attribute(AttrUserTier),
		s.Attribute(AttrIssueType),
		s.UserTurns(),
		s.Escalated,
	)
}

func (s *SessionState) Validate() error {
	if s == nil {
		return ErrNilSessionState
	}
	if s.SessionID == "" {
		return ErrInvalidSession
	}
	if !KnownAgent(s.CurrentAgent) {
		return fmt.Errorf("%w: %q", ErrUnknownAgent, s.CurrentAgent)
	}
	return nil
}

// Clone deep-copies the state. The store clones on Load and Save so a
// turn's working copy never aliases the committed copy.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	out := *s
	if s.Attributes != nil {
		out.Attributes = make(map[string]string, len(s.Attributes))
		for k, v := range s.Attributes {
			out.Attributes[k] = v
		}
	}
	if s.History != nil {
		out.History = append([]Turn(nil), s.History...)
	}
	return &out
}
