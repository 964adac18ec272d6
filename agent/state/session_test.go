package state

import (
	"strings"
	"testing"
	"time"
)

func testNow() time.Time {
	return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func TestNewSessionStateStartsAtTriage(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", testNow())
	if st.CurrentAgent != AgentTriage {
		t.Fatalf("expected triage, got %s", st.CurrentAgent)
	}
	if st.Escalated {
		t.Fatal("new sessions must not be escalated")
	}
	if st.LastIntent != "" {
		t.Fatalf("expected empty last intent, got %s", st.LastIntent)
	}
}

func TestAttributeDefaults(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", testNow())

	if got := st.Attribute(AttrUserTier); got != TierFree {
		t.Fatalf("user_tier default = %q, want %q", got, TierFree)
	}
	if got := st.Attribute(AttrIssueType); got != IssueUnknown {
		t.Fatalf("issue_type default = %q, want %q", got, IssueUnknown)
	}
	if got := st.Attribute(AttrUserName); got != "Guest" {
		t.Fatalf("user_name default = %q, want Guest", got)
	}
	if got := st.Attribute("unheard_of"); got != "" {
		t.Fatalf("unknown attribute default = %q, want empty", got)
	}

	st.SetAttribute(AttrUserTier, TierPremium)
	if got := st.Attribute(AttrUserTier); got != TierPremium {
		t.Fatalf("user_tier = %q, want %q", got, TierPremium)
	}
}

func TestRecentHistoryWindow(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", testNow())
	for i := 0; i < 5; i++ {
		st.AppendHistory(SpeakerUser, strings.Repeat("x", i+1), testNow())
	}

	got := st.RecentHistory(3)
	if len(got) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(got))
	}
	if got[0].Text != "xxx" || got[2].Text != "xxxxx" {
		t.Fatalf("unexpected window contents: %+v", got)
	}

	if st.RecentHistory(0) != nil {
		t.Fatal("n=0 must return nil")
	}
	if turns := st.RecentHistory(100); len(turns) != 5 {
		t.Fatalf("oversized window must return all turns, got %d", len(turns))
	}
}

func TestResetKeepsIdentity(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", testNow())
	st.CurrentAgent = AgentBilling
	st.LastIntent = IntentBilling
	st.Escalated = true
	st.SetAttribute(AttrUserTier, TierPremium)
	st.AppendHistory(SpeakerUser, "hello", testNow())

	st.Reset(testNow().Add(time.Hour))

	if st.SessionID != "s1" {
		t.Fatalf("reset must keep the session id, got %q", st.SessionID)
	}
	if st.CurrentAgent != AgentTriage {
		t.Fatalf("reset must return to triage, got %s", st.CurrentAgent)
	}
	if st.Escalated || st.LastIntent != "" || len(st.History) != 0 {
		t.Fatalf("reset must clear routing state: %+v", st)
	}
	if got := st.Attribute(AttrUserTier); got != TierFree {
		t.Fatalf("reset must clear attributes, user_tier = %q", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", testNow())
	st.SetAttribute(AttrUserTier, TierFree)
	st.AppendHistory(SpeakerUser, "hello", testNow())

	cp := st.Clone()
	cp.SetAttribute(AttrUserTier, TierPremium)
	cp.AppendHistory(SpeakerAgent, "hi", testNow())

	if st.Attribute(AttrUserTier) != TierFree {
		t.Fatal("clone attribute write leaked into the original")
	}
	if len(st.History) != 1 {
		t.Fatalf("clone history write leaked into the original: %d turns", len(st.History))
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	var nilState *SessionState
	if err := nilState.Validate(); err == nil {
		t.Fatal("nil state must fail validation")
	}

	st := NewSessionState("s1", testNow())
	if err := st.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	st.CurrentAgent = AgentType("sorcerer")
	if err := st.Validate(); err == nil {
		t.Fatal("unknown agent must fail validation")
	}

	st.CurrentAgent = AgentGeneral
	st.SessionID = ""
	if err := st.Validate(); err == nil {
		t.Fatal("empty session id must fail validation")
	}
}

func TestSummaryCountsUserTurns(t *testing.T) {
	t.Parallel()

	st := NewSessionState("s1", testNow())
	st.CurrentAgent = AgentTechnical
	st.AppendHistory(SpeakerUser, "my app is broken", testNow())
	st.AppendHistory(SpeakerAgent, "let me check", testNow())
	st.AppendHistory(SpeakerUser, "thanks", testNow())

	summary := st.Summary()
	if !strings.Contains(summary, "queries_handled=2") {
		t.Fatalf("summary should report 2 user turns: %q", summary)
	}
	if !strings.Contains(summary, "user=Guest") {
		t.Fatalf("summary should fall back to the default user name: %q", summary)
	}
}
