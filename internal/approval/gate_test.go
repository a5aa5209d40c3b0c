package approval

import (
	"strings"
	"testing"

	"github.com/devansoliman/cs152bots-spr24-group19/internal/fusion"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/report"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/taxonomy"
)

func hardPending(reporter string) Pending {
	return Pending{
		Decision: fusion.Decision{
			Category:                     taxonomy.FinancingTerrorism,
			Severity:                     fusion.SeverityHard,
			Action:                       fusion.DeleteAndEscalate,
			RequiresLawEnforcementNotice: true,
			Source:                       fusion.SourceReport,
		},
		Subject: report.ReportedContent{
			Community:  "guild-1",
			Channel:    "chan-1",
			MessageID:  "msg-1",
			AuthorName: "offender",
			Text:       "bad",
		},
		ReporterID: reporter,
	}
}

func TestSubmitRequiresApprovalByDefault(t *testing.T) {
	g := NewGate()
	if !g.RequireApproval() {
		t.Fatal("RequireApproval() = false, want true by default")
	}

	out := g.Submit("guild-1", hardPending("u1"), false)
	if out.Forward {
		t.Error("Forward = true, want pending")
	}
	if out.Refused {
		t.Error("Refused = true, want pending")
	}
	if !strings.Contains(out.Log, "moderator review") {
		t.Errorf("Log = %q, want review prompt", out.Log)
	}
	if !g.AwaitingVerdict("guild-1") {
		t.Error("AwaitingVerdict() = false after submit")
	}
}

func TestNoDiscardsAndNeverForwards(t *testing.T) {
	g := NewGate()
	g.Submit("guild-1", hardPending("u1"), false)

	out := g.HandleReply("guild-1", "no")
	if out.Confirmed != nil {
		t.Error("Confirmed set on 'no'")
	}
	if out.Discarded == nil {
		t.Fatal("Discarded = nil on 'no'")
	}
	if !strings.Contains(out.Log, "No further action is needed") {
		t.Errorf("Log = %q, want no-action outcome", out.Log)
	}
	if g.AwaitingVerdict("guild-1") {
		t.Error("slot not cleared after 'no'")
	}
}

func TestYesForwardsExactlyOnce(t *testing.T) {
	g := NewGate()
	g.Submit("guild-1", hardPending("u1"), false)

	out := g.HandleReply("guild-1", "yes")
	if out.Confirmed == nil {
		t.Fatal("Confirmed = nil on 'yes'")
	}
	if out.Confirmed.ReporterID != "u1" {
		t.Errorf("ReporterID = %q, want u1", out.Confirmed.ReporterID)
	}
	if g.AwaitingVerdict("guild-1") {
		t.Error("slot not cleared after 'yes'")
	}

	// Replaying "yes" with an empty slot must be a no-op.
	replay := g.HandleReply("guild-1", "yes")
	if replay.Confirmed != nil || replay.Discarded != nil || replay.Log != "" {
		t.Errorf("replayed 'yes' = %+v, want no-op", replay)
	}
}

func TestInvalidReplyRepromptsWithoutStateChange(t *testing.T) {
	g := NewGate()
	g.Submit("guild-1", hardPending("u1"), false)

	out := g.HandleReply("guild-1", "maybe")
	if out.Confirmed != nil || out.Discarded != nil {
		t.Error("invalid reply resolved the verdict")
	}
	if !strings.Contains(out.Log, "not a valid choice") {
		t.Errorf("Log = %q, want re-prompt", out.Log)
	}
	if !g.AwaitingVerdict("guild-1") {
		t.Error("slot cleared by invalid reply")
	}

	// Case matters: "Yes" is not a verdict.
	out = g.HandleReply("guild-1", "Yes")
	if out.Confirmed != nil {
		t.Error("'Yes' (capitalized) must not confirm")
	}
	if !g.AwaitingVerdict("guild-1") {
		t.Error("slot cleared by capitalized reply")
	}
}

func TestAutomaticReviewAutoConfirms(t *testing.T) {
	g := NewGate()
	ack, cleared, handled := g.HandleCommand("guild-1", CommandAutomaticReview)
	if !handled || cleared != nil {
		t.Fatalf("HandleCommand = (%q, %v, %v)", ack, cleared, handled)
	}
	if g.RequireApproval() {
		t.Fatal("RequireApproval() = true after automatic review command")
	}

	out := g.Submit("guild-1", hardPending("u1"), false)
	if !out.Forward {
		t.Error("Forward = false with approval not required")
	}
	if g.AwaitingVerdict("guild-1") {
		t.Error("auto-confirmed decision left a pending verdict")
	}
}

func TestRequireModeratorClearsPending(t *testing.T) {
	g := NewGate()
	g.HandleCommand("guild-1", CommandAutomaticReview)
	g.HandleCommand("guild-1", CommandRequireModerator)
	if !g.RequireApproval() {
		t.Fatal("RequireApproval() = false after require command")
	}

	g.Submit("guild-1", hardPending("u1"), false)
	ack, cleared, handled := g.HandleCommand("guild-1", CommandRequireModerator)
	if !handled {
		t.Fatal("command not handled")
	}
	if cleared == nil || cleared.ReporterID != "u1" {
		t.Errorf("cleared = %+v, want the parked decision", cleared)
	}
	if g.AwaitingVerdict("guild-1") {
		t.Error("pending verdict survived the require command")
	}
	if !strings.Contains(ack, "now required") {
		t.Errorf("ack = %q", ack)
	}
}

func TestOneShotBypassDoesNotPersist(t *testing.T) {
	g := NewGate()

	out := g.Submit("guild-1", hardPending("u1"), true)
	if !out.Forward {
		t.Error("bypassed submission not forwarded")
	}
	if !g.RequireApproval() {
		t.Error("one-shot bypass mutated the configured setting")
	}

	// The next submission gates normally.
	out = g.Submit("guild-1", hardPending("u2"), false)
	if out.Forward {
		t.Error("submission after bypass was auto-confirmed")
	}
}

func TestKeyedSlotsAreIndependent(t *testing.T) {
	g := NewGate()

	g.Submit("guild-1", hardPending("u1"), false)
	out := g.Submit("guild-2", hardPending("u2"), false)
	if out.Refused {
		t.Fatal("second community refused; slots must be keyed per community")
	}

	// Resolving guild-2 leaves guild-1 pending.
	res := g.HandleReply("guild-2", "yes")
	if res.Confirmed == nil || res.Confirmed.ReporterID != "u2" {
		t.Fatalf("guild-2 verdict resolved wrong decision: %+v", res.Confirmed)
	}
	if !g.AwaitingVerdict("guild-1") {
		t.Error("guild-1 pending verdict was disturbed by guild-2's reply")
	}
}

func TestOccupiedSlotRefusesSecondDecision(t *testing.T) {
	g := NewGate()
	g.Submit("guild-1", hardPending("u1"), false)

	out := g.Submit("guild-1", hardPending("u2"), false)
	if !out.Refused {
		t.Fatal("second decision for occupied slot not refused")
	}
	if out.Forward {
		t.Error("refused decision was forwarded")
	}

	// The original decision is still the one resolved by the verdict.
	res := g.HandleReply("guild-1", "yes")
	if res.Confirmed == nil || res.Confirmed.ReporterID != "u1" {
		t.Errorf("verdict resolved %+v, want the first decision (u1)", res.Confirmed)
	}
}

func TestNoActionDecisionBypassesGate(t *testing.T) {
	g := NewGate()
	p := hardPending("u1")
	p.Decision = fusion.Decision{Source: fusion.SourceAttributes}

	out := g.Submit("guild-1", p, false)
	if out.Forward || out.Refused || out.Log != "" {
		t.Errorf("no-action submit = %+v, want empty outcome", out)
	}
	if g.AwaitingVerdict("guild-1") {
		t.Error("no-action decision occupied the slot")
	}
}
