package dispatch

import (
	"errors"
	"strings"
	"testing"

	"github.com/devansoliman/cs152bots-spr24-group19/internal/fusion"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/report"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/taxonomy"
)

// fakeSender records every outbound message.
type fakeSender struct {
	sent []struct{ channel, text string }
	err  error
}

func (f *fakeSender) Send(channel, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, struct{ channel, text string }{channel, text})
	return nil
}

func newTestDispatcher() (*Dispatcher, *fakeSender) {
	s := &fakeSender{}
	d := NewDispatcher(s)
	d.SetModChannel("guild-1", "mod-chan")
	return d, s
}

var subject = report.ReportedContent{
	Community:  "guild-1",
	Channel:    "general",
	MessageID:  "msg-1",
	AuthorName: "offender",
	Text:       "send funds to the cause",
}

func TestLogToModeratorFormat(t *testing.T) {
	d, s := newTestDispatcher()

	if err := d.LogToModerator("guild-1", "Moderator manual review now required."); err != nil {
		t.Fatalf("LogToModerator: %v", err)
	}
	if len(s.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(s.sent))
	}
	got := s.sent[0]
	if got.channel != "mod-chan" {
		t.Errorf("channel = %q, want mod-chan", got.channel)
	}
	if !strings.HasPrefix(got.text, PrefixModeratorLogs+"\n") {
		t.Errorf("block missing moderator-logs prefix: %q", got.text)
	}
	if !strings.HasSuffix(got.text, Separator) {
		t.Errorf("block missing separator: %q", got.text)
	}
}

func TestDecisionLogReportFlow(t *testing.T) {
	d, s := newTestDispatcher()
	dec := fusion.DecideReport(taxonomy.FinancingTerrorism)

	if err := d.DecisionLog("guild-1", subject, dec); err != nil {
		t.Fatalf("DecisionLog: %v", err)
	}
	text := s.sent[0].text
	for _, want := range []string{
		PrefixModeratorLogs + ":",
		"Report received violation of type: financing terrorism",
		"this guild: guild-1",
		"Sent in channel: general",
		"```offender: send funds to the cause```",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report log missing %q:\n%s", want, text)
		}
	}
}

func TestDecisionLogAttributeOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		scores map[string]float64
		want   string
	}{
		{"hard", map[string]float64{"identity_attack": 0.9}, "violates our policy for identity attacks, and it has been deleted"},
		{"soft", map[string]float64{"profanity": 0.65}, "might violate our policy for profanity; it has been downranked"},
		{"clean", map[string]float64{"toxicity": 0.1}, "does not violate our policies for general moderation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, s := newTestDispatcher()
			dec := fusion.DecideAttributes(tt.scores)
			if err := d.DecisionLog("guild-1", subject, dec); err != nil {
				t.Fatalf("DecisionLog: %v", err)
			}
			if !strings.Contains(s.sent[0].text, tt.want) {
				t.Errorf("log missing %q:\n%s", tt.want, s.sent[0].text)
			}
		})
	}
}

func TestDecisionLogLabelFlow(t *testing.T) {
	d, s := newTestDispatcher()

	if err := d.DecisionLog("guild-1", subject, fusion.DecideLabel("financing terrorism")); err != nil {
		t.Fatalf("DecisionLog: %v", err)
	}
	if !strings.Contains(s.sent[0].text, "A report has also been made to law enforcement") {
		t.Errorf("escalated label log missing law enforcement line:\n%s", s.sent[0].text)
	}

	if err := d.DecisionLog("guild-1", subject, fusion.DecideLabel("glorification/promotion")); err != nil {
		t.Fatalf("DecisionLog: %v", err)
	}
	text := s.sent[1].text
	if strings.Contains(text, "law enforcement") {
		t.Errorf("glorification log must not mention law enforcement:\n%s", text)
	}
	if !strings.Contains(text, "GIFCT hash bank") {
		t.Errorf("glorification log missing hash bank line:\n%s", text)
	}

	if err := d.DecisionLog("guild-1", subject, fusion.DecideLabel("unsure")); err != nil {
		t.Fatalf("DecisionLog: %v", err)
	}
	if !strings.Contains(s.sent[2].text, "likely not a violation") {
		t.Errorf("fail-open label log wrong:\n%s", s.sent[2].text)
	}
}

func TestConfirmEmitsExactlyOneNoticeAndOneAction(t *testing.T) {
	d, s := newTestDispatcher()
	dec := fusion.DecideReport(taxonomy.FinancingTerrorism)

	if err := d.Confirm("guild-1", subject, dec); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if len(s.sent) != 2 {
		t.Fatalf("sent %d messages, want exactly 2 (user notice then server action)", len(s.sent))
	}
	if !strings.HasPrefix(s.sent[0].text, PrefixUserNotice+" (offender):") {
		t.Errorf("first block is not the user notice: %q", s.sent[0].text)
	}
	if !strings.HasPrefix(s.sent[1].text, PrefixServerAction+"\n") {
		t.Errorf("second block is not the server action: %q", s.sent[1].text)
	}
	for _, m := range s.sent {
		if !strings.HasSuffix(m.text, Separator) {
			t.Errorf("block missing separator: %q", m.text)
		}
	}
}

func TestConfirmDownrankWording(t *testing.T) {
	d, s := newTestDispatcher()
	dec := fusion.DecideAttributes(map[string]float64{"toxicity": 0.8})

	if err := d.Confirm("guild-1", subject, dec); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !strings.Contains(s.sent[0].text, "its reach has been reduced") {
		t.Errorf("downrank user notice wrong:\n%s", s.sent[0].text)
	}
	if !strings.Contains(s.sent[1].text, "downranked in the ranking algorithm") {
		t.Errorf("downrank server action wrong:\n%s", s.sent[1].text)
	}
}

func TestUnknownCommunityFails(t *testing.T) {
	d, _ := newTestDispatcher()
	if err := d.LogToModerator("guild-unknown", "body"); err == nil {
		t.Error("expected error for unregistered community")
	}
}

func TestSendFailureIsWrapped(t *testing.T) {
	s := &fakeSender{err: errors.New("connection reset")}
	d := NewDispatcher(s)
	d.SetModChannel("guild-1", "mod-chan")

	err := d.LogToModerator("guild-1", "body")
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("err = %v, want wrapped transport failure", err)
	}
}
