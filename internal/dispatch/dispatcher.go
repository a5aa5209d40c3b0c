// Package dispatch renders moderation decisions and gate messages into the
// moderation channel's observable block format and delivers them through the
// messaging transport. Three block kinds exist: moderator log lines, user
// notices, and platform actions, each terminated by a literal separator.
package dispatch

import (
	"fmt"
	"strings"

	"github.com/devansoliman/cs152bots-spr24-group19/internal/fusion"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/metrics"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/report"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/taxonomy"
)

// Block prefixes and the separator line. These strings are part of the
// observable contract; tests assert on them.
const (
	PrefixModeratorLogs = "MESSAGE_TO_MODERATOR_LOGS"
	PrefixUserNotice    = "MESSAGE_TO_USER"
	PrefixServerAction  = "SERVER_ACTION"
	Separator           = "\n-\n-\n"
)

const appealNotice = "If you think we made a mistake, send a message to " +
	"fakeaddress@fakeplatform.com to appeal."

// attributePolicyNames maps score attribute keys to the policy wording used
// in moderator logs.
var attributePolicyNames = map[string]string{
	"toxicity":        "toxicity",
	"severe_toxicity": "severe toxicity",
	"insult":          "insults",
	"profanity":       "profanity",
	"identity_attack": "identity attacks",
	"threat":          "threats",
}

// Sender delivers one outbound text to a channel.
type Sender interface {
	Send(channelID, text string) error
}

// Dispatcher renders and sends moderation output for each community's
// moderation channel.
type Dispatcher struct {
	send        Sender
	modChannels map[string]string // community id -> moderation channel id
}

// NewDispatcher creates a dispatcher sending through the given transport.
func NewDispatcher(send Sender) *Dispatcher {
	return &Dispatcher{
		send:        send,
		modChannels: make(map[string]string),
	}
}

// SetModChannel registers the moderation channel for a community.
func (d *Dispatcher) SetModChannel(community, channelID string) {
	d.modChannels[community] = channelID
}

// ModChannel returns the registered moderation channel for a community.
func (d *Dispatcher) ModChannel(community string) (string, bool) {
	ch, ok := d.modChannels[community]
	return ch, ok
}

func (d *Dispatcher) sendBlock(community, kind, block string) error {
	ch, ok := d.modChannels[community]
	if !ok {
		return fmt.Errorf("dispatch: no moderation channel for community %q", community)
	}
	if err := d.send.Send(ch, block); err != nil {
		return fmt.Errorf("dispatch: send %s block: %w", kind, err)
	}
	metrics.DispatchesTotal.WithLabelValues(kind).Inc()
	return nil
}

// LogToModerator posts a plain moderator-log body (gate prompts, verdict
// acknowledgements, command acknowledgements).
func (d *Dispatcher) LogToModerator(community, body string) error {
	return d.sendBlock(community, "log", PrefixModeratorLogs+"\n"+body+Separator)
}

// DecisionLog posts the single log entry every decision produces, rendered
// according to the evaluation path that produced it. It is emitted exactly
// once per decision, at decision time, whether or not the decision is later
// confirmed.
func (d *Dispatcher) DecisionLog(community string, subject report.ReportedContent, dec fusion.Decision) error {
	return d.sendBlock(community, "log", renderDecisionLog(subject, dec))
}

// Confirm posts the user notice and the platform action for a confirmed
// decision, in that order. Exactly one of each is emitted per confirmation.
func (d *Dispatcher) Confirm(community string, subject report.ReportedContent, dec fusion.Decision) error {
	if err := d.sendBlock(community, "user_notice", renderUserNotice(subject, dec)); err != nil {
		return err
	}
	return d.sendBlock(community, "server_action", renderServerAction(subject, dec))
}

func quoted(subject report.ReportedContent) string {
	return "```" + subject.AuthorName + ": " + subject.Text + "```"
}

func renderDecisionLog(subject report.ReportedContent, dec fusion.Decision) string {
	var b strings.Builder
	b.WriteString(PrefixModeratorLogs + ":\n")

	switch dec.Source {
	case fusion.SourceReport:
		fmt.Fprintf(&b, "Report received violation of type: %s\n", dec.Category)
		fmt.Fprintf(&b, "The reported message sent was in this guild: %s\n", subject.Community)
		fmt.Fprintf(&b, "Sent in channel: %s\n", subject.Channel)
		b.WriteString("Reported message:" + quoted(subject))

	case fusion.SourceAttributes:
		fmt.Fprintf(&b, "Results from automated attribute review of the following message: %s\n", subject.Text)
		switch dec.Severity {
		case fusion.SeverityHard:
			fmt.Fprintf(&b, "This message violates our policy for %s, and it has been deleted from the platform.",
				attributePolicyNames[dec.Attribute])
		case fusion.SeveritySoft:
			fmt.Fprintf(&b, "This message might violate our policy for %s; it has been downranked in the algorithm.",
				attributePolicyNames[dec.Attribute])
		default:
			b.WriteString("This message does not violate our policies for general moderation; no action has been taken")
		}

	case fusion.SourceLabel:
		fmt.Fprintf(&b, "Results from automated category review of the following message: %s\n", subject.Text)
		if dec.Category == taxonomy.None && dec.Action == fusion.NoAction {
			b.WriteString("The classifier determined this message is likely not a violation.\n")
			b.WriteString("As such, no action will be taken.")
			break
		}
		fmt.Fprintf(&b, "The classifier determined this message falls under: %s\n", dec.Category)
		b.WriteString("As such, the message has been deleted from our platform. ")
		if dec.RequiresLawEnforcementNotice {
			b.WriteString("A report has also been made to law enforcement for the user & corresponding message.")
		} else {
			b.WriteString("If applicable, the content has also been uploaded to the GIFCT hash bank if it wasn't already.")
		}
	}

	b.WriteString(Separator)
	return b.String()
}

func renderUserNotice(subject report.ReportedContent, dec fusion.Decision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s):\n", PrefixUserNotice, subject.AuthorName)
	fmt.Fprintf(&b, "You posted the following: %s\n", subject.Text)

	switch {
	case dec.Source == fusion.SourceAttributes && dec.Severity == fusion.SeverityHard:
		b.WriteString("The above post has violated our terms and conditions for toxicity and has been deleted. " + appealNotice)
	case dec.Source == fusion.SourceAttributes:
		b.WriteString("The above post may conflict with our community guidelines, and its reach has been reduced. " + appealNotice)
	default:
		b.WriteString("This message has been deleted, as it violates our policy for terrorism. " +
			"Please refer to our terms of service for what is acceptable on our platform.")
	}

	b.WriteString(Separator)
	return b.String()
}

func renderServerAction(subject report.ReportedContent, dec fusion.Decision) string {
	var b strings.Builder
	b.WriteString(PrefixServerAction + "\n")

	switch {
	case dec.Action == fusion.Downrank:
		b.WriteString("The following post has been downranked in the ranking algorithm after detection of a possible policy violation.\n")
	case dec.Source == fusion.SourceAttributes:
		b.WriteString("The following post has been deleted from the platform after automatic detection of a policy violation.\n")
	case dec.Source == fusion.SourceLabel:
		b.WriteString("The following post has been deleted from the platform after automatic detection of a violation of our policy on terrorism.\n")
	default:
		b.WriteString("The following post has been deleted from the platform after review of a user report for a violation of our policy on terrorism.\n")
	}

	b.WriteString(quoted(subject))
	b.WriteString(Separator)
	return b.String()
}
