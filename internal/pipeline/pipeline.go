// Package pipeline is the moderation bot's event loop. It routes every
// inbound event to the report conversation, the moderator channel handlers,
// or the automated classifier path, and owns the ordering between decision
// logs, the approval gate, and the dispatcher.
//
// All mutable state (report manager, approval gate, dispatcher channel map)
// is touched only from the single Run goroutine; producers communicate
// through the Events channel.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/devansoliman/cs152bots-spr24-group19/internal/approval"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/classify"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/dispatch"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/fusion"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/history"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/metrics"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/report"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/taxonomy"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/transport"
)

// classifierDiagnostic prefixes the error message posted back to the
// originating channel when a classifier call fails.
const classifierDiagnostic = "Oops! Something went wrong. Here's the error message and additional details:"

// CaseRecorder persists confirmed decisions.
type CaseRecorder interface {
	RecordCase(ctx context.Context, c *history.Case) error
}

// Enforcer applies confirmed outcomes to authors and messages.
type Enforcer interface {
	Escalate(ctx context.Context, authorID, reason string) (time.Duration, error)
	Downrank(ctx context.Context, messageID, reason string) error
}

// Config wires a Pipeline's collaborators. Recorder and Enforcer may be nil;
// confirmed decisions are then dispatched without persistence or
// enforcement.
type Config struct {
	Reports    *report.Manager
	Gate       *approval.Gate
	Dispatcher *dispatch.Dispatcher
	Scorer     classify.AttributeScorer
	Labeler    classify.CategoryClassifier
	Index      *transport.MessageIndex
	Send       dispatch.Sender
	Recorder   CaseRecorder
	Enforcer   Enforcer

	// Monitored lists the channel ids whose traffic runs through the
	// automated classifier path.
	Monitored []string

	// ModChannels maps community id to that community's moderation channel.
	ModChannels map[string]string
}

// Pipeline consumes inbound events and drives the moderation flow.
type Pipeline struct {
	events chan transport.InboundEvent

	reports    *report.Manager
	gate       *approval.Gate
	dispatcher *dispatch.Dispatcher
	scorer     classify.AttributeScorer
	labeler    classify.CategoryClassifier
	index      *transport.MessageIndex
	send       dispatch.Sender
	recorder   CaseRecorder
	enforcer   Enforcer

	monitored    map[string]bool
	modCommunity map[string]string // moderation channel id -> community id
}

// New creates a pipeline from the given configuration.
func New(cfg Config) *Pipeline {
	p := &Pipeline{
		events:       make(chan transport.InboundEvent, 256),
		reports:      cfg.Reports,
		gate:         cfg.Gate,
		dispatcher:   cfg.Dispatcher,
		scorer:       cfg.Scorer,
		labeler:      cfg.Labeler,
		index:        cfg.Index,
		send:         cfg.Send,
		recorder:     cfg.Recorder,
		enforcer:     cfg.Enforcer,
		monitored:    make(map[string]bool),
		modCommunity: make(map[string]string),
	}
	for _, ch := range cfg.Monitored {
		p.monitored[ch] = true
	}
	for community, ch := range cfg.ModChannels {
		p.dispatcher.SetModChannel(community, ch)
		p.modCommunity[ch] = community
	}
	return p
}

// Events returns the channel producers push inbound events into.
func (p *Pipeline) Events() chan<- transport.InboundEvent {
	return p.events
}

// Run consumes events until the context is cancelled. It must be the only
// goroutine handling events.
func (p *Pipeline) Run(ctx context.Context) error {
	log.Printf("[pipeline] event loop started (monitored=%d communities=%d)",
		len(p.monitored), len(p.modCommunity))
	for {
		select {
		case <-ctx.Done():
			log.Printf("[pipeline] event loop stopping: %v", ctx.Err())
			return ctx.Err()
		case ev := <-p.events:
			p.handleEvent(ctx, ev)
		}
	}
}

// HandleEvent processes one event synchronously. Exposed for tests and for
// callers that manage their own loop.
func (p *Pipeline) HandleEvent(ctx context.Context, ev transport.InboundEvent) {
	p.handleEvent(ctx, ev)
}

func (p *Pipeline) handleEvent(ctx context.Context, ev transport.InboundEvent) {
	switch {
	case ev.DM:
		metrics.EventsTotal.WithLabelValues("dm").Inc()
		p.handleDM(ctx, ev)
	case p.modCommunity[ev.ChannelID] != "":
		metrics.EventsTotal.WithLabelValues("moderator").Inc()
		p.handleModerator(ctx, ev)
	case p.monitored[ev.ChannelID]:
		metrics.EventsTotal.WithLabelValues("channel").Inc()
		p.handleChannel(ctx, ev)
	default:
		metrics.EventsTotal.WithLabelValues("ignored").Inc()
	}
}

// handleDM advances the author's report conversation and, once the report is
// ready, runs it through fusion and the approval gate.
func (p *Pipeline) handleDM(ctx context.Context, ev transport.InboundEvent) {
	replies := p.reports.Handle(ev.AuthorID, ev.Text)
	for _, reply := range replies {
		p.deliver(ev.ChannelID, reply)
	}
	metrics.OpenReports.Set(float64(p.reports.Open()))

	r, ok := p.reports.Ready(ev.AuthorID)
	if !ok {
		return
	}

	subject := *r.Content
	dec := fusion.DecideReport(r.Category)
	metrics.DecisionsTotal.WithLabelValues(string(dec.Source), dec.Severity.String()).Inc()

	community := subject.Community
	if err := p.dispatcher.DecisionLog(community, subject, dec); err != nil {
		log.Printf("[pipeline] decision log failed: %v", err)
	}

	// Glorification/promotion reports skip moderator review for this one
	// submission; the configured review mode is untouched.
	bypass := r.Category == taxonomy.GlorificationPromotion
	pending := approval.Pending{Decision: dec, Subject: subject, CaseID: r.CaseID, ReporterID: ev.AuthorID}
	outcome := p.gate.Submit(community, pending, bypass)
	if outcome.Log != "" {
		p.logToModerator(community, outcome.Log)
	}

	switch {
	case outcome.Forward:
		p.applyDecision(ctx, community, subject, dec, r.CaseID)
		p.finishReport(ev.AuthorID)
	case outcome.Refused:
		// The slot was occupied; the decision is abandoned and the report
		// closed without action.
		p.finishReport(ev.AuthorID)
	default:
		metrics.PendingApprovals.Inc()
	}
}

// handleModerator processes review-mode commands and yes/no verdicts posted
// in a community's moderation channel.
func (p *Pipeline) handleModerator(ctx context.Context, ev transport.InboundEvent) {
	community := p.modCommunity[ev.ChannelID]
	text := strings.TrimSpace(ev.Text)

	if ack, cleared, handled := p.gate.HandleCommand(community, text); handled {
		p.logToModerator(community, ack)
		if cleared != nil {
			metrics.PendingApprovals.Dec()
			if cleared.ReporterID != "" {
				p.finishReport(cleared.ReporterID)
			}
		}
		return
	}

	out := p.gate.HandleReply(community, text)
	if out.Log != "" {
		p.logToModerator(community, out.Log)
	}

	switch {
	case out.Confirmed != nil:
		metrics.PendingApprovals.Dec()
		p.applyDecision(ctx, community, out.Confirmed.Subject, out.Confirmed.Decision, out.Confirmed.CaseID)
		if out.Confirmed.ReporterID != "" {
			p.finishReport(out.Confirmed.ReporterID)
		}
	case out.Discarded != nil:
		metrics.PendingApprovals.Dec()
		if out.Discarded.ReporterID != "" {
			p.finishReport(out.Discarded.ReporterID)
		}
	}
}

// handleChannel records a monitored-channel message for later report
// resolution and runs both automated verdict paths. The category label and
// the attribute scores are evaluated independently; each produces its own
// decision log and, when an action is called for, its own gate submission.
func (p *Pipeline) handleChannel(ctx context.Context, ev transport.InboundEvent) {
	p.index.Record(ev)

	subject := report.ReportedContent{
		Community:  ev.CommunityID,
		Channel:    ev.ChannelID,
		MessageID:  ev.MessageID,
		AuthorName: ev.AuthorName,
		Text:       ev.Text,
	}

	if label, err := p.labeler.ClassifyCategory(ctx, ev.Text); err != nil {
		p.reportClassifierFailure(ev.ChannelID, err)
	} else {
		p.runDecision(ctx, subject, fusion.DecideLabel(label))
	}

	if scores, err := p.scorer.ScoreAttributes(ctx, ev.Text); err != nil {
		p.reportClassifierFailure(ev.ChannelID, err)
	} else {
		p.runDecision(ctx, subject, fusion.DecideAttributes(scores))
	}
}

// runDecision emits the decision log and, for actionable decisions, walks
// the approval gate. Every decision produces exactly one log entry whether
// or not it is later confirmed.
func (p *Pipeline) runDecision(ctx context.Context, subject report.ReportedContent, dec fusion.Decision) {
	metrics.DecisionsTotal.WithLabelValues(string(dec.Source), dec.Severity.String()).Inc()

	community := subject.Community
	if err := p.dispatcher.DecisionLog(community, subject, dec); err != nil {
		log.Printf("[pipeline] decision log failed: %v", err)
	}

	if dec.Action == fusion.NoAction {
		return
	}

	outcome := p.gate.Submit(community, approval.Pending{Decision: dec, Subject: subject}, false)
	if outcome.Log != "" {
		p.logToModerator(community, outcome.Log)
	}
	switch {
	case outcome.Forward:
		p.applyDecision(ctx, community, subject, dec, "")
	case outcome.Refused:
		// Abandoned; nothing further.
	default:
		metrics.PendingApprovals.Inc()
	}
}

// applyDecision carries out a confirmed decision: user notice and platform
// action through the dispatcher, a persisted case record, and enforcement
// against the author or message. caseID may be empty for classifier-driven
// decisions, in which case a fresh id is minted.
func (p *Pipeline) applyDecision(ctx context.Context, community string, subject report.ReportedContent, dec fusion.Decision, caseID string) {
	if err := p.dispatcher.Confirm(community, subject, dec); err != nil {
		log.Printf("[pipeline] confirm dispatch failed: %v", err)
	}

	if caseID == "" {
		caseID = uuid.New().String()
	}

	if p.recorder != nil {
		c := &history.Case{
			CaseID:         caseID,
			Community:      community,
			Channel:        subject.Channel,
			MessageID:      subject.MessageID,
			AuthorName:     subject.AuthorName,
			Text:           subject.Text,
			Category:       dec.Category,
			Severity:       dec.Severity,
			Action:         dec.Action,
			Source:         dec.Source,
			LawEnforcement: dec.RequiresLawEnforcementNotice,
		}
		if err := p.recorder.RecordCase(ctx, c); err != nil {
			log.Printf("[pipeline] record case failed: %v", err)
		}
	}

	if p.enforcer != nil {
		reason := decisionReason(dec)
		switch dec.Severity {
		case fusion.SeverityHard:
			if _, err := p.enforcer.Escalate(ctx, subject.AuthorName, reason); err != nil {
				log.Printf("[pipeline] escalate failed: %v", err)
			}
		case fusion.SeveritySoft:
			if err := p.enforcer.Downrank(ctx, subject.MessageID, reason); err != nil {
				log.Printf("[pipeline] downrank failed: %v", err)
			}
		}
	}
}

// decisionReason is the short enforcement reason recorded in Redis.
func decisionReason(dec fusion.Decision) string {
	if dec.Category != taxonomy.None {
		return dec.Category.String()
	}
	return dec.Attribute
}

func (p *Pipeline) finishReport(userID string) {
	p.reports.Finish(userID)
	metrics.OpenReports.Set(float64(p.reports.Open()))
}

func (p *Pipeline) logToModerator(community, body string) {
	if err := p.dispatcher.LogToModerator(community, body); err != nil {
		log.Printf("[pipeline] moderator log failed: %v", err)
	}
}

func (p *Pipeline) deliver(channelID, text string) {
	if err := p.send.Send(channelID, text); err != nil {
		log.Printf("[pipeline] send to channel=%s failed: %v", channelID, err)
	}
}

// reportClassifierFailure posts the diagnostic back to the originating
// channel. Classifier calls are never retried.
func (p *Pipeline) reportClassifierFailure(channelID string, err error) {
	log.Printf("[pipeline] classifier failure: %v", err)
	p.deliver(channelID, fmt.Sprintf("%s\n%v", classifierDiagnostic, err))
}
