// Package approval implements the moderator escalation gate. Decisions whose
// action is anything other than no-action pass through the gate before the
// dispatcher applies them: depending on configuration they are either
// auto-confirmed or parked until a moderator answers yes or no in the
// moderation channel.
//
// Pending verdicts are keyed by community id, with at most one pending
// verdict per community. A second qualifying decision for a community whose
// slot is occupied is refused and abandoned rather than silently
// overwriting the first.
package approval

import (
	"log"

	"github.com/devansoliman/cs152bots-spr24-group19/internal/fusion"
	"github.com/devansoliman/cs152bots-spr24-group19/internal/report"
)

// Moderation-channel command literals.
const (
	CommandRequireModerator = "Require moderator"
	CommandAutomaticReview  = "Automatic system review"
)

// Moderator-facing message bodies. The dispatcher wraps these in the
// moderator-log block format.
const (
	msgReviewPrompt = "The previous message must undergo moderator review. " +
		"Reply 'yes' if the post is in violation of community guidelines, otherwise 'no'"
	msgAutoConfirm = "The previous message does not need moderator review, " +
		"and the previous pending actions will be taken."
	msgConfirmed = "Moderator has determined the previous report is indeed in violation " +
		"of community guidelines. The previous pending actions will be taken."
	msgDiscarded = "Moderator has determined the previous report was not in violation " +
		"of community guidelines. No further action is needed."
	msgInvalidChoice = "That is not a valid choice; please select 'yes' or 'no'"
	msgSlotOccupied  = "A decision is already awaiting moderator review for this community; " +
		"the new decision has been set aside with no action taken."
	msgRequireOn  = "Moderator manual review now required."
	msgRequireOff = "Moderator manual review is now not required."
)

// Pending is a decision parked in a community's slot while the gate waits
// for a moderator verdict.
type Pending struct {
	Decision fusion.Decision
	Subject  report.ReportedContent

	// CaseID is the case identifier minted when the decision was produced.
	// Empty for classifier-driven decisions, which mint one at apply time.
	CaseID string

	// ReporterID is the id of the reporting user when the decision came from
	// a report flow, so the report can be closed once the verdict lands.
	// Empty for classifier-driven decisions.
	ReporterID string
}

// Gate is the process-wide escalation state machine. It is not safe for
// concurrent use; the pipeline's single-consumer event loop is the only
// caller.
type Gate struct {
	requireApproval bool
	pending         map[string]*Pending // community id -> awaiting verdict
}

// NewGate creates a gate with moderator approval required, the default.
func NewGate() *Gate {
	return &Gate{
		requireApproval: true,
		pending:         make(map[string]*Pending),
	}
}

// RequireApproval reports the current configuration.
func (g *Gate) RequireApproval() bool { return g.requireApproval }

// AwaitingVerdict reports whether the community's slot holds a pending
// verdict.
func (g *Gate) AwaitingVerdict(community string) bool {
	return g.pending[community] != nil
}

// SubmitOutcome is the result of offering a decision to the gate.
type SubmitOutcome struct {
	// Forward is set when the decision was confirmed immediately and should
	// be applied now.
	Forward bool

	// Refused is set when the community's slot was already occupied; the
	// decision is abandoned.
	Refused bool

	// Log, when non-empty, is a moderator-log body to post to the community's
	// moderation channel (the review prompt, the auto-confirm notice, or the
	// refusal notice).
	Log string
}

// Submit offers a qualifying decision to the gate. Decisions with no action
// bypass the gate and must not be submitted. When bypass is true the gate
// behaves as if approval were not required for this one submission only; the
// configured setting is untouched. This one-shot bypass serves the
// glorification/promotion report flow.
func (g *Gate) Submit(community string, p Pending, bypass bool) SubmitOutcome {
	if p.Decision.Action == fusion.NoAction {
		log.Printf("[gate] ignoring no-action decision for community=%s", community)
		return SubmitOutcome{}
	}

	if !g.requireApproval || bypass {
		return SubmitOutcome{Forward: true, Log: msgAutoConfirm}
	}

	if g.pending[community] != nil {
		log.Printf("[gate] slot occupied for community=%s, refusing decision source=%s",
			community, p.Decision.Source)
		return SubmitOutcome{Refused: true, Log: msgSlotOccupied}
	}

	g.pending[community] = &p
	return SubmitOutcome{Log: msgReviewPrompt}
}

// ReplyOutcome is the result of a moderator-channel reply.
type ReplyOutcome struct {
	// Confirmed holds the pending verdict when the moderator answered yes.
	Confirmed *Pending

	// Discarded holds the pending verdict when the moderator answered no.
	Discarded *Pending

	// Log, when non-empty, is a moderator-log body to post back.
	Log string
}

// HandleReply processes a message sent in the moderation channel while a
// verdict may be pending. Exactly "yes" confirms, exactly "no" discards, and
// anything else re-prompts without changing state. When no verdict is
// pending the reply is ignored, so a replayed "yes" after the slot cleared
// is a no-op and can never re-apply an action.
func (g *Gate) HandleReply(community, text string) ReplyOutcome {
	p := g.pending[community]
	if p == nil {
		return ReplyOutcome{}
	}

	switch text {
	case "yes":
		delete(g.pending, community)
		return ReplyOutcome{Confirmed: p, Log: msgConfirmed}
	case "no":
		delete(g.pending, community)
		return ReplyOutcome{Discarded: p, Log: msgDiscarded}
	default:
		return ReplyOutcome{Log: msgInvalidChoice}
	}
}

// HandleCommand processes the explicit review-mode commands. It returns the
// acknowledgement log body, any pending verdict that was cleared as a side
// effect, and whether the text was a recognized command. Switching to
// required review clears the community's pending slot, abandoning the parked
// decision.
func (g *Gate) HandleCommand(community, text string) (ack string, cleared *Pending, handled bool) {
	switch text {
	case CommandRequireModerator:
		g.requireApproval = true
		cleared = g.pending[community]
		delete(g.pending, community)
		return msgRequireOn, cleared, true
	case CommandAutomaticReview:
		g.requireApproval = false
		return msgRequireOff, nil, true
	default:
		return "", nil, false
	}
}
