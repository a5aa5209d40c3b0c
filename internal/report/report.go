// Package report implements the multi-turn report conversation. Each
// reporting user drives a small state machine over direct messages: start the
// report, identify the offending message, pick a policy category, then hand
// off to moderation. Replies returned by a handling call must be delivered to
// the user, in order, before any other component sees the report.
package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/devansoliman/cs152bots-spr24-group19/internal/taxonomy"
)

// Conversation keywords. These literals are part of the user-facing
// contract.
const (
	StartKeyword  = "report"
	CancelKeyword = "cancel"
	HelpKeyword   = "help"
)

// ErrNotFound is returned by a ContentResolver when the message reference
// cannot be resolved.
var ErrNotFound = errors.New("report: message not found")

// State is the position of a report in its conversation.
type State int

const (
	AwaitingStart State = iota
	AwaitingTarget
	AwaitingCategory
	// AwaitingDetails is declared for completeness: the current flow moves
	// straight from category selection to moderation without a free-text
	// details turn.
	AwaitingDetails
	ReadyForModeration
	Complete
	Cancelled
)

// String returns a short name for the state.
func (s State) String() string {
	switch s {
	case AwaitingStart:
		return "awaiting_start"
	case AwaitingTarget:
		return "awaiting_target"
	case AwaitingCategory:
		return "awaiting_category"
	case AwaitingDetails:
		return "awaiting_details"
	case ReadyForModeration:
		return "ready_for_moderation"
	case Complete:
		return "complete"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ReportedContent identifies the flagged message. It is captured once when
// the target reference resolves and never mutated afterwards.
type ReportedContent struct {
	Community  string
	Channel    string
	MessageID  string
	AuthorName string
	Text       string
}

// ContentResolver turns a user-supplied message reference (typically a copied
// message link) into the referenced content. It returns ErrNotFound when the
// reference cannot be resolved.
type ContentResolver interface {
	Resolve(ref string) (*ReportedContent, error)
}

// Report is one user's in-flight report.
type Report struct {
	CaseID   string
	UserID   string
	State    State
	Content  *ReportedContent
	Category taxonomy.Category

	resolver ContentResolver
}

// New creates a report for the given user in the AwaitingStart state.
func New(caseID, userID string, resolver ContentResolver) *Report {
	return &Report{
		CaseID:   caseID,
		UserID:   userID,
		State:    AwaitingStart,
		resolver: resolver,
	}
}

// HandleMessage advances the report with one inbound message and returns the
// ordered replies to send back to the reporting user. The cancel keyword is
// honored in every non-terminal state.
func (r *Report) HandleMessage(text string) []string {
	trimmed := strings.TrimSpace(text)

	if strings.EqualFold(trimmed, CancelKeyword) && !r.terminal() {
		r.State = Cancelled
		return []string{"Report cancelled."}
	}

	switch r.State {
	case AwaitingStart:
		return r.handleStart(trimmed)
	case AwaitingTarget:
		return r.handleTarget(trimmed)
	case AwaitingCategory:
		return r.handleCategory(trimmed)
	default:
		// ReadyForModeration and the terminal states accept no further
		// input; the pipeline owns the report from here.
		return nil
	}
}

func (r *Report) handleStart(text string) []string {
	if !strings.HasPrefix(strings.ToLower(text), StartKeyword) {
		return nil
	}
	r.State = AwaitingTarget
	return []string{
		"Thank you for starting the reporting process. Say `help` at any time for more information.",
		"Please copy paste the link to the message you want to report.\n" +
			"You can obtain this link by right-clicking the message and clicking `Copy Message Link`.",
	}
}

func (r *Report) handleTarget(ref string) []string {
	content, err := r.resolver.Resolve(ref)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []string{
				"I'm sorry, I couldn't find that message. Please try again or say `cancel` to cancel.",
			}
		}
		// Resolver failure other than not-found: surface it and keep the
		// report where it is so the user can retry or cancel.
		return []string{
			fmt.Sprintf("Something went wrong looking up that message: %v", err),
			"Please try again or say `cancel` to cancel.",
		}
	}

	r.Content = content
	r.State = AwaitingCategory
	return []string{
		"I found this message:",
		"```" + content.AuthorName + ": " + content.Text + "```",
		categoryPrompt(),
	}
}

func (r *Report) handleCategory(sel string) []string {
	cat, ok := parseSelection(sel)
	if !ok {
		return []string{
			"That is not a valid choice; please reply with one of the numbers below.",
			categoryPrompt(),
		}
	}
	r.Category = cat
	r.State = ReadyForModeration
	return []string{
		"Thank you for reporting. Our moderation team will review the message and decide on the appropriate action.",
	}
}

// terminal reports whether the conversation has ended.
func (r *Report) terminal() bool {
	return r.State == Complete || r.State == Cancelled
}

// ReadyForModeration reports whether the fusion engine and approval gate
// should now run for this report.
func (r *Report) ReadyForModeration() bool {
	return r.State == ReadyForModeration
}

// Done reports whether the report is complete or cancelled and can be
// removed once its final replies have been delivered.
func (r *Report) Done() bool {
	return r.terminal()
}

// parseSelection maps a category selection to a Category. It accepts either
// the 1-based number from the prompt or the category label itself,
// case-insensitively.
func parseSelection(sel string) (taxonomy.Category, bool) {
	all := taxonomy.All()
	if n, err := strconv.Atoi(strings.TrimSpace(sel)); err == nil {
		if n >= 1 && n <= len(all) {
			return all[n-1], true
		}
		return taxonomy.None, false
	}
	if cat, ok := taxonomy.Parse(sel); ok && cat != taxonomy.None {
		return cat, true
	}
	return taxonomy.None, false
}

// categoryPrompt renders the numbered category selection.
func categoryPrompt() string {
	var b strings.Builder
	b.WriteString("Please select the policy category that best describes the message:\n")
	for i, cat := range taxonomy.All() {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, cat.String())
	}
	b.WriteString("Reply with the number of your selection.")
	return b.String()
}
