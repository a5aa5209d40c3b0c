package report

import (
	"strings"

	"github.com/google/uuid"
)

// helpReply is returned for the help keyword, whether or not a report is in
// progress.
const helpReply = "Use the `report` command to begin the reporting process.\n" +
	"Use the `cancel` command to cancel the report process."

// Manager owns the map of in-flight reports, keyed by the reporting user's
// id. It is not safe for concurrent use; the pipeline's single-consumer
// event loop is the only caller.
type Manager struct {
	resolver ContentResolver
	reports  map[string]*Report
}

// NewManager creates an empty report manager using the given resolver for
// target references.
func NewManager(resolver ContentResolver) *Manager {
	return &Manager{
		resolver: resolver,
		reports:  make(map[string]*Report),
	}
}

// Handle routes one direct message from a user. It creates a report when the
// message is a start command and no report exists, forwards the message to
// the user's report otherwise, and removes cancelled reports once their
// final reply has been produced. The returned replies must be delivered to
// the user in order before the caller inspects Ready.
func (m *Manager) Handle(userID, text string) []string {
	trimmed := strings.TrimSpace(text)

	if strings.EqualFold(trimmed, HelpKeyword) {
		return []string{helpReply}
	}

	r, exists := m.reports[userID]

	// Only respond if the message is part of a reporting flow.
	if !exists && !strings.HasPrefix(strings.ToLower(trimmed), StartKeyword) {
		return nil
	}

	// At most one report per user: a fresh start command while a report is
	// already under way is rejected rather than restarting the flow.
	if exists && r.State != AwaitingStart && strings.EqualFold(trimmed, StartKeyword) {
		return []string{"You already have a report in progress. Say `cancel` to discard it and start over."}
	}

	if !exists {
		r = New(uuid.New().String(), userID, m.resolver)
		m.reports[userID] = r
	}

	replies := r.HandleMessage(text)

	if r.State == Cancelled {
		delete(m.reports, userID)
	}
	return replies
}

// Ready returns the user's report if it is waiting for moderation.
func (m *Manager) Ready(userID string) (*Report, bool) {
	r, ok := m.reports[userID]
	if !ok || !r.ReadyForModeration() {
		return nil, false
	}
	return r, true
}

// Finish marks the user's report complete and removes it from the map. It is
// called by the pipeline once the dispatcher has sent everything the report
// required.
func (m *Manager) Finish(userID string) {
	if r, ok := m.reports[userID]; ok {
		r.State = Complete
		delete(m.reports, userID)
	}
}

// Open returns the number of in-flight reports.
func (m *Manager) Open() int {
	return len(m.reports)
}
