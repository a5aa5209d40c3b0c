package transport

import (
	"regexp"

	"github.com/devansoliman/cs152bots-spr24-group19/internal/report"
)

// messageLinkPattern matches Discord-style message links:
// https://discord.com/channels/<guild>/<channel>/<message>
var messageLinkPattern = regexp.MustCompile(`/channels/(\d+)/(\d+)/(\d+)`)

// IndexResolver resolves report target references against the message index.
// It implements report.ContentResolver.
type IndexResolver struct {
	index *MessageIndex
}

// NewIndexResolver creates a resolver backed by the given index.
func NewIndexResolver(index *MessageIndex) *IndexResolver {
	return &IndexResolver{index: index}
}

// Resolve parses a copied message link and looks the message up in the
// index. It returns report.ErrNotFound for unparseable references and for
// messages no longer retained.
func (r *IndexResolver) Resolve(ref string) (*report.ReportedContent, error) {
	m := messageLinkPattern.FindStringSubmatch(ref)
	if m == nil {
		return nil, report.ErrNotFound
	}
	guildID, channelID, messageID := m[1], m[2], m[3]

	ev, ok := r.index.Lookup(channelID, messageID)
	if !ok {
		return nil, report.ErrNotFound
	}

	return &report.ReportedContent{
		Community:  guildID,
		Channel:    channelID,
		MessageID:  messageID,
		AuthorName: ev.AuthorName,
		Text:       ev.Text,
	}, nil
}
