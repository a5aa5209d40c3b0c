package transport

import "sync"

// MaxIndexedMessages is the number of recent messages retained per channel
// for report target resolution.
const MaxIndexedMessages = 256

// MessageIndex stores the last N messages per channel in memory so that
// user-supplied message links can be resolved into content. It is
// goroutine-safe and uses a ring buffer per channel internally.
type MessageIndex struct {
	mu      sync.RWMutex
	buffers map[string]*ringBuffer // channelID -> ring buffer
}

// ringBuffer is a fixed-size circular buffer of InboundEvent.
type ringBuffer struct {
	items []InboundEvent
	pos   int
	count int
}

// NewMessageIndex creates a new empty MessageIndex.
func NewMessageIndex() *MessageIndex {
	return &MessageIndex{
		buffers: make(map[string]*ringBuffer),
	}
}

// Record stores a channel message in its channel's ring buffer. If the
// buffer is full, the oldest message is overwritten.
func (ix *MessageIndex) Record(ev InboundEvent) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	rb, ok := ix.buffers[ev.ChannelID]
	if !ok {
		rb = &ringBuffer{
			items: make([]InboundEvent, MaxIndexedMessages),
		}
		ix.buffers[ev.ChannelID] = rb
	}

	rb.items[rb.pos] = ev
	rb.pos = (rb.pos + 1) % MaxIndexedMessages
	if rb.count < MaxIndexedMessages {
		rb.count++
	}
}

// Lookup returns the indexed message with the given channel and message id,
// if it is still retained.
func (ix *MessageIndex) Lookup(channelID, messageID string) (InboundEvent, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	rb, ok := ix.buffers[channelID]
	if !ok {
		return InboundEvent{}, false
	}

	// Walk newest to oldest so an edited repost resolves to the latest copy.
	for i := 0; i < rb.count; i++ {
		idx := (rb.pos - 1 - i + MaxIndexedMessages) % MaxIndexedMessages
		if rb.items[idx].MessageID == messageID {
			return rb.items[idx], true
		}
	}
	return InboundEvent{}, false
}

// Remove deletes the buffer for a channel.
func (ix *MessageIndex) Remove(channelID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	delete(ix.buffers, channelID)
}
