package transport

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subject patterns used by the moderation pipeline.
const (
	SubjectInbound  = "moderation.event.inbound"
	SubjectOutbound = "moderation.send" // + .<channel_id>
)

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "modbot",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// NATSClient wraps the NATS connection with the pipeline's send/receive
// contract.
type NATSClient struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NewNATSClient connects to NATS with the given config and returns a ready
// client. It returns an error if the initial connection fails.
func NewNATSClient(config NATSConfig) (*NATSClient, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, &Error{Op: "connect", Err: err}
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &NATSClient{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// SubscribeInbound registers a handler for inbound events. Malformed
// payloads are logged and skipped.
func (c *NATSClient) SubscribeInbound(handler func(ev InboundEvent)) error {
	sub, err := c.conn.Subscribe(SubjectInbound, func(msg *nats.Msg) {
		var ev InboundEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Printf("[nats] malformed inbound event: %v", err)
			return
		}
		handler(ev)
	})
	if err != nil {
		return &Error{Op: fmt.Sprintf("subscribe %s", SubjectInbound), Err: err}
	}

	c.mu.Lock()
	c.subs[SubjectInbound] = sub
	c.mu.Unlock()
	return nil
}

// Send publishes an outbound message for the given channel. It implements
// the Sender interface.
func (c *NATSClient) Send(channelID, text string) error {
	data, err := json.Marshal(OutboundMessage{ChannelID: channelID, Text: text})
	if err != nil {
		return &Error{Op: "marshal outbound", Err: err}
	}
	subject := SubjectOutbound + "." + channelID
	if err := c.conn.Publish(subject, data); err != nil {
		return &Error{Op: fmt.Sprintf("publish %s", subject), Err: err}
	}
	return nil
}

// PublishInbound publishes an inbound event. It is used by ingest adapters
// and tests that feed the pipeline over NATS.
func (c *NATSClient) PublishInbound(ev InboundEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return &Error{Op: "marshal inbound", Err: err}
	}
	if err := c.conn.Publish(SubjectInbound, data); err != nil {
		return &Error{Op: fmt.Sprintf("publish %s", SubjectInbound), Err: err}
	}
	return nil
}

// Close drains all active subscriptions and closes the NATS connection.
func (c *NATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Printf("[nats] drain %s: %v", subject, err)
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		log.Printf("[nats] connection drain: %v", err)
	}

	log.Printf("[nats] client closed")
}
