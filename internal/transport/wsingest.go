package transport

import (
	"context"
	"encoding/json"
	"log"
	"net"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// WSIngest is a minimal WebSocket listener that accepts JSON-encoded inbound
// events and feeds them into the pipeline's event channel. It exists for
// local development and operational tooling; the production event source is
// NATS.
type WSIngest struct {
	addr   string
	events chan<- InboundEvent
}

// NewWSIngest creates an ingest listener that pushes decoded events into the
// given channel.
func NewWSIngest(addr string, events chan<- InboundEvent) *WSIngest {
	return &WSIngest{addr: addr, events: events}
}

// ListenAndServe accepts WebSocket connections until the context is
// cancelled. Each connection is served by its own goroutine; decode failures
// close the offending connection.
func (g *WSIngest) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.addr)
	if err != nil {
		return &Error{Op: "ws listen " + g.addr, Err: err}
	}
	log.Printf("[ws-ingest] listening on %s", g.addr)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			log.Printf("[ws-ingest] accept: %v", err)
			continue
		}
		go g.serve(ctx, conn)
	}
}

func (g *WSIngest) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if _, err := ws.Upgrade(conn); err != nil {
		log.Printf("[ws-ingest] upgrade failed: %v", err)
		return
	}

	for {
		data, err := wsutil.ReadClientText(conn)
		if err != nil {
			return // client closed or broken connection
		}

		var ev InboundEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("[ws-ingest] malformed event: %v", err)
			continue
		}
		if err := ValidateText(ev.Text); err != nil {
			log.Printf("[ws-ingest] rejected event from %s: %v", ev.AuthorID, err)
			continue
		}

		select {
		case g.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
