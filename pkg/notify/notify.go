// Package notify implements the live-query notification fan-out of §6.6:
// delivering {id, action, record, result} tuples to the session a live
// query was opened under. A real deployment publishes to NATS, one subject
// per session, exactly as the teacher wires github.com/nats-io/nats.go as a
// provider (forbearing-gst's bootstrap.go registers nats.Init/nats.Close
// alongside its other providers); a gorilla/websocket bridge from that
// subject to a client connection is the wire surface a caller would add,
// left undocumented-in-code since the client protocol is out of scope.
package notify

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/forbearing/surrealkv-core/logger"
)

// Event is the notification tuple of §6.6.
type Event struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	Record any    `json:"record,omitempty"`
	Result any    `json:"result,omitempty"`
}

// Publisher delivers one Event to the subject/channel a session is
// listening on. live.Notifier is satisfied by any Publisher via the Notify
// adapter method below.
type Publisher interface {
	Publish(ctx context.Context, sessionID string, ev Event) error
}

func subject(sessionID string) string { return "live." + sessionID }

// NatsPublisher publishes one JSON-encoded Event per notification to a
// per-session NATS subject.
type NatsPublisher struct {
	Conn *nats.Conn
}

func NewNatsPublisher(conn *nats.Conn) *NatsPublisher { return &NatsPublisher{Conn: conn} }

func (p *NatsPublisher) Publish(ctx context.Context, sessionID string, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.Conn.Publish(subject(sessionID), raw); err != nil {
		logger.Notify.Errorw("nats publish failed", "session", sessionID, "lq_id", ev.ID, "error", err)
		return err
	}
	logger.Notify.Debugw("notification published", "session", sessionID, "lq_id", ev.ID, "action", ev.Action)
	return nil
}

// ChanPublisher fans out notifications to in-process Go channels, one per
// session, used in tests and single-process deployments where a NATS
// server isn't available.
type ChanPublisher struct {
	subs map[string]chan Event
}

func NewChanPublisher() *ChanPublisher {
	return &ChanPublisher{subs: make(map[string]chan Event)}
}

// Subscribe returns the channel a session's notifications arrive on,
// creating it if this is the first subscriber for sessionID.
func (p *ChanPublisher) Subscribe(sessionID string) <-chan Event {
	ch, ok := p.subs[sessionID]
	if !ok {
		ch = make(chan Event, 64)
		p.subs[sessionID] = ch
	}
	return ch
}

func (p *ChanPublisher) Publish(ctx context.Context, sessionID string, ev Event) error {
	ch, ok := p.subs[sessionID]
	if !ok {
		return nil
	}
	select {
	case ch <- ev:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// notifyAdapter satisfies live.Notifier over any Publisher, translating the
// narrow (action, recordID, result any) shape live.Kill/the DML path call
// into this package's Event wire type.
type notifyAdapter struct{ pub Publisher }

// AsNotifier wraps pub so it satisfies live.Notifier without live importing
// this package (keeping the dependency pointed outward, from transport to
// core, as every other narrow-callback boundary in this codebase does).
func AsNotifier(pub Publisher) interface {
	Notify(ctx context.Context, sessionID, lqID, action string, recordID, result any) error
} {
	return notifyAdapter{pub: pub}
}

func (a notifyAdapter) Notify(ctx context.Context, sessionID, lqID, action string, recordID, result any) error {
	return a.pub.Publish(ctx, sessionID, Event{ID: lqID, Action: action, Record: recordID, Result: result})
}
