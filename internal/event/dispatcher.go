package event

import (
	"context"
	"time"

	"github.com/chatwire/internal/logger"
)

const queueSize = 1024

// Transport delivers frames to connected subscribers. Delivery is best-effort:
// a failed or slow subscriber must never surface back to the publisher.
type Transport interface {
	SendToUser(userID string, frame Frame)
	OnlineUserIDs() []string
}

// ParticipantSource lists the current member ids of a chat. It is queried at
// delivery time, not at publish time, so fan-out always reflects the latest
// membership state.
type ParticipantSource interface {
	ParticipantIDs(ctx context.Context, chatID string) ([]string, error)
}

// Dispatcher routes domain events to channels and fans them out through the
// transport. Events are enqueued after the mutation committed (outbox style)
// and consumed by a single worker, which preserves the commit order of
// deliveries within a chat for every subscriber.
type Dispatcher struct {
	gate      *Gate
	transport Transport
	parts     ParticipantSource
	queue     chan DomainEvent
}

func NewDispatcher(gate *Gate, transport Transport, parts ParticipantSource) *Dispatcher {
	return &Dispatcher{
		gate:      gate,
		transport: transport,
		parts:     parts,
		queue:     make(chan DomainEvent, queueSize),
	}
}

// SetTransport late-binds the transport. The hub depends on the services
// that publish through this dispatcher, so the transport is attached after
// construction, before Run.
func (d *Dispatcher) SetTransport(t Transport) {
	d.transport = t
}

// Publish enqueues an event for fan-out. It never blocks and never fails the
// calling command: when the queue is full the event is dropped and logged.
func (d *Dispatcher) Publish(ev DomainEvent) {
	select {
	case d.queue <- ev:
	default:
		logger.Errorf("dispatch queue full, dropping %s", ev.EventKind())
	}
}

// Run consumes the queue until ctx is cancelled, then drains what is left.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-d.queue:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

// route selects the channels and the excluded origin for an event. Exclusion
// implements "notify others, not the actor": the originating client already
// holds optimistic local state and must not receive an echo.
func route(ev DomainEvent) (channels []string, exclude string) {
	switch e := ev.(type) {
	case ChatCreated:
		return []string{ChatChannel(e.ID)}, ""
	case MessageSent:
		return []string{ChatChannel(e.ChatID)}, e.SenderID
	case MessageDeleted:
		// A for_me deletion only changes the deleting user's own view.
		if e.DeleteType == "for_me" {
			return []string{UserChannel(e.ActorID)}, ""
		}
		return []string{ChatChannel(e.ChatID)}, ""
	case ReactionAdded:
		return []string{ChatChannel(e.ChatID)}, e.Reaction.UserID
	case ReactionRemoved:
		return []string{ChatChannel(e.ChatID)}, e.UserID
	case UserTyping:
		return []string{PresenceChatChannel(e.ChatID)}, e.UserID
	case ChatArchived:
		return []string{UserChannel(e.UserID)}, ""
	case ChatPinned:
		return []string{UserChannel(e.UserID)}, ""
	case UserStatus:
		return []string{PresenceOnlineChannel}, e.UserID
	}
	return nil, ""
}

func (d *Dispatcher) deliver(ev DomainEvent) {
	defer logger.DeferLogDuration("dispatch.deliver", time.Now())()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	frame := Frame{Type: ev.EventKind(), Payload: ev}
	channels, exclude := route(ev)
	for _, ch := range channels {
		for _, uid := range d.candidates(ctx, ch) {
			if uid == exclude {
				continue
			}
			if !d.gate.CanReceive(ctx, uid, ch) {
				continue
			}
			d.transport.SendToUser(uid, frame)
		}
	}
}

// candidates narrows the gate's audience: chat channels start from the
// current membership, user channels from the single embedded id, the global
// roster from every connected user. The gate still has the final say per
// subscriber.
func (d *Dispatcher) candidates(ctx context.Context, channel string) []string {
	scope, id := parseChannel(channel)
	switch scope {
	case scopeChat, scopePresenceChat:
		ids, err := d.parts.ParticipantIDs(ctx, id)
		if err != nil {
			logger.Errorf("dispatch members chat=%s: %v", id, err)
			return nil
		}
		return ids
	case scopeUser:
		return []string{id}
	case scopePresenceOnline:
		return d.transport.OnlineUserIDs()
	}
	return nil
}
