// Package bus is the runtime messaging bus between the content relays, the
// background relay and panels.
package bus

import (
	"context"
	"sync"

	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/domain/entity"
)

// Envelope is a message sent to the background together with the tab that
// sent it, like a runtime.MessageSender.
type Envelope struct {
	Message entity.Message
	Sender  entity.TabID
}

// Bus delivers inbound messages to a single background listener and fans
// background broadcasts out to every subscribed panel.
type Bus struct {
	mu      sync.Mutex
	subs    map[chan entity.Message]struct{}
	inbound chan Envelope
	log     output.LoggerPort
	depth   int
}

func New(logger output.LoggerPort) *Bus {
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &Bus{
		subs:    make(map[chan entity.Message]struct{}),
		inbound: make(chan Envelope, 64),
		log:     logger,
		depth:   64,
	}
}

// SendToBackground queues msg for the background listener.
func (b *Bus) SendToBackground(ctx context.Context, msg entity.Message, sender entity.TabID) error {
	select {
	case b.inbound <- Envelope{Message: msg, Sender: sender}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inbound is read by the background relay only.
func (b *Bus) Inbound() <-chan Envelope {
	return b.inbound
}

// Subscribe registers a listener for broadcasts and returns a channel + cancel.
func (b *Bus) Subscribe() (<-chan entity.Message, func()) {
	ch := make(chan entity.Message, b.depth)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	b.log.Debug("bus subscribe", "subs", count)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish broadcasts msg to every subscriber without blocking. Subscribers
// filter on TabID themselves.
func (b *Bus) Publish(msg entity.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := 0
	for sub := range b.subs {
		select {
		case sub <- msg:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.log.Warn("bus dropped message", "type", msg.Type, "tab", msg.TabID, "count", dropped)
	}
}

// Await returns the first message on ch addressed to tabID whose type is one
// of types. Messages for other tabs are discarded.
func Await(ctx context.Context, ch <-chan entity.Message, tabID entity.TabID, types ...entity.MessageType) (entity.Message, error) {
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return entity.Message{}, context.Canceled
			}
			if msg.TabID != tabID {
				continue
			}
			for _, t := range types {
				if msg.Type == t {
					return msg, nil
				}
			}
		case <-ctx.Done():
			return entity.Message{}, ctx.Err()
		}
	}
}
