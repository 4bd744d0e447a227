// Package bridge is the per-tab mailbox probes use to hand results to the
// content relay. Each slot holds at most one undrained JSON payload.
package bridge

import (
	"encoding/json"
	"fmt"
	"sync"

	"opfs-inspector/internal/domain/entity"
)

type Slot string

type Event string

const (
	SlotData     Slot = "opfs-debug-data"
	SlotDownload Slot = "opfs-debug-download-data"

	EventDataReady     Event = "OPFSDebugDataReady"
	EventDownloadReady Event = "OPFSDebugDownloadReady"
)

// EventFor returns the readiness event paired with slot.
func EventFor(slot Slot) Event {
	switch slot {
	case SlotDownload:
		return EventDownloadReady
	default:
		return EventDataReady
	}
}

// SlotFor is the inverse of EventFor.
func SlotFor(event Event) (Slot, bool) {
	switch event {
	case EventDataReady:
		return SlotData, true
	case EventDownloadReady:
		return SlotDownload, true
	}
	return "", false
}

type Bridge struct {
	mu     sync.Mutex
	slots  map[Slot]string
	events chan Event
	signal map[Slot]bool
}

func New() *Bridge {
	return &Bridge{
		slots:  make(map[Slot]string),
		// one pending event per slot
		events: make(chan Event, 2),
		signal: make(map[Slot]bool),
	}
}

// Post stores v as JSON text in slot, replacing any payload not yet drained,
// and dispatches the slot's event. Repeated posts before a drain coalesce
// into one pending event.
func (b *Bridge) Post(slot Slot, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", slot, err)
	}

	b.mu.Lock()
	b.slots[slot] = string(data)
	pending := b.signal[slot]
	b.signal[slot] = true
	b.mu.Unlock()

	if !pending {
		select {
		case b.events <- EventFor(slot):
		default:
		}
	}
	return nil
}

// Events delivers readiness events. There is one reader per bridge.
func (b *Bridge) Events() <-chan Event {
	return b.events
}

// Drain returns the payload in slot and clears it.
func (b *Bridge) Drain(slot Slot) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.signal[slot] = false
	data, ok := b.slots[slot]
	if !ok {
		return "", fmt.Errorf("%s: %w", slot, entity.ErrSlotEmpty)
	}
	delete(b.slots, slot)
	return data, nil
}

// Pending reports whether slot holds an undrained payload.
func (b *Bridge) Pending(slot Slot) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.slots[slot]
	return ok
}
