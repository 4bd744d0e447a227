package relay

import (
	"context"
	"encoding/json"

	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/application/service/bridge"
	"opfs-inspector/internal/application/service/bus"
	"opfs-inspector/internal/domain/entity"
)

// ContentRelay plays the content script of one tab: it waits for bridge
// events, drains the matching slot and forwards the payload to the
// background.
type ContentRelay struct {
	tabID  entity.TabID
	bridge *bridge.Bridge
	bus    *bus.Bus
	logger output.LoggerPort
}

func NewContentRelay(tabID entity.TabID, b *bridge.Bridge, messages *bus.Bus, logger output.LoggerPort) *ContentRelay {
	return &ContentRelay{
		tabID:  tabID,
		bridge: b,
		bus:    messages,
		logger: logger.WithField("tab", tabID),
	}
}

// Run relays until ctx ends.
func (r *ContentRelay) Run(ctx context.Context) error {
	r.logger.Debug("content relay loaded")
	for {
		select {
		case ev := <-r.bridge.Events():
			r.handle(ctx, ev)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *ContentRelay) handle(ctx context.Context, ev bridge.Event) {
	r.logger.Debug("bridge event received", "event", ev)

	slot, ok := bridge.SlotFor(ev)
	if !ok {
		r.logger.Warn("unknown bridge event", "event", ev)
		return
	}
	raw, err := r.bridge.Drain(slot)
	if err != nil {
		r.logger.Error("bridge element not found", "slot", slot, "error", err)
		return
	}

	msg, err := decode(slot, raw)
	if err != nil {
		r.logger.Error("failed to parse bridge payload", "slot", slot, "error", err)
		return
	}
	if err := r.bus.SendToBackground(ctx, msg, r.tabID); err != nil {
		r.logger.Error("failed to send to background", "type", msg.Type, "error", err)
	}
}

func decode(slot bridge.Slot, raw string) (entity.Message, error) {
	switch slot {
	case bridge.SlotDownload:
		var payload entity.FilePayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return entity.Message{}, err
		}
		return entity.Message{Type: entity.MsgDownloadData, Download: &payload}, nil
	default:
		var data entity.BridgeData
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return entity.Message{}, err
		}
		return entity.Message{Type: entity.MsgDataFromContent, Data: &data}, nil
	}
}
