package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/application/service"
	"opfs-inspector/internal/application/service/bus"
	"opfs-inspector/internal/domain/entity"
	"opfs-inspector/internal/usecase/probe"
)

// Background receives everything content relays and panels send, runs the
// access test, performs downloads and re-broadcasts results to panels.
type Background struct {
	bus       *bus.Bus
	tabs      *service.TabRegistry
	downloads output.DownloadPort
	logger    output.LoggerPort
	now       func() time.Time
}

func NewBackground(messages *bus.Bus, tabs *service.TabRegistry, downloads output.DownloadPort, logger output.LoggerPort) *Background {
	return &Background{
		bus:       messages,
		tabs:      tabs,
		downloads: downloads,
		logger:    logger.WithField("component", "background"),
		now:       time.Now,
	}
}

func (b *Background) Run(ctx context.Context) error {
	for {
		select {
		case env := <-b.bus.Inbound():
			b.Handle(ctx, env)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Handle processes one inbound message.
func (b *Background) Handle(ctx context.Context, env bus.Envelope) {
	msg := env.Message
	switch msg.Type {
	case entity.MsgTestOPFSAccess:
		if msg.TabID == "" {
			b.logger.Warn("access test without tab id")
			return
		}
		// runs off the queue; the result is published when it completes
		go b.testAccess(ctx, msg.TabID)

	case entity.MsgDataFromContent:
		b.forwardData(env.Sender, msg.Data)

	case entity.MsgDownloadData:
		b.download(ctx, env.Sender, msg.Download)

	default:
		b.logger.Debug("ignoring message", "type", msg.Type, "sender", env.Sender)
	}
}

func (b *Background) testAccess(ctx context.Context, tabID entity.TabID) {
	var result *entity.RelayResult

	tc, err := b.tabs.Attach(tabID)
	if err != nil {
		b.logger.Error("background script failed to inject/execute script", "tab", tabID, "error", err)
		result = entity.ResultOf(entity.Failure("Background script error: " + err.Error()))
	} else {
		r := probe.TestAccess(ctx, tc.Storage, b.now())
		result = &entity.RelayResult{OperationResult: r}
	}
	if result.Status == "" {
		result = entity.ResultOf(entity.Failure("No result from content script."))
	}

	b.bus.Publish(entity.Message{Type: entity.MsgOPFSAccessResult, TabID: tabID, Result: result})
}

func (b *Background) forwardData(sender entity.TabID, data *entity.BridgeData) {
	if data == nil {
		b.logger.Warn("content message without data", "sender", sender)
		return
	}

	result := &entity.RelayResult{
		Operation:       data.Operation,
		OperationResult: data.OperationResult,
		Contents:        data.Contents,
	}
	msgType := entity.MsgOperationStatus
	if data.Operation == entity.OperationList {
		msgType = entity.MsgContentsResultBridge
	}
	b.bus.Publish(entity.Message{Type: msgType, TabID: sender, Result: result})
}

func (b *Background) download(ctx context.Context, sender entity.TabID, payload *entity.FilePayload) {
	result := b.save(ctx, payload)
	result.Operation = entity.OperationDownload
	b.bus.Publish(entity.Message{Type: entity.MsgOperationStatus, TabID: sender, Result: result})
}

func (b *Background) save(ctx context.Context, payload *entity.FilePayload) *entity.RelayResult {
	if payload == nil || payload.FileName == "" {
		return entity.ResultOf(entity.Failure("Download data is missing a file name."))
	}

	data, err := base64.StdEncoding.DecodeString(payload.FileContentBase64)
	if err != nil {
		b.logger.Error("download decode failed", "file", payload.FileName, "error", err)
		return entity.ResultOf(entity.Failure(fmt.Sprintf("Error decoding %s: %v", payload.FileName, err)))
	}

	dest, err := b.downloads.SaveAs(ctx, payload.FileName, data)
	if errors.Is(err, entity.ErrDownloadCancelled) {
		return entity.ResultOf(entity.Failure(fmt.Sprintf("Download of %s cancelled.", payload.FileName)))
	}
	if err != nil {
		b.logger.Error("download failed", "file", payload.FileName, "error", err)
		return entity.ResultOf(entity.Failure(fmt.Sprintf("Error saving %s: %v", payload.FileName, err)))
	}

	b.logger.Info("download saved", "file", payload.FileName, "dest", dest, "bytes", len(data))
	return entity.ResultOf(entity.Success(fmt.Sprintf("Downloaded %s to %s.", payload.FileName, dest)))
}
