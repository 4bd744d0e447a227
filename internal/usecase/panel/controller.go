package panel

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"opfs-inspector/internal/application/port/input"
	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/application/service/bus"
	"opfs-inspector/internal/domain/entity"
	"opfs-inspector/internal/usecase/probe"
)

var _ input.Panel = (*Controller)(nil)

const (
	classSuccess = "success"
	classError   = "error"

	pendingTest = "Testing..."
	pendingWork = "Working..."
)

type Config struct {
	// RefreshAfterChange lists the tab again after a successful upload,
	// delete or sync write.
	RefreshAfterChange bool
}

func DefaultConfig() Config {
	return Config{RefreshAfterChange: true}
}

// Controller is the DevTools panel. It owns one view per inspected tab.
type Controller struct {
	bus    *bus.Bus
	window *InspectedWindow
	logger output.LoggerPort
	cfg    Config

	mu    sync.Mutex
	views map[entity.TabID]*input.View
}

func NewController(messages *bus.Bus, window *InspectedWindow, logger output.LoggerPort, cfg Config) *Controller {
	return &Controller{
		bus:    messages,
		window: window,
		logger: logger.WithField("component", "panel"),
		cfg:    cfg,
		views:  make(map[entity.TabID]*input.View),
	}
}

func (c *Controller) TestAccess(ctx context.Context, tabID entity.TabID) (*entity.RelayResult, error) {
	c.setPending(tabID, pendingTest)

	ch, cancel := c.bus.Subscribe()
	defer cancel()

	if err := c.bus.SendToBackground(ctx, entity.Message{Type: entity.MsgTestOPFSAccess, TabID: tabID}, ""); err != nil {
		return nil, c.transportError(tabID, err)
	}
	msg, err := bus.Await(ctx, ch, tabID, entity.MsgOPFSAccessResult)
	if err != nil {
		return nil, c.transportError(tabID, err)
	}

	c.render(tabID, "", msg.Result)
	return msg.Result, nil
}

func (c *Controller) Refresh(ctx context.Context, tabID entity.TabID) (*entity.RelayResult, error) {
	c.setPending(tabID, pendingWork)
	return c.list(ctx, tabID, true)
}

func (c *Controller) Download(ctx context.Context, tabID entity.TabID, path string) (*entity.RelayResult, error) {
	c.setPending(tabID, pendingWork)
	result, err := c.roundTrip(ctx, tabID, probe.PrepareDownload(path), entity.MsgOperationStatus, entity.OperationDownload)
	if err != nil {
		return nil, err
	}
	c.render(tabID, entity.OperationDownload, result)
	return result, nil
}

func (c *Controller) Upload(ctx context.Context, tabID entity.TabID, path string, data []byte) (*entity.RelayResult, error) {
	encoded := base64.StdEncoding.EncodeToString(data)
	return c.change(ctx, tabID, entity.OperationUpload, probe.Upload(path, encoded))
}

func (c *Controller) Delete(ctx context.Context, tabID entity.TabID, path string, recursive bool) (*entity.RelayResult, error) {
	return c.change(ctx, tabID, entity.OperationDelete, probe.Delete(path, recursive))
}

func (c *Controller) SyncWrite(ctx context.Context, tabID entity.TabID, path string, data []byte) (*entity.RelayResult, error) {
	return c.change(ctx, tabID, entity.OperationSyncWrite, probe.SyncWrite(path, data))
}

// View returns a copy of what the panel shows for tabID.
func (c *Controller) View(tabID entity.TabID) input.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.view(tabID)
	out := *v
	out.Contents = append(entity.DirectoryListing(nil), v.Contents...)
	return out
}

func (c *Controller) change(ctx context.Context, tabID entity.TabID, op entity.Operation, p probe.Probe) (*entity.RelayResult, error) {
	c.setPending(tabID, pendingWork)
	result, err := c.roundTrip(ctx, tabID, p, entity.MsgOperationStatus, op)
	if err != nil {
		return nil, err
	}
	c.render(tabID, op, result)

	if result.OK() && c.cfg.RefreshAfterChange {
		if _, err := c.list(ctx, tabID, false); err != nil {
			c.logger.Warn("refresh after change failed", "tab", tabID, "operation", op, "error", err)
		}
	}
	return result, nil
}

func (c *Controller) list(ctx context.Context, tabID entity.TabID, showStatus bool) (*entity.RelayResult, error) {
	result, err := c.roundTrip(ctx, tabID, probe.List(), entity.MsgContentsResultBridge, entity.OperationList)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	v := c.view(tabID)
	v.Contents = append(entity.DirectoryListing(nil), result.Contents...)
	c.mu.Unlock()

	if showStatus {
		c.render(tabID, entity.OperationList, result)
	}
	return result, nil
}

// roundTrip subscribes before evaluating so the relayed answer cannot be
// missed, then waits for the first matching message for this tab.
func (c *Controller) roundTrip(ctx context.Context, tabID entity.TabID, p probe.Probe, want entity.MessageType, op entity.Operation) (*entity.RelayResult, error) {
	ch, cancel := c.bus.Subscribe()
	defer cancel()

	if err := c.window.Eval(ctx, tabID, p); err != nil {
		return nil, c.transportError(tabID, err)
	}

	for {
		msg, err := bus.Await(ctx, ch, tabID, want)
		if err != nil {
			return nil, c.transportError(tabID, err)
		}
		if msg.Result == nil {
			continue
		}
		if msg.Result.Operation != "" && msg.Result.Operation != op {
			c.logger.Debug("skipping result of another operation", "tab", tabID, "want", op, "got", msg.Result.Operation)
			continue
		}
		return msg.Result, nil
	}
}

func (c *Controller) transportError(tabID entity.TabID, err error) error {
	c.logger.Error("round trip failed", "tab", tabID, "error", err)

	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.view(tabID)
	v.Status = "Error: Evaluation failed: " + err.Error()
	v.StatusClass = classError
	return fmt.Errorf("evaluation failed: %w", err)
}

func (c *Controller) setPending(tabID entity.TabID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.view(tabID)
	v.Status = text
	v.StatusClass = ""
}

func (c *Controller) render(tabID entity.TabID, op entity.Operation, result *entity.RelayResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := c.view(tabID)
	v.LastOp = op
	v.Status, v.StatusClass = StatusLine(op, result)

	if result.OK() {
		c.logger.Info("operation succeeded", "tab", tabID, "operation", op, "message", result.Message)
	} else {
		c.logger.Warn("operation failed", "tab", tabID, "operation", op, "message", result.Message)
	}
}

// view must be called with c.mu held.
func (c *Controller) view(tabID entity.TabID) *input.View {
	v, ok := c.views[tabID]
	if !ok {
		v = &input.View{TabID: tabID}
		c.views[tabID] = v
	}
	return v
}

// StatusLine renders a result the way the panel displays it.
func StatusLine(op entity.Operation, result *entity.RelayResult) (string, string) {
	if result == nil {
		return "Error: No result.", classError
	}
	if !result.OK() {
		return "Error: " + result.Message, classError
	}
	if op == entity.OperationList && len(result.Contents) == 0 {
		return entity.EmptyOPFSText, classSuccess
	}
	return result.Message, classSuccess
}
