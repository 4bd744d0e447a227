package panel

import (
	"context"
	"fmt"

	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/application/service"
	"opfs-inspector/internal/domain/entity"
	"opfs-inspector/internal/usecase/probe"
)

// InspectedWindow evaluates probes inside a tab. Errors it returns happened
// outside the probe: the tab could not be reached or the probe blew up
// before leaving a result in the bridge.
type InspectedWindow struct {
	tabs   *service.TabRegistry
	logger output.LoggerPort
}

func NewInspectedWindow(tabs *service.TabRegistry, logger output.LoggerPort) *InspectedWindow {
	return &InspectedWindow{tabs: tabs, logger: logger}
}

func (w *InspectedWindow) Eval(ctx context.Context, tabID entity.TabID, p probe.Probe) (err error) {
	tc, err := w.tabs.Attach(tabID)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()

	return p(ctx, probe.Env{
		Storage: tc.Storage,
		Bridge:  tc.Bridge,
		Logger:  w.logger.WithField("tab", tabID),
	})
}
