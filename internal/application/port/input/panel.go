package input

import (
	"context"

	"opfs-inspector/internal/domain/entity"
)

// Panel is the DevTools panel: it triggers probes in an inspected tab and
// waits for the relayed result. A returned error means the round trip itself
// failed; probe-level failures come back as an error-status result.
type Panel interface {
	TestAccess(ctx context.Context, tabID entity.TabID) (*entity.RelayResult, error)
	Refresh(ctx context.Context, tabID entity.TabID) (*entity.RelayResult, error)
	Download(ctx context.Context, tabID entity.TabID, path string) (*entity.RelayResult, error)
	Upload(ctx context.Context, tabID entity.TabID, path string, data []byte) (*entity.RelayResult, error)
	Delete(ctx context.Context, tabID entity.TabID, path string, recursive bool) (*entity.RelayResult, error)
	SyncWrite(ctx context.Context, tabID entity.TabID, path string, data []byte) (*entity.RelayResult, error)
	View(tabID entity.TabID) View
}

// View is what the panel currently displays for a tab.
type View struct {
	TabID       entity.TabID            `json:"tabId"`
	Status      string                  `json:"status"`
	StatusClass string                  `json:"statusClass"`
	Contents    entity.DirectoryListing `json:"contents"`
	LastOp      entity.Operation        `json:"lastOperation,omitempty"`
}
