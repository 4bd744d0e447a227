package output

import (
	"context"

	"opfs-inspector/internal/domain/entity"
)

type BrowserPort interface {
	OpenTab(ctx context.Context, url string) (entity.Tab, error)
	Tabs(ctx context.Context) ([]entity.Tab, error)
	Storage(tabID entity.TabID) (StoragePort, error)
	Close()
}
