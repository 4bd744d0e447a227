package memory

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/domain/entity"
)

var _ output.BrowserPort = (*Browser)(nil)

// Browser hosts tabs whose OPFS lives in memory. Tabs on the same origin
// share storage.
type Browser struct {
	mu      sync.Mutex
	seq     int
	tabs    []entity.Tab
	byTab   map[entity.TabID]*Origin
	origins map[string]*Origin
}

func NewBrowser() *Browser {
	return &Browser{
		byTab:   make(map[entity.TabID]*Origin),
		origins: make(map[string]*Origin),
	}
}

func (b *Browser) OpenTab(ctx context.Context, rawURL string) (entity.Tab, error) {
	if err := ctx.Err(); err != nil {
		return entity.Tab{}, err
	}
	key, err := originKey(rawURL)
	if err != nil {
		return entity.Tab{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	tab := entity.Tab{
		ID:    entity.TabID(fmt.Sprintf("tab-%d", b.seq)),
		URL:   rawURL,
		Title: key,
	}
	origin, ok := b.origins[key]
	if !ok {
		origin = NewOrigin()
		b.origins[key] = origin
	}
	b.tabs = append(b.tabs, tab)
	b.byTab[tab.ID] = origin
	return tab, nil
}

func (b *Browser) Tabs(ctx context.Context) ([]entity.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]entity.Tab(nil), b.tabs...), nil
}

func (b *Browser) Storage(tabID entity.TabID) (output.StoragePort, error) {
	origin, err := b.Origin(tabID)
	if err != nil {
		return nil, err
	}
	return origin, nil
}

// Origin exposes the storage behind a tab for seeding and fault injection.
func (b *Browser) Origin(tabID entity.TabID) (*Origin, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	origin, ok := b.byTab[tabID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", tabID, entity.ErrTabNotFound)
	}
	return origin, nil
}

func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tabs = nil
	b.byTab = make(map[entity.TabID]*Origin)
}

func originKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid url %q: scheme and host required", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}
