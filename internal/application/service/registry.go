package service

import (
	"fmt"
	"sort"
	"sync"

	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/application/service/bridge"
	"opfs-inspector/internal/domain/entity"

	"github.com/samber/lo"
)

// TabContext is everything attached to one inspected tab: its storage and
// the bridge its probes write into.
type TabContext struct {
	ID      entity.TabID
	Storage output.StoragePort
	Bridge  *bridge.Bridge
}

// AttachHook runs once for every newly attached tab.
type AttachHook func(tc *TabContext)

// TabRegistry is the session table keyed by tab id.
type TabRegistry struct {
	mu      sync.Mutex
	browser output.BrowserPort
	tabs    map[entity.TabID]*TabContext
	hooks   []AttachHook
}

func NewTabRegistry(browser output.BrowserPort) *TabRegistry {
	return &TabRegistry{
		browser: browser,
		tabs:    make(map[entity.TabID]*TabContext),
	}
}

// OnAttach registers hook for tabs attached after this call.
func (r *TabRegistry) OnAttach(hook AttachHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Attach returns the context for tabID, creating it on first use.
func (r *TabRegistry) Attach(tabID entity.TabID) (*TabContext, error) {
	r.mu.Lock()
	if tc, ok := r.tabs[tabID]; ok {
		r.mu.Unlock()
		return tc, nil
	}

	storage, err := r.browser.Storage(tabID)
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("attach %s: %w", tabID, err)
	}
	tc := &TabContext{
		ID:      tabID,
		Storage: storage,
		Bridge:  bridge.New(),
	}
	r.tabs[tabID] = tc
	hooks := append([]AttachHook(nil), r.hooks...)
	r.mu.Unlock()

	for _, hook := range hooks {
		hook(tc)
	}
	return tc, nil
}

func (r *TabRegistry) Get(tabID entity.TabID) (*TabContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tc, ok := r.tabs[tabID]
	return tc, ok
}

// Detach forgets tabID. A later Attach starts from a fresh bridge.
func (r *TabRegistry) Detach(tabID entity.TabID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tabs, tabID)
}

// Attached lists attached tab ids in sorted order.
func (r *TabRegistry) Attached() []entity.TabID {
	r.mu.Lock()
	ids := lo.Keys(r.tabs)
	r.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
