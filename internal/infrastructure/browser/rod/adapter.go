package rod

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/domain/entity"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

var _ output.BrowserPort = (*BrowserAdapter)(nil)

var ErrInvalidURL = errors.New("invalid url")

const (
	defaultTimeout    = 10 * time.Second
	defaultSlowMotion = 0
)

type BrowserAdapter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	timeout  time.Duration

	mu    sync.Mutex
	pages map[entity.TabID]*rod.Page
}

type BrowserConfig struct {
	Headless   bool
	SlowMotion time.Duration
	Timeout    time.Duration
	NoSandbox  bool
	DevTools   bool
	// ControlURL attaches to an already running browser instead of
	// launching one.
	ControlURL string
	Bin        string
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:   true,
		SlowMotion: defaultSlowMotion,
		Timeout:    defaultTimeout,
		NoSandbox:  false,
		DevTools:   false,
	}
}

func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig) (*BrowserAdapter, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	var l *launcher.Launcher
	controlURL := cfg.ControlURL
	if controlURL == "" {
		l = launcher.New().
			Context(ctx).
			Headless(cfg.Headless).
			Devtools(cfg.DevTools).
			NoSandbox(cfg.NoSandbox)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if cfg.SlowMotion > 0 {
		browser = browser.SlowMotion(cfg.SlowMotion)
	}
	if err := browser.Connect(); err != nil {
		if l != nil {
			l.Kill()
			l.Cleanup()
		}
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &BrowserAdapter{
		browser:  browser,
		launcher: l,
		timeout:  cfg.Timeout,
		pages:    make(map[entity.TabID]*rod.Page),
	}, nil
}

// OpenTab opens rawURL in a new tab and waits for it to load. OPFS is only
// available to secure contexts, so only http(s) pages are accepted.
func (b *BrowserAdapter) OpenTab(ctx context.Context, rawURL string) (entity.Tab, error) {
	if err := validateURL(rawURL); err != nil {
		return entity.Tab{}, err
	}

	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: rawURL})
	if err != nil {
		return entity.Tab{}, fmt.Errorf("open tab: %w", err)
	}
	page = page.Context(context.Background())

	if err := page.Context(ctx).Timeout(b.timeout).WaitLoad(); err != nil {
		return entity.Tab{}, fmt.Errorf("wait load: %w", err)
	}

	tab, err := tabOf(page)
	if err != nil {
		return entity.Tab{}, err
	}

	b.mu.Lock()
	b.pages[tab.ID] = page
	b.mu.Unlock()
	return tab, nil
}

func (b *BrowserAdapter) Tabs(ctx context.Context) ([]entity.Tab, error) {
	pages, err := b.browser.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}

	tabs := make([]entity.Tab, 0, len(pages))
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range pages {
		tab, err := tabOf(p)
		if err != nil {
			continue
		}
		if _, ok := b.pages[tab.ID]; !ok {
			b.pages[tab.ID] = p.Context(context.Background())
		}
		tabs = append(tabs, tab)
	}
	return tabs, nil
}

func (b *BrowserAdapter) Storage(tabID entity.TabID) (output.StoragePort, error) {
	page, err := b.page(tabID)
	if err != nil {
		return nil, err
	}
	return &pageStorage{page: page, timeout: b.timeout}, nil
}

func (b *BrowserAdapter) page(tabID entity.TabID) (*rod.Page, error) {
	b.mu.Lock()
	page, ok := b.pages[tabID]
	b.mu.Unlock()
	if ok {
		return page, nil
	}

	if _, err := b.Tabs(context.Background()); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if page, ok := b.pages[tabID]; ok {
		return page, nil
	}
	return nil, fmt.Errorf("%s: %w", tabID, entity.ErrTabNotFound)
}

func (b *BrowserAdapter) Close() {
	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
}

func tabOf(page *rod.Page) (entity.Tab, error) {
	info, err := page.Info()
	if err != nil {
		return entity.Tab{}, fmt.Errorf("tab info: %w", err)
	}
	return entity.Tab{
		ID:    entity.TabID(page.TargetID),
		URL:   info.URL,
		Title: info.Title,
	}, nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q not supported", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
