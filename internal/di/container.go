package di

import (
	"context"
	"fmt"
	"sync"

	"opfs-inspector/internal/application/port/input"
	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/application/service"
	"opfs-inspector/internal/application/service/bus"
	"opfs-inspector/internal/infrastructure/browser/rod"
	"opfs-inspector/internal/infrastructure/config"
	"opfs-inspector/internal/infrastructure/download"
	"opfs-inspector/internal/infrastructure/httpapi"
	"opfs-inspector/internal/infrastructure/logger"
	"opfs-inspector/internal/infrastructure/storage/memory"
	"opfs-inspector/internal/infrastructure/userinteraction"
	"opfs-inspector/internal/usecase/panel"
	"opfs-inspector/internal/usecase/relay"
)

type Container struct {
	Config    config.Config
	Browser   output.BrowserPort
	Logger    output.LoggerPort
	Bus       *bus.Bus
	Tabs      *service.TabRegistry
	Downloads output.DownloadPort
	Panel     input.Panel
	Console   *userinteraction.ConsolePanel

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewContainer wires the relay chain for one session. name labels the log
// file. The relays run until Close.
func NewContainer(ctx context.Context, cfg config.Config, name string) (*Container, error) {
	log, err := logger.NewLoggerAdapter(logger.Config{Dir: cfg.LogDir, Name: name, Level: cfg.LogLevel})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	browser, err := newBrowser(ctx, cfg)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}

	return newContainer(cfg, browser, log), nil
}

func newBrowser(ctx context.Context, cfg config.Config) (output.BrowserPort, error) {
	if cfg.Backend == config.BackendMemory {
		return memory.NewBrowser(), nil
	}
	browserCfg := rod.DefaultConfig()
	browserCfg.Headless = cfg.Headless
	browserCfg.NoSandbox = cfg.NoSandbox
	browserCfg.ControlURL = cfg.ControlURL
	return rod.NewBrowserAdapter(ctx, browserCfg)
}

func newContainer(cfg config.Config, browser output.BrowserPort, log output.LoggerPort) *Container {
	runCtx, cancel := context.WithCancel(context.Background())
	c := &Container{
		Config:  cfg,
		Browser: browser,
		Logger:  log,
		Bus:     bus.New(log),
		Tabs:    service.NewTabRegistry(browser),
		Console: userinteraction.NewConsolePanel(cfg.DownloadDir),
		cancel:  cancel,
	}

	var chooser download.Chooser = download.FixedDir(cfg.DownloadDir)
	if cfg.Prompt {
		chooser = c.Console
	}
	c.Downloads = download.NewFileDownloader(chooser, log)

	c.Tabs.OnAttach(func(tc *service.TabContext) {
		log.Debug("tab attached", "tab", tc.ID)
		c.start(runCtx, relay.NewContentRelay(tc.ID, tc.Bridge, c.Bus, log).Run)
	})
	c.start(runCtx, relay.NewBackground(c.Bus, c.Tabs, c.Downloads, log).Run)

	window := panel.NewInspectedWindow(c.Tabs, log)
	c.Panel = panel.NewController(c.Bus, window, log, panel.Config{RefreshAfterChange: cfg.RefreshAfterChange})
	return c
}

func (c *Container) start(ctx context.Context, run func(context.Context) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := run(ctx); err != nil && ctx.Err() == nil {
			c.Logger.Error("relay stopped", "error", err)
		}
	}()
}

// HTTPServer exposes the panel of this container over HTTP.
func (c *Container) HTTPServer() *httpapi.Server {
	return httpapi.NewServer(httpapi.Config{Timeout: c.Config.Timeout}, c.Panel, c.Browser, c.Bus, c.Logger)
}

func (c *Container) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	if c.Browser != nil {
		c.Browser.Close()
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}
