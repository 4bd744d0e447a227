package config

import (
	"fmt"
	"strings"
	"time"

	"opfs-inspector/internal/application/port/output"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BackendRod    = "rod"
	BackendMemory = "memory"

	EnvPrefix = "OPFS"
)

// Keys double as flag names; env vars are OPFS_<KEY> with dashes as
// underscores.
const (
	KeyBackend            = "backend"
	KeyURL                = "url"
	KeyHeadless           = "headless"
	KeyNoSandbox          = "no-sandbox"
	KeyControlURL         = "control-url"
	KeyTimeout            = "timeout"
	KeyDownloadDir        = "download-dir"
	KeyPrompt             = "prompt"
	KeyLogDir             = "log-dir"
	KeyLogLevel           = "log-level"
	KeyAddr               = "addr"
	KeyRefreshAfterChange = "refresh-after-change"
)

type Config struct {
	AppEnv string

	Backend    string
	URL        string
	Headless   bool
	NoSandbox  bool
	ControlURL string
	// Timeout bounds each panel round trip; zero waits forever.
	Timeout time.Duration

	DownloadDir string
	// Prompt asks for the save-as destination on the console.
	Prompt bool

	LogDir   string
	LogLevel string

	Addr               string
	RefreshAfterChange bool
}

func Default() Config {
	return Config{
		AppEnv:             "dev",
		Backend:            BackendRod,
		Headless:           true,
		Timeout:            30 * time.Second,
		DownloadDir:        "downloads",
		LogDir:             "log",
		LogLevel:           "info",
		Addr:               "127.0.0.1:8390",
		RefreshAfterChange: true,
	}
}

// Load merges defaults, OPFS_* environment variables and any flags set on fs,
// in increasing order of precedence.
func Load(env output.ConfigPort, fs *pflag.FlagSet) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyBackend, cfg.Backend)
	v.SetDefault(KeyURL, cfg.URL)
	v.SetDefault(KeyHeadless, cfg.Headless)
	v.SetDefault(KeyNoSandbox, cfg.NoSandbox)
	v.SetDefault(KeyControlURL, cfg.ControlURL)
	v.SetDefault(KeyTimeout, cfg.Timeout)
	v.SetDefault(KeyDownloadDir, cfg.DownloadDir)
	v.SetDefault(KeyPrompt, cfg.Prompt)
	v.SetDefault(KeyLogDir, cfg.LogDir)
	v.SetDefault(KeyLogLevel, cfg.LogLevel)
	v.SetDefault(KeyAddr, cfg.Addr)
	v.SetDefault(KeyRefreshAfterChange, cfg.RefreshAfterChange)

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if env != nil {
		cfg.AppEnv = env.GetWithDefault("APP_ENV", cfg.AppEnv)
	}
	cfg.Backend = strings.ToLower(v.GetString(KeyBackend))
	cfg.URL = v.GetString(KeyURL)
	cfg.Headless = v.GetBool(KeyHeadless)
	cfg.NoSandbox = v.GetBool(KeyNoSandbox)
	cfg.ControlURL = v.GetString(KeyControlURL)
	cfg.Timeout = v.GetDuration(KeyTimeout)
	cfg.DownloadDir = v.GetString(KeyDownloadDir)
	cfg.Prompt = v.GetBool(KeyPrompt)
	cfg.LogDir = v.GetString(KeyLogDir)
	cfg.LogLevel = v.GetString(KeyLogLevel)
	cfg.Addr = v.GetString(KeyAddr)
	cfg.RefreshAfterChange = v.GetBool(KeyRefreshAfterChange)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendRod, BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendRod, BackendMemory)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %s", c.Timeout)
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("download-dir is required")
	}
	return nil
}

// RegisterFlags declares every key on fs with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(KeyBackend, d.Backend, "storage backend: rod or memory")
	fs.String(KeyURL, d.URL, "page to inspect")
	fs.Bool(KeyHeadless, d.Headless, "run the browser headless")
	fs.Bool(KeyNoSandbox, d.NoSandbox, "disable the browser sandbox")
	fs.String(KeyControlURL, d.ControlURL, "attach to a running browser at this DevTools url")
	fs.Duration(KeyTimeout, d.Timeout, "per-operation timeout, 0 to wait forever")
	fs.String(KeyDownloadDir, d.DownloadDir, "default download destination")
	fs.Bool(KeyPrompt, d.Prompt, "ask where to save downloads")
	fs.String(KeyLogDir, d.LogDir, "directory for log files")
	fs.String(KeyLogLevel, d.LogLevel, "log level: debug, info, warn, error")
	fs.String(KeyAddr, d.Addr, "listen address for serve")
	fs.Bool(KeyRefreshAfterChange, d.RefreshAfterChange, "refresh the listing after a change")
}
