// Package session owns the rod-driven browser that polling assertions
// run against: launch or attach, page creation with viewport and
// navigation timeout, and per-page console capture.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// Config holds browser configuration.
type Config struct {
	DebuggerURL         string   `yaml:"debugger_url" json:"debugger_url,omitempty"`
	Bin                 string   `yaml:"bin" json:"bin,omitempty"`
	Flags               []string `yaml:"flags" json:"flags,omitempty"`
	Headless            bool     `yaml:"headless" json:"headless"`
	ViewportWidth       int      `yaml:"viewport_width" json:"viewport_width,omitempty"`
	ViewportHeight      int      `yaml:"viewport_height" json:"viewport_height,omitempty"`
	NavigationTimeoutMs int      `yaml:"navigation_timeout_ms" json:"navigation_timeout_ms,omitempty"`
	ConsoleBufferSize   int      `yaml:"console_buffer_size" json:"console_buffer_size,omitempty"`
	ConsoleThrottleMs   int      `yaml:"console_throttle_ms" json:"console_throttle_ms,omitempty"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:            true,
		ViewportWidth:       1920,
		ViewportHeight:      1080,
		NavigationTimeoutMs: 30000,
		ConsoleBufferSize:   256,
		ConsoleThrottleMs:   0,
	}
}

// GetViewportWidth returns viewport width.
func (c Config) GetViewportWidth() int {
	if c.ViewportWidth == 0 {
		return 1920
	}
	return c.ViewportWidth
}

// GetViewportHeight returns viewport height.
func (c Config) GetViewportHeight() int {
	if c.ViewportHeight == 0 {
		return 1080
	}
	return c.ViewportHeight
}

// NavigationTimeout returns the navigation timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

func (c Config) consoleBuffer() int {
	if c.ConsoleBufferSize <= 0 {
		return 256
	}
	return c.ConsoleBufferSize
}

// Browser wraps the detached Chrome instance behind the checks.
type Browser struct {
	cfg        Config
	mu         sync.RWMutex
	browser    *rod.Browser
	controlURL string // WebSocket URL for DevTools
}

// New creates a Browser from config. Call Start before Page.
func New(cfg Config) *Browser {
	return &Browser{cfg: cfg}
}

// Start connects to an existing Chrome or launches a new one.
func (b *Browser) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// If we already have a browser, verify it's still alive
	if b.browser != nil {
		if _, err := b.browser.Version(); err == nil {
			return nil
		}
		_ = b.browser.Close()
		b.browser = nil
		b.controlURL = ""
	}

	controlURL := b.cfg.DebuggerURL
	if controlURL == "" && b.cfg.Bin != "" {
		launch := launcher.New().Bin(b.cfg.Bin).Headless(b.cfg.Headless)
		for _, rawFlag := range b.cfg.Flags {
			flagStr := strings.TrimLeft(rawFlag, "-")
			name, val, hasVal := strings.Cut(flagStr, "=")
			if hasVal {
				launch = launch.Set(flags.Flag(name), val)
			} else {
				launch = launch.Set(flags.Flag(name))
			}
		}
		url, err := launch.Launch()
		if err != nil {
			// Fallback without extra flags
			fallback := launcher.New().Bin(b.cfg.Bin).Headless(b.cfg.Headless)
			alt, altErr := fallback.Launch()
			if altErr != nil {
				return fmt.Errorf("launch chrome: %w (fallback: %v)", err, altErr)
			}
			controlURL = alt
		} else {
			controlURL = url
		}
	}

	if controlURL == "" {
		// Try default launcher
		url, err := launcher.New().Headless(b.cfg.Headless).Launch()
		if err != nil {
			return fmt.Errorf("no debugger_url and failed to launch: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	b.browser = browser
	b.controlURL = controlURL
	return nil
}

// ControlURL returns the WebSocket debugger URL.
func (b *Browser) ControlURL() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.controlURL
}

// IsConnected returns whether the browser is connected.
func (b *Browser) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.browser != nil
}

// Shutdown closes the browser. Pages created through it die with it.
func (b *Browser) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	b.controlURL = ""
	return err
}

// Page opens a fresh incognito page, applies the configured viewport,
// and navigates to url within the navigation timeout. The caller owns
// the page and should Close it.
func (b *Browser) Page(ctx context.Context, url string) (*rod.Page, error) {
	b.mu.RLock()
	browser := b.browser
	b.mu.RUnlock()
	if browser == nil {
		return nil, errors.New("browser not connected")
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	page = page.Context(ctx)

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             b.cfg.GetViewportWidth(),
		Height:            b.cfg.GetViewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if url != "" {
		if err := page.Timeout(b.cfg.NavigationTimeout()).Navigate(url); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("navigate %s: %w", url, err)
		}
	}
	return page, nil
}
