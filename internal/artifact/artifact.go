// Package artifact captures the diagnostics attached to a timed-out
// polling assertion: a screenshot on disk, the page's console errors,
// and a compact outline of what actually rendered.
package artifact

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/google/uuid"

	"rodcheck/internal/session"
	"rodcheck/pkg/poll"
)

const (
	captureTimeout  = 5 * time.Second
	maxConsoleLines = 20
	maxOutlineNodes = 80
)

// Capturer snapshots one page's state on demand. Any piece that fails
// to capture is omitted; a partial report is better than none.
type Capturer struct {
	page    *rod.Page
	console *session.ConsoleLog
	dir     string
}

// NewCapturer returns a Capturer writing screenshots under dir. Both
// page and console may be nil; the corresponding pieces are skipped.
func NewCapturer(page *rod.Page, console *session.ConsoleLog, dir string) *Capturer {
	return &Capturer{page: page, console: console, dir: dir}
}

// Diagnose implements poll.DiagnosticSource.
func (c *Capturer) Diagnose() poll.Diagnostics {
	var d poll.Diagnostics

	if c.page != nil && c.dir != "" {
		if path, err := c.screenshot(); err == nil {
			d.ScreenshotPath = path
		}
	}

	if c.console != nil {
		for _, e := range session.Tail(c.console.Errors(), maxConsoleLines) {
			d.ConsoleErrors = append(d.ConsoleErrors, e.String())
		}
	}

	if c.page != nil {
		if src, err := c.page.Timeout(captureTimeout).HTML(); err == nil {
			d.DOMOutline = Outline(src, maxOutlineNodes)
		}
	}
	return d
}

func (c *Capturer) screenshot() (string, error) {
	data, err := c.page.Timeout(captureTimeout).Screenshot(false, nil)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(c.dir, "failure-"+uuid.NewString()+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
