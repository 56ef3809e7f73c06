// Package poll retries synchronous assertions against an asynchronously
// rendering page until they pass or a deadline expires. A failed run is
// swallowed and retried; only the terminal failure is surfaced, enriched
// with whatever diagnostics the caller wired in.
package poll

import (
	"fmt"
	"strings"
	"time"

	"github.com/stretchr/testify/assert"
)

const (
	// DefaultTimeout bounds a polling assertion end to end.
	DefaultTimeout = 10 * time.Second
	// DefaultInterval is the pause between attempts.
	DefaultInterval = 100 * time.Millisecond
)

// TestingT is the minimal testing surface the polling loop needs. It is
// satisfied by *testing.T and by non-test runners that collect failures.
type TestingT interface {
	Errorf(format string, args ...interface{})
	FailNow()
}

type tHelper interface {
	Helper()
}

// Diagnostics carries the artifacts attached to a timed-out assertion.
// Zero-value fields are omitted from the failure message.
type Diagnostics struct {
	ScreenshotPath string
	ConsoleErrors  []string
	DOMOutline     string
}

// DiagnosticSource supplies failure artifacts on demand. Diagnose is
// called at most once per polling assertion, after the deadline passed.
type DiagnosticSource interface {
	Diagnose() Diagnostics
}

type settings struct {
	timeout     time.Duration
	interval    time.Duration
	description string
	diag        DiagnosticSource
}

// Option adjusts a single polling assertion.
type Option func(*settings)

// WithTimeout sets the total deadline. Zero or negative means a single
// attempt.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithInterval sets the pause between attempts.
func WithInterval(d time.Duration) Option {
	return func(s *settings) { s.interval = d }
}

// WithDescription prefixes the failure message with a caller-supplied
// summary of what was being waited for.
func WithDescription(format string, args ...interface{}) Option {
	return func(s *settings) { s.description = fmt.Sprintf(format, args...) }
}

// WithDiagnostics wires a source of failure artifacts (screenshot,
// console errors, DOM outline) into the terminal failure.
func WithDiagnostics(src DiagnosticSource) Option {
	return func(s *settings) { s.diag = src }
}

func newSettings(opts []Option) *settings {
	s := &settings{
		timeout:  DefaultTimeout,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	return s
}

// probe collects assertion failures from one attempt without failing
// anything.
type probe struct {
	failures []string
}

func (p *probe) Errorf(format string, args ...interface{}) {
	p.failures = append(p.failures, fmt.Sprintf(format, args...))
}

func (p *probe) failed() bool { return len(p.failures) > 0 }

// runAttempt executes the check once, converting a panic into a
// recorded failure so the loop can retry it.
func runAttempt(p *probe, check func(*assert.Assertions)) {
	defer func() {
		if r := recover(); r != nil {
			p.Errorf("check panicked: %v", r)
		}
	}()
	check(assert.New(p))
}

// Eventually re-invokes check on an interval until it records no
// assertion failures or the timeout elapses. On timeout it fails t
// exactly once with the last attempt's failures, the attempt count, and
// any wired diagnostics. Reports whether the check ever passed.
func Eventually(t TestingT, check func(*assert.Assertions), opts ...Option) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	s := newSettings(opts)

	start := time.Now()
	deadline := start.Add(s.timeout)
	attempts := 0
	var last *probe
	for {
		p := &probe{}
		attempts++
		runAttempt(p, check)
		if !p.failed() {
			return true
		}
		last = p
		if !time.Now().Add(s.interval).Before(deadline) {
			break
		}
		time.Sleep(s.interval)
	}

	fail(t, s, "condition not met", last.failures, attempts, time.Since(start))
	return false
}

// Never asserts that check keeps failing for the whole window: it is the
// inverse guard, used for things that must not appear. The first attempt
// that passes fails t.
func Never(t TestingT, check func(*assert.Assertions), opts ...Option) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	s := newSettings(opts)

	start := time.Now()
	deadline := start.Add(s.timeout)
	attempts := 0
	for {
		p := &probe{}
		attempts++
		runAttempt(p, check)
		if !p.failed() {
			fail(t, s, "condition unexpectedly met", nil, attempts, time.Since(start))
			return false
		}
		if !time.Now().Add(s.interval).Before(deadline) {
			return true
		}
		time.Sleep(s.interval)
	}
}

// diagnose shields the failure path from a broken capture: a panicking
// DiagnosticSource yields empty diagnostics instead of masking the
// assertion failure.
func diagnose(src DiagnosticSource) (d Diagnostics) {
	defer func() {
		if r := recover(); r != nil {
			d = Diagnostics{}
		}
	}()
	return src.Diagnose()
}

func fail(t TestingT, s *settings, verdict string, failures []string, attempts int, elapsed time.Duration) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	var b strings.Builder
	if s.description != "" {
		b.WriteString(s.description)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%s after %d attempt(s) in %s", verdict, attempts, elapsed.Round(time.Millisecond))
	if len(failures) > 0 {
		b.WriteString("\nlast attempt:")
		for _, f := range failures {
			fmt.Fprintf(&b, "\n\t%s", strings.ReplaceAll(strings.TrimSpace(f), "\n", "\n\t"))
		}
	}

	if s.diag != nil {
		d := diagnose(s.diag)
		if d.ScreenshotPath != "" {
			fmt.Fprintf(&b, "\nscreenshot: %s", d.ScreenshotPath)
		}
		if len(d.ConsoleErrors) > 0 {
			b.WriteString("\nbrowser console:")
			for _, line := range d.ConsoleErrors {
				fmt.Fprintf(&b, "\n\t%s", line)
			}
		}
		if d.DOMOutline != "" {
			fmt.Fprintf(&b, "\nrendered page:\n%s", d.DOMOutline)
		}
	}

	t.Errorf("%s", b.String())
	t.FailNow()
}
