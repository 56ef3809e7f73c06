package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Entry is one captured console line or uncaught exception.
type Entry struct {
	Kind string // "log", "warning", "error", "exception", ...
	Text string
	When time.Time
}

// String formats the entry for a failure message.
func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Text)
}

type eventThrottler struct {
	interval time.Duration
	mu       sync.Mutex
	last     map[string]time.Time
}

func newEventThrottler(ms int) *eventThrottler {
	if ms <= 0 {
		return nil
	}
	return &eventThrottler{
		interval: time.Duration(ms) * time.Millisecond,
		last:     make(map[string]time.Time),
	}
}

func (t *eventThrottler) Allow(key string) bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if last, ok := t.last[key]; ok {
		if now.Sub(last) < t.interval {
			return false
		}
	}
	t.last[key] = now
	return true
}

// ConsoleLog records console API calls and uncaught exceptions from one
// page into a bounded ring, so a timed-out assertion can show what the
// page complained about.
type ConsoleLog struct {
	mu       sync.Mutex
	max      int
	dropped  int
	entries  []Entry
	throttle *eventThrottler
}

// NewConsoleLog returns an empty log retaining at most max entries.
func NewConsoleLog(max int) *ConsoleLog {
	if max <= 0 {
		max = 256
	}
	return &ConsoleLog{max: max}
}

// Record subscribes to the page's console and exception events. Capture
// stops when ctx is cancelled or the page closes.
func Record(ctx context.Context, page *rod.Page, cfg Config) *ConsoleLog {
	cl := NewConsoleLog(cfg.consoleBuffer())
	cl.throttle = newEventThrottler(cfg.ConsoleThrottleMs)

	wait := page.Context(ctx).EachEvent(
		func(ev *proto.RuntimeConsoleAPICalled) {
			if !cl.throttle.Allow("console") {
				return
			}
			cl.Append(Entry{
				Kind: string(ev.Type),
				Text: stringifyConsoleArgs(ev.Args),
				When: time.Now(),
			})
		},
		func(ev *proto.RuntimeExceptionThrown) {
			cl.Append(Entry{
				Kind: "exception",
				Text: exceptionText(ev.ExceptionDetails),
				When: time.Now(),
			})
		},
	)
	go wait()
	return cl
}

// Append records one entry, evicting the oldest when the ring is full.
func (c *ConsoleLog) Append(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.max {
		c.entries = c.entries[1:]
		c.dropped++
	}
	c.entries = append(c.entries, e)
}

// Len returns the number of retained entries.
func (c *ConsoleLog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Dropped returns how many entries were evicted from the ring.
func (c *ConsoleLog) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// All returns a copy of every retained entry in arrival order.
func (c *ConsoleLog) All() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Errors returns the retained error-level entries: console.error,
// console.warn (they usually explain render failures), and uncaught
// exceptions.
func (c *ConsoleLog) Errors() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Entry
	for _, e := range c.entries {
		switch e.Kind {
		case string(proto.RuntimeConsoleAPICalledTypeError),
			string(proto.RuntimeConsoleAPICalledTypeWarning),
			"exception":
			out = append(out, e)
		}
	}
	return out
}

// Tail returns at most n of the newest entries from the given slice.
func Tail(entries []Entry, n int) []Entry {
	if n <= 0 || len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}

func stringifyConsoleArgs(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		if !a.Value.Nil() {
			parts = append(parts, a.Value.String())
			continue
		}
		if a.Description != "" {
			parts = append(parts, a.Description)
		}
	}
	return strings.Join(parts, " ")
}

func exceptionText(d *proto.RuntimeExceptionDetails) string {
	if d == nil {
		return "unknown exception"
	}
	text := d.Text
	if d.Exception != nil && d.Exception.Description != "" {
		if text != "" {
			text += " "
		}
		text += d.Exception.Description
	}
	if d.URL != "" {
		text = fmt.Sprintf("%s (%s:%d)", text, d.URL, d.LineNumber)
	}
	return text
}
