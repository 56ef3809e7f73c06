package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/require"
)

func TestEventThrottler(t *testing.T) {
	th := newEventThrottler(50)

	require.True(t, th.Allow("console"))
	require.False(t, th.Allow("console"), "second event inside the window is dropped")
	require.True(t, th.Allow("other"), "keys throttle independently")

	time.Sleep(60 * time.Millisecond)
	require.True(t, th.Allow("console"))
}

func TestEventThrottler_NilAllowsEverything(t *testing.T) {
	var th *eventThrottler
	require.True(t, th.Allow("anything"))
	require.True(t, th.Allow("anything"))
}

func TestConsoleLog_RingEviction(t *testing.T) {
	cl := NewConsoleLog(3)
	for i := 0; i < 5; i++ {
		cl.Append(Entry{Kind: "log", Text: fmt.Sprintf("line %d", i)})
	}

	require.Equal(t, 3, cl.Len())
	require.Equal(t, 2, cl.Dropped())

	all := cl.All()
	require.Equal(t, "line 2", all[0].Text)
	require.Equal(t, "line 4", all[2].Text)
}

func TestConsoleLog_ErrorsFiltersSeverity(t *testing.T) {
	cl := NewConsoleLog(10)
	cl.Append(Entry{Kind: string(proto.RuntimeConsoleAPICalledTypeLog), Text: "chatty"})
	cl.Append(Entry{Kind: string(proto.RuntimeConsoleAPICalledTypeError), Text: "boom"})
	cl.Append(Entry{Kind: string(proto.RuntimeConsoleAPICalledTypeWarning), Text: "careful"})
	cl.Append(Entry{Kind: "exception", Text: "TypeError: x is undefined"})

	errs := cl.Errors()
	require.Len(t, errs, 3)
	require.Equal(t, "boom", errs[0].Text)
	require.Equal(t, "careful", errs[1].Text)
	require.Equal(t, "TypeError: x is undefined", errs[2].Text)
}

func TestTail(t *testing.T) {
	entries := []Entry{{Text: "a"}, {Text: "b"}, {Text: "c"}}

	require.Len(t, Tail(entries, 2), 2)
	require.Equal(t, "b", Tail(entries, 2)[0].Text)
	require.Len(t, Tail(entries, 10), 3)
	require.Len(t, Tail(entries, 0), 3, "zero means no limit")
}

func TestEntryString(t *testing.T) {
	e := Entry{Kind: "error", Text: "boom"}
	require.Equal(t, "[error] boom", e.String())
}

func TestExceptionText(t *testing.T) {
	require.Equal(t, "unknown exception", exceptionText(nil))

	d := &proto.RuntimeExceptionDetails{
		Text:       "Uncaught",
		Exception:  &proto.RuntimeRemoteObject{Description: "TypeError: boom"},
		URL:        "http://app.local/main.js",
		LineNumber: 42,
	}
	require.Equal(t, "Uncaught TypeError: boom (http://app.local/main.js:42)", exceptionText(d))
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	require.Equal(t, 1920, c.GetViewportWidth())
	require.Equal(t, 1080, c.GetViewportHeight())
	require.Equal(t, 30*time.Second, c.NavigationTimeout())

	c = Config{ViewportWidth: 800, ViewportHeight: 600, NavigationTimeoutMs: 5000}
	require.Equal(t, 800, c.GetViewportWidth())
	require.Equal(t, 600, c.GetViewportHeight())
	require.Equal(t, 5*time.Second, c.NavigationTimeout())
}

func TestEnabled(t *testing.T) {
	t.Setenv(BrowserTestEnv, "")
	require.False(t, Enabled())

	t.Setenv(BrowserTestEnv, "0")
	require.False(t, Enabled())

	t.Setenv(BrowserTestEnv, "false")
	require.False(t, Enabled())

	t.Setenv(BrowserTestEnv, "1")
	require.True(t, Enabled())
}
