package session

import "os"

// BrowserTestEnv gates browser-backed tests: they skip unless it is set
// to something other than "0" or "false".
const BrowserTestEnv = "RODCHECK_BROWSER"

// Enabled reports whether browser-backed tests are allowed to run.
func Enabled() bool {
	switch os.Getenv(BrowserTestEnv) {
	case "", "0", "false":
		return false
	}
	return true
}

type skipper interface {
	Helper()
	Skipf(format string, args ...interface{})
}

// SkipUnlessEnabled skips the test when no browser is available.
func SkipUnlessEnabled(t skipper) {
	t.Helper()
	if !Enabled() {
		t.Skipf("set %s=1 to run browser-backed tests", BrowserTestEnv)
	}
}
