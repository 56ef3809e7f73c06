// Package check exposes one-line polling assertions bound to a rod page.
// Each method is a thin closure handed to poll.Eventually; the single
// attempts use non-waiting lookups so all waiting lives in the polling
// loop, not in the driver.
package check

import (
	"fmt"
	"regexp"

	"github.com/go-rod/rod"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"rodcheck/pkg/poll"
)

// Checker binds a test handle and a page to a shared set of polling
// options.
type Checker struct {
	t    poll.TestingT
	page *rod.Page
	opts []poll.Option
}

// New returns a Checker. The options apply to every assertion made
// through it; per-call descriptions are added on top.
func New(t poll.TestingT, page *rod.Page, opts ...poll.Option) *Checker {
	return &Checker{t: t, page: page, opts: opts}
}

func (c *Checker) run(desc string, fn func(*assert.Assertions)) bool {
	if h, ok := c.t.(interface{ Helper() }); ok {
		h.Helper()
	}
	opts := make([]poll.Option, 0, len(c.opts)+1)
	opts = append(opts, poll.WithDescription("%s", desc))
	opts = append(opts, c.opts...)
	return poll.Eventually(c.t, fn, opts...)
}

// element performs a single non-waiting lookup.
func (c *Checker) element(selector string) (*rod.Element, error) {
	found, el, err := c.page.Has(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if !found {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return el, nil
}

func (c *Checker) elementText(selector string) (string, error) {
	el, err := c.element(selector)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("text of %q: %w", selector, err)
	}
	return text, nil
}

// ElementExists waits until at least one element matches the selector.
func (c *Checker) ElementExists(selector string) bool {
	return c.run(fmt.Sprintf("element %q exists", selector), func(a *assert.Assertions) {
		found, _, err := c.page.Has(selector)
		a.NoError(err)
		a.Truef(found, "no element matches %q", selector)
	})
}

// ElementVisible waits until the element exists and is rendered visible.
func (c *Checker) ElementVisible(selector string) bool {
	return c.run(fmt.Sprintf("element %q visible", selector), func(a *assert.Assertions) {
		el, err := c.element(selector)
		if !a.NoError(err) {
			return
		}
		vis, err := el.Visible()
		a.NoError(err)
		a.Truef(vis, "element %q is hidden", selector)
	})
}

// Gone waits until no element matches the selector anymore.
func (c *Checker) Gone(selector string) bool {
	return c.run(fmt.Sprintf("element %q gone", selector), func(a *assert.Assertions) {
		found, _, err := c.page.Has(selector)
		a.NoError(err)
		a.Falsef(found, "element %q still present", selector)
	})
}

// NeverVisible asserts the element stays absent or hidden for the whole
// polling window.
func (c *Checker) NeverVisible(selector string) bool {
	if h, ok := c.t.(interface{ Helper() }); ok {
		h.Helper()
	}
	opts := make([]poll.Option, 0, len(c.opts)+1)
	opts = append(opts, poll.WithDescription("element %q never visible", selector))
	opts = append(opts, c.opts...)
	return poll.Never(c.t, func(a *assert.Assertions) {
		el, err := c.element(selector)
		if !a.NoError(err) {
			return
		}
		vis, err := el.Visible()
		a.NoError(err)
		a.True(vis)
	}, opts...)
}

// TextEqual waits until the element's rendered text equals want. The
// failure message carries a go-cmp diff.
func (c *Checker) TextEqual(selector, want string) bool {
	return c.run(fmt.Sprintf("text of %q", selector), func(a *assert.Assertions) {
		text, err := c.elementText(selector)
		if !a.NoError(err) {
			return
		}
		if diff := cmp.Diff(want, text); diff != "" {
			a.Failf("text mismatch", "element %q (-want +got):\n%s", selector, diff)
		}
	})
}

// TextContains waits until the element's rendered text contains substr.
func (c *Checker) TextContains(selector, substr string) bool {
	return c.run(fmt.Sprintf("text of %q contains %q", selector, substr), func(a *assert.Assertions) {
		text, err := c.elementText(selector)
		if !a.NoError(err) {
			return
		}
		a.Containsf(text, substr, "element %q text", selector)
	})
}

// ValueEqual waits until the form control's value property equals want.
func (c *Checker) ValueEqual(selector, want string) bool {
	return c.run(fmt.Sprintf("value of %q", selector), func(a *assert.Assertions) {
		el, err := c.element(selector)
		if !a.NoError(err) {
			return
		}
		val, err := el.Property("value")
		if !a.NoErrorf(err, "value of %q", selector) {
			return
		}
		if diff := cmp.Diff(want, val.Str()); diff != "" {
			a.Failf("value mismatch", "element %q (-want +got):\n%s", selector, diff)
		}
	})
}

// ElementCount waits until exactly want elements match the selector.
func (c *Checker) ElementCount(selector string, want int) bool {
	return c.run(fmt.Sprintf("%d elements match %q", want, selector), func(a *assert.Assertions) {
		els, err := c.page.Elements(selector)
		if !a.NoError(err) {
			return
		}
		a.Lenf(els, want, "elements matching %q", selector)
	})
}

// TitleEqual waits until the page title equals want.
func (c *Checker) TitleEqual(want string) bool {
	return c.run(fmt.Sprintf("page title %q", want), func(a *assert.Assertions) {
		info, err := c.page.Info()
		if !a.NoError(err) {
			return
		}
		a.Equal(want, info.Title)
	})
}

// URLMatches waits until the page URL matches the pattern.
func (c *Checker) URLMatches(pattern *regexp.Regexp) bool {
	return c.run(fmt.Sprintf("page URL matches %s", pattern), func(a *assert.Assertions) {
		info, err := c.page.Info()
		if !a.NoError(err) {
			return
		}
		a.Regexp(pattern, info.URL)
	})
}

// Eval waits until the zero-argument JS function returns want. Numeric
// results decode as float64.
func (c *Checker) Eval(js string, want interface{}) bool {
	return c.run(fmt.Sprintf("eval %s", js), func(a *assert.Assertions) {
		res, err := c.page.Eval(js)
		if !a.NoError(err) {
			return
		}
		a.Equal(want, res.Value.Val())
	})
}
