package main

import (
	"context"
	"fmt"
	"os/signal"
	"regexp"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rodcheck/internal/artifact"
	"rodcheck/internal/config"
	"rodcheck/internal/session"
	"rodcheck/pkg/check"
	"rodcheck/pkg/poll"
)

// runnerT adapts poll.TestingT outside of go test: it records failures
// instead of aborting a test binary.
type runnerT struct {
	failures []string
}

func (r *runnerT) Errorf(format string, args ...interface{}) {
	r.failures = append(r.failures, fmt.Sprintf(format, args...))
}

func (r *runnerT) FailNow() {}

func (r *runnerT) failed() bool { return len(r.failures) > 0 }

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	applyLogLevel(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return runSuite(ctx, cfg)
}

// runSuite starts one browser and verifies every target against it.
// Targets run concurrently; a failing target never stops its siblings.
func runSuite(ctx context.Context, cfg config.Config) error {
	br := session.New(cfg.Browser)
	if err := br.Start(ctx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer func() {
		if err := br.Shutdown(); err != nil {
			logger.Warn("browser shutdown", zap.Error(err))
		}
	}()

	var failures atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for _, target := range cfg.Targets {
		target := target
		g.Go(func() error {
			if err := runTarget(gctx, br, cfg, target); err != nil {
				failures.Add(1)
				logger.Error("target failed",
					zap.String("target", targetName(target)),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := failures.Load(); n > 0 {
		return fmt.Errorf("%d of %d targets failed", n, len(cfg.Targets))
	}
	logger.Info("all targets passed", zap.Int("targets", len(cfg.Targets)))
	return nil
}

func runTarget(ctx context.Context, br *session.Browser, cfg config.Config, target config.Target) error {
	name := targetName(target)

	page, err := br.Page(ctx, target.URL)
	if err != nil {
		return fmt.Errorf("open %s: %w", target.URL, err)
	}
	defer func() { _ = page.Close() }()

	console := session.Record(ctx, page, cfg.Browser)
	capturer := artifact.NewCapturer(page, console, cfg.ArtifactsDir)

	failed := 0
	for i, chk := range target.Checks {
		rt := &runnerT{}
		c := check.New(rt, page,
			poll.WithTimeout(cfg.Timeout()),
			poll.WithInterval(cfg.Interval()),
			poll.WithDiagnostics(capturer),
		)
		applyCheck(c, chk)

		if rt.failed() {
			failed++
			for _, msg := range rt.failures {
				logger.Error("check failed",
					zap.String("target", name),
					zap.Int("check", i),
					zap.String("type", chk.Type),
					zap.String("detail", msg))
			}
			continue
		}
		logger.Debug("check passed",
			zap.String("target", name),
			zap.Int("check", i),
			zap.String("type", chk.Type))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(target.Checks))
	}
	return nil
}

// applyCheck dispatches one declarative check to the matching Checker
// method. The suite was validated at load time, so unknown types cannot
// reach this switch.
func applyCheck(c *check.Checker, chk config.Check) {
	switch chk.Type {
	case config.CheckExists:
		c.ElementExists(chk.Selector)
	case config.CheckVisible:
		c.ElementVisible(chk.Selector)
	case config.CheckGone:
		c.Gone(chk.Selector)
	case config.CheckText:
		c.TextEqual(chk.Selector, chk.Want)
	case config.CheckTextContains:
		c.TextContains(chk.Selector, chk.Want)
	case config.CheckValue:
		c.ValueEqual(chk.Selector, chk.Want)
	case config.CheckTitle:
		c.TitleEqual(chk.Want)
	case config.CheckURL:
		c.URLMatches(regexp.MustCompile(chk.Want))
	case config.CheckCount:
		c.ElementCount(chk.Selector, chk.Count)
	}
}

func targetName(t config.Target) string {
	if t.Name != "" {
		return t.Name
	}
	return t.URL
}
