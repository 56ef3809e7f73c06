package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeSuite(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rodcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeSuite(t, `
browser:
  headless: true
  viewport_width: 1280
timeout_ms: 5000
artifacts_dir: out
targets:
  - name: landing
    url: http://localhost:3000
    checks:
      - type: visible
        selector: "#app"
      - type: text
        selector: h1
        want: Welcome
      - type: url
        want: "localhost:\\d+"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 1280, cfg.Browser.ViewportWidth)
	require.Equal(t, "out", cfg.ArtifactsDir)
	require.Equal(t, 5*time.Second, cfg.Timeout())
	require.Equal(t, 100*time.Millisecond, cfg.Interval(), "interval keeps its default")

	require.Len(t, cfg.Targets, 1)
	require.Equal(t, "landing", cfg.Targets[0].Name)
	require.Len(t, cfg.Targets[0].Checks, 3)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeSuite(t, "targets: [unclosed")
	_, err := Load(path)
	require.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	valid := Target{
		URL:    "http://localhost:3000",
		Checks: []Check{{Type: CheckExists, Selector: "#app"}},
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "no targets",
			mutate:  func(c *Config) { c.Targets = nil },
			wantErr: "no targets",
		},
		{
			name:    "missing url",
			mutate:  func(c *Config) { c.Targets[0].URL = "" },
			wantErr: "url is required",
		},
		{
			name:    "no checks",
			mutate:  func(c *Config) { c.Targets[0].Checks = nil },
			wantErr: "no checks",
		},
		{
			name:    "unknown type",
			mutate:  func(c *Config) { c.Targets[0].Checks[0].Type = "sparkles" },
			wantErr: `unknown check type "sparkles"`,
		},
		{
			name:    "missing selector",
			mutate:  func(c *Config) { c.Targets[0].Checks[0].Selector = "" },
			wantErr: "needs selector",
		},
		{
			name: "text without want",
			mutate: func(c *Config) {
				c.Targets[0].Checks[0] = Check{Type: CheckText, Selector: "h1"}
			},
			wantErr: "needs want",
		},
		{
			name: "bad url pattern",
			mutate: func(c *Config) {
				c.Targets[0].Checks[0] = Check{Type: CheckURL, Want: "("}
			},
			wantErr: "url pattern",
		},
		{
			name: "title without want",
			mutate: func(c *Config) {
				c.Targets[0].Checks[0] = Check{Type: CheckTitle}
			},
			wantErr: "needs want",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Targets = []Target{valid}
			cfg.Targets[0].Checks = append([]Check(nil), valid.Checks...)
			tc.mutate(&cfg)

			err := cfg.Validate()
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestValidate_AllCheckTypes(t *testing.T) {
	cfg := Default()
	cfg.Targets = []Target{{
		URL: "http://localhost:3000",
		Checks: []Check{
			{Type: CheckExists, Selector: "#a"},
			{Type: CheckVisible, Selector: "#b"},
			{Type: CheckGone, Selector: "#c"},
			{Type: CheckText, Selector: "#d", Want: "x"},
			{Type: CheckTextContains, Selector: "#e", Want: "y"},
			{Type: CheckValue, Selector: "#f", Want: "z"},
			{Type: CheckTitle, Want: "Home"},
			{Type: CheckURL, Want: `\Ahttp://`},
			{Type: CheckCount, Selector: "li", Count: 3},
		},
	}}

	require.NoError(t, cfg.Validate())
}

func TestDefaultBounds(t *testing.T) {
	var cfg Config
	require.Equal(t, 10*time.Second, cfg.Timeout())
	require.Equal(t, 100*time.Millisecond, cfg.Interval())
}
