// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/printer-snatcher/internal/api"
	"github.com/xkilldash9x/printer-snatcher/internal/config"
	"github.com/xkilldash9x/printer-snatcher/internal/mocks"
	"github.com/xkilldash9x/printer-snatcher/internal/printer"
)

type stubSnatcher struct {
	rec   *printer.Record
	err   error
	hosts []string
}

func (s *stubSnatcher) Snatch(_ context.Context, host string) (*printer.Record, error) {
	s.hosts = append(s.hosts, host)
	if s.err != nil {
		return nil, s.err
	}
	rec := *s.rec
	rec.Host = host
	return &rec, nil
}

// runCmd executes the root command with args against stub and returns
// stdout. The working directory is a fresh temp dir so no stray
// config.yaml is picked up.
func runCmd(t *testing.T, stub *stubSnatcher, args ...string) (string, error) {
	t.Helper()
	prevWD, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(prevWD) })
	for _, k := range []string{"PORT", "VER", "SNATCHER_API_VERSION", "SNATCHER_SERVER_PORT"} {
		t.Setenv(k, "")
	}

	a := &app{newSnatcher: func(config.Interface, *zap.Logger) (api.Snatcher, error) {
		return stub, nil
	}}

	root := newRootCmdWith(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeEnvelope(t *testing.T, out string) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	return env
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := runCmd(t, &stubSnatcher{}, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, &stubSnatcher{}, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestScrapeCmd_Success(t *testing.T) {
	stub := &stubSnatcher{rec: &printer.Record{
		Model:    "HP LaserJet MFP M527",
		Type:     printer.TypeGrayscale,
		Trays:    map[string]printer.TrayInfo{},
		Supplies: map[string]string{"Black Cartridge": "30"},
		Errors:   []string{"Tray 2 empty"},
	}}

	out, err := runCmd(t, stub, "scrape", " 192.168.4.20 ")
	require.NoError(t, err)
	assert.Equal(t, []string{"192.168.4.20"}, stub.hosts)

	env := decodeEnvelope(t, out)
	assert.Equal(t, map[string]interface{}{"ip": "192.168.4.20"}, env["request"])
	resp := env["response"].(map[string]interface{})
	assert.Equal(t, "success", resp["status"])
	rec := resp["message"].(map[string]interface{})
	assert.Equal(t, "grayscale", rec["type"])
	assert.Equal(t, []interface{}{"Tray 2 empty"}, rec["errors"])
}

func TestScrapeCmd_Unreachable(t *testing.T) {
	out, err := runCmd(t, &stubSnatcher{err: printer.ErrUnreachable}, "scrape", "10.0.0.99")
	require.NoError(t, err)

	env := decodeEnvelope(t, out)
	assert.Equal(t, map[string]interface{}{"status": "error", "message": "IP address unreachable"}, env["response"])
	assert.NotContains(t, env, "request")
}

func TestScrapeCmd_InvalidAddress(t *testing.T) {
	stub := &stubSnatcher{}
	out, err := runCmd(t, stub, "scrape", "300.1.1.1")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrInvalidIPv4)
	assert.Empty(t, stub.hosts)

	env := decodeEnvelope(t, out)
	assert.Equal(t, map[string]interface{}{"status": "error", "message": "Invalid IPV4 Address"}, env["response"])
}

func TestScrapeCmd_RequiresOneArg(t *testing.T) {
	_, err := runCmd(t, &stubSnatcher{}, "scrape")
	assert.Error(t, err)
}

func TestConfigFlag_HomeExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	cfgPath := filepath.Join(home, "snatcher.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("api:\n  version: \"9.9.9\"\n"), 0o600))

	out, err := runCmd(t, &stubSnatcher{err: printer.ErrUnreachable}, "--config", "~/snatcher.yaml", "scrape", "10.0.0.1")
	require.NoError(t, err)
	env := decodeEnvelope(t, out)
	assert.Equal(t, "9.9.9", env["info"].(map[string]interface{})["version"])
}

func TestConfigFlag_MissingFile(t *testing.T) {
	_, err := runCmd(t, &stubSnatcher{}, "-c", filepath.Join(t.TempDir(), "nope.yaml"), "scrape", "10.0.0.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestConfigFlag_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("probe:\n  method: smoke-signal\n"), 0o600))

	_, err := runCmd(t, &stubSnatcher{}, "--config", cfgPath, "scrape", "10.0.0.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestGetConfigFromContext(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	assert.Error(t, err)

	cfg := config.NewDefaultConfig()
	got, err := getConfigFromContext(context.WithValue(context.Background(), configKey, config.Interface(cfg)))
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}

func TestApplyBrowserFlags(t *testing.T) {
	cmd := newScrapeCmd(&app{})
	require.NoError(t, cmd.ParseFlags([]string{"--headful", "--chrome", "/opt/chromium/chrome"}))

	m := new(mocks.MockConfig)
	m.On("SetBrowserHeadless", false).Return()
	m.On("SetBrowserExecPath", "/opt/chromium/chrome").Return()

	require.NoError(t, applyBrowserFlags(cmd, m))
	m.AssertExpectations(t)

	// Untouched flags leave the configuration alone.
	untouched := newScrapeCmd(&app{})
	require.NoError(t, untouched.ParseFlags(nil))
	m2 := new(mocks.MockConfig)
	require.NoError(t, applyBrowserFlags(untouched, m2))
	m2.AssertNotCalled(t, "SetBrowserHeadless", false)
}

func TestBuildSnatcher(t *testing.T) {
	s, err := buildSnatcher(config.NewDefaultConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &printer.Snatcher{}, s)
}
