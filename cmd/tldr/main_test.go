package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tldrapp/scan-summary-service/internal/auth"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("auth:\n  secret: cli-secret\n  issuer: tldr-test\n"), 0o644))

	out, err := execute(t, "token", "scanner-7", "--role", "kiosk", "--config", cfgPath)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "scanner-7", claims.UserID)
	assert.Equal(t, "kiosk", claims.Role)
	assert.Equal(t, "tldr-test", claims.Issuer)
}

func TestTokenCommand_NeedsSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := execute(t, "token", "someone", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestSummarizeCommand_RequiresPages(t *testing.T) {
	_, err := execute(t, "summarize")
	assert.Error(t, err)
}

func TestWriterPresenter(t *testing.T) {
	var buf bytes.Buffer
	p := &writerPresenter{w: &buf}
	p.ClearScannedText()
	p.ShowScannedText("Hello world  ")
	p.ShowSummary("Hello world")

	out := buf.String()
	assert.Contains(t, out, "Scanned text:\nHello world  \n")
	assert.Contains(t, out, "Summary:\nHello world\n")

	buf.Reset()
	p.ShowSummaryError("Summary unavailable: boom. Scan again to retry.")
	assert.Equal(t, "Summary:\nSummary unavailable: boom. Scan again to retry.\n", buf.String())
}
