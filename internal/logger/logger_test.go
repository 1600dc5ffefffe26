package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"optionscout/internal/config"
)

func TestNewDefaultsUnknownLevelToInfo(t *testing.T) {
	log, err := New(config.LogConfig{Level: "loud", Encoding: "json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !log.Core().Enabled(zapcore.InfoLevel) || log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("unknown level should fall back to info")
	}
}

func TestNewConsoleDebug(t *testing.T) {
	log, err := New(config.LogConfig{Level: "debug", Encoding: "console"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug level to be enabled")
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New(config.LogConfig{Level: "info", Encoding: "json", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log.Info("provider request")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "provider request") {
		t.Fatalf("log file missing entry: %s", data)
	}
}
