package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected LogLevel
	}{
		{name: "debug", input: "debug", expected: LevelDebug},
		{name: "info", input: "info", expected: LevelInfo},
		{name: "warn", input: "warn", expected: LevelWarn},
		{name: "warning alias", input: "warning", expected: LevelWarn},
		{name: "error", input: "error", expected: LevelError},
		{name: "case insensitive", input: "DEBUG", expected: LevelDebug},
		{name: "surrounding whitespace", input: "  error ", expected: LevelError},
		{name: "empty defaults to info", input: "", expected: LevelInfo},
		{name: "unknown defaults to info", input: "verbose", expected: LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.expected)
		}
	}
}

func TestSetLevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	prevOut := Writer()
	prevLevel := GetLevel()
	SetOutput(&buf)
	defer func() {
		SetOutput(prevOut)
		SetLevel(prevLevel)
	}()

	SetLevel(LevelWarn)
	Debug("debug %d", 1)
	Info("info %d", 2)
	Warn("warn %d", 3)
	Error("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("messages below warn should be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] warn 3") {
		t.Errorf("expected warn line, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] error 4") {
		t.Errorf("expected error line, got %q", out)
	}

	SetLevel(LevelDebug)
	if !IsDebugEnabled() {
		t.Error("IsDebugEnabled() = false after SetLevel(LevelDebug)")
	}
}
