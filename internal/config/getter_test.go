package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestGetEnvStr(t *testing.T) {
	t.Setenv("UNISCORE_TEST_STR", "value")

	if got := GetEnvStr("UNISCORE_TEST_STR", "fallback"); got != "value" {
		t.Errorf("GetEnvStr() = %q, want %q", got, "value")
	}

	if got := GetEnvStr("UNISCORE_TEST_STR_MISSING", "fallback"); got != "fallback" {
		t.Errorf("GetEnvStr() = %q, want %q", got, "fallback")
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("UNISCORE_TEST_INT", "42")
	t.Setenv("UNISCORE_TEST_INT_BAD", "not-a-number")

	if got := GetEnvInt("UNISCORE_TEST_INT", 7); got != 42 {
		t.Errorf("GetEnvInt() = %d, want 42", got)
	}

	if got := GetEnvInt("UNISCORE_TEST_INT_BAD", 7); got != 7 {
		t.Errorf("GetEnvInt() with invalid value = %d, want default 7", got)
	}
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("UNISCORE_TEST_FLOAT", "0.85")
	t.Setenv("UNISCORE_TEST_FLOAT_BAD", "high")

	if got := GetEnvFloat("UNISCORE_TEST_FLOAT", 0.5); got != 0.85 {
		t.Errorf("GetEnvFloat() = %v, want 0.85", got)
	}

	if got := GetEnvFloat("UNISCORE_TEST_FLOAT_BAD", 0.5); got != 0.5 {
		t.Errorf("GetEnvFloat() with invalid value = %v, want default 0.5", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"YES", true},
		{"false", false},
		{"0", false},
		{"No", false},
	}

	for _, tt := range tests {
		t.Setenv("UNISCORE_TEST_BOOL", tt.value)

		if got := GetEnvBool("UNISCORE_TEST_BOOL", !tt.want); got != tt.want {
			t.Errorf("GetEnvBool(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}

	t.Setenv("UNISCORE_TEST_BOOL", "maybe")

	if got := GetEnvBool("UNISCORE_TEST_BOOL", true); !got {
		t.Error("GetEnvBool() with unparseable value should return the default")
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("UNISCORE_TEST_DURATION", "250ms")

	if got := GetEnvDuration("UNISCORE_TEST_DURATION", time.Second); got != 250*time.Millisecond {
		t.Errorf("GetEnvDuration() = %v, want 250ms", got)
	}

	if got := GetEnvDuration("UNISCORE_TEST_DURATION_MISSING", time.Second); got != time.Second {
		t.Errorf("GetEnvDuration() = %v, want 1s default", got)
	}
}

func TestGetEnvLogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
	}

	for _, tt := range tests {
		t.Setenv("UNISCORE_TEST_LOG_LEVEL", tt.value)

		if got := GetEnvLogLevel("UNISCORE_TEST_LOG_LEVEL", slog.LevelInfo); got != tt.want {
			t.Errorf("GetEnvLogLevel(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}

	t.Setenv("UNISCORE_TEST_LOG_LEVEL", "verbose")

	if got := GetEnvLogLevel("UNISCORE_TEST_LOG_LEVEL", slog.LevelWarn); got != slog.LevelWarn {
		t.Errorf("GetEnvLogLevel() with unknown value = %v, want default warn", got)
	}
}
