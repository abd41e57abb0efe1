package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWritesServiceField(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "settlement", Output: &buf})

	logg.Info(context.Background(), "wallet credited")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json log line: %v", err)
	}
	if entry["service"] != "settlement" {
		t.Fatalf("service = %v", entry["service"])
	}
	if entry["message"] != "wallet credited" {
		t.Fatalf("message = %v", entry["message"])
	}
}

func TestWithFieldsScopedToContext(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf})

	ctx := logg.WithFields(context.Background(), map[string]any{
		"reference": "PSK-12345",
		"wallet_id": "abc",
	})
	logg.Info(ctx, "verified")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json log line: %v", err)
	}
	if entry["reference"] != "PSK-12345" {
		t.Fatalf("reference = %v", entry["reference"])
	}

	// fields must not leak onto the base logger
	buf.Reset()
	logg.Info(context.Background(), "plain")
	var plain map[string]any
	if err := json.Unmarshal(buf.Bytes(), &plain); err != nil {
		t.Fatalf("invalid json log line: %v", err)
	}
	if _, ok := plain["reference"]; ok {
		t.Fatal("field leaked onto base logger")
	}
}

func TestErrorIncludesErrAndStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf})

	logg.Error(context.Background(), "settle failed", errors.New("boom"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json log line: %v", err)
	}
	if entry["error"] != "boom" {
		t.Fatalf("error = %v", entry["error"])
	}
	if entry["stack"] == nil {
		t.Fatal("expected stack field")
	}
}

func TestParseLevel(t *testing.T) {
	if got := ParseLevel("debug"); got != zerolog.DebugLevel {
		t.Fatalf("got %v", got)
	}
	if got := ParseLevel(""); got != zerolog.InfoLevel {
		t.Fatalf("got %v", got)
	}
	if got := ParseLevel("nonsense"); got != zerolog.InfoLevel {
		t.Fatalf("got %v", got)
	}
}
