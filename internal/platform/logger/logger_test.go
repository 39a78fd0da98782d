package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"":        Info,
		"debug":   Debug,
		" WARN ":  Warn,
		"warning": Warn,
		"error":   Error,
		"bogus":   Info,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("JSON") != FormatJSON {
		t.Fatalf("expected json format")
	}
	if ParseFormat("") != FormatText {
		t.Fatalf("expected text format by default")
	}
}

func TestZapLogger_WithMergesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core)).With(map[string]any{"request_id": "r-1", "": "ignored"})

	l.Warn("slot conflict", map[string]any{
		"vet": "drcruz",
		"err": errors.New("boom"),
	})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel || e.Message != "slot conflict" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	ctx := e.ContextMap()
	if ctx["request_id"] != "r-1" || ctx["vet"] != "drcruz" || ctx["err"] != "boom" {
		t.Fatalf("unexpected fields: %#v", ctx)
	}
	if _, ok := ctx[""]; ok {
		t.Fatalf("empty key must be dropped")
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	l := New(Options{Level: Error, Format: FormatJSON, App: "test"})
	zl, ok := l.(*ZapLogger)
	if !ok {
		t.Fatalf("expected *ZapLogger, got %T", l)
	}
	if zl.Zap().Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info must be disabled when level=error")
	}
	if !zl.Zap().Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("error must be enabled")
	}
}
