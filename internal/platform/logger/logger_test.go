package logger

import (
	"bytes"
	"context"
	"testing"

	kit "playreviews/internal/platform/testkit"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"WARNING", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"critical", zerolog.FatalLevel},
		{"off", zerolog.Disabled},
		{"10", zerolog.DebugLevel},
		{"20", zerolog.InfoLevel},
		{"30", zerolog.WarnLevel},
		{"40", zerolog.ErrorLevel},
		{"50", zerolog.FatalLevel},
		{"", zerolog.InfoLevel},
		{"   nonsense   ", zerolog.InfoLevel},
	}
	for _, c := range cases {
		if got := ParseLevel(c.in); got != c.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNew_FieldsAndChildren(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{
		Level:        "debug",
		Format:       "json",
		Service:      "playreviews",
		Writer:       &buf,
		StaticFields: map[string]string{"build": "test"},
	})

	l.Info().Str("k", "v").Msg("root-msg")
	Named(l, "playstore").Debug().Msg("named-msg")
	ForApp(l, "run-1", "com.example.app", "schedule").Warn().Msg("app-msg")

	out := buf.String()
	kit.MustContain(t, out, `"message":"root-msg"`)
	kit.MustContain(t, out, `"service":"playreviews"`)
	kit.MustContain(t, out, `"build":"test"`)
	kit.MustContain(t, out, `"component":"playstore"`)
	kit.MustContain(t, out, `"app":"com.example.app"`)
	kit.MustContain(t, out, `"run_id":"run-1"`)
	kit.MustContain(t, out, `"mode":"schedule"`)
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "warn", Format: "json", Writer: &buf})
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")
	kit.MustNotContain(t, buf.String(), "hidden")
	kit.MustContain(t, buf.String(), "shown")
}

func TestNew_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "info", Format: "console", Writer: &buf})
	l.Info().Str("app", "x").Msg("hello")
	kit.MustContain(t, buf.String(), "hello")
	kit.MustContain(t, buf.String(), "app=")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("GOOGLEPLAY_LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("LOG_SERVICE", "svc-b")
	t.Setenv("LOG_CALLER", "true")

	opt := FromEnv()
	if opt.Level != "DEBUG" {
		t.Fatalf("legacy level not honoured: %q", opt.Level)
	}
	if opt.Format != "json" || opt.Service != "svc-b" || !opt.WithCaller {
		t.Fatalf("FromEnv fields mismatch: %+v", opt)
	}

	t.Setenv("LOG_LEVEL", "error")
	if FromEnv().Level != "error" {
		t.Fatalf("LOG_LEVEL should win over the legacy variable")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error().Msg("discarded")
}

func TestContextLogger(t *testing.T) {
	if C(context.Background()).GetLevel() != zerolog.Disabled {
		t.Fatalf("bare context should yield a disabled logger")
	}

	var buf bytes.Buffer
	l := New(Options{Level: "info", Format: "json", Writer: &buf})
	ctx := WithContext(context.Background(), Named(l, "fetch"))
	C(ctx).Info().Msg("page")
	kit.MustContain(t, buf.String(), `"component":"fetch"`)
	kit.MustContain(t, buf.String(), `"message":"page"`)
}
