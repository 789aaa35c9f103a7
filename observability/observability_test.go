package observability_test

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/BuragaIonut/daisler/observability"
)

func TestFields(t *testing.T) {
	errBoom := errors.New("boom")

	cases := []struct {
		field observability.Field
		key   string
		value interface{}
	}{
		{observability.String("strategy", "landscape_to_square"), "strategy", "landscape_to_square"},
		{observability.Int("width_px", 2480), "width_px", 2480},
		{observability.Int64("bytes", 1 << 20), "bytes", int64(1 << 20)},
		{observability.Error("error", errBoom), "error", errBoom},
	}
	for _, c := range cases {
		if c.field.Key() != c.key {
			t.Errorf("key = %q, want %q", c.field.Key(), c.key)
		}
		if c.field.Value() != c.value {
			t.Errorf("value for %q = %v, want %v", c.key, c.field.Value(), c.value)
		}
	}
}

func TestNopLogger(t *testing.T) {
	var log observability.Logger = observability.NopLogger{}
	log.Debug("debug")
	log.Info("info", observability.Int("n", 1))
	log = log.With(observability.String("component", "pipeline"))
	log.Warn("warn")
	log.Error("error", observability.Error("error", errors.New("x")))
}

func TestLogrusAdapter(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	log := observability.NewLogrus(base)

	log.Info("classified", observability.String("strategy", "no_extension"), observability.Int("dpi", 300))

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("no entry recorded")
	}
	if entry.Level != logrus.InfoLevel {
		t.Errorf("level = %v, want info", entry.Level)
	}
	if entry.Message != "classified" {
		t.Errorf("message = %q", entry.Message)
	}
	if entry.Data["strategy"] != "no_extension" {
		t.Errorf("strategy field = %v", entry.Data["strategy"])
	}
	if entry.Data["dpi"] != 300 {
		t.Errorf("dpi field = %v", entry.Data["dpi"])
	}
}

func TestLogrusAdapterWith(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	log := observability.NewLogrus(base).With(observability.String("component", "extend"))

	log.Warn("variant failed", observability.Int("overlap", 15))

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("no entry recorded")
	}
	if entry.Level != logrus.WarnLevel {
		t.Errorf("level = %v, want warn", entry.Level)
	}
	if entry.Data["component"] != "extend" {
		t.Errorf("component field = %v", entry.Data["component"])
	}
	if entry.Data["overlap"] != 15 {
		t.Errorf("overlap field = %v", entry.Data["overlap"])
	}
}
