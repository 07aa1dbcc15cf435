package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew_Levels(t *testing.T) {
	cases := map[string]zap.AtomicLevel{
		"debug": zap.NewAtomicLevelAt(zap.DebugLevel),
		"info":  zap.NewAtomicLevelAt(zap.InfoLevel),
		"warn":  zap.NewAtomicLevelAt(zap.WarnLevel),
		"error": zap.NewAtomicLevelAt(zap.ErrorLevel),
	}
	for name, want := range cases {
		log, err := New(name)
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if !log.Core().Enabled(want.Level()) {
			t.Fatalf("%s: level %v must be enabled", name, want.Level())
		}
		if want.Level() > zap.DebugLevel && log.Core().Enabled(want.Level()-1) {
			t.Fatalf("%s: level below %v must be disabled", name, want.Level())
		}
	}
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	if _, err := New("verbose"); err == nil {
		t.Fatal("unknown level must fail")
	}
}
