package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"local", "prod"} {
		l, err := New("betslip-service", env, "")
		if err != nil {
			t.Fatalf("env %s: %v", env, err)
		}
		_ = l.Sync()
	}
	l, err := New("betslip-service", "prod", "warn")
	if err != nil {
		t.Fatal(err)
	}
	if l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug enabled at warn level")
	}
	if _, err := New("betslip-service", "prod", "loud"); err == nil {
		t.Error("expected invalid level error")
	}
}
