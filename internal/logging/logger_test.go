package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestFromContext(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		expected *zap.SugaredLogger
	}{
		{name: "stored", ctx: WithLogger(context.Background(), zap.NewNop().Sugar())},
		{name: "default", ctx: context.Background(), expected: DefaultLogger()},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := FromContext(test.ctx)
			if got == nil {
				t.Fatalf("logger must not be nil")
			}
			if test.expected != nil && got != test.expected {
				t.Errorf("expected the default logger to be returned")
			}
		})
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		in       string
		expected zapcore.Level
	}{
		{in: "debug", expected: zapcore.DebugLevel},
		{in: " WARN ", expected: zapcore.WarnLevel},
		{in: "error", expected: zapcore.ErrorLevel},
		{in: "", expected: zapcore.InfoLevel},
		{in: "unknown", expected: zapcore.InfoLevel},
	}
	for _, test := range tests {
		if got := levelFor(test.in); got != test.expected {
			t.Errorf("levelFor(%q), got: %v, expected: %v", test.in, got, test.expected)
		}
	}
}
