package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(t *testing.T) (*ZapLogger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return NewZapLogger(zap.New(core)), logs
}

func TestZapLogger_Levels(t *testing.T) {
	log, logs := newObservedLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)

	tests := []struct {
		level zapcore.Level
		msg   string
		key   string
		val   int64
	}{
		{zapcore.DebugLevel, "dbg", "a", 1},
		{zapcore.InfoLevel, "inf", "b", 2},
		{zapcore.WarnLevel, "wrn", "c", 3},
		{zapcore.ErrorLevel, "err", "d", 4},
	}
	for i, tc := range tests {
		assert.Equal(t, tc.level, entries[i].Level)
		assert.Equal(t, tc.msg, entries[i].Message)
		assert.EqualValues(t, tc.val, entries[i].ContextMap()[tc.key])
	}
}

func TestZapLogger_With_AddsAttributes(t *testing.T) {
	log, logs := newObservedLogger(t)

	log.With("module", "http_server").Info(context.Background(), "hello", "k", "v")

	entries := logs.FilterMessage("hello").AllUntimed()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "http_server", fields["module"])
	assert.Equal(t, "v", fields["k"])
}

func TestZapLogger_ContextFields(t *testing.T) {
	log, logs := newObservedLogger(t)

	ctx := ContextWith(context.Background(), "request_id", "r-1")
	ctx = ContextWith(ctx, "user_id", "u-1")
	log.Info(ctx, "with ctx")
	log.Info(context.TODO(), "without ctx")

	withCtx := logs.FilterMessage("with ctx").AllUntimed()
	require.Len(t, withCtx, 1)
	assert.Equal(t, "r-1", withCtx[0].ContextMap()["request_id"])
	assert.Equal(t, "u-1", withCtx[0].ContextMap()["user_id"])

	without := logs.FilterMessage("without ctx").AllUntimed()
	require.Len(t, without, 1)
	assert.NotContains(t, without[0].ContextMap(), "request_id")
}

func TestNewProduction(t *testing.T) {
	l, sync, err := NewProduction("info")
	require.NoError(t, err)
	require.NotNil(t, l)
	sync()

	_, _, err = NewProduction("loud")
	require.Error(t, err)
}

func TestNop_DoesNotPanic(t *testing.T) {
	l := Nop().With("k", "v")
	ctx := context.Background()
	l.Debug(ctx, "x")
	l.Info(ctx, "x")
	l.Warn(ctx, "x")
	l.Error(ctx, "x")
}
