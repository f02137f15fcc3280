package logger

import (
	"context"
	"testing"

	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetLoggerLevel(t *testing.T) {
	assert.Equal(t, interfaces.DebugLevel, GetLoggerLevel("debug"))
	assert.Equal(t, interfaces.ErrorLevel, GetLoggerLevel("error"))
	assert.Equal(t, interfaces.InfoLevel, GetLoggerLevel("verbose"))
}

func TestSetLevelPropagatesToChildren(t *testing.T) {
	l := NewNop()
	child := l.WithField("component", "copier")

	l.SetLevel(interfaces.ErrorLevel)
	assert.Equal(t, interfaces.ErrorLevel, child.GetLevel())
}

func TestContextFieldsAreAttached(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &ZapLogger{logger: zap.New(core).Sugar(), level: zap.NewAtomicLevel()}

	ctx := context.WithValue(context.Background(), interfaces.RequestIDKey, "req-1")
	l.InfoWithContext(ctx, "lot copied", interfaces.LogField{Key: "lot_id", Value: 42})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.EqualValues(t, 42, fields["lot_id"])
	}
}
