package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/matter-service/internal/config"
	"github.com/spec-kit/matter-service/internal/events"
	"github.com/spec-kit/matter-service/internal/service"
)

func TestStartNotificationWorker(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher()

	started := StartNotificationWorker(service.NewNotificationService(dispatcher, logger, config.NotificationConfig{}), logger)
	require.True(t, started)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventMatterFieldUpdated, MatterID: "m-1"}))
	assert.Equal(t, 1, logs.FilterMessage("notification worker started").Len())
	assert.Equal(t, 1, logs.FilterMessage("MatterFieldUpdated").Len())
}

func TestStartNotificationWorker_NilService(t *testing.T) {
	assert.False(t, StartNotificationWorker(nil, zap.NewNop()))
}
