package service

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
)

func newObservedNotifications(t *testing.T, cfg config.NotificationConfig) (events.Dispatcher, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, zap.New(core), cfg).RegisterHandlers()
	return dispatcher, logs
}

func TestNotificationService_FieldUpdated(t *testing.T) {
	dispatcher, logs := newObservedNotifications(t, config.NotificationConfig{WebhookURL: "https://hooks.example.com/matters"})

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventMatterFieldUpdated,
		MatterID: "m-1",
		Actor:    events.Actor{UserID: 4},
		Payload:  events.MatterFieldUpdatedPayload{FieldName: "Subject", FieldType: "text", Value: "Renewal"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("MatterFieldUpdated").Len())
	assert.Equal(t, 1, logs.FilterMessage("sendWebhookNotificationStub").Len())
	assert.Zero(t, logs.FilterMessage("sendEmailNotificationStub").Len())

	entry := logs.FilterMessage("MatterFieldUpdated").All()[0]
	assert.Equal(t, "m-1", entry.ContextMap()["matter_id"])
	assert.Equal(t, int64(4), entry.ContextMap()["user_id"])
}

func TestNotificationService_StatusTransitioned(t *testing.T) {
	cfg := config.NotificationConfig{EmailFrom: "matters@example.com", WebhookURL: "https://hooks.example.com/matters"}

	tests := []struct {
		name      string
		terminal  bool
		wantEmail int
	}{
		{"into terminal group emails", true, 1},
		{"intermediate transition only posts webhook", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher, logs := newObservedNotifications(t, cfg)

			err := dispatcher.Publish(context.Background(), events.Event{
				Type:     events.EventMatterStatusTransitioned,
				MatterID: "m-1",
				Payload:  events.MatterStatusTransitionedPayload{ToStatusID: "s-2", ToTerminal: tt.terminal},
			})
			require.NoError(t, err)

			assert.Equal(t, 1, logs.FilterMessage("MatterStatusTransitioned").Len())
			assert.Equal(t, 1, logs.FilterMessage("sendWebhookNotificationStub").Len())
			assert.Equal(t, tt.wantEmail, logs.FilterMessage("sendEmailNotificationStub").Len())
		})
	}
}

func TestNotificationService_UnconfiguredChannelsStaySilent(t *testing.T) {
	dispatcher, logs := newObservedNotifications(t, config.NotificationConfig{})

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventMatterStatusTransitioned,
		Payload: events.MatterStatusTransitionedPayload{ToTerminal: true},
	}))

	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "MatterStatusTransitioned", logs.All()[0].Message)
}

func TestNotificationService_NilDispatcher(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNotificationService(nil, zap.NewNop(), config.NotificationConfig{}).RegisterHandlers()
	})
}
