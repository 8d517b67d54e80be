package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"benzback/config"
	"benzback/infras/kafka"
	kafkaMocks "benzback/infras/kafka/mocks"
	otelMocks "benzback/infras/otel/mocks"
	"benzback/infras/redis"
	redisMocks "benzback/infras/redis/mocks"
	s3Mocks "benzback/infras/s3/mocks"
	oModel "benzback/internal/domains/outbox/model"
	"benzback/internal/uow"
	"benzback/internal/worker"
)

var (
	errSink = errors.New("sink unavailable")
	now     = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

type sinks struct {
	kafka       *kafkaMocks.MockClient
	broadcaster *redisMocks.MockBroadcaster
	storage     *s3Mocks.MockS3
}

func newRelay(t *testing.T, memory *uow.Memory, maxAttempts int) (worker.Relay, sinks) {
	t.Helper()

	ctrl := gomock.NewController(t)

	cfg := &config.Config{}
	cfg.Outbox.BatchSize = 10
	cfg.Outbox.MaxAttempts = maxAttempts
	cfg.Booking.BroadcastTopicPrefix = "benzback"
	cfg.Booking.SettlementArchiveBucket = "receipts"
	cfg.Booking.SettlementArchiveDirName = "settlements"

	s := sinks{
		kafka:       kafkaMocks.NewMockClient(ctrl),
		broadcaster: redisMocks.NewMockBroadcaster(ctrl),
		storage:     s3Mocks.NewMockS3(ctrl),
	}

	relay := worker.NewRelayWithClock(memory, s.kafka, s.broadcaster, s.storage, cfg, otelMocks.NewOtel(), func() time.Time { return now })

	return relay, s
}

func enqueue(t *testing.T, memory *uow.Memory, messages ...oModel.Message) {
	t.Helper()

	err := memory.Do(context.Background(), func(ctx context.Context, tx uow.Tx) error {
		return tx.Outbox().Insert(ctx, messages...)
	})
	require.NoError(t, err)
}

func mustMessage(t *testing.T, build func() (oModel.Message, error)) oModel.Message {
	t.Helper()

	message, err := build()
	require.NoError(t, err)

	return message
}

func TestRelay_DeliversEachKind(t *testing.T) {
	memory := uow.NewMemory(uow.RetryPolicy{MaxRetries: 1, Base: time.Millisecond})
	relay, s := newRelay(t, memory, 5)

	payload := map[string]string{"booking_id": "b-1"}
	enqueue(t, memory,
		mustMessage(t, func() (oModel.Message, error) {
			return oModel.NewNotification("booking.notifications", "u-1", oModel.EventCheckedIn, payload, now)
		}),
		mustMessage(t, func() (oModel.Message, error) {
			return oModel.NewBroadcast(oModel.DriverTopic("d-1"), oModel.EventDriverRequest, payload, now)
		}),
		mustMessage(t, func() (oModel.Message, error) {
			return oModel.NewArchive("b-1.json", oModel.EventSettlementArchived, payload, now)
		}),
	)

	s.kafka.EXPECT().
		SendMessages(gomock.Any(), "booking.notifications", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, messages ...kafka.Message) error {
			require.Len(t, messages, 1)
			assert.Equal(t, "u-1", messages[0].Key)
			assert.Equal(t, oModel.EventCheckedIn, messages[0].Headers["event"])
			assert.JSONEq(t, `{"booking_id":"b-1"}`, string(messages[0].Value.(json.RawMessage)))

			return nil
		})

	s.broadcaster.EXPECT().
		Publish(gomock.Any(), "benzback:driver:d-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, envelope redis.Envelope) error {
			assert.Equal(t, oModel.EventDriverRequest, envelope.Event)

			return nil
		})

	s.storage.EXPECT().
		UploadFileBytes(gomock.Any(), "receipts", "settlements", "b-1.json", "application/json", gomock.Any()).
		Return("https://cdn.example.com/settlements/b-1.json", nil)

	sent, err := relay.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sent)

	for _, message := range memory.OutboxMessages() {
		assert.Equal(t, oModel.StatusSent, message.Status)
		assert.Equal(t, 1, message.Attempts)
		require.NotNil(t, message.SentAt)
	}

	sent, err = relay.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestRelay_FailedDeliveryIsRescheduled(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		wantStatus  oModel.Status
	}{
		{name: "rescheduled while attempts remain", maxAttempts: 5, wantStatus: oModel.StatusPending},
		{name: "parked after the last attempt", maxAttempts: 1, wantStatus: oModel.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			memory := uow.NewMemory(uow.RetryPolicy{MaxRetries: 1, Base: time.Millisecond})
			relay, s := newRelay(t, memory, tt.maxAttempts)

			enqueue(t, memory, mustMessage(t, func() (oModel.Message, error) {
				return oModel.NewNotification("booking.notifications", "u-1", oModel.EventCheckedOut, map[string]int{"n": 1}, now)
			}))

			s.kafka.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(errSink)

			sent, err := relay.Run(context.Background())
			require.NoError(t, err)
			assert.Zero(t, sent)

			messages := memory.OutboxMessages()
			require.Len(t, messages, 1)
			assert.Equal(t, tt.wantStatus, messages[0].Status)
			assert.Equal(t, 1, messages[0].Attempts)
			assert.Equal(t, errSink.Error(), messages[0].LastError)

			if tt.wantStatus == oModel.StatusPending {
				assert.True(t, messages[0].NextAttemptAt.After(now))
			}

			sent, err = relay.Run(context.Background())
			require.NoError(t, err)
			assert.Zero(t, sent)
		})
	}
}
