package kafka_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benzback/infras/kafka"
)

func TestMessage_ToKafkaMessage(t *testing.T) {
	tests := []struct {
		name      string
		message   kafka.Message
		wantValue string
		wantErr   bool
	}{
		{
			name: "raw json is passed through",
			message: kafka.Message{
				Key:     "u-1",
				Value:   json.RawMessage(`{"booking_id":"b-1"}`),
				Headers: map[string]string{"event": "booking.checked_in"},
			},
			wantValue: `{"booking_id":"b-1"}`,
		},
		{
			name:      "structs are marshalled",
			message:   kafka.Message{Key: "u-2", Value: struct{ Total float64 }{Total: 461.2}},
			wantValue: `{"Total":461.2}`,
		},
		{
			name:    "unmarshalable value",
			message: kafka.Message{Key: "u-3", Value: make(chan int)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			message, err := tt.message.ToKafkaMessage()
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.message.Key, string(message.Key))
			assert.JSONEq(t, tt.wantValue, string(message.Value))
			assert.Len(t, message.Headers, len(tt.message.Headers))

			for _, header := range message.Headers {
				assert.Equal(t, tt.message.Headers[header.Key], string(header.Value))
			}
		})
	}
}
