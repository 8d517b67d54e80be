package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func newMessage(kind Kind, topic, event, recipient string, payload any, at time.Time) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	return Message{
		ID:            uuid.NewString(),
		Kind:          kind,
		Topic:         topic,
		Event:         event,
		Recipient:     recipient,
		Payload:       raw,
		Status:        StatusPending,
		NextAttemptAt: at,
		CreatedAt:     at,
	}, nil
}

// NewNotification addresses a user (or RecipientAdmins) through the notification topic.
func NewNotification(topic, recipient, event string, payload any, at time.Time) (Message, error) {
	return newMessage(KindNotification, topic, event, recipient, payload, at)
}

// NewBroadcast pushes event to every client subscribed to topic.
func NewBroadcast(topic, event string, payload any, at time.Time) (Message, error) {
	return newMessage(KindBroadcast, topic, event, "", payload, at)
}

// NewArchive stores payload as an object named key.
func NewArchive(key, event string, payload any, at time.Time) (Message, error) {
	return newMessage(KindArchive, key, event, "", payload, at)
}

func DriverTopic(driverID string) string {
	return "driver:" + driverID
}

func UserTopic(userID string) string {
	return "user:" + userID
}

// MarkSent records a successful delivery.
func (m *Message) MarkSent(at time.Time) {
	m.Attempts++
	m.Status = StatusSent
	m.LastError = ""
	m.SentAt = &at
}

// MarkFailed records a failed delivery. After maxAttempts the message is parked as failed,
// otherwise it is rescheduled after backoff.
func (m *Message) MarkFailed(cause error, at time.Time, backoff time.Duration, maxAttempts int) {
	m.Attempts++
	m.LastError = cause.Error()

	if maxAttempts > 0 && m.Attempts >= maxAttempts {
		m.Status = StatusFailed

		return
	}

	m.NextAttemptAt = at.Add(backoff)
}
