package model

import (
	gModel "benzback/shared/model"
	"time"
)

const (
	TableName  = "outbox_messages"
	EntityName = "outbox_message"

	FieldID            = "id"
	FieldStatus        = "status"
	FieldNextAttemptAt = "next_attempt_at"
	FieldCreatedAt     = "created_at"
)

type Kind string

const (
	KindNotification Kind = "notification"
	KindBroadcast    Kind = "broadcast"
	KindArchive      Kind = "archive"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Recipients that are not a single user.
const (
	RecipientAdmins = "role:admin"
)

// Notification and broadcast event names.
const (
	EventBookingCreated     = "booking.created"
	EventBookingCreatedInfo = "booking.created.admin"
	EventDriverRequest      = "driver:request"
	EventDriverAccepted     = "driver:accepted"
	EventDriverClosed       = "driver:closed"
	EventBookingAssigned    = "booking:assigned"
	EventDriverAssigned     = "booking.driver_assigned"
	EventPaymentConfirmed   = "booking.payment_confirmed"
	EventCheckedIn          = "booking.checked_in"
	EventCheckedOut         = "booking.checked_out"
	EventStatusChanged      = "booking.status_changed"
	EventSettlementArchived = "booking.settlement"
)

// Message is written in the same transaction as the state change it reports and is
// delivered afterwards by the relay.
type Message struct {
	ID            string         `db:"id"`
	Kind          Kind           `db:"kind"`
	Topic         string         `db:"topic"`
	Event         string         `db:"event"`
	Recipient     string         `db:"recipient"`
	Payload       gModel.RawJSON `db:"payload"`
	Attempts      int            `db:"attempts"`
	Status        Status         `db:"status"`
	LastError     string         `db:"last_error"`
	NextAttemptAt time.Time      `db:"next_attempt_at"`
	CreatedAt     time.Time      `db:"created_at"`
	SentAt        *time.Time     `db:"sent_at"`
}
