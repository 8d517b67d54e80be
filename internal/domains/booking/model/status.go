package model

type Status string

const (
	StatusPending             Status = "pending"
	StatusLicenseRequired     Status = "license_required"
	StatusVerificationPending Status = "verification_pending"
	StatusPendingPayment      Status = "pending_payment"
	StatusConfirmed           Status = "confirmed"
	StatusActive              Status = "active"
	StatusInProgress          Status = "in_progress"
	StatusCompleted           Status = "completed"
	StatusCancelled           Status = "cancelled"
	StatusNoShow              Status = "no_show"
	StatusOverdue             Status = "overdue"
)

var Statuses = []Status{
	StatusPending,
	StatusLicenseRequired,
	StatusVerificationPending,
	StatusPendingPayment,
	StatusConfirmed,
	StatusActive,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusNoShow,
	StatusOverdue,
}

func (s Status) IsValid() bool {
	for _, status := range Statuses {
		if s == status {
			return true
		}
	}

	return false
}

func (s Status) String() string {
	return string(s)
}

type DriverRequestStatus string

const (
	DriverRequestNone     DriverRequestStatus = "none"
	DriverRequestPending  DriverRequestStatus = "pending"
	DriverRequestAccepted DriverRequestStatus = "accepted"
	DriverRequestExpired  DriverRequestStatus = "expired"
	DriverRequestDeclined DriverRequestStatus = "declined"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)
