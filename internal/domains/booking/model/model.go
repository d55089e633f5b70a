package model

import (
	"slices"
	"thakajabe/shared/model"
	"time"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID               = "id"
	FieldRoomID           = "room_id"
	FieldGuestID          = "guest_id"
	FieldHostID           = "host_id"
	FieldCheckIn          = "check_in"
	FieldCheckOut         = "check_out"
	FieldStatus           = "status"
	FieldPaymentStatus    = "payment_status"
	FieldTotalAmount      = "total_amount"
	FieldCommissionAmount = "commission_amount"
	FieldTransactionRef   = "transaction_ref"
	FieldCancelledAt      = "cancelled_at"
	FieldRefundAmount     = "refund_amount"
	FieldModifiedAt       = "modified_at"
	FieldModifiedBy       = "modified_by"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Mode string

const (
	// ModeInstant bookings are confirmed by payment alone.
	ModeInstant Mode = "instant"
	// ModeRequest bookings need the host's approval before the guest may pay.
	ModeRequest Mode = "request"
)

// ActiveStatuses hold their dates against other bookings of the same room.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
}

type Booking struct {
	ID               string        `db:"id"`
	RoomID           string        `db:"room_id"`
	GuestID          string        `db:"guest_id"`
	HostID           string        `db:"host_id"`
	CheckIn          time.Time     `db:"check_in"`
	CheckOut         time.Time     `db:"check_out"`
	GuestCount       int           `db:"guest_count"`
	Mode             Mode          `db:"mode"`
	Status           Status        `db:"status"`
	PaymentStatus    PaymentStatus `db:"payment_status"`
	TotalAmount      int64         `db:"total_amount"`
	CommissionAmount int64         `db:"commission_amount"`
	TransactionRef   string        `db:"transaction_ref"`
	CancelledAt      *time.Time    `db:"cancelled_at"`
	RefundAmount     int64         `db:"refund_amount"`
	model.Metadata
}

func (b Booking) IsActive() bool {
	return slices.Contains(ActiveStatuses, b.Status)
}

func (b Booking) CanTransitionTo(next Status) bool {
	return slices.Contains(transitions[b.Status], next)
}

// HostEarning is what the host is owed for a paid booking.
func (b Booking) HostEarning() int64 {
	return b.TotalAmount - b.CommissionAmount
}

// Overlaps reports whether the half-open ranges [aStart, aEnd) and [bStart, bEnd) intersect.
// Back-to-back stays, where one check-out equals the next check-in, do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Nights counts started 24 hour periods between check-in and check-out.
func Nights(checkIn, checkOut time.Time) int {
	diff := checkOut.Sub(checkIn)
	if diff <= 0 {
		return 0
	}

	nights := diff / (24 * time.Hour)
	if diff%(24*time.Hour) != 0 {
		nights++
	}

	return int(nights)
}
