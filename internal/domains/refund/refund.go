// Package refund decides what a guest gets back when a booking is cancelled.
package refund

import (
	"fmt"
	"thakajabe/internal/domains/booking/model"
	"time"
)

// FullRefundWindow is how long before check-in a paid booking may be cancelled for a full refund.
const FullRefundWindow = 24 * time.Hour

type Decision struct {
	RefundAmount  int64
	Status        model.Status
	PaymentStatus model.PaymentStatus
}

// Refunded reports whether the decision moves money back to the guest.
func (d Decision) Refunded() bool {
	return d.RefundAmount > 0
}

// Compute applies the cancellation policy at instant now. There is no partial tier:
// a paid booking is refunded in full or not at all.
func Compute(booking model.Booking, now time.Time) Decision {
	decision := Decision{
		Status:        model.StatusCancelled,
		PaymentStatus: booking.PaymentStatus,
	}

	if booking.PaymentStatus != model.PaymentPaid {
		return decision
	}

	if booking.CheckIn.Sub(now) >= FullRefundWindow {
		decision.RefundAmount = booking.TotalAmount
		decision.PaymentStatus = model.PaymentRefunded
	}

	return decision
}

// Note is the ledger memo attached to a refund adjustment.
func Note(booking model.Booking) string {
	return fmt.Sprintf("refund for cancelled booking %s", booking.TransactionRef)
}
