package model

import (
	"errors"
	"fmt"
	"time"
)

const (
	TableName  = "ledger_entries"
	EntityName = "ledger_entry"

	FieldID                  = "id"
	FieldType                = "type"
	FieldReferencedBookingID = "referenced_booking_id"
	FieldReferencedPayoutID  = "referenced_payout_id"
	FieldAmount              = "amount"
	FieldPostedAt            = "posted_at"
)

type EntryType string

const (
	// TypeCommission is platform revenue from a paid booking.
	TypeCommission EntryType = "commission"
	// TypePayout is money sent to a host.
	TypePayout EntryType = "payout"
	// TypeSpend is an operating cost.
	TypeSpend EntryType = "spend"
	// TypeAdjustment corrects the books, refunds included.
	TypeAdjustment EntryType = "adjustment"
)

var (
	ErrMissingReference    = errors.New("missing reference")
	ErrUnexpectedReference = errors.New("unexpected reference")
	ErrSign                = errors.New("amount has the wrong sign")
)

// LedgerEntry is immutable once posted.
type LedgerEntry struct {
	ID                  string    `db:"id"`
	Type                EntryType `db:"type"`
	ReferencedBookingID *string   `db:"referenced_booking_id"`
	ReferencedPayoutID  *string   `db:"referenced_payout_id"`
	Amount              int64     `db:"amount"`
	Note                string    `db:"note"`
	PostedAt            time.Time `db:"posted_at"`
	PostedBy            string    `db:"posted_by"`
}

// Validate checks the variant fields and sign convention of the entry's type.
func (e LedgerEntry) Validate() error {
	hasBooking := e.ReferencedBookingID != nil && *e.ReferencedBookingID != ""
	hasPayout := e.ReferencedPayoutID != nil && *e.ReferencedPayoutID != ""

	switch e.Type {
	case TypeCommission:
		if !hasBooking {
			return fmt.Errorf("%w: commission needs a booking", ErrMissingReference)
		}

		if hasPayout {
			return fmt.Errorf("%w: commission cannot reference a payout", ErrUnexpectedReference)
		}

		if e.Amount < 0 {
			return fmt.Errorf("%w: commission must not be negative", ErrSign)
		}
	case TypePayout:
		if !hasPayout {
			return fmt.Errorf("%w: payout needs a payout request", ErrMissingReference)
		}

		if hasBooking {
			return fmt.Errorf("%w: payout cannot reference a booking", ErrUnexpectedReference)
		}

		if e.Amount > 0 {
			return fmt.Errorf("%w: payout must not be positive", ErrSign)
		}
	case TypeSpend:
		if hasBooking || hasPayout {
			return fmt.Errorf("%w: spend carries no reference", ErrUnexpectedReference)
		}

		if e.Amount > 0 {
			return fmt.Errorf("%w: spend must not be positive", ErrSign)
		}
	case TypeAdjustment:
		if hasPayout {
			return fmt.Errorf("%w: adjustment cannot reference a payout", ErrUnexpectedReference)
		}
	default:
		return fmt.Errorf("unknown entry type %q", e.Type)
	}

	if e.Amount == 0 {
		return fmt.Errorf("%w: amount must not be zero", ErrSign)
	}

	return nil
}

// BookingRef returns a reference for a booking id.
func BookingRef(bookingID string) *string {
	return &bookingID
}

// PayoutRef returns a reference for a payout id.
func PayoutRef(payoutID string) *string {
	return &payoutID
}
