package model

import (
	"thakajabe/shared/model"

	"github.com/jmoiron/sqlx/types"
)

const (
	TableName  = "payment_transactions"
	EntityName = "payment_transaction"

	FieldID                  = "id"
	FieldBookingID           = "booking_id"
	FieldGatewaySessionKey   = "gateway_session_key"
	FieldGatewayURL          = "gateway_url"
	FieldGatewayValidationID = "gateway_validation_id"
	FieldStatus              = "status"
	FieldRawGatewayPayload   = "raw_gateway_payload"
	FieldFailureReason       = "failure_reason"
	FieldModifiedAt          = "modified_at"
	FieldModifiedBy          = "modified_by"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// PaymentTransaction is one checkout attempt for a booking. Its id doubles as the gateway's tran_id.
type PaymentTransaction struct {
	ID                  string         `db:"id"`
	BookingID           string         `db:"booking_id"`
	GatewayName         string         `db:"gateway_name"`
	GatewaySessionKey   string         `db:"gateway_session_key"`
	GatewayURL          string         `db:"gateway_url"`
	GatewayValidationID *string        `db:"gateway_validation_id"`
	Amount              int64          `db:"amount"`
	Currency            string         `db:"currency"`
	Status              Status         `db:"status"`
	RawGatewayPayload   types.JSONText `db:"raw_gateway_payload"`
	FailureReason       string         `db:"failure_reason"`
	model.Metadata
}

// IsTerminal reports whether the transaction can no longer change.
func (p PaymentTransaction) IsTerminal() bool {
	return p.Status != StatusPending
}
