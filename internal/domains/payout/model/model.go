package model

import (
	"thakajabe/shared/model"
	"time"
)

const (
	TableName  = "payout_requests"
	EntityName = "payout_request"

	FieldID         = "id"
	FieldHostID     = "host_id"
	FieldAmount     = "amount"
	FieldStatus     = "status"
	FieldDecidedBy  = "decided_by"
	FieldDecidedAt  = "decided_at"
	FieldModifiedAt = "modified_at"
	FieldModifiedBy = "modified_by"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// PayoutRequest is a host asking for part of their balance.
type PayoutRequest struct {
	ID        string     `db:"id"`
	HostID    string     `db:"host_id"`
	Amount    int64      `db:"amount"`
	Status    Status     `db:"status"`
	Note      string     `db:"note"`
	DecidedBy *string    `db:"decided_by"`
	DecidedAt *time.Time `db:"decided_at"`
	model.Metadata
}

func (p PayoutRequest) IsDecided() bool {
	return p.Status != StatusPending
}
