package model

import "thakajabe/shared/model"

const (
	TableName  = "rooms"
	EntityName = "room"

	FieldID                 = "id"
	FieldHostID             = "host_id"
	FieldStatus             = "status"
	FieldBasePricePerNight  = "base_price_per_night"
	FieldCommissionPerNight = "commission_per_night"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Room is owned by the listing service; bookings only read it.
type Room struct {
	ID                 string `db:"id"`
	HostID             string `db:"host_id"`
	Title              string `db:"title"`
	Status             Status `db:"status"`
	BasePricePerNight  int64  `db:"base_price_per_night"`
	CommissionPerNight int64  `db:"commission_per_night"`
	MaxGuests          int    `db:"max_guests"`
	model.Metadata
}

// TotalPricePerNight is what a guest pays for one night.
func (r Room) TotalPricePerNight() int64 {
	return r.BasePricePerNight + r.CommissionPerNight
}

func (r Room) IsBookable() bool {
	return r.Status == StatusApproved
}
