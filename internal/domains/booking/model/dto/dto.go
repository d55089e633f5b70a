package dto

import (
	"thakajabe/internal/domains/booking/model"
	"thakajabe/shared"
	"thakajabe/shared/constant"
	gDto "thakajabe/shared/dto"
	"thakajabe/shared/failure"
	"thakajabe/shared/timezone"
	"time"
)

// Stay is a validated pair of dates.
type Stay struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func parseStay(checkIn, checkOut string) (Stay, error) {
	in, err := timezone.ParseDate(checkIn)
	if err != nil {
		return Stay{}, failure.BadRequestFromString("check_in must be a date formatted as YYYY-MM-DD")
	}

	out, err := timezone.ParseDate(checkOut)
	if err != nil {
		return Stay{}, failure.BadRequestFromString("check_out must be a date formatted as YYYY-MM-DD")
	}

	if !out.After(in) {
		return Stay{}, failure.BadRequestFromString("check_out must be after check_in")
	}

	return Stay{CheckIn: in, CheckOut: out}, nil
}

type CreateBookingRequest struct {
	RoomID     string `json:"room_id"     validate:"required"`
	CheckIn    string `json:"check_in"    validate:"required,datetime=2006-01-02"`
	CheckOut   string `json:"check_out"   validate:"required,datetime=2006-01-02"`
	GuestCount int    `json:"guest_count" validate:"gte=1"`
	Mode       string `json:"mode"        validate:"omitempty,oneof=instant request"`
}

func (c *CreateBookingRequest) Stay() (Stay, error) {
	return parseStay(c.CheckIn, c.CheckOut)
}

func (c *CreateBookingRequest) BookingMode() model.Mode {
	if c.Mode == "" {
		return model.ModeInstant
	}

	return model.Mode(c.Mode)
}

type QuoteRequest struct {
	CheckIn    string `json:"check_in"    validate:"required,datetime=2006-01-02"`
	CheckOut   string `json:"check_out"   validate:"required,datetime=2006-01-02"`
	GuestCount int    `json:"guest_count" validate:"omitempty,gte=1"`
}

func (q *QuoteRequest) Stay() (Stay, error) {
	return parseStay(q.CheckIn, q.CheckOut)
}

type QuoteResponse struct {
	RoomID           string `json:"room_id"`
	CheckIn          string `json:"check_in"`
	CheckOut         string `json:"check_out"`
	Nights           int    `json:"nights"`
	PricePerNight    int64  `json:"price_per_night"`
	TotalAmount      int64  `json:"total_amount"`
	CommissionAmount int64  `json:"commission_amount"`
	Available        bool   `json:"available"`
}

type BookingFilter struct {
	RoomID  string `json:"room_id"  validate:"omitempty"`
	GuestID string `json:"guest_id" validate:"omitempty"`
	HostID  string `json:"host_id"  validate:"omitempty"`
	Status  string `json:"status"   validate:"omitempty,oneof=pending confirmed cancelled rejected"`
}

func (f BookingFilter) ToFilterGroup() gDto.FilterGroup {
	group := gDto.And()

	fields := []struct {
		column string
		value  string
	}{
		{model.FieldRoomID, f.RoomID},
		{model.FieldGuestID, f.GuestID},
		{model.FieldHostID, f.HostID},
		{model.FieldStatus, f.Status},
	}

	for _, field := range fields {
		if field.value == constant.Empty {
			continue
		}

		group = group.Add(gDto.Filter{
			Field:    field.column,
			Value:    field.value,
			Operator: gDto.FilterOperatorEq,
			Table:    model.TableName,
		})
	}

	return group
}

type BookingResponse struct {
	ID               string `json:"id"`
	RoomID           string `json:"room_id"`
	GuestID          string `json:"guest_id"`
	HostID           string `json:"host_id"`
	CheckIn          string `json:"check_in"`
	CheckOut         string `json:"check_out"`
	Nights           int    `json:"nights"`
	GuestCount       int    `json:"guest_count"`
	Mode             string `json:"mode"`
	Status           string `json:"status"`
	PaymentStatus    string `json:"payment_status"`
	TotalAmount      int64  `json:"total_amount"`
	CommissionAmount int64  `json:"commission_amount"`
	TransactionRef   string `json:"transaction_ref"`
	CancelledAt      string `json:"cancelled_at,omitempty"`
	RefundAmount     int64  `json:"refund_amount"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(model model.Booking) {
	r.ID = model.ID
	r.RoomID = model.RoomID
	r.GuestID = model.GuestID
	r.HostID = model.HostID
	r.CheckIn = timezone.Format(model.CheckIn, constant.DateOnlyFormat)
	r.CheckOut = timezone.Format(model.CheckOut, constant.DateOnlyFormat)
	r.Nights = modelNights(model)
	r.GuestCount = model.GuestCount
	r.Mode = string(model.Mode)
	r.Status = string(model.Status)
	r.PaymentStatus = string(model.PaymentStatus)
	r.TotalAmount = model.TotalAmount
	r.CommissionAmount = model.CommissionAmount
	r.TransactionRef = model.TransactionRef
	r.RefundAmount = model.RefundAmount

	if model.CancelledAt != nil {
		r.CancelledAt = timezone.Format(*model.CancelledAt, constant.DateFormat)
	}

	r.Metadata.FromModel(model.Metadata)
}

func modelNights(booking model.Booking) int {
	return model.Nights(booking.CheckIn, booking.CheckOut)
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}

// OccupiedWindow is a stay blocking a room's calendar.
type OccupiedWindow struct {
	BookingID string `json:"booking_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Status    string `json:"status"`
}

func (w *OccupiedWindow) FromModel(model model.Booking) {
	w.BookingID = model.ID
	w.CheckIn = timezone.Format(model.CheckIn, constant.DateOnlyFormat)
	w.CheckOut = timezone.Format(model.CheckOut, constant.DateOnlyFormat)
	w.Status = string(model.Status)
}

type CancelBookingResponse struct {
	Booking      BookingResponse `json:"booking"`
	RefundAmount int64           `json:"refund_amount"`
	Refunded     bool            `json:"refunded"`
}

// Event payloads

type BookingEvent struct {
	BookingID     string `json:"booking_id"`
	RoomID        string `json:"room_id"`
	GuestID       string `json:"guest_id"`
	HostID        string `json:"host_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	TotalAmount   int64  `json:"total_amount"`
	RefundAmount  int64  `json:"refund_amount,omitempty"`
}

func (e *BookingEvent) FromModel(model model.Booking) {
	e.BookingID = model.ID
	e.RoomID = model.RoomID
	e.GuestID = model.GuestID
	e.HostID = model.HostID
	e.Status = string(model.Status)
	e.PaymentStatus = string(model.PaymentStatus)
	e.TotalAmount = model.TotalAmount
	e.RefundAmount = model.RefundAmount
}
