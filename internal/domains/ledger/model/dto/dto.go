package dto

import (
	"thakajabe/internal/domains/ledger/model"
	"thakajabe/shared"
	"thakajabe/shared/constant"
	gDto "thakajabe/shared/dto"
	"thakajabe/shared/failure"
	"thakajabe/shared/timezone"
	"time"
)

const (
	argPostedFrom = "posted_from"
	argPostedTo   = "posted_to"
)

// Period is a range of whole days; both ends are inclusive and either may be open.
type Period struct {
	From string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to"   validate:"omitempty,datetime=2006-01-02"`
}

// Bounds returns [from, to+1 day) as instants. A zero time means unbounded.
func (p Period) Bounds() (from, to time.Time, err error) {
	if p.From != constant.Empty {
		if from, err = timezone.ParseDate(p.From); err != nil {
			return from, to, failure.BadRequestFromString("from must be a date formatted as YYYY-MM-DD")
		}
	}

	if p.To != constant.Empty {
		if to, err = timezone.ParseDate(p.To); err != nil {
			return from, to, failure.BadRequestFromString("to must be a date formatted as YYYY-MM-DD")
		}

		to = to.AddDate(0, 0, 1)
	}

	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return from, to, failure.BadRequestFromString("to must not be before from")
	}

	return from, to, nil
}

func (p Period) filters(group gDto.FilterGroup) (gDto.FilterGroup, error) {
	from, to, err := p.Bounds()
	if err != nil {
		return group, err
	}

	if !from.IsZero() {
		group = group.Add(gDto.Filter{
			ArgName:  argPostedFrom,
			Field:    model.FieldPostedAt,
			Value:    from,
			Operator: gDto.FilterOperatorGreaterEq,
			Table:    model.TableName,
		})
	}

	if !to.IsZero() {
		group = group.Add(gDto.Filter{
			ArgName:  argPostedTo,
			Field:    model.FieldPostedAt,
			Value:    to,
			Operator: gDto.FilterOperatorLess,
			Table:    model.TableName,
		})
	}

	return group, nil
}

// ToFilterGroup restricts the period to entries of one type.
func (p Period) ToFilterGroup(entryType model.EntryType) (gDto.FilterGroup, error) {
	return p.filters(gDto.And(gDto.Filter{
		Field:    model.FieldType,
		Value:    entryType,
		Operator: gDto.FilterOperatorEq,
		Table:    model.TableName,
	}))
}

type EntryFilter struct {
	Type      string `json:"type"       validate:"omitempty,oneof=commission payout spend adjustment"`
	BookingID string `json:"booking_id" validate:"omitempty"`
	PayoutID  string `json:"payout_id"  validate:"omitempty"`
	Period
}

func (f EntryFilter) ToFilterGroup() (gDto.FilterGroup, error) {
	group := gDto.And()

	fields := []struct {
		column string
		value  string
	}{
		{model.FieldType, f.Type},
		{model.FieldReferencedBookingID, f.BookingID},
		{model.FieldReferencedPayoutID, f.PayoutID},
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

	return f.filters(group)
}

type EntryResponse struct {
	ID                  string `json:"id"`
	Type                string `json:"type"`
	ReferencedBookingID string `json:"referenced_booking_id,omitempty"`
	ReferencedPayoutID  string `json:"referenced_payout_id,omitempty"`
	Amount              int64  `json:"amount"`
	Note                string `json:"note"`
	PostedAt            string `json:"posted_at"`
	PostedBy            string `json:"posted_by"`
}

func (r *EntryResponse) FromModel(model model.LedgerEntry) {
	r.ID = model.ID
	r.Type = string(model.Type)
	r.Amount = model.Amount
	r.Note = model.Note
	r.PostedAt = timezone.Format(model.PostedAt, constant.DateFormat)
	r.PostedBy = model.PostedBy

	if model.ReferencedBookingID != nil {
		r.ReferencedBookingID = *model.ReferencedBookingID
	}

	if model.ReferencedPayoutID != nil {
		r.ReferencedPayoutID = *model.ReferencedPayoutID
	}
}

type GetEntriesResponse struct {
	Entries   []EntryResponse `json:"entries"`
	TotalPage int             `json:"total_page"`
	TotalData int             `json:"total_data"`
}

func (r *GetEntriesResponse) FromModels(models []model.LedgerEntry, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Entries = make([]EntryResponse, len(models))
	for i, mod := range models {
		r.Entries[i].FromModel(mod)
	}
}

// SummaryResponse reports payouts and spend as magnitudes; adjustments keep their sign.
type SummaryResponse struct {
	From             string `json:"from,omitempty"`
	To               string `json:"to,omitempty"`
	TotalCommission  int64  `json:"total_commission"`
	TotalPayouts     int64  `json:"total_payouts"`
	TotalSpend       int64  `json:"total_spend"`
	TotalAdjustments int64  `json:"total_adjustments"`
	NetIncome        int64  `json:"net_income"`
}

// FromSums builds the summary from signed column sums.
func (r *SummaryResponse) FromSums(period Period, commission, payouts, spend, adjustments int64) {
	r.From = period.From
	r.To = period.To
	r.TotalCommission = commission
	r.TotalPayouts = -payouts
	r.TotalSpend = -spend
	r.TotalAdjustments = adjustments
	r.NetIncome = commission + payouts + spend + adjustments
}

type HostBalanceResponse struct {
	HostID          string `json:"host_id"`
	Earnings        int64  `json:"earnings"`
	ApprovedPayouts int64  `json:"approved_payouts"`
	PendingPayouts  int64  `json:"pending_payouts"`
	Balance         int64  `json:"balance"`
}

type PostSpendRequest struct {
	Amount int64  `json:"amount" validate:"gt=0"`
	Note   string `json:"note"   validate:"required,max=500"`
}

func (r PostSpendRequest) ToModel() model.LedgerEntry {
	return model.LedgerEntry{
		Type:   model.TypeSpend,
		Amount: -r.Amount,
		Note:   r.Note,
	}
}

// PostAdjustmentRequest is a manual correction. Booking-linked adjustments are reserved for refunds.
type PostAdjustmentRequest struct {
	Amount int64  `json:"amount" validate:"ne=0"`
	Note   string `json:"note"   validate:"required,max=500"`
}

func (r PostAdjustmentRequest) ToModel() model.LedgerEntry {
	return model.LedgerEntry{
		Type:   model.TypeAdjustment,
		Amount: r.Amount,
		Note:   r.Note,
	}
}

type ExportResponse struct {
	URL     string `json:"url"`
	Entries int    `json:"entries"`
}

// EntryPostedEvent is the payload of ledger.entry_posted.
type EntryPostedEvent struct {
	EntryResponse
}
