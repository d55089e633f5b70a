package dto

import (
	"thakajabe/internal/domains/payout/model"
	"thakajabe/shared"
	"thakajabe/shared/constant"
	gDto "thakajabe/shared/dto"
	"thakajabe/shared/timezone"
)

type RequestPayoutRequest struct {
	Amount int64  `json:"amount" validate:"gt=0"`
	Note   string `json:"note"   validate:"omitempty,max=500"`
}

type PayoutFilter struct {
	HostID string `json:"host_id" validate:"omitempty"`
	Status string `json:"status"  validate:"omitempty,oneof=pending approved rejected"`
}

func (f PayoutFilter) ToFilterGroup() gDto.FilterGroup {
	group := gDto.And()

	if f.HostID != constant.Empty {
		group = group.Add(gDto.Filter{Field: model.FieldHostID, Value: f.HostID, Operator: gDto.FilterOperatorEq, Table: model.TableName})
	}

	if f.Status != constant.Empty {
		group = group.Add(gDto.Filter{Field: model.FieldStatus, Value: f.Status, Operator: gDto.FilterOperatorEq, Table: model.TableName})
	}

	return group
}

type PayoutResponse struct {
	ID        string `json:"id"`
	HostID    string `json:"host_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	Note      string `json:"note,omitempty"`
	DecidedBy string `json:"decided_by,omitempty"`
	DecidedAt string `json:"decided_at,omitempty"`
	gDto.Metadata
}

func (r *PayoutResponse) FromModel(model model.PayoutRequest) {
	r.ID = model.ID
	r.HostID = model.HostID
	r.Amount = model.Amount
	r.Status = string(model.Status)
	r.Note = model.Note

	if model.DecidedBy != nil {
		r.DecidedBy = *model.DecidedBy
	}

	if model.DecidedAt != nil {
		r.DecidedAt = timezone.Format(*model.DecidedAt, constant.DateFormat)
	}

	r.Metadata.FromModel(model.Metadata)
}

type GetPayoutsResponse struct {
	Payouts   []PayoutResponse `json:"payouts"`
	TotalPage int              `json:"total_page"`
	TotalData int              `json:"total_data"`
}

func (r *GetPayoutsResponse) FromModels(models []model.PayoutRequest, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Payouts = make([]PayoutResponse, len(models))
	for i, mod := range models {
		r.Payouts[i].FromModel(mod)
	}
}

// PayoutApprovedEvent is what the payout processor publishes once money has left the platform.
type PayoutApprovedEvent struct {
	PayoutID  string `json:"payout_id"   validate:"required"`
	Reference string `json:"reference"`
}
