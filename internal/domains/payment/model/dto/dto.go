package dto

import (
	"encoding/json"
	"net/url"
	"slices"
	"strings"
	"thakajabe/infras/gateway"
	"thakajabe/internal/domains/payment/model"
	"thakajabe/shared/constant"
	gDto "thakajabe/shared/dto"
	"thakajabe/shared/failure"

	"github.com/jmoiron/sqlx/types"
)

type CallbackKind string

const (
	CallbackSuccess CallbackKind = "success"
	CallbackFail    CallbackKind = "fail"
	CallbackCancel  CallbackKind = "cancel"
	CallbackIPN     CallbackKind = "ipn"
)

// ParseCallbackKind accepts the last path segment of a callback route.
func ParseCallbackKind(raw string) (CallbackKind, error) {
	kind := CallbackKind(raw)

	if !slices.Contains([]CallbackKind{CallbackSuccess, CallbackFail, CallbackCancel, CallbackIPN}, kind) {
		return kind, failure.BadRequestFromString("unknown callback " + raw)
	}

	return kind, nil
}

// Gateway statuses carried by callbacks.
const (
	gatewayStatusValid       = "VALID"
	gatewayStatusValidated   = "VALIDATED"
	gatewayStatusFailed      = "FAILED"
	gatewayStatusCancelled   = "CANCELLED"
	gatewayStatusUnattempted = "UNATTEMPTED"
	gatewayStatusExpired     = "EXPIRED"
)

const (
	ReasonCancelled    = "cancelled by customer"
	ReasonFailed       = "payment failed at gateway"
	ReasonMismatch     = "verification mismatch"
	ReasonAlreadyPaid  = "booking already paid"
	ReasonBookingEnded = "booking no longer active"

	ReasonGatewayUnavailable = "gateway unavailable"
	ReasonCapturedAfterClose = "captured after close, refund required"

	MsgVerificationFailed = "payment could not be verified, no charge confirmed"
)

// CallbackPayload is the form the gateway posts to every callback URL.
type CallbackPayload struct {
	TransactionID string
	ValidationID  string
	Status        string
	Amount        string
	Currency      string
	BankTranID    string
	Error         string
	Raw           map[string]string
}

func (p *CallbackPayload) FromForm(form url.Values) {
	p.TransactionID = form.Get("tran_id")
	p.ValidationID = form.Get("val_id")
	p.Status = strings.ToUpper(form.Get("status"))
	p.Amount = form.Get("amount")
	p.Currency = form.Get("currency")
	p.BankTranID = form.Get("bank_tran_id")
	p.Error = form.Get("error")

	p.Raw = make(map[string]string, len(form))
	for key := range form {
		p.Raw[key] = form.Get(key)
	}

	// credentials echoed back by the gateway are never stored
	delete(p.Raw, "store_passwd")
	delete(p.Raw, "verify_sign")
	delete(p.Raw, "verify_sign_sha2")
}

// Outcome maps the callback to the transition it asks for.
func (p CallbackPayload) Outcome(kind CallbackKind) (model.Status, error) {
	switch kind {
	case CallbackSuccess:
		return model.StatusCompleted, nil
	case CallbackFail:
		return model.StatusFailed, nil
	case CallbackCancel:
		return model.StatusCancelled, nil
	}

	switch p.Status {
	case gatewayStatusValid, gatewayStatusValidated:
		return model.StatusCompleted, nil
	case gatewayStatusFailed:
		return model.StatusFailed, nil
	case gatewayStatusCancelled, gatewayStatusUnattempted, gatewayStatusExpired:
		return model.StatusCancelled, nil
	default:
		return model.StatusPending, failure.BadRequestFromString("unknown gateway status " + p.Status)
	}
}

// RawJSON is the payload stored for audit.
func (p CallbackPayload) RawJSON() types.JSONText {
	raw, err := json.Marshal(p.Raw)
	if err != nil {
		return types.JSONText("{}")
	}

	return raw
}

type InitPaymentRequest struct {
	CustomerName  string `json:"customer_name"  validate:"required,max=100"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	CustomerPhone string `json:"customer_phone" validate:"required,max=20"`
	Address       string `json:"address"        validate:"omitempty,max=200"`
	City          string `json:"city"           validate:"omitempty,max=50"`
	Country       string `json:"country"        validate:"omitempty,max=50"`
}

func (r InitPaymentRequest) Customer() gateway.Customer {
	customer := gateway.Customer{
		Name:    r.CustomerName,
		Email:   r.CustomerEmail,
		Phone:   r.CustomerPhone,
		Address: r.Address,
		City:    r.City,
		Country: r.Country,
	}

	if customer.Address == constant.Empty {
		customer.Address = "N/A"
	}

	if customer.City == constant.Empty {
		customer.City = "Dhaka"
	}

	if customer.Country == constant.Empty {
		customer.Country = "Bangladesh"
	}

	return customer
}

type InitPaymentResponse struct {
	TransactionID string `json:"transaction_id"`
	BookingID     string `json:"booking_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	GatewayURL    string `json:"gateway_url"`
}

type CallbackResponse struct {
	TransactionID string `json:"transaction_id"`
	BookingID     string `json:"booking_id"`
	Status        string `json:"status"`
	Duplicate     bool   `json:"duplicate"`
	Message       string `json:"message,omitempty"`
}

func (r *CallbackResponse) FromModel(model model.PaymentTransaction) {
	r.TransactionID = model.ID
	r.BookingID = model.BookingID
	r.Status = string(model.Status)
	r.Message = model.FailureReason
}

type TransactionResponse struct {
	ID                  string `json:"id"`
	BookingID           string `json:"booking_id"`
	GatewayName         string `json:"gateway_name"`
	GatewayURL          string `json:"gateway_url,omitempty"`
	GatewayValidationID string `json:"gateway_validation_id,omitempty"`
	Amount              int64  `json:"amount"`
	Currency            string `json:"currency"`
	Status              string `json:"status"`
	FailureReason       string `json:"failure_reason,omitempty"`
	gDto.Metadata
}

func (r *TransactionResponse) FromModel(model model.PaymentTransaction) {
	r.ID = model.ID
	r.BookingID = model.BookingID
	r.GatewayName = model.GatewayName
	r.GatewayURL = model.GatewayURL
	r.Amount = model.Amount
	r.Currency = model.Currency
	r.Status = string(model.Status)
	r.FailureReason = model.FailureReason

	if model.GatewayValidationID != nil {
		r.GatewayValidationID = *model.GatewayValidationID
	}

	r.Metadata.FromModel(model.Metadata)
}

// PaymentEvent is the payload of the payment.* topics.
type PaymentEvent struct {
	TransactionID string `json:"transaction_id"`
	BookingID     string `json:"booking_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
}

func (e *PaymentEvent) FromModel(model model.PaymentTransaction) {
	e.TransactionID = model.ID
	e.BookingID = model.BookingID
	e.Amount = model.Amount
	e.Currency = model.Currency
	e.Status = string(model.Status)
	e.Reason = model.FailureReason
}
