package gateway

//go:generate go run go.uber.org/mock/mockgen -source=./gateway.go -destination=./mocks/gateway_mock.go -package=mocks

import (
	"context"
	"errors"
)

var (
	// ErrSessionRejected is returned when the gateway answers but refuses to open a session.
	ErrSessionRejected = errors.New("payment gateway rejected the session")
	// ErrMalformedResponse is returned when a gateway response cannot be interpreted.
	ErrMalformedResponse = errors.New("malformed payment gateway response")
)

type ValidationStatus string

const (
	ValidationValid   ValidationStatus = "VALID"
	ValidationInvalid ValidationStatus = "INVALID"
)

type Customer struct {
	Name    string
	Email   string
	Phone   string
	Address string
	City    string
	Country string
}

type SessionRequest struct {
	// TransactionID is echoed back by the gateway on every callback.
	TransactionID string
	Amount        int64
	Currency      string
	ProductName   string
	BookingID     string
	Customer      Customer
}

type Session struct {
	SessionKey  string
	RedirectURL string
}

type Validation struct {
	Status            ValidationStatus
	ValidationID      string
	TransactionID     string
	BankTransactionID string
	Amount            int64
	Currency          string
}

// Gateway is a hosted-checkout payment provider.
type Gateway interface {
	Name() string
	CreateSession(ctx context.Context, request SessionRequest) (Session, error)
	Validate(ctx context.Context, validationID string) (Validation, error)
}
