package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"
	"thakajabe/infras/memory"
	"thakajabe/infras/otel"
	"thakajabe/infras/postgres"
	"thakajabe/internal/domains/payment/model"
	gDto "thakajabe/shared/dto"
	gRepo "thakajabe/shared/repository"
)

const constraintCompletedPerBooking = "payment_transactions_completed_booking_key"

type Payment interface {
	Insert(ctx context.Context, model model.PaymentTransaction) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.PaymentTransaction, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.PaymentTransaction, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	UpdateCount(ctx context.Context, req map[string]any, filter gDto.FilterGroup) (int64, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.PaymentTransaction]
}

func New(db *postgres.Connection, otel otel.Otel) Payment {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.PaymentTransaction](model.EntityName, model.TableName, model.FieldID, db, otel),
	}
}

// NewMemory backs the repository with an in-memory table enforcing one settled transaction per booking.
func NewMemory(store *memory.Store) Payment {
	return memory.NewTable[model.PaymentTransaction](store, model.EntityName, oneCompletedPerBooking)
}

func oneCompletedPerBooking(rows []model.PaymentTransaction, candidate model.PaymentTransaction, skip int) error {
	if !settles(candidate) {
		return nil
	}

	for i, row := range rows {
		if i != skip && row.BookingID == candidate.BookingID && settles(row) {
			return fmt.Errorf("%w on %s", gRepo.ErrUniqueViolation, constraintCompletedPerBooking)
		}
	}

	return nil
}

// settles mirrors uq_payment_transactions_settled: completions carrying a reason, such as a
// payment landing on an ended booking, do not count.
func settles(txn model.PaymentTransaction) bool {
	return txn.Status == model.StatusCompleted && txn.FailureReason == ""
}
