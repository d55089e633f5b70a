package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"
	"thakajabe/infras/memory"
	"thakajabe/infras/otel"
	"thakajabe/infras/postgres"
	"thakajabe/internal/domains/booking/model"
	gDto "thakajabe/shared/dto"
	gRepo "thakajabe/shared/repository"
)

const (
	constraintNoOverlap      = "bookings_no_overlap"
	constraintTransactionRef = "bookings_transaction_ref_key"
)

type Booking interface {
	Insert(ctx context.Context, model model.Booking) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetForUpdate(ctx context.Context, filter gDto.FilterGroup) (model.Booking, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Booking, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Sum(ctx context.Context, column string, filter gDto.FilterGroup) (int64, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	UpdateCount(ctx context.Context, req map[string]any, filter gDto.FilterGroup) (int64, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Booking]
}

func New(db *postgres.Connection, otel otel.Otel) Booking {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Booking](model.EntityName, model.TableName, model.FieldID, db, otel),
	}
}

// NewMemory backs the repository with an in-memory table enforcing the same constraints as the schema.
func NewMemory(store *memory.Store) Booking {
	return memory.NewTable[model.Booking](store, model.EntityName, noOverlap, uniqueTransactionRef)
}

func noOverlap(rows []model.Booking, candidate model.Booking, skip int) error {
	if !candidate.IsActive() {
		return nil
	}

	for i, row := range rows {
		if i == skip || row.RoomID != candidate.RoomID || !row.IsActive() {
			continue
		}

		if model.Overlaps(row.CheckIn, row.CheckOut, candidate.CheckIn, candidate.CheckOut) {
			return fmt.Errorf("%w on %s", gRepo.ErrExclusionViolation, constraintNoOverlap)
		}
	}

	return nil
}

func uniqueTransactionRef(rows []model.Booking, candidate model.Booking, skip int) error {
	for i, row := range rows {
		if i != skip && row.TransactionRef == candidate.TransactionRef {
			return fmt.Errorf("%w on %s", gRepo.ErrUniqueViolation, constraintTransactionRef)
		}
	}

	return nil
}
