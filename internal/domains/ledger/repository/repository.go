package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"
	"thakajabe/infras/memory"
	"thakajabe/infras/otel"
	"thakajabe/infras/postgres"
	"thakajabe/internal/domains/ledger/model"
	gDto "thakajabe/shared/dto"
	gRepo "thakajabe/shared/repository"
)

const (
	constraintCommissionPerBooking = "ledger_entries_commission_booking_key"
	constraintAdjustmentPerBooking = "ledger_entries_adjustment_booking_key"
	constraintPayoutPerRequest     = "ledger_entries_payout_request_key"
)

// Ledger is append-only: there is no way to change or remove a posted entry.
type Ledger interface {
	Insert(ctx context.Context, model model.LedgerEntry) error
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.LedgerEntry, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Sum(ctx context.Context, column string, filter gDto.FilterGroup) (int64, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.LedgerEntry]
}

func New(db *postgres.Connection, otel otel.Otel) Ledger {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.LedgerEntry](model.EntityName, model.TableName, model.FieldID, db, otel),
	}
}

// NewMemory backs the repository with an in-memory table enforcing the schema's partial unique indexes.
func NewMemory(store *memory.Store) Ledger {
	return &memoryImpl{
		table: memory.NewTable[model.LedgerEntry](store, model.EntityName,
			oncePerReference(model.TypeCommission, constraintCommissionPerBooking, bookingRef),
			oncePerReference(model.TypeAdjustment, constraintAdjustmentPerBooking, bookingRef),
			oncePerReference(model.TypePayout, constraintPayoutPerRequest, payoutRef),
		),
	}
}

// memoryImpl narrows the table to the insert-only method set.
type memoryImpl struct {
	table *memory.Table[model.LedgerEntry]
}

func (m *memoryImpl) Insert(ctx context.Context, entry model.LedgerEntry) error {
	return m.table.Insert(ctx, entry) //nolint:wrapcheck
}

func (m *memoryImpl) GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.LedgerEntry, error) {
	return m.table.GetAll(ctx, params, filter, columns...) //nolint:wrapcheck
}

func (m *memoryImpl) Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error) {
	return m.table.Exist(ctx, filter) //nolint:wrapcheck
}

func (m *memoryImpl) Count(ctx context.Context, filter gDto.FilterGroup) (int, error) {
	return m.table.Count(ctx, filter) //nolint:wrapcheck
}

func (m *memoryImpl) Sum(ctx context.Context, column string, filter gDto.FilterGroup) (int64, error) {
	return m.table.Sum(ctx, column, filter) //nolint:wrapcheck
}

func bookingRef(entry model.LedgerEntry) *string {
	return entry.ReferencedBookingID
}

func payoutRef(entry model.LedgerEntry) *string {
	return entry.ReferencedPayoutID
}

func oncePerReference(entryType model.EntryType, name string, ref func(model.LedgerEntry) *string) memory.Constraint[model.LedgerEntry] {
	return func(rows []model.LedgerEntry, candidate model.LedgerEntry, skip int) error {
		key := ref(candidate)
		if candidate.Type != entryType || key == nil {
			return nil
		}

		for i, row := range rows {
			if i == skip || row.Type != entryType || ref(row) == nil {
				continue
			}

			if *ref(row) == *key {
				return fmt.Errorf("%w on %s", gRepo.ErrUniqueViolation, name)
			}
		}

		return nil
	}
}
