package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"thakajabe/infras/memory"
	"thakajabe/infras/otel"
	"thakajabe/infras/postgres"
	"thakajabe/internal/domains/payout/model"
	gDto "thakajabe/shared/dto"
	gRepo "thakajabe/shared/repository"
)

type Payout interface {
	Insert(ctx context.Context, model model.PayoutRequest) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.PayoutRequest, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.PayoutRequest, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Sum(ctx context.Context, column string, filter gDto.FilterGroup) (int64, error)
	UpdateCount(ctx context.Context, req map[string]any, filter gDto.FilterGroup) (int64, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.PayoutRequest]
}

func New(db *postgres.Connection, otel otel.Otel) Payout {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.PayoutRequest](model.EntityName, model.TableName, model.FieldID, db, otel),
	}
}

func NewMemory(store *memory.Store) Payout {
	return memory.NewTable[model.PayoutRequest](store, model.EntityName)
}
