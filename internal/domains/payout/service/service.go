package service

import (
	"context"
	"fmt"
	"thakajabe/config"
	"thakajabe/infras/otel"
	ledgerModel "thakajabe/internal/domains/ledger/model"
	ledgerService "thakajabe/internal/domains/ledger/service"
	"thakajabe/internal/domains/payout/model"
	"thakajabe/internal/domains/payout/model/dto"
	"thakajabe/internal/domains/payout/repository"
	"thakajabe/shared"
	"thakajabe/shared/cache"
	"thakajabe/shared/constant"
	gDto "thakajabe/shared/dto"
	"thakajabe/shared/failure"
	gModel "thakajabe/shared/model"
	gRepo "thakajabe/shared/repository"
	"thakajabe/shared/timezone"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	cacheGetAllPayout  = "payout:gets"
	lockKeyHostBalance = "payout:host:"
)

type Payout interface {
	Request(ctx context.Context, req dto.RequestPayoutRequest) (dto.PayoutResponse, error)
	// Approve is idempotent: approving an approved request returns it unchanged.
	Approve(ctx context.Context, id string) (dto.PayoutResponse, error)
	Reject(ctx context.Context, id string) (dto.PayoutResponse, error)
	Get(ctx context.Context, id string) (dto.PayoutResponse, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter dto.PayoutFilter) (dto.GetPayoutsResponse, error)
}

type serviceImpl struct {
	repo       repository.Payout
	ledger     ledgerService.Ledger
	transactor gRepo.Transactor
	cfg        *config.Config
	cache      cache.RedisCache
	otel       otel.Otel
}

func New(
	repo repository.Payout,
	ledger ledgerService.Ledger,
	transactor gRepo.Transactor,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Payout {
	return &serviceImpl{
		repo:       repo,
		ledger:     ledger,
		transactor: transactor,
		cfg:        cfg,
		cache:      cache,
		otel:       otel,
	}
}

func (s *serviceImpl) Request(ctx context.Context, req dto.RequestPayoutRequest) (res dto.PayoutResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".RequestPayout")
	defer scope.End()
	defer scope.TraceIfError(err)

	actor := gDto.ActorFromContext(ctx)
	if actor.Role != constant.RoleHost {
		return res, failure.Forbidden("only hosts can request payouts") // nolint:wrapcheck
	}

	if req.Amount <= 0 {
		return res, failure.BadRequestFromString("amount must be greater than 0") // nolint:wrapcheck
	}

	now := timezone.Now()
	payout := model.PayoutRequest{
		ID:       uuid.NewString(),
		HostID:   actor.UserID,
		Amount:   req.Amount,
		Status:   model.StatusPending,
		Note:     req.Note,
		Metadata: gModel.NewMetadata(actor.UserID, now),
	}

	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		// one request per host at a time, so two requests cannot spend the same balance
		if err := s.transactor.Lock(ctx, lockKeyHostBalance+actor.UserID); err != nil {
			log.Error().Err(err).Str("hostID", actor.UserID).Msg("failed to lock host balance")

			return err //nolint:wrapcheck
		}

		balance, err := s.ledger.ComputeHostBalance(ctx, actor.UserID)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if req.Amount > balance.Balance {
			return failure.BadRequestFromString(fmt.Sprintf("amount exceeds the available balance of %d", balance.Balance)) // nolint:wrapcheck
		}

		if err := s.repo.Insert(ctx, payout); err != nil {
			log.Error().Err(err).Str("hostID", actor.UserID).Msg("failed to create payout request")

			return fmt.Errorf("failed to create payout request: %w", err)
		}

		gRepo.AfterCommit(ctx, func(ctx context.Context) {
			shared.InvalidateCaches(ctx, s.cache, cacheGetAllPayout)
		})

		return nil
	})
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	log.Info().Str("payoutID", payout.ID).Int64("amount", payout.Amount).Msg("payout requested")

	res.FromModel(payout)

	return res, nil
}

func (s *serviceImpl) Approve(ctx context.Context, id string) (res dto.PayoutResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ApprovePayout")
	defer scope.End()
	defer scope.TraceIfError(err)

	return s.decide(ctx, id, model.StatusApproved)
}

func (s *serviceImpl) Reject(ctx context.Context, id string) (res dto.PayoutResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".RejectPayout")
	defer scope.End()
	defer scope.TraceIfError(err)

	return s.decide(ctx, id, model.StatusRejected)
}

// decide moves a pending request to next. Only the winner of the status swap posts to the ledger.
func (s *serviceImpl) decide(ctx context.Context, id string, next model.Status) (res dto.PayoutResponse, err error) {
	actor := gDto.ActorFromContext(ctx)
	if !actor.IsAdmin() && !actor.IsSystem() {
		return res, failure.ForbiddenError
	}

	var payout model.PayoutRequest

	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		now := timezone.Now()

		affected, err := s.repo.UpdateCount(ctx, map[string]any{
			model.FieldStatus:     next,
			model.FieldDecidedBy:  actor.UserID,
			model.FieldDecidedAt:  now,
			model.FieldModifiedAt: now,
			model.FieldModifiedBy: actor.UserID,
		}, gDto.And(
			gDto.Filter{Field: model.FieldID, Value: id, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{Field: model.FieldStatus, Value: model.StatusPending, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		))
		if err != nil {
			log.Error().Err(err).Str("payoutID", id).Msg("failed to decide payout request")

			return fmt.Errorf("failed to decide payout request: %w", err)
		}

		payout, err = s.get(ctx, id)
		if err != nil {
			return err
		}

		if affected == 0 {
			if payout.Status == next {
				log.Info().Str("payoutID", id).Str("status", string(next)).Msg("payout request already decided")

				return nil
			}

			return failure.InvalidState(fmt.Sprintf("payout request is already %s", payout.Status)) // nolint:wrapcheck
		}

		if next == model.StatusApproved {
			_, err = s.ledger.Post(ctx, ledgerModel.LedgerEntry{
				Type:               ledgerModel.TypePayout,
				ReferencedPayoutID: ledgerModel.PayoutRef(payout.ID),
				Amount:             -payout.Amount,
				Note:               fmt.Sprintf("payout to host %s", payout.HostID),
				PostedBy:           actor.UserID,
			})
			if err != nil {
				return err //nolint:wrapcheck
			}
		}

		gRepo.AfterCommit(ctx, func(ctx context.Context) {
			shared.InvalidateCaches(ctx, s.cache, cacheGetAllPayout)
		})

		return nil
	})
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	res.FromModel(payout)

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.PayoutResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetPayout")
	defer scope.End()
	defer scope.TraceIfError(err)

	payout, err := s.get(ctx, id)
	if err != nil {
		return res, err
	}

	actor := gDto.ActorFromContext(ctx)
	if !actor.IsAdmin() && !actor.Is(payout.HostID) {
		return res, failure.ResourceRestrictedError
	}

	res.FromModel(payout)

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, params gDto.QueryParams, filter dto.PayoutFilter) (res dto.GetPayoutsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAllPayouts")
	defer scope.End()
	defer scope.TraceIfError(err)

	actor := gDto.ActorFromContext(ctx)
	if !actor.IsAdmin() {
		filter.HostID = actor.UserID
	}

	group := filter.ToFilterGroup()
	cacheKey := shared.BuildCacheKeyWithQuery(shared.BuildGenerationCacheKey(ctx, s.cache, cacheGetAllPayout), params, group)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for payouts")

		return res, nil
	}

	total, err := s.repo.Count(ctx, group)
	if err != nil {
		log.Error().Err(err).Msg("failed to count payout requests")

		return res, fmt.Errorf("failed to count payout requests: %w", err)
	}

	models, err := s.repo.GetAll(ctx, params, group)
	if err != nil {
		log.Error().Err(err).Msg("failed to get payout requests")

		return res, fmt.Errorf("failed to get payout requests: %w", err)
	}

	res.FromModels(models, total, params.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save payouts to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) get(ctx context.Context, id string) (model.PayoutRequest, error) {
	payout, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Str("payoutID", id).Msg("failed to get payout request")

		return payout, fmt.Errorf("failed to get payout request: %w", err)
	}

	if payout.ID == constant.Empty {
		return payout, failure.NotFound(model.EntityName) // nolint:wrapcheck
	}

	return payout, nil
}
