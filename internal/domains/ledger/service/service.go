package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"thakajabe/config"
	"thakajabe/infras/otel"
	"thakajabe/infras/s3"
	bookingModel "thakajabe/internal/domains/booking/model"
	bookingRepo "thakajabe/internal/domains/booking/repository"
	"thakajabe/internal/domains/ledger/model"
	"thakajabe/internal/domains/ledger/model/dto"
	"thakajabe/internal/domains/ledger/repository"
	payoutModel "thakajabe/internal/domains/payout/model"
	payoutRepo "thakajabe/internal/domains/payout/repository"
	"thakajabe/shared"
	"thakajabe/shared/cache"
	"thakajabe/shared/constant"
	gDto "thakajabe/shared/dto"
	"thakajabe/shared/event"
	"thakajabe/shared/failure"
	gRepo "thakajabe/shared/repository"
	"thakajabe/shared/timezone"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	cacheLedgerSummary = "ledger:summary"
	cacheLedgerEntries = "ledger:entries"

	exportDateLayout = "20060102T150405"
)

var csvHeader = []string{
	model.FieldID,
	model.FieldType,
	model.FieldReferencedBookingID,
	model.FieldReferencedPayoutID,
	model.FieldAmount,
	"note",
	model.FieldPostedAt,
	"posted_by",
}

type Ledger interface {
	// Post appends an entry, joining the unit of work carried by ctx.
	Post(ctx context.Context, entry model.LedgerEntry) (model.LedgerEntry, error)
	ListEntries(ctx context.Context, params gDto.QueryParams, filter dto.EntryFilter) (dto.GetEntriesResponse, error)
	Summarize(ctx context.Context, period dto.Period) (dto.SummaryResponse, error)
	ComputeHostBalance(ctx context.Context, hostID string) (dto.HostBalanceResponse, error)
	PostSpend(ctx context.Context, req dto.PostSpendRequest) (dto.EntryResponse, error)
	PostAdjustment(ctx context.Context, req dto.PostAdjustmentRequest) (dto.EntryResponse, error)
	Export(ctx context.Context, filter dto.EntryFilter) (dto.ExportResponse, error)
}

type serviceImpl struct {
	repo        repository.Ledger
	bookingRepo bookingRepo.Booking
	payoutRepo  payoutRepo.Payout
	storage     s3.S3
	publisher   event.Publisher
	cfg         *config.Config
	cache       cache.RedisCache
	otel        otel.Otel
}

func New(
	repo repository.Ledger,
	bookingRepo bookingRepo.Booking,
	payoutRepo payoutRepo.Payout,
	storage s3.S3,
	publisher event.Publisher,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Ledger {
	return &serviceImpl{
		repo:        repo,
		bookingRepo: bookingRepo,
		payoutRepo:  payoutRepo,
		storage:     storage,
		publisher:   publisher,
		cfg:         cfg,
		cache:       cache,
		otel:        otel,
	}
}

func (s *serviceImpl) Post(ctx context.Context, entry model.LedgerEntry) (res model.LedgerEntry, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".LedgerPost")
	defer scope.End()
	defer scope.TraceIfError(err)

	if err = entry.Validate(); err != nil {
		return res, failure.BadRequest(err) // nolint:wrapcheck
	}

	entry.ID = uuid.NewString()
	entry.PostedAt = timezone.Now()

	if entry.PostedBy == constant.Empty {
		entry.PostedBy = gDto.ActorFromContext(ctx).UserID
	}

	if err = s.repo.Insert(ctx, entry); err != nil {
		if errors.Is(err, gRepo.ErrUniqueViolation) {
			return res, failure.Conflict(fmt.Sprintf("%s entry already posted for this reference", entry.Type)) // nolint:wrapcheck
		}

		log.Error().Err(err).Str("type", string(entry.Type)).Msg("failed to post ledger entry")

		return res, fmt.Errorf("failed to post ledger entry: %w", err)
	}

	gRepo.AfterCommit(ctx, func(ctx context.Context) {
		shared.InvalidateCaches(ctx, s.cache, cacheLedgerSummary)
		shared.InvalidateCaches(ctx, s.cache, cacheLedgerEntries)
	})

	var payload dto.EntryPostedEvent
	payload.FromModel(entry)
	s.publisher.Publish(ctx, constant.TopicLedgerEntryPosted, entry.ID, payload)

	log.Info().Str("entryID", entry.ID).Str("type", string(entry.Type)).Int64("amount", entry.Amount).Msg("ledger entry posted")

	return entry, nil
}

func (s *serviceImpl) ListEntries(ctx context.Context, params gDto.QueryParams, filter dto.EntryFilter) (res dto.GetEntriesResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ListEntries")
	defer scope.End()
	defer scope.TraceIfError(err)

	group, err := filter.ToFilterGroup()
	if err != nil {
		return res, err
	}

	cacheKey := shared.BuildCacheKeyWithQuery(shared.BuildGenerationCacheKey(ctx, s.cache, cacheLedgerEntries), params, group)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for ledger entries")

		return res, nil
	}

	total, err := s.repo.Count(ctx, group)
	if err != nil {
		log.Error().Err(err).Msg("failed to count ledger entries")

		return res, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	models, err := s.repo.GetAll(ctx, params, group)
	if err != nil {
		log.Error().Err(err).Msg("failed to get ledger entries")

		return res, fmt.Errorf("failed to get ledger entries: %w", err)
	}

	res.FromModels(models, total, params.Limit)

	s.saveCache(ctx, cacheKey, res)

	return res, nil
}

func (s *serviceImpl) Summarize(ctx context.Context, period dto.Period) (res dto.SummaryResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Summarize")
	defer scope.End()
	defer scope.TraceIfError(err)

	if _, _, err = period.Bounds(); err != nil {
		return res, err
	}

	cacheKey := shared.BuildGenerationCacheKey(ctx, s.cache, cacheLedgerSummary, period.From, period.To)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for ledger summary")

		return res, nil
	}

	types := []model.EntryType{model.TypeCommission, model.TypePayout, model.TypeSpend, model.TypeAdjustment}
	sums := make([]int64, len(types))

	for i, entryType := range types {
		group, err := period.ToFilterGroup(entryType)
		if err != nil {
			return res, err
		}

		sums[i], err = s.repo.Sum(ctx, model.FieldAmount, group)
		if err != nil {
			log.Error().Err(err).Str("type", string(entryType)).Msg("failed to sum ledger entries")

			return res, fmt.Errorf("failed to sum %s entries: %w", entryType, err)
		}
	}

	res.FromSums(period, sums[0], sums[1], sums[2], sums[3])

	s.saveCache(ctx, cacheKey, res)

	return res, nil
}

func (s *serviceImpl) ComputeHostBalance(ctx context.Context, hostID string) (res dto.HostBalanceResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ComputeHostBalance")
	defer scope.End()
	defer scope.TraceIfError(err)

	actor := gDto.ActorFromContext(ctx)
	if !actor.IsAdmin() && !actor.IsSystem() && !actor.Is(hostID) {
		return res, failure.ResourceRestrictedError
	}

	paid := gDto.And(
		gDto.Filter{Field: bookingModel.FieldHostID, Value: hostID, Operator: gDto.FilterOperatorEq, Table: bookingModel.TableName},
		gDto.Filter{Field: bookingModel.FieldStatus, Value: bookingModel.StatusConfirmed, Operator: gDto.FilterOperatorEq, Table: bookingModel.TableName},
		gDto.Filter{Field: bookingModel.FieldPaymentStatus, Value: bookingModel.PaymentPaid, Operator: gDto.FilterOperatorEq, Table: bookingModel.TableName},
	)

	total, err := s.bookingRepo.Sum(ctx, bookingModel.FieldTotalAmount, paid)
	if err != nil {
		log.Error().Err(err).Str("hostID", hostID).Msg("failed to sum host bookings")

		return res, fmt.Errorf("failed to sum host bookings: %w", err)
	}

	commission, err := s.bookingRepo.Sum(ctx, bookingModel.FieldCommissionAmount, paid)
	if err != nil {
		log.Error().Err(err).Str("hostID", hostID).Msg("failed to sum host commission")

		return res, fmt.Errorf("failed to sum host commission: %w", err)
	}

	res.HostID = hostID
	res.Earnings = total - commission

	if res.ApprovedPayouts, err = s.sumPayouts(ctx, hostID, payoutModel.StatusApproved); err != nil {
		return res, err
	}

	if res.PendingPayouts, err = s.sumPayouts(ctx, hostID, payoutModel.StatusPending); err != nil {
		return res, err
	}

	res.Balance = res.Earnings - res.ApprovedPayouts - res.PendingPayouts

	return res, nil
}

func (s *serviceImpl) sumPayouts(ctx context.Context, hostID string, status payoutModel.Status) (int64, error) {
	filter := gDto.And(
		gDto.Filter{Field: payoutModel.FieldHostID, Value: hostID, Operator: gDto.FilterOperatorEq, Table: payoutModel.TableName},
		gDto.Filter{Field: payoutModel.FieldStatus, Value: status, Operator: gDto.FilterOperatorEq, Table: payoutModel.TableName},
	)

	sum, err := s.payoutRepo.Sum(ctx, payoutModel.FieldAmount, filter)
	if err != nil {
		log.Error().Err(err).Str("hostID", hostID).Str("status", string(status)).Msg("failed to sum payouts")

		return 0, fmt.Errorf("failed to sum %s payouts: %w", status, err)
	}

	return sum, nil
}

func (s *serviceImpl) PostSpend(ctx context.Context, req dto.PostSpendRequest) (res dto.EntryResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".PostSpend")
	defer scope.End()
	defer scope.TraceIfError(err)

	if !gDto.ActorFromContext(ctx).IsAdmin() {
		return res, failure.ForbiddenError
	}

	entry, err := s.Post(ctx, req.ToModel())
	if err != nil {
		return res, err
	}

	res.FromModel(entry)

	return res, nil
}

func (s *serviceImpl) PostAdjustment(ctx context.Context, req dto.PostAdjustmentRequest) (res dto.EntryResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".PostAdjustment")
	defer scope.End()
	defer scope.TraceIfError(err)

	if !gDto.ActorFromContext(ctx).IsAdmin() {
		return res, failure.ForbiddenError
	}

	entry, err := s.Post(ctx, req.ToModel())
	if err != nil {
		return res, err
	}

	res.FromModel(entry)

	return res, nil
}

func (s *serviceImpl) Export(ctx context.Context, filter dto.EntryFilter) (res dto.ExportResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Export")
	defer scope.End()
	defer scope.TraceIfError(err)

	group, err := filter.ToFilterGroup()
	if err != nil {
		return res, err
	}

	models, err := s.repo.GetAll(ctx, gDto.QueryParams{SortBy: model.FieldPostedAt, SortDir: gDto.SortDirAsc}, group)
	if err != nil {
		log.Error().Err(err).Msg("failed to get ledger entries for export")

		return res, fmt.Errorf("failed to get ledger entries: %w", err)
	}

	data, err := writeStatement(models)
	if err != nil {
		log.Error().Err(err).Msg("failed to write ledger statement")

		return res, fmt.Errorf("failed to write ledger statement: %w", err)
	}

	fileName := fmt.Sprintf("statement-%s-%s.csv", timezone.Now().Format(exportDateLayout), uuid.NewString()[:8])

	url, err := s.storage.UploadFileBytes(ctx, constant.Empty, s.cfg.Ledger.ExportDirectory, fileName, constant.ContentTypeCSV, data)
	if err != nil {
		log.Error().Err(err).Str("fileName", fileName).Msg("failed to upload ledger statement")

		return res, fmt.Errorf("failed to upload ledger statement: %w", err)
	}

	res.URL = url
	res.Entries = len(models)

	return res, nil
}

func writeStatement(entries []model.LedgerEntry) ([]byte, error) {
	var buf bytes.Buffer

	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeader); err != nil {
		return nil, err
	}

	for _, entry := range entries {
		var row dto.EntryResponse
		row.FromModel(entry)

		record := []string{
			row.ID,
			row.Type,
			row.ReferencedBookingID,
			row.ReferencedPayoutID,
			strconv.FormatInt(row.Amount, 10),
			row.Note,
			row.PostedAt,
			row.PostedBy,
		}

		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()

	return buf.Bytes(), writer.Error()
}

func (s *serviceImpl) saveCache(ctx context.Context, key string, value any) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, key, value, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Str("cacheKey", key).Msg("failed to save to cache")
		}
	}()
}
