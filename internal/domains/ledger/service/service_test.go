package service_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"testing"
	"thakajabe/config"
	"thakajabe/infras/memory"
	"thakajabe/infras/otel/mocks"
	s3Mocks "thakajabe/infras/s3/mocks"
	bookingRepo "thakajabe/internal/domains/booking/repository"
	"thakajabe/internal/domains/ledger/model"
	"thakajabe/internal/domains/ledger/model/dto"
	"thakajabe/internal/domains/ledger/repository"
	"thakajabe/internal/domains/ledger/service"
	payoutRepo "thakajabe/internal/domains/payout/repository"
	"thakajabe/shared/cache"
	cacheMocks "thakajabe/shared/cache/mocks"
	"thakajabe/shared/constant"
	gDto "thakajabe/shared/dto"
	"thakajabe/shared/event"
	"thakajabe/shared/failure"
	"thakajabe/shared/timezone"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	svc     service.Ledger
	repo    repository.Ledger
	storage *s3Mocks.MockS3
	broker  *memory.Broker
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(cache.Nil).AnyTimes()
	mockCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mockCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	cfg := &config.Config{}
	cfg.App.Name = "thakajabe-test"
	cfg.Ledger.ExportDirectory = "statements"

	store := memory.NewStore()
	broker := memory.NewBroker()
	storage := s3Mocks.NewMockS3(ctrl)
	repo := repository.NewMemory(store)

	svc := service.New(repo, bookingRepo.NewMemory(store), payoutRepo.NewMemory(store), storage,
		event.NewPublisher(broker, cfg), cfg, mockCache, mocks.NewOtel())

	return fixture{svc: svc, repo: repo, storage: storage, broker: broker}
}

func admin() context.Context {
	return gDto.WithActor(context.Background(), gDto.Actor{UserID: "admin-1", Role: constant.RoleAdmin})
}

func TestLedgerService_PostValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		entry model.LedgerEntry
		kind  failure.Kind
	}{
		{
			name:  "commission without booking",
			entry: model.LedgerEntry{Type: model.TypeCommission, Amount: 500},
			kind:  failure.KindValidation,
		},
		{
			name:  "negative commission",
			entry: model.LedgerEntry{Type: model.TypeCommission, ReferencedBookingID: model.BookingRef("b-1"), Amount: -500},
			kind:  failure.KindValidation,
		},
		{
			name:  "positive payout",
			entry: model.LedgerEntry{Type: model.TypePayout, ReferencedPayoutID: model.PayoutRef("p-1"), Amount: 500},
			kind:  failure.KindValidation,
		},
		{
			name:  "payout without request",
			entry: model.LedgerEntry{Type: model.TypePayout, Amount: -500},
			kind:  failure.KindValidation,
		},
		{
			name:  "spend with a reference",
			entry: model.LedgerEntry{Type: model.TypeSpend, ReferencedBookingID: model.BookingRef("b-1"), Amount: -500},
			kind:  failure.KindValidation,
		},
		{
			name:  "zero adjustment",
			entry: model.LedgerEntry{Type: model.TypeAdjustment},
			kind:  failure.KindValidation,
		},
		{
			name:  "unknown type",
			entry: model.LedgerEntry{Type: "bonus", Amount: 1},
			kind:  failure.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Post(admin(), tt.entry)

			require.Error(t, err)
			assert.Equal(t, tt.kind, failure.GetKind(err))
		})
	}

	count, err := f.repo.Count(context.Background(), gDto.FilterGroup{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLedgerService_PostOncePerReference(t *testing.T) {
	f := newFixture(t)

	commission := model.LedgerEntry{Type: model.TypeCommission, ReferencedBookingID: model.BookingRef("b-1"), Amount: 1000}

	posted, err := f.svc.Post(admin(), commission)
	require.NoError(t, err)
	assert.NotEmpty(t, posted.ID)
	assert.Equal(t, "admin-1", posted.PostedBy)
	assert.False(t, posted.PostedAt.IsZero())

	_, err = f.svc.Post(admin(), commission)
	assert.True(t, failure.Is(err, failure.KindConflict))

	refund := model.LedgerEntry{Type: model.TypeAdjustment, ReferencedBookingID: model.BookingRef("b-1"), Amount: -10000}

	_, err = f.svc.Post(admin(), refund)
	require.NoError(t, err)

	_, err = f.svc.Post(admin(), refund)
	assert.True(t, failure.Is(err, failure.KindConflict))

	_, err = f.svc.Post(admin(), model.LedgerEntry{Type: model.TypeAdjustment, Amount: 250, Note: "rounding"})
	require.NoError(t, err)

	_, err = f.svc.Post(admin(), model.LedgerEntry{Type: model.TypeAdjustment, Amount: 250, Note: "rounding again"})
	assert.NoError(t, err, "unreferenced adjustments are not limited")

	assert.Eventually(t, func() bool {
		return len(f.broker.Sent(constant.TopicLedgerEntryPosted)) == 4
	}, time.Second, 10*time.Millisecond)
}

func TestLedgerService_ConcurrentCommission(t *testing.T) {
	f := newFixture(t)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := f.svc.Post(context.Background(), model.LedgerEntry{
				Type:                model.TypeCommission,
				ReferencedBookingID: model.BookingRef("b-1"),
				Amount:              1000,
				PostedBy:            constant.RoleSystem,
			})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, accepted)
}

func TestLedgerService_Summarize(t *testing.T) {
	f := newFixture(t)
	ctx := admin()

	entries := []model.LedgerEntry{
		{Type: model.TypeCommission, ReferencedBookingID: model.BookingRef("b-1"), Amount: 1500},
		{Type: model.TypeCommission, ReferencedBookingID: model.BookingRef("b-2"), Amount: 500},
		{Type: model.TypePayout, ReferencedPayoutID: model.PayoutRef("p-1"), Amount: -700},
		{Type: model.TypeSpend, Amount: -300},
		{Type: model.TypeAdjustment, ReferencedBookingID: model.BookingRef("b-1"), Amount: -200},
		{Type: model.TypeAdjustment, Amount: 50},
	}

	for _, entry := range entries {
		_, err := f.svc.Post(ctx, entry)
		require.NoError(t, err)
	}

	res, err := f.svc.Summarize(ctx, dto.Period{})
	require.NoError(t, err)

	assert.Equal(t, int64(2000), res.TotalCommission)
	assert.Equal(t, int64(700), res.TotalPayouts)
	assert.Equal(t, int64(300), res.TotalSpend)
	assert.Equal(t, int64(-150), res.TotalAdjustments)
	assert.Equal(t, int64(850), res.NetIncome)

	today := timezone.Now().Format(constant.DateOnlyFormat)
	res, err = f.svc.Summarize(ctx, dto.Period{From: today, To: today})
	require.NoError(t, err)
	assert.Equal(t, int64(850), res.NetIncome)

	tomorrow := timezone.Now().AddDate(0, 0, 1).Format(constant.DateOnlyFormat)
	res, err = f.svc.Summarize(ctx, dto.Period{From: tomorrow})
	require.NoError(t, err)
	assert.Zero(t, res.NetIncome)

	_, err = f.svc.Summarize(ctx, dto.Period{From: tomorrow, To: today})
	assert.True(t, failure.Is(err, failure.KindValidation))
}

func TestLedgerService_ListEntries(t *testing.T) {
	f := newFixture(t)
	ctx := admin()

	for i := range 3 {
		_, err := f.svc.PostSpend(ctx, dto.PostSpendRequest{Amount: int64(100 * (i + 1)), Note: "hosting"})
		require.NoError(t, err)
	}

	_, err := f.svc.Post(ctx, model.LedgerEntry{Type: model.TypeCommission, ReferencedBookingID: model.BookingRef("b-9"), Amount: 900})
	require.NoError(t, err)

	res, err := f.svc.ListEntries(ctx, gDto.QueryParams{Page: 1, Limit: 2}, dto.EntryFilter{Type: string(model.TypeSpend)})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalData)
	assert.Equal(t, 2, res.TotalPage)
	assert.Len(t, res.Entries, 2)

	res, err = f.svc.ListEntries(ctx, gDto.QueryParams{}, dto.EntryFilter{BookingID: "b-9"})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, int64(900), res.Entries[0].Amount)

	before, err := f.svc.ListEntries(ctx, gDto.QueryParams{}, dto.EntryFilter{})
	require.NoError(t, err)

	_, err = f.svc.PostAdjustment(ctx, dto.PostAdjustmentRequest{Amount: 10, Note: "fx"})
	require.NoError(t, err)

	after, err := f.svc.ListEntries(ctx, gDto.QueryParams{}, dto.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, before.Entries, after.Entries[:len(before.Entries)], "posted entries never change")
}

func TestLedgerService_AdminOnly(t *testing.T) {
	f := newFixture(t)
	host := gDto.WithActor(context.Background(), gDto.Actor{UserID: "host-1", Role: constant.RoleHost})

	_, err := f.svc.PostSpend(host, dto.PostSpendRequest{Amount: 10, Note: "x"})
	assert.True(t, failure.Is(err, failure.KindForbidden))

	_, err = f.svc.PostAdjustment(host, dto.PostAdjustmentRequest{Amount: 10, Note: "x"})
	assert.True(t, failure.Is(err, failure.KindForbidden))

	_, err = f.svc.ComputeHostBalance(host, "host-2")
	assert.True(t, failure.Is(err, failure.KindForbidden))

	balance, err := f.svc.ComputeHostBalance(host, "host-1")
	require.NoError(t, err)
	assert.Zero(t, balance.Balance)
}

func TestLedgerService_Export(t *testing.T) {
	f := newFixture(t)
	ctx := admin()

	_, err := f.svc.PostSpend(ctx, dto.PostSpendRequest{Amount: 300, Note: "cleaning, linen"})
	require.NoError(t, err)

	_, err = f.svc.Post(ctx, model.LedgerEntry{Type: model.TypeCommission, ReferencedBookingID: model.BookingRef("b-1"), Amount: 1000})
	require.NoError(t, err)

	var uploaded []byte

	f.storage.EXPECT().
		UploadFileBytes(gomock.Any(), constant.Empty, "statements", gomock.Any(), constant.ContentTypeCSV, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, fileName, _ string, data []byte) (string, error) {
			assert.Contains(t, fileName, "statement-")
			uploaded = data

			return "https://cdn.example.com/statements/" + fileName, nil
		})

	res, err := f.svc.Export(ctx, dto.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Entries)
	assert.Contains(t, res.URL, "https://cdn.example.com/statements/statement-")

	records, err := csv.NewReader(bytes.NewReader(uploaded)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, "spend", records[1][1])
	assert.Equal(t, "-300", records[1][4])
	assert.Equal(t, "cleaning, linen", records[1][5])
	assert.Equal(t, "b-1", records[2][2])

	f.storage.EXPECT().
		UploadFileBytes(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.New("bucket unavailable"))

	_, err = f.svc.Export(ctx, dto.EntryFilter{})
	assert.Error(t, err)
}
