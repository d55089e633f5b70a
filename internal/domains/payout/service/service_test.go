package service_test

import (
	"context"
	"sync"
	"testing"
	"thakajabe/config"
	"thakajabe/infras/memory"
	"thakajabe/infras/otel/mocks"
	bookingModel "thakajabe/internal/domains/booking/model"
	bookingRepo "thakajabe/internal/domains/booking/repository"
	ledgerModel "thakajabe/internal/domains/ledger/model"
	ledgerRepo "thakajabe/internal/domains/ledger/repository"
	ledgerService "thakajabe/internal/domains/ledger/service"
	"thakajabe/internal/domains/payout/model"
	"thakajabe/internal/domains/payout/model/dto"
	"thakajabe/internal/domains/payout/repository"
	"thakajabe/internal/domains/payout/service"
	"thakajabe/shared/cache"
	cacheMocks "thakajabe/shared/cache/mocks"
	"thakajabe/shared/constant"
	gDto "thakajabe/shared/dto"
	"thakajabe/shared/event"
	"thakajabe/shared/failure"
	"thakajabe/shared/timezone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const hostID = "host-1"

type fixture struct {
	svc           service.Payout
	ledger        ledgerService.Ledger
	repo          repository.Payout
	ledgerEntries ledgerRepo.Ledger
	locks         *lockRecorder
}

// lockRecorder remembers every key locked through the store.
type lockRecorder struct {
	*memory.Store

	mu   sync.Mutex
	keys []string
}

func (l *lockRecorder) Lock(ctx context.Context, key string) error {
	l.mu.Lock()
	l.keys = append(l.keys, key)
	l.mu.Unlock()

	return l.Store.Lock(ctx, key)
}

func (l *lockRecorder) locked() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.keys...)
}

// newFixture gives hostID earnings of 9000 from one paid booking.
func newFixture(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(cache.Nil).AnyTimes()
	mockCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mockCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	cfg := &config.Config{}
	cfg.App.Name = "thakajabe-test"

	store := memory.NewStore()
	otl := mocks.NewOtel()
	publisher := event.NewPublisher(memory.NewBroker(), cfg)

	bookings := bookingRepo.NewMemory(store)
	entries := ledgerRepo.NewMemory(store)
	repo := repository.NewMemory(store)

	checkIn := timezone.Now().AddDate(0, 0, -5)
	require.NoError(t, bookings.Insert(context.Background(), bookingModel.Booking{
		ID:               "b-1",
		RoomID:           "room-1",
		GuestID:          "guest-1",
		HostID:           hostID,
		CheckIn:          checkIn,
		CheckOut:         checkIn.AddDate(0, 0, 2),
		Mode:             bookingModel.ModeInstant,
		Status:           bookingModel.StatusConfirmed,
		PaymentStatus:    bookingModel.PaymentPaid,
		TotalAmount:      10000,
		CommissionAmount: 1000,
		TransactionRef:   "TKJ-SEED-1",
	}))

	ledger := ledgerService.New(entries, bookings, repo, nil, publisher, cfg, mockCache, otl)
	locks := &lockRecorder{Store: store}

	return fixture{
		svc:           service.New(repo, ledger, locks, cfg, mockCache, otl),
		ledger:        ledger,
		repo:          repo,
		ledgerEntries: entries,
		locks:         locks,
	}
}

func as(userID, role string) context.Context {
	return gDto.WithActor(context.Background(), gDto.Actor{UserID: userID, Role: role})
}

func (f fixture) payoutEntries(t *testing.T) []ledgerModel.LedgerEntry {
	t.Helper()

	entries, err := f.ledgerEntries.GetAll(context.Background(), gDto.QueryParams{}, gDto.And(gDto.Filter{
		Field:    ledgerModel.FieldType,
		Value:    ledgerModel.TypePayout,
		Operator: gDto.FilterOperatorEq,
	}))
	require.NoError(t, err)

	return entries
}

func TestPayoutService_Request(t *testing.T) {
	f := newFixture(t)
	host := as(hostID, constant.RoleHost)

	_, err := f.svc.Request(as("guest-1", constant.RoleGuest), dto.RequestPayoutRequest{Amount: 100})
	assert.True(t, failure.Is(err, failure.KindForbidden))

	_, err = f.svc.Request(host, dto.RequestPayoutRequest{Amount: 0})
	assert.True(t, failure.Is(err, failure.KindValidation))

	_, err = f.svc.Request(host, dto.RequestPayoutRequest{Amount: 9001})
	assert.True(t, failure.Is(err, failure.KindValidation))

	res, err := f.svc.Request(host, dto.RequestPayoutRequest{Amount: 6000, Note: "march"})
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusPending), res.Status)
	assert.Equal(t, hostID, res.HostID)

	_, err = f.svc.Request(host, dto.RequestPayoutRequest{Amount: 3001})
	assert.True(t, failure.Is(err, failure.KindValidation), "pending requests hold their amount")

	_, err = f.svc.Request(host, dto.RequestPayoutRequest{Amount: 3000})
	assert.NoError(t, err)

	balance, err := f.ledger.ComputeHostBalance(host, hostID)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), balance.Earnings)
	assert.Equal(t, int64(9000), balance.PendingPayouts)
	assert.Zero(t, balance.Balance)
}

func TestPayoutService_ConcurrentRequests(t *testing.T) {
	f := newFixture(t)
	host := as(hostID, constant.RoleHost)

	const attempts = 10

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)

	for range attempts {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := f.svc.Request(host, dto.RequestPayoutRequest{Amount: 4000})
			if err != nil {
				assert.True(t, failure.Is(err, failure.KindValidation), err.Error())

				return
			}

			mu.Lock()
			accepted++
			mu.Unlock()
		}()
	}

	wg.Wait()

	assert.Equal(t, 2, accepted)

	balance, err := f.ledger.ComputeHostBalance(host, hostID)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), balance.PendingPayouts)
	assert.LessOrEqual(t, balance.PendingPayouts+balance.ApprovedPayouts, balance.Earnings)

	locked := f.locks.locked()
	require.Len(t, locked, attempts)

	for _, key := range locked {
		assert.Equal(t, "payout:host:"+hostID, key)
	}
}

func TestPayoutService_Approve(t *testing.T) {
	f := newFixture(t)
	admin := as("admin-1", constant.RoleAdmin)

	requested, err := f.svc.Request(as(hostID, constant.RoleHost), dto.RequestPayoutRequest{Amount: 4000})
	require.NoError(t, err)

	_, err = f.svc.Approve(as(hostID, constant.RoleHost), requested.ID)
	assert.True(t, failure.Is(err, failure.KindForbidden))

	approved, err := f.svc.Approve(admin, requested.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusApproved), approved.Status)
	assert.Equal(t, "admin-1", approved.DecidedBy)

	again, err := f.svc.Approve(as("payout-processor", constant.RoleSystem), requested.ID)
	require.NoError(t, err)
	assert.Equal(t, approved.DecidedBy, again.DecidedBy)

	entries := f.payoutEntries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(-4000), entries[0].Amount)
	assert.Equal(t, requested.ID, *entries[0].ReferencedPayoutID)

	_, err = f.svc.Reject(admin, requested.ID)
	assert.True(t, failure.Is(err, failure.KindState))

	balance, err := f.ledger.ComputeHostBalance(admin, hostID)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), balance.ApprovedPayouts)
	assert.Equal(t, int64(5000), balance.Balance)

	_, err = f.svc.Approve(admin, "missing")
	assert.True(t, failure.Is(err, failure.KindNotFound))
}

func TestPayoutService_ConcurrentApprove(t *testing.T) {
	f := newFixture(t)

	requested, err := f.svc.Request(as(hostID, constant.RoleHost), dto.RequestPayoutRequest{Amount: 2500})
	require.NoError(t, err)

	var wg sync.WaitGroup

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := f.svc.Approve(as("payout-processor", constant.RoleSystem), requested.ID)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Len(t, f.payoutEntries(t), 1)
}

func TestPayoutService_Reject(t *testing.T) {
	f := newFixture(t)
	admin := as("admin-1", constant.RoleAdmin)

	requested, err := f.svc.Request(as(hostID, constant.RoleHost), dto.RequestPayoutRequest{Amount: 9000})
	require.NoError(t, err)

	rejected, err := f.svc.Reject(admin, requested.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusRejected), rejected.Status)

	_, err = f.svc.Approve(admin, requested.ID)
	assert.True(t, failure.Is(err, failure.KindState))
	assert.Empty(t, f.payoutEntries(t))

	balance, err := f.ledger.ComputeHostBalance(admin, hostID)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), balance.Balance)
}

func TestPayoutService_GetAll(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Request(as(hostID, constant.RoleHost), dto.RequestPayoutRequest{Amount: 1000})
	require.NoError(t, err)

	res, err := f.svc.GetAll(as("host-2", constant.RoleHost), gDto.QueryParams{}, dto.PayoutFilter{HostID: hostID})
	require.NoError(t, err)
	assert.Zero(t, res.TotalData, "hosts only see their own requests")

	res, err = f.svc.GetAll(as("admin-1", constant.RoleAdmin), gDto.QueryParams{}, dto.PayoutFilter{Status: string(model.StatusPending)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalData)

	_, err = f.svc.Get(as("host-2", constant.RoleHost), res.Payouts[0].ID)
	assert.True(t, failure.Is(err, failure.KindForbidden))
}
