package payout_test

import (
	"context"
	"encoding/json"
	"testing"
	"thakajabe/config"
	"thakajabe/infras/kafka"
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
	"thakajabe/internal/workers/payout"
	"thakajabe/shared/cache"
	cacheMocks "thakajabe/shared/cache/mocks"
	"thakajabe/shared/constant"
	gDto "thakajabe/shared/dto"
	"thakajabe/shared/event"
	"thakajabe/shared/timezone"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	worker  *payout.Worker
	broker  *memory.Broker
	payouts service.Payout
	entries ledgerRepo.Ledger
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
	cfg.Kafka.ConsumerGroup = "thakajabe-payouts"

	store := memory.NewStore()
	broker := memory.NewBroker()
	otl := mocks.NewOtel()

	bookings := bookingRepo.NewMemory(store)
	entries := ledgerRepo.NewMemory(store)
	repo := repository.NewMemory(store)

	checkIn := timezone.Now().AddDate(0, 0, -5)
	require.NoError(t, bookings.Insert(context.Background(), bookingModel.Booking{
		ID:               "b-1",
		RoomID:           "room-1",
		GuestID:          "guest-1",
		HostID:           "host-1",
		CheckIn:          checkIn,
		CheckOut:         checkIn.AddDate(0, 0, 2),
		Mode:             bookingModel.ModeInstant,
		Status:           bookingModel.StatusConfirmed,
		PaymentStatus:    bookingModel.PaymentPaid,
		TotalAmount:      10000,
		CommissionAmount: 1000,
		TransactionRef:   "TKJ-SEED-1",
	}))

	ledger := ledgerService.New(entries, bookings, repo, nil, event.NewPublisher(broker, cfg), cfg, mockCache, otl)
	payouts := service.New(repo, ledger, store, cfg, mockCache, otl)

	return fixture{
		worker:  payout.New(broker, payouts, cfg, otl),
		broker:  broker,
		payouts: payouts,
		entries: entries,
	}
}

func (f fixture) request(t *testing.T, amount int64) string {
	t.Helper()

	ctx := gDto.WithActor(context.Background(), gDto.Actor{UserID: "host-1", Role: constant.RoleHost})

	res, err := f.payouts.Request(ctx, dto.RequestPayoutRequest{Amount: amount})
	require.NoError(t, err)

	return res.ID
}

func (f fixture) payoutEntries(t *testing.T) int {
	t.Helper()

	count, err := f.entries.Count(context.Background(), gDto.And(
		gDto.Filter{Field: ledgerModel.FieldType, Value: ledgerModel.TypePayout, Operator: gDto.FilterOperatorEq, Table: ledgerModel.TableName},
	))
	require.NoError(t, err)

	return count
}

func approvedMessage(t *testing.T, data any) kafkaGo.Message {
	t.Helper()

	payload, err := json.Marshal(data)
	require.NoError(t, err)

	value, err := json.Marshal(event.Envelope{
		EventID:       "evt-1",
		EventType:     constant.TopicPayoutApproved,
		SchemaVersion: "v1",
		Data:          payload,
	})
	require.NoError(t, err)

	return kafkaGo.Message{Topic: constant.TopicPayoutApproved, Value: value}
}

func TestWorker_Handle(t *testing.T) {
	f := newFixture(t)
	id := f.request(t, 4000)

	msg := approvedMessage(t, dto.PayoutApprovedEvent{PayoutID: id, Reference: "bank-77"})

	require.NoError(t, f.worker.Handle(context.Background(), msg))
	// redelivery is harmless
	require.NoError(t, f.worker.Handle(context.Background(), msg))

	ctx := gDto.WithActor(context.Background(), gDto.Actor{UserID: "admin-1", Role: constant.RoleAdmin})

	res, err := f.payouts.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusApproved), res.Status)
	assert.Equal(t, 1, f.payoutEntries(t))
}

func TestWorker_HandleCommitsUnusableMessages(t *testing.T) {
	f := newFixture(t)

	rejected := f.request(t, 1000)
	admin := gDto.WithActor(context.Background(), gDto.Actor{UserID: "admin-1", Role: constant.RoleAdmin})
	_, err := f.payouts.Reject(admin, rejected)
	require.NoError(t, err)

	tests := []struct {
		name string
		msg  kafkaGo.Message
	}{
		{name: "not json", msg: kafkaGo.Message{Value: []byte("{")}},
		{name: "payload not an object", msg: approvedMessage(t, "oops")},
		{name: "missing payout id", msg: approvedMessage(t, dto.PayoutApprovedEvent{Reference: "bank-1"})},
		{name: "unknown payout", msg: approvedMessage(t, dto.PayoutApprovedEvent{PayoutID: "missing"})},
		{name: "already rejected", msg: approvedMessage(t, dto.PayoutApprovedEvent{PayoutID: rejected})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, f.worker.Handle(context.Background(), tt.msg))
		})
	}

	assert.Equal(t, 0, f.payoutEntries(t))
}

func TestWorker_Run(t *testing.T) {
	f := newFixture(t)
	id := f.request(t, 2500)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		f.worker.Run(ctx)
		close(done)
	}()

	// the consumer subscribes asynchronously, so keep sending until it has applied one
	assert.Eventually(t, func() bool {
		err := f.broker.SendMessages(context.Background(), constant.TopicPayoutApproved, kafka.Message{
			Key: id,
			Value: event.Envelope{
				EventID:   "evt-run",
				EventType: constant.TopicPayoutApproved,
				Data:      json.RawMessage(`{"payout_id":"` + id + `","reference":"bank-9"}`),
			},
		})
		require.NoError(t, err)

		return f.payoutEntries(t) == 1
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, 1, f.payoutEntries(t))
}
