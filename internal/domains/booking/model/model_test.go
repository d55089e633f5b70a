package model_test

import (
	"math/rand/v2"
	"testing"
	"thakajabe/internal/domains/booking/model"
	"time"

	"github.com/stretchr/testify/assert"
)

var day0 = time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return day0.Add(time.Duration(n) * 24 * time.Hour)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		a1, a2   time.Time
		b1, b2   time.Time
		expected bool
	}{
		{name: "identical", a1: day(0), a2: day(3), b1: day(0), b2: day(3), expected: true},
		{name: "contained", a1: day(0), a2: day(5), b1: day(1), b2: day(2), expected: true},
		{name: "partial left", a1: day(0), a2: day(3), b1: day(2), b2: day(4), expected: true},
		{name: "partial right", a1: day(2), a2: day(4), b1: day(0), b2: day(3), expected: true},
		{name: "back to back", a1: day(0), a2: day(3), b1: day(3), b2: day(5), expected: false},
		{name: "back to back reversed", a1: day(3), a2: day(5), b1: day(0), b2: day(3), expected: false},
		{name: "disjoint", a1: day(0), a2: day(1), b1: day(4), b2: day(6), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, model.Overlaps(tt.a1, tt.a2, tt.b1, tt.b2))
		})
	}
}

func TestOverlapsIsSymmetric(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for range 1000 {
		a1 := rng.IntN(30)
		a2 := a1 + 1 + rng.IntN(10)
		b1 := rng.IntN(30)
		b2 := b1 + 1 + rng.IntN(10)

		got := model.Overlaps(day(a1), day(a2), day(b1), day(b2))

		// two integer ranges overlap iff some night belongs to both
		expected := false
		for n := a1; n < a2; n++ {
			if n >= b1 && n < b2 {
				expected = true
			}
		}

		assert.Equal(t, expected, got, "a=[%d,%d) b=[%d,%d)", a1, a2, b1, b2)
		assert.Equal(t, got, model.Overlaps(day(b1), day(b2), day(a1), day(a2)))
	}
}

func TestNights(t *testing.T) {
	assert.Equal(t, 3, model.Nights(day(0), day(3)))
	assert.Equal(t, 1, model.Nights(day(0), day(0).Add(time.Hour)))
	assert.Equal(t, 2, model.Nights(day(0), day(1).Add(time.Minute)))
	assert.Equal(t, 0, model.Nights(day(1), day(0)))
}

func TestCanTransitionTo(t *testing.T) {
	pending := model.Booking{Status: model.StatusPending}
	confirmed := model.Booking{Status: model.StatusConfirmed}
	cancelled := model.Booking{Status: model.StatusCancelled}
	rejected := model.Booking{Status: model.StatusRejected}

	assert.True(t, pending.CanTransitionTo(model.StatusConfirmed))
	assert.True(t, pending.CanTransitionTo(model.StatusRejected))
	assert.True(t, pending.CanTransitionTo(model.StatusCancelled))
	assert.True(t, confirmed.CanTransitionTo(model.StatusCancelled))
	assert.False(t, confirmed.CanTransitionTo(model.StatusRejected))
	assert.False(t, cancelled.CanTransitionTo(model.StatusConfirmed))
	assert.False(t, rejected.CanTransitionTo(model.StatusCancelled))

	assert.True(t, pending.IsActive())
	assert.True(t, confirmed.IsActive())
	assert.False(t, cancelled.IsActive())
}

func TestHostEarning(t *testing.T) {
	booking := model.Booking{TotalAmount: 9000, CommissionAmount: 900}

	assert.Equal(t, int64(8100), booking.HostEarning())
}
