package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(d int) time.Time {
	return time.Date(2024, time.June, d, 0, 0, 0, 0, time.UTC)
}

func TestPeakUsage(t *testing.T) {
	booked := []Booking{{Start: day(10), End: day(12), Quantity: 3}}

	assert.Equal(t, 3, PeakUsage(booked, day(11), day(13)))
	assert.Equal(t, 0, PeakUsage(booked, day(13), day(15)))
	assert.Equal(t, 3, PeakUsage(booked, day(12), day(12)), "end day is still occupied")

	withNew := append(booked, Booking{Start: day(12), End: day(14), Quantity: 3})
	assert.Equal(t, 6, PeakUsage(withNew, day(12), day(14)))

	staggered := []Booking{
		{Start: day(1), End: day(2), Quantity: 2},
		{Start: day(3), End: day(4), Quantity: 2},
	}
	assert.Equal(t, 2, PeakUsage(staggered, day(1), day(4)), "non-overlapping bookings do not stack")
}

func TestPeakUsage_TimeOfDayIgnored(t *testing.T) {
	afternoon := day(10).Add(15 * time.Hour)
	morning := day(12).Add(9 * time.Hour)
	booked := []Booking{{Start: afternoon, End: morning, Quantity: 2}}

	assert.Equal(t, 2, PeakUsage(booked, day(10).Add(8*time.Hour), day(10).Add(9*time.Hour)))
	assert.Equal(t, 2, PeakUsage(booked, day(12).Add(20*time.Hour), day(13)))
}

func TestBillableDays(t *testing.T) {
	assert.Equal(t, 1, BillableDays(day(10), day(10)), "same day bills one day")
	assert.Equal(t, 1, BillableDays(day(10), day(10).Add(3*time.Hour)))
	assert.Equal(t, 2, BillableDays(day(10), day(12)))
	assert.Equal(t, 3, BillableDays(day(10), day(12).Add(23*time.Hour)))
	assert.Equal(t, 3, BillableDays(day(10), day(12).Add(time.Minute)), "partial days round up")
}

func TestCheckRange(t *testing.T) {
	assert.NoError(t, checkRange(day(10), day(10)))
	assert.ErrorIs(t, checkRange(day(11), day(10)), ErrValidation)
	assert.ErrorIs(t, checkRange(time.Time{}, day(10)), ErrValidation)
}
