package inventory

import (
	"context"
	"time"

	"go-rental-ledger/internal/models"
)

// Booking is the part of a rental line the availability scan needs.
type Booking struct {
	Start    time.Time
	End      time.Time
	Quantity int
}

type Availability struct {
	RentalItemID       uint      `json:"rental_item_id"`
	Name               string    `json:"name"`
	TotalStock         int       `json:"total_stock"`
	MaxConcurrentUsage int       `json:"max_concurrent_usage"`
	AvailableStock     int       `json:"available_stock"`
	RequestedStart     time.Time `json:"requested_start"`
	RequestedEnd       time.Time `json:"requested_end"`
}

// RentalAvailabilityCalculator answers how many units of a rental asset are
// free over a range of days.
type RentalAvailabilityCalculator struct {
	uow UnitOfWork
}

// StartOfDay is midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay is the last nanosecond of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// BillableDays is the number of days charged for a rental from start to end:
// the elapsed time in days, rounded up, and never less than one. Times are
// compared on the wall clock of start's location so a DST change does not add
// or remove a day.
func BillableDays(start, end time.Time) int {
	elapsed := wallClock(end.In(start.Location())).Sub(wallClock(start))
	days := int((elapsed + 24*time.Hour - 1) / (24 * time.Hour))
	return max(1, days)
}

func wallClock(t time.Time) time.Time {
	y, m, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, m, d, h, mi, s, t.Nanosecond(), time.UTC)
}

// PeakUsage is the largest number of units booked on any single day of
// [start, end]. A booking occupies every whole day from its start day to its
// end day, judged in start's location.
func PeakUsage(bookings []Booking, start, end time.Time) int {
	loc := start.Location()
	first := StartOfDay(start)
	last := StartOfDay(end.In(loc))

	type span struct {
		from, to time.Time
		qty      int
	}
	spans := make([]span, 0, len(bookings))
	for _, b := range bookings {
		spans = append(spans, span{
			from: StartOfDay(b.Start.In(loc)),
			to:   EndOfDay(b.End.In(loc)),
			qty:  b.Quantity,
		})
	}

	peak := 0
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		usage := 0
		for _, s := range spans {
			if !day.Before(s.from) && !day.After(s.to) {
				usage += s.qty
			}
		}
		if usage > peak {
			peak = usage
		}
	}
	return peak
}

func checkRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return Validation("rental start and end dates are required")
	}
	if StartOfDay(end.In(start.Location())).Before(StartOfDay(start)) {
		return Validation("rental end date %s is before start date %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return nil
}

func bookingsOf(lines []models.SaleLineItem) []Booking {
	bookings := make([]Booking, 0, len(lines))
	for _, line := range lines {
		if line.RentalStartDate == nil || line.RentalEndDate == nil {
			continue
		}
		bookings = append(bookings, Booking{
			Start:    *line.RentalStartDate,
			End:      *line.RentalEndDate,
			Quantity: int(line.Quantity.IntPart()),
		})
	}
	return bookings
}

type bookingLoader func(rentalItemID uint, from, to time.Time) ([]models.SaleLineItem, error)

// activeBookings loads the unreturned bookings near [start, end]. The window is
// padded by a day either side for bookings stored in another zone; PeakUsage
// does the exact day matching.
func activeBookings(load bookingLoader, rentalItemID uint, start, end time.Time) ([]Booking, error) {
	from := StartOfDay(start).AddDate(0, 0, -1)
	to := EndOfDay(end.In(start.Location())).AddDate(0, 0, 1)
	lines, err := load(rentalItemID, from, to)
	if err != nil {
		return nil, err
	}
	return bookingsOf(lines), nil
}

func (c *RentalAvailabilityCalculator) Availability(ctx context.Context, rentalItemID uint, start, end time.Time) (*Availability, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	var result *Availability
	err := c.uow.Do(ctx, func(repo Repository) error {
		item, err := repo.GetRentalItem(rentalItemID)
		if err != nil {
			return err
		}
		bookings, err := activeBookings(repo.ActiveBookings, rentalItemID, start, end)
		if err != nil {
			return err
		}
		peak := PeakUsage(bookings, start, end)
		result = &Availability{
			RentalItemID:       item.ID,
			Name:               item.Name,
			TotalStock:         item.TotalStock,
			MaxConcurrentUsage: peak,
			AvailableStock:     max(0, item.TotalStock-peak),
			RequestedStart:     start,
			RequestedEnd:       end,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
