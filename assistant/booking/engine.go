// Package booking owns the availability ledger and the test-drive booking
// lifecycle. The in-process ledger is the sole authority on scheduling
// conflicts; the optional store is persistence of record only.
package booking

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/primeauto/concierge/assistant/catalog"
	contractx "github.com/primeauto/concierge/assistant/contract"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	defaultHorizonDays = 30
	firstBookingSeq    = 1000
)

type Booking struct {
	ID            string    `json:"booking_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	VehicleID     string    `json:"vehicle_id"`
	VehicleName   string    `json:"vehicle_name"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Duration      int       `json:"duration_minutes"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// CommitRequest carries everything needed to book a test drive. Duration is
// taken from the vehicle record, not the caller.
type CommitRequest struct {
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	VehicleID     string
	Date          string
	Time          string
}

// slot is one committed reservation window, held in absolute time so overlap
// never depends on string comparison.
type slot struct {
	start     time.Time
	end       time.Time
	bookingID string
}

type Engine struct {
	mu       sync.Mutex
	catalog  *catalog.Catalog
	store    Store
	notifier contractx.Notifier

	slots    map[string][]slot // vehicle id -> committed windows
	bookings []*Booking        // creation order
	byID     map[string]*Booking
	seq      int

	horizonDays int
	now         func() time.Time
}

type Option func(*Engine)

func WithStore(s Store) Option {
	return func(e *Engine) {
		if s != nil {
			e.store = s
		}
	}
}

func WithNotifier(n contractx.Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

func WithHorizonDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.horizonDays = days
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(cat *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:     cat,
		store:       MemoryStore{},
		slots:       make(map[string][]slot),
		byID:        make(map[string]*Booking),
		seq:         firstBookingSeq,
		horizonDays: defaultHorizonDays,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// CheckAvailability reports whether the window is free. It is advisory: the
// returned answer is computed against committed state at call time, and the
// commit path re-validates inside its own critical section.
// The empty string means available; otherwise the conflicting booking id.
func (e *Engine) CheckAvailability(vehicleID, date, start string, durationMinutes int) (string, error) {
	vehicle, err := e.catalog.FindByID(vehicleID)
	if err != nil {
		return "", fmt.Errorf("%w: invalid vehicle %q", contractx.ErrNotFound, vehicleID)
	}
	if durationMinutes <= 0 {
		durationMinutes = vehicle.TestDriveDuration
	}
	from, to, err := e.parseWindow(date, start, durationMinutes)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conflictLocked(vehicle.ID, from, to), nil
}

// Commit validates and books atomically: the availability check and the slot
// reservation happen in the same critical section that creates the Booking.
func (e *Engine) Commit(ctx context.Context, req CommitRequest) (Booking, error) {
	name := strings.TrimSpace(req.CustomerName)
	phone := strings.TrimSpace(req.CustomerPhone)
	if name == "" || phone == "" {
		return Booking{}, fmt.Errorf("%w: customer name and phone are required", contractx.ErrInvalidArguments)
	}

	vehicle, err := e.catalog.FindByID(req.VehicleID)
	if err != nil {
		return Booking{}, fmt.Errorf("%w: invalid vehicle %q", contractx.ErrNotFound, req.VehicleID)
	}

	from, to, err := e.parseWindow(req.Date, req.Time, vehicle.TestDriveDuration)
	if err != nil {
		return Booking{}, err
	}

	e.mu.Lock()
	if conflict := e.conflictLocked(vehicle.ID, from, to); conflict != "" {
		e.mu.Unlock()
		return Booking{}, fmt.Errorf("%w: overlaps booking %s", contractx.ErrSlotConflict, conflict)
	}

	e.seq++
	b := &Booking{
		ID:            fmt.Sprintf("TD-%d", e.seq),
		CustomerName:  name,
		CustomerPhone: phone,
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		VehicleID:     vehicle.ID,
		VehicleName:   vehicle.DisplayName(),
		Date:          strings.TrimSpace(req.Date),
		Time:          strings.TrimSpace(req.Time),
		Duration:      vehicle.TestDriveDuration,
		Status:        StatusConfirmed,
		CreatedAt:     e.now().UTC(),
	}
	e.slots[vehicle.ID] = append(e.slots[vehicle.ID], slot{start: from, end: to, bookingID: b.ID})
	e.bookings = append(e.bookings, b)
	e.byID[b.ID] = b
	committed := *b
	e.mu.Unlock()

	if err := e.store.SaveBooking(ctx, committed); err != nil {
		log.Warn().Err(err).Str("booking_id", committed.ID).Msg("booking store write failed")
	}
	e.notifyConfirmed(committed)

	return committed, nil
}

// Cancel transitions a booking to cancelled and frees its window. Bookings
// are never deleted.
func (e *Engine) Cancel(ctx context.Context, bookingID string) error {
	id := strings.TrimSpace(bookingID)

	e.mu.Lock()
	b, ok := e.byID[id]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: booking %q", contractx.ErrNotFound, bookingID)
	}
	if b.Status == StatusCancelled {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", contractx.ErrAlreadyCancelled, id)
	}
	b.Status = StatusCancelled
	e.releaseSlotLocked(b.VehicleID, b.ID)
	e.mu.Unlock()

	if err := e.store.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		log.Warn().Err(err).Str("booking_id", id).Msg("booking store status update failed")
	}
	return nil
}

func (e *Engine) Get(bookingID string) (Booking, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.byID[strings.TrimSpace(bookingID)]
	if !ok {
		return Booking{}, fmt.Errorf("%w: booking %q", contractx.ErrNotFound, bookingID)
	}
	return *b, nil
}

// List returns all bookings in creation order, cancelled ones included.
func (e *Engine) List() []Booking {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Booking, 0, len(e.bookings))
	for _, b := range e.bookings {
		out = append(out, *b)
	}
	return out
}

func (e *Engine) conflictLocked(vehicleID string, from, to time.Time) string {
	for _, s := range e.slots[vehicleID] {
		if from.Before(s.end) && s.start.Before(to) {
			return s.bookingID
		}
	}
	return ""
}

func (e *Engine) releaseSlotLocked(vehicleID, bookingID string) {
	windows := e.slots[vehicleID]
	for i, s := range windows {
		if s.bookingID == bookingID {
			e.slots[vehicleID] = append(windows[:i], windows[i+1:]...)
			return
		}
	}
}

// parseWindow validates the requested date/time against calendar rules and
// dealership hours, returning the absolute reservation window.
func (e *Engine) parseWindow(date, start string, durationMinutes int) (time.Time, time.Time, error) {
	day, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date %q (want YYYY-MM-DD)", contractx.ErrInvalidDateTime, date)
	}
	clock, err := time.Parse(timeLayout, strings.TrimSpace(start))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: time %q (want HH:MM)", contractx.ErrInvalidDateTime, start)
	}

	today := e.now().UTC().Truncate(24 * time.Hour)
	if day.Before(today) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s is in the past", contractx.ErrInvalidDateTime, date)
	}
	if day.After(today.AddDate(0, 0, e.horizonDays)) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s is more than %d days ahead", contractx.ErrInvalidDateTime, date, e.horizonDays)
	}

	open, closing, ok := e.catalog.Hours(day)
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: dealership is closed on %s", contractx.ErrInvalidDateTime, day.Weekday())
	}
	openAt, err := time.Parse(timeLayout, open)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: malformed opening hours %q", contractx.ErrInvalidDateTime, open)
	}
	closeAt, err := time.Parse(timeLayout, closing)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: malformed closing hours %q", contractx.ErrInvalidDateTime, closing)
	}

	from := day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
	to := from.Add(time.Duration(durationMinutes) * time.Minute)

	dayOpen := day.Add(time.Duration(openAt.Hour())*time.Hour + time.Duration(openAt.Minute())*time.Minute)
	dayClose := day.Add(time.Duration(closeAt.Hour())*time.Hour + time.Duration(closeAt.Minute())*time.Minute)
	if from.Before(dayOpen) || to.After(dayClose) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s-%s is outside working hours %s-%s",
			contractx.ErrInvalidDateTime, from.Format(timeLayout), to.Format(timeLayout), open, closing)
	}

	return from, to, nil
}

func (e *Engine) notifyConfirmed(b Booking) {
	if e.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.notifier.Publish(ctx, "booking.confirmed", b); err != nil {
			log.Warn().Err(err).Str("booking_id", b.ID).Msg("booking confirmation notify failed")
		}
	}()
}
