package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/primeauto/concierge/assistant/catalog"
	contractx "github.com/primeauto/concierge/assistant/contract"
)

const testInventory = `{
  "dealership": {"name": "Prime Auto Gallery", "location": "San Diego", "contact": "+1 619 555 0142", "email": "hello@primeautogallery.com"},
  "working_hours": {
    "monday": "09:00 - 18:00",
    "tuesday": "09:00 - 18:00",
    "wednesday": "09:00 - 18:00",
    "thursday": "09:00 - 18:00",
    "friday": "09:00 - 18:00",
    "saturday": "09:00 - 18:00",
    "sunday": "Closed"
  },
  "inventory": [
    {"id": "sedan_001", "brand": "Velocity", "model": "Elegance 2024", "year": 2024, "type": "sedan", "price_range": "$32,000 - $38,000", "features": ["Sunroof"], "fuel_type": "gasoline", "test_drive_duration_minutes": 60, "availability": true},
    {"id": "suv_001", "brand": "Terrain", "model": "Explorer Pro", "year": 2024, "type": "suv", "price_range": "$45,000 - $52,000", "features": ["AWD"], "fuel_type": "gasoline", "test_drive_duration_minutes": 45, "availability": true}
  ]
}`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Parse([]byte(testInventory))
	if err != nil {
		t.Fatalf("parse test inventory: %v", err)
	}
	return cat
}

// fixedClock pins "now" to a Monday before the scenario Saturday so date
// validation is deterministic.
func fixedClock() time.Time {
	return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
}

func testEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	return NewEngine(testCatalog(t), opts...)
}

func commitReq(vehicleID, date, start string) CommitRequest {
	return CommitRequest{
		CustomerName:  "Jordan Reyes",
		CustomerPhone: "+1 619 555 0100",
		VehicleID:     vehicleID,
		Date:          date,
		Time:          start,
	}
}

func TestCommitThenOverlapConflicts(t *testing.T) {
	t.Parallel()
	e := testEngine(t)
	ctx := context.Background()

	first, err := e.Commit(ctx, commitReq("sedan_001", "2024-01-20", "14:00"))
	if err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if first.Status != StatusConfirmed {
		t.Fatalf("status = %q, want confirmed", first.Status)
	}
	if !strings.HasPrefix(first.ID, "TD-") {
		t.Fatalf("booking id = %q, want TD- prefix", first.ID)
	}

	_, err = e.Commit(ctx, commitReq("sedan_001", "2024-01-20", "14:30"))
	if !errors.Is(err, contractx.ErrSlotConflict) {
		t.Fatalf("overlapping commit err = %v, want ErrSlotConflict", err)
	}

	second, err := e.Commit(ctx, commitReq("sedan_001", "2024-01-20", "15:00"))
	if err != nil {
		t.Fatalf("adjacent commit: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("booking ids must be unique, both %q", first.ID)
	}
}

func TestCheckAvailabilityReportsConflict(t *testing.T) {
	t.Parallel()
	e := testEngine(t)
	ctx := context.Background()

	conflict, err := e.CheckAvailability("sedan_001", "2024-01-20", "14:00", 60)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if conflict != "" {
		t.Fatalf("conflict = %q, want empty", conflict)
	}

	b, err := e.Commit(ctx, commitReq("sedan_001", "2024-01-20", "14:00"))
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	conflict, err = e.CheckAvailability("sedan_001", "2024-01-20", "14:30", 60)
	if err != nil {
		t.Fatalf("check after commit: %v", err)
	}
	if conflict != b.ID {
		t.Fatalf("conflict = %q, want %q", conflict, b.ID)
	}

	// Same window on a different vehicle stays free.
	conflict, err = e.CheckAvailability("suv_001", "2024-01-20", "14:00", 45)
	if err != nil {
		t.Fatalf("check other vehicle: %v", err)
	}
	if conflict != "" {
		t.Fatalf("other vehicle conflict = %q, want empty", conflict)
	}
}

func TestCheckAvailabilityUnknownVehicle(t *testing.T) {
	t.Parallel()
	e := testEngine(t)

	if _, err := e.CheckAvailability("ghost_1", "2024-01-20", "14:00", 60); !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCheckAvailabilityUsesVehicleDuration(t *testing.T) {
	t.Parallel()
	e := testEngine(t)
	ctx := context.Background()

	if _, err := e.Commit(ctx, commitReq("sedan_001", "2024-01-20", "14:00")); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Duration 0 falls back to the vehicle's 60 minutes, so a 13:30 start
	// runs to 14:30 and overlaps the committed 14:00-15:00 window.
	conflict, err := e.CheckAvailability("sedan_001", "2024-01-20", "13:30", 0)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if conflict == "" {
		t.Fatal("expected conflict with vehicle-length window")
	}
}

func TestCancelFreesSlotForRebooking(t *testing.T) {
	t.Parallel()
	e := testEngine(t)
	ctx := context.Background()

	b, err := e.Commit(ctx, commitReq("sedan_001", "2024-01-20", "14:00"))
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := e.Cancel(ctx, b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, err := e.Get(b.ID)
	if err != nil {
		t.Fatalf("get after cancel: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Fatalf("status = %q, want cancelled", got.Status)
	}

	rebooked, err := e.Commit(ctx, commitReq("sedan_001", "2024-01-20", "14:00"))
	if err != nil {
		t.Fatalf("rebook freed slot: %v", err)
	}
	if rebooked.ID == b.ID {
		t.Fatalf("rebooking reused id %q", b.ID)
	}

	if err := e.Cancel(ctx, b.ID); !errors.Is(err, contractx.ErrAlreadyCancelled) {
		t.Fatalf("double cancel err = %v, want ErrAlreadyCancelled", err)
	}
	if err := e.Cancel(ctx, "TD-9999"); !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("cancel unknown err = %v, want ErrNotFound", err)
	}
}

func TestCommitValidation(t *testing.T) {
	t.Parallel()
	e := testEngine(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CommitRequest
		want error
	}{
		{
			name: "missing customer name",
			req: CommitRequest{
				CustomerPhone: "+1 619 555 0100",
				VehicleID:     "sedan_001",
				Date:          "2024-01-20",
				Time:          "14:00",
			},
			want: contractx.ErrInvalidArguments,
		},
		{
			name: "unknown vehicle",
			req:  commitReq("ghost_1", "2024-01-20", "14:00"),
			want: contractx.ErrNotFound,
		},
		{
			name: "malformed date",
			req:  commitReq("sedan_001", "Jan 20th", "14:00"),
			want: contractx.ErrInvalidDateTime,
		},
		{
			name: "malformed time",
			req:  commitReq("sedan_001", "2024-01-20", "2pm"),
			want: contractx.ErrInvalidDateTime,
		},
		{
			name: "past date",
			req:  commitReq("sedan_001", "2024-01-10", "14:00"),
			want: contractx.ErrInvalidDateTime,
		},
		{
			name: "beyond booking horizon",
			req:  commitReq("sedan_001", "2024-06-01", "14:00"),
			want: contractx.ErrInvalidDateTime,
		},
		{
			name: "closed day",
			req:  commitReq("sedan_001", "2024-01-21", "14:00"),
			want: contractx.ErrInvalidDateTime,
		},
		{
			name: "before opening",
			req:  commitReq("sedan_001", "2024-01-20", "08:00"),
			want: contractx.ErrInvalidDateTime,
		},
		{
			name: "window runs past closing",
			req:  commitReq("sedan_001", "2024-01-20", "17:30"),
			want: contractx.ErrInvalidDateTime,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Commit(ctx, tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	if got := len(e.List()); got != 0 {
		t.Fatalf("ledger holds %d bookings after failed commits, want 0", got)
	}
}

func TestConcurrentOverlappingCommitsExactlyOneWins(t *testing.T) {
	t.Parallel()
	e := testEngine(t)
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Commit(ctx, commitReq("sedan_001", "2024-01-20", "14:00"))
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, contractx.ErrSlotConflict):
		default:
			t.Fatalf("attempt %d: unexpected err %v", i, err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
	if got := len(e.List()); got != 1 {
		t.Fatalf("ledger holds %d bookings, want 1", got)
	}
}

func TestBookingIDsAreUniqueAndSequentialEnough(t *testing.T) {
	t.Parallel()
	e := testEngine(t)
	ctx := context.Background()

	seen := map[string]bool{}
	starts := []string{"09:00", "10:00", "11:00", "12:00", "13:00"}
	for _, s := range starts {
		b, err := e.Commit(ctx, commitReq("sedan_001", "2024-01-20", s))
		if err != nil {
			t.Fatalf("commit %s: %v", s, err)
		}
		if seen[b.ID] {
			t.Fatalf("duplicate booking id %q", b.ID)
		}
		seen[b.ID] = true
	}
}

type recordingStore struct {
	mu      sync.Mutex
	saved   []Booking
	updates []string
	saveErr error
}

func (r *recordingStore) SaveBooking(_ context.Context, b Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, b)
	return nil
}

func (r *recordingStore) UpdateStatus(_ context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, id+":"+string(status))
	return nil
}

func TestStoreWriteThrough(t *testing.T) {
	t.Parallel()
	store := &recordingStore{}
	e := testEngine(t, WithStore(store))
	ctx := context.Background()

	b, err := e.Commit(ctx, commitReq("sedan_001", "2024-01-20", "14:00"))
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(store.saved) != 1 || store.saved[0].ID != b.ID {
		t.Fatalf("store saved = %+v, want one record for %s", store.saved, b.ID)
	}

	if err := e.Cancel(ctx, b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(store.updates) != 1 || store.updates[0] != b.ID+":cancelled" {
		t.Fatalf("store updates = %v", store.updates)
	}
}

func TestStoreFailureDoesNotFailCommit(t *testing.T) {
	t.Parallel()
	store := &recordingStore{saveErr: errors.New("db down")}
	e := testEngine(t, WithStore(store))

	b, err := e.Commit(context.Background(), commitReq("sedan_001", "2024-01-20", "14:00"))
	if err != nil {
		t.Fatalf("commit with failing store: %v", err)
	}
	if _, err := e.Get(b.ID); err != nil {
		t.Fatalf("booking missing from ledger: %v", err)
	}
}
