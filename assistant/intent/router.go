// Package intent maps structured action requests from the language oracle to
// catalog and booking operations. The action set is closed: six kinds, no
// free-form dispatch beyond the initial name lookup.
package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/primeauto/concierge/assistant/booking"
	"github.com/primeauto/concierge/assistant/catalog"
	contractx "github.com/primeauto/concierge/assistant/contract"
)

type Kind string

const (
	KindSearchVehicles    Kind = "search_vehicles"
	KindVehicleDetails    Kind = "get_vehicle_details"
	KindListVehicles      Kind = "list_vehicles"
	KindCheckAvailability Kind = "check_availability"
	KindBookTestDrive     Kind = "book_test_drive"
	KindDealershipInfo    Kind = "get_dealership_info"
)

// Action is a tagged variant: Kind selects which argument struct is set.
type Action struct {
	Kind Kind

	Search       *SearchArgs
	Details      *DetailsArgs
	Availability *AvailabilityArgs
	Book         *BookArgs
}

type SearchArgs struct {
	Category catalog.Category
	Brand    string
}

type DetailsArgs struct {
	VehicleID string
}

type AvailabilityArgs struct {
	VehicleID string
	Date      string
	Time      string
	Duration  int
}

type BookArgs struct {
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	VehicleID     string
	Date          string
	Time          string
}

type Router struct {
	catalog *catalog.Catalog
	engine  *booking.Engine
}

func NewRouter(cat *catalog.Catalog, engine *booking.Engine) *Router {
	return &Router{catalog: cat, engine: engine}
}

// Parse normalizes a raw oracle request into a typed Action. Free-text
// vehicle references resolve to catalog ids and car types to the category
// enum before any dispatch happens.
func (r *Router) Parse(req contractx.ActionRequest) (Action, error) {
	name := strings.TrimSpace(req.Name)
	args := req.Args

	switch Kind(name) {
	case KindSearchVehicles:
		search := &SearchArgs{Brand: stringArg(args, "brand")}
		if raw := stringArg(args, "car_type"); raw != "" {
			cat, ok := catalog.ResolveCategory(raw)
			if !ok {
				return Action{}, fmt.Errorf("%w: unknown car type %q", contractx.ErrInvalidArguments, raw)
			}
			search.Category = cat
		}
		if search.Category == "" && search.Brand == "" {
			return Action{}, fmt.Errorf("%w: search needs car_type or brand", contractx.ErrInvalidArguments)
		}
		return Action{Kind: KindSearchVehicles, Search: search}, nil

	case KindVehicleDetails:
		ref := firstStringArg(args, "vehicle_id", "vehicle")
		if ref == "" {
			return Action{}, fmt.Errorf("%w: vehicle_id is required", contractx.ErrInvalidArguments)
		}
		v, err := r.catalog.ResolveVehicle(ref)
		if err != nil {
			return Action{}, fmt.Errorf("%w: unknown vehicle %q", contractx.ErrInvalidArguments, ref)
		}
		return Action{Kind: KindVehicleDetails, Details: &DetailsArgs{VehicleID: v.ID}}, nil

	case KindListVehicles:
		return Action{Kind: KindListVehicles}, nil

	case KindCheckAvailability:
		avail := &AvailabilityArgs{
			Date:     stringArg(args, "date"),
			Time:     stringArg(args, "time"),
			Duration: intArg(args, "duration_minutes"),
		}
		if avail.Date == "" || avail.Time == "" {
			return Action{}, fmt.Errorf("%w: date and time are required", contractx.ErrInvalidArguments)
		}
		ref := firstStringArg(args, "vehicle_id", "vehicle")
		if ref == "" {
			return Action{}, fmt.Errorf("%w: vehicle_id is required", contractx.ErrInvalidArguments)
		}
		v, err := r.catalog.ResolveVehicle(ref)
		if err != nil {
			return Action{}, fmt.Errorf("%w: unknown vehicle %q", contractx.ErrInvalidArguments, ref)
		}
		avail.VehicleID = v.ID
		if avail.Duration <= 0 {
			avail.Duration = v.TestDriveDuration
		}
		return Action{Kind: KindCheckAvailability, Availability: avail}, nil

	case KindBookTestDrive:
		book := &BookArgs{
			CustomerName:  stringArg(args, "customer_name"),
			CustomerPhone: stringArg(args, "customer_phone"),
			CustomerEmail: stringArg(args, "customer_email"),
			Date:          stringArg(args, "preferred_date"),
			Time:          stringArg(args, "preferred_time"),
		}
		if book.Date == "" {
			book.Date = stringArg(args, "date")
		}
		if book.Time == "" {
			book.Time = stringArg(args, "time")
		}
		ref := firstStringArg(args, "vehicle_id", "car_id", "vehicle")
		if book.CustomerName == "" || book.CustomerPhone == "" || ref == "" || book.Date == "" || book.Time == "" {
			return Action{}, fmt.Errorf("%w: booking needs customer_name, customer_phone, vehicle_id, date and time", contractx.ErrInvalidArguments)
		}
		v, err := r.catalog.ResolveVehicle(ref)
		if err != nil {
			return Action{}, fmt.Errorf("%w: unknown vehicle %q", contractx.ErrInvalidArguments, ref)
		}
		book.VehicleID = v.ID
		return Action{Kind: KindBookTestDrive, Book: book}, nil

	case KindDealershipInfo:
		return Action{Kind: KindDealershipInfo}, nil

	default:
		return Action{}, fmt.Errorf("%w: %q", contractx.ErrUnknownAction, name)
	}
}

// Dispatch runs one parsed action and renders its outcome as oracle-safe
// text. Engine and catalog failures are folded into the payload; nothing
// here reaches the transport as a raw fault.
func (r *Router) Dispatch(ctx context.Context, act Action) contractx.ActionResult {
	switch act.Kind {
	case KindSearchVehicles:
		return result(act.Kind, r.renderSearch(*act.Search))
	case KindVehicleDetails:
		return result(act.Kind, r.renderDetails(*act.Details))
	case KindListVehicles:
		return result(act.Kind, r.renderList())
	case KindCheckAvailability:
		return result(act.Kind, r.renderAvailability(*act.Availability))
	case KindBookTestDrive:
		return result(act.Kind, r.renderBooking(ctx, *act.Book))
	case KindDealershipInfo:
		return result(act.Kind, r.renderDealership())
	default:
		return result(act.Kind, "That capability is not supported.")
	}
}

// Handle parses and dispatches in one step, converting parse failures into a
// natural-language-safe result instead of an error.
func (r *Router) Handle(ctx context.Context, req contractx.ActionRequest) contractx.ActionResult {
	act, err := r.Parse(req)
	if err != nil {
		return contractx.ActionResult{
			Tool:    strings.TrimSpace(req.Name),
			Content: safeParseFailure(err),
		}
	}
	return r.Dispatch(ctx, act)
}

func (r *Router) renderSearch(args SearchArgs) string {
	matches := r.catalog.Filter(catalog.Query{
		Category:      args.Category,
		Brand:         args.Brand,
		AvailableOnly: true,
	})
	if len(matches) == 0 {
		return "No matching vehicles are available right now."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d matching vehicle(s):\n", len(matches))
	for _, v := range matches {
		fmt.Fprintf(&sb, "- %s (%d, %s): %s [id: %s]\n", v.DisplayName(), v.Year, v.Category, v.PriceRange, v.ID)
	}
	return sb.String()
}

func (r *Router) renderDetails(args DetailsArgs) string {
	v, err := r.catalog.FindByID(args.VehicleID)
	if err != nil {
		return fmt.Sprintf("Vehicle %q is not in our inventory.", args.VehicleID)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %d\n", v.DisplayName(), v.Year)
	fmt.Fprintf(&sb, "Type: %s\nPrice: %s\nFuel: %s\n", v.Category, v.PriceRange, v.FuelType)
	if v.MPG != "" {
		fmt.Fprintf(&sb, "MPG: %s\n", v.MPG)
	}
	if v.SeatingCapacity > 0 {
		fmt.Fprintf(&sb, "Seats: %d\n", v.SeatingCapacity)
	}
	if len(v.Features) > 0 {
		limit := len(v.Features)
		if limit > 5 {
			limit = 5
		}
		fmt.Fprintf(&sb, "Features: %s\n", strings.Join(v.Features[:limit], ", "))
	}
	fmt.Fprintf(&sb, "Test drive duration: %d minutes\n", v.TestDriveDuration)
	return sb.String()
}

func (r *Router) renderList() string {
	available := r.catalog.Available()
	if len(available) == 0 {
		return "No vehicles are currently available for test drives."
	}
	var sb strings.Builder
	sb.WriteString("Available vehicles for test drive:\n")
	for _, v := range available {
		fmt.Fprintf(&sb, "- %s (%d) - %s [id: %s]\n", v.DisplayName(), v.Year, v.PriceRange, v.ID)
	}
	return sb.String()
}

func (r *Router) renderAvailability(args AvailabilityArgs) string {
	conflict, err := r.engine.CheckAvailability(args.VehicleID, args.Date, args.Time, args.Duration)
	if err != nil {
		return fmt.Sprintf("%s at %s cannot be booked: %s", args.Date, args.Time, safeReason(err))
	}
	if conflict != "" {
		return fmt.Sprintf("Sorry, %s at %s is already taken. Please choose another time.", args.Date, args.Time)
	}
	return fmt.Sprintf("Good news: %s at %s is available for booking.", args.Date, args.Time)
}

func (r *Router) renderBooking(ctx context.Context, args BookArgs) string {
	b, err := r.engine.Commit(ctx, booking.CommitRequest{
		CustomerName:  args.CustomerName,
		CustomerPhone: args.CustomerPhone,
		CustomerEmail: args.CustomerEmail,
		VehicleID:     args.VehicleID,
		Date:          args.Date,
		Time:          args.Time,
	})
	if err != nil {
		return fmt.Sprintf("The test drive could not be booked: %s", safeReason(err))
	}
	return fmt.Sprintf(
		"Test drive booked successfully!\nBooking ID: %s\nCar: %s\nDate: %s at %s\nDuration: %d minutes\nConfirmation will be sent to %s",
		b.ID, b.VehicleName, b.Date, b.Time, b.Duration, b.CustomerPhone,
	)
}

func (r *Router) renderDealership() string {
	info := r.catalog.Dealership()
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\nLocation: %s\nContact: %s\nEmail: %s\nWorking hours:\n", info.Name, info.Location, info.Contact, info.Email)
	hours := r.catalog.WorkingHours()
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		if h, ok := hours[day]; ok {
			fmt.Fprintf(&sb, "- %s%s: %s\n", strings.ToUpper(day[:1]), day[1:], h)
		}
	}
	return sb.String()
}

// safeReason strips sentinel prefixes down to customer-presentable text.
func safeReason(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ": "); idx >= 0 {
		return msg[idx+2:]
	}
	return msg
}

func safeParseFailure(err error) string {
	switch {
	case errors.Is(err, contractx.ErrUnknownAction):
		return "I can only help with vehicle search, details, availability checks, test drive bookings and dealership information."
	default:
		return fmt.Sprintf("I could not run that request: %s.", safeReason(err))
	}
}

func result(kind Kind, content string) contractx.ActionResult {
	return contractx.ActionResult{Tool: string(kind), Content: content}
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func firstStringArg(args map[string]any, keys ...string) string {
	for _, k := range keys {
		if v := stringArg(args, k); v != "" {
			return v
		}
	}
	return ""
}

func intArg(args map[string]any, key string) int {
	if args == nil {
		return 0
	}
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
