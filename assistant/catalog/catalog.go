// Package catalog holds the dealership's vehicle inventory: an immutable,
// in-memory index loaded once at startup from a JSON document.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	contractx "github.com/primeauto/concierge/assistant/contract"
)

type Category string

const (
	CategorySedan    Category = "sedan"
	CategorySUV      Category = "suv"
	CategoryTruck    Category = "truck"
	CategoryCompact  Category = "compact"
	CategoryElectric Category = "electric"
	CategoryHybrid   Category = "hybrid"
)

type Vehicle struct {
	ID                string   `json:"id"`
	Brand             string   `json:"brand"`
	Model             string   `json:"model"`
	Year              int      `json:"year"`
	Category          Category `json:"type"`
	PriceRange        string   `json:"price_range"`
	Features          []string `json:"features"`
	FuelType          string   `json:"fuel_type"`
	MPG               string   `json:"mpg,omitempty"`
	SeatingCapacity   int      `json:"seating_capacity,omitempty"`
	TestDriveDuration int      `json:"test_drive_duration_minutes"`
	Available         bool     `json:"availability"`
}

// DisplayName is the customer-facing name used in replies and bookings.
func (v Vehicle) DisplayName() string {
	return strings.TrimSpace(v.Brand + " " + v.Model)
}

type Dealership struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Contact  string `json:"contact"`
	Email    string `json:"email"`
}

// WorkingHours maps lowercase weekday names to "HH:MM - HH:MM" or "Closed".
type WorkingHours map[string]string

type document struct {
	Dealership   Dealership   `json:"dealership"`
	WorkingHours WorkingHours `json:"working_hours"`
	Inventory    []Vehicle    `json:"inventory"`
}

type Catalog struct {
	dealership Dealership
	hours      WorkingHours
	vehicles   []Vehicle
	byID       map[string]int
}

func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode inventory document: %w", err)
	}

	c := &Catalog{
		dealership: doc.Dealership,
		hours:      doc.WorkingHours,
		vehicles:   doc.Inventory,
		byID:       make(map[string]int, len(doc.Inventory)),
	}
	for i, v := range doc.Inventory {
		id := strings.TrimSpace(v.ID)
		if id == "" {
			return nil, fmt.Errorf("inventory entry %d has no id", i)
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("duplicate vehicle id %q", id)
		}
		c.byID[id] = i
		if doc.Inventory[i].TestDriveDuration <= 0 {
			c.vehicles[i].TestDriveDuration = DefaultTestDriveMinutes
		}
	}
	return c, nil
}

const DefaultTestDriveMinutes = 60

func (c *Catalog) FindByID(id string) (Vehicle, error) {
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Vehicle{}, fmt.Errorf("%w: vehicle %q", contractx.ErrNotFound, id)
	}
	return c.vehicles[idx], nil
}

// ListAll returns every vehicle in catalog load order.
func (c *Catalog) ListAll() []Vehicle {
	out := make([]Vehicle, len(c.vehicles))
	copy(out, c.vehicles)
	return out
}

// Available returns vehicles currently offered for test drives, load order.
func (c *Catalog) Available() []Vehicle {
	out := make([]Vehicle, 0, len(c.vehicles))
	for _, v := range c.vehicles {
		if v.Available {
			out = append(out, v)
		}
	}
	return out
}

// Query filters vehicles. Zero-valued fields match everything.
type Query struct {
	Category      Category
	Brand         string
	AvailableOnly bool
}

// Filter returns matching vehicles preserving catalog load order.
func (c *Catalog) Filter(q Query) []Vehicle {
	brand := strings.ToLower(strings.TrimSpace(q.Brand))
	out := make([]Vehicle, 0, len(c.vehicles))
	for _, v := range c.vehicles {
		if q.AvailableOnly && !v.Available {
			continue
		}
		if q.Category != "" && v.Category != q.Category {
			continue
		}
		if brand != "" && !strings.Contains(strings.ToLower(v.Brand), brand) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (c *Catalog) Dealership() Dealership {
	return c.dealership
}

func (c *Catalog) WorkingHours() WorkingHours {
	out := make(WorkingHours, len(c.hours))
	for k, v := range c.hours {
		out[k] = v
	}
	return out
}

// Hours returns the opening window for the weekday of the given date.
// ok is false when the dealership is closed that day.
func (c *Catalog) Hours(date time.Time) (open, close string, ok bool) {
	day := strings.ToLower(date.Weekday().String())
	raw, found := c.hours[day]
	if !found || strings.EqualFold(strings.TrimSpace(raw), "closed") {
		return "", "", false
	}
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

// ResolveCategory maps free text from the oracle to a catalog category.
func ResolveCategory(text string) (Category, bool) {
	norm := strings.ToLower(strings.TrimSpace(text))
	norm = strings.TrimSuffix(norm, "s")
	switch norm {
	case "sedan", "saloon":
		return CategorySedan, true
	case "suv", "sport utility vehicle", "crossover":
		return CategorySUV, true
	case "truck", "pickup", "pickup truck":
		return CategoryTruck, true
	case "compact", "hatchback":
		return CategoryCompact, true
	case "electric", "ev":
		return CategoryElectric, true
	case "hybrid":
		return CategoryHybrid, true
	default:
		return "", false
	}
}

// ResolveVehicle accepts either a vehicle id or a free-text name ("Explorer
// Pro", "velocity elegance") and resolves it to a catalog vehicle.
func (c *Catalog) ResolveVehicle(text string) (Vehicle, error) {
	needle := strings.TrimSpace(text)
	if needle == "" {
		return Vehicle{}, fmt.Errorf("%w: empty vehicle reference", contractx.ErrInvalidArguments)
	}
	if v, err := c.FindByID(needle); err == nil {
		return v, nil
	}

	lower := strings.ToLower(needle)
	for _, v := range c.vehicles {
		name := strings.ToLower(v.DisplayName())
		if name == lower || strings.Contains(name, lower) || strings.Contains(lower, strings.ToLower(v.Model)) {
			return v, nil
		}
	}
	return Vehicle{}, fmt.Errorf("%w: vehicle %q", contractx.ErrNotFound, needle)
}
