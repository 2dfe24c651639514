package pricing

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Zone struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	FlatFee               decimal.Decimal `json:"flat_fee"`
	FreeDeliveryThreshold decimal.Decimal `json:"free_delivery_threshold"`
	DeliveryDays          []time.Weekday  `json:"delivery_days"`
}

// Fee returns the delivery fee for one farm group with the given subtotal.
func (z Zone) Fee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(z.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return z.FlatFee
}

// Remaining is how much more has to be spent before delivery becomes free.
func (z Zone) Remaining(subtotal decimal.Decimal) decimal.Decimal {
	diff := z.FreeDeliveryThreshold.Sub(subtotal)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}

func (z Zone) DeliversOn(day time.Weekday) bool {
	for _, d := range z.DeliveryDays {
		if d == day {
			return true
		}
	}
	return false
}

// ZoneTable is immutable once built and safe for concurrent reads.
type ZoneTable struct {
	zones map[string]Zone
}

func NewZoneTable(zones ...Zone) (*ZoneTable, error) {
	t := &ZoneTable{zones: make(map[string]Zone, len(zones))}
	for _, z := range zones {
		if z.ID == "" {
			return nil, fmt.Errorf("zone id is required")
		}
		if _, dup := t.zones[z.ID]; dup {
			return nil, fmt.Errorf("duplicate zone %q", z.ID)
		}
		if z.FlatFee.IsNegative() || z.FreeDeliveryThreshold.IsNegative() {
			return nil, fmt.Errorf("zone %q: fee and threshold must be non-negative", z.ID)
		}
		days := make([]time.Weekday, len(z.DeliveryDays))
		copy(days, z.DeliveryDays)
		z.DeliveryDays = days
		t.zones[z.ID] = z
	}
	return t, nil
}

func (t *ZoneTable) Lookup(id string) (Zone, bool) {
	z, ok := t.zones[id]
	return z, ok
}

func (t *ZoneTable) All() []Zone {
	out := make([]Zone, 0, len(t.zones))
	for _, z := range t.zones {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *ZoneTable) Len() int {
	return len(t.zones)
}

func DefaultZones() *ZoneTable {
	t, _ := NewZoneTable(
		Zone{
			ID:                    "ZONE_A",
			Name:                  "City",
			FlatFee:               decimal.NewFromInt(5),
			FreeDeliveryThreshold: decimal.NewFromInt(80),
			DeliveryDays:          []time.Weekday{time.Tuesday, time.Friday},
		},
		Zone{
			ID:                    "ZONE_B",
			Name:                  "Suburbs",
			FlatFee:               decimal.NewFromInt(8),
			FreeDeliveryThreshold: decimal.NewFromInt(120),
			DeliveryDays:          []time.Weekday{time.Wednesday, time.Saturday},
		},
		Zone{
			ID:                    "ZONE_C",
			Name:                  "Countryside",
			FlatFee:               decimal.NewFromInt(12),
			FreeDeliveryThreshold: decimal.NewFromInt(150),
			DeliveryDays:          []time.Weekday{time.Thursday},
		},
	)
	return t
}

type zoneFile struct {
	Zones []zoneEntry `yaml:"zones"`
}

type zoneEntry struct {
	ID                    string   `yaml:"id"`
	Name                  string   `yaml:"name"`
	FlatFee               string   `yaml:"flat_fee"`
	FreeDeliveryThreshold string   `yaml:"free_delivery_threshold"`
	DeliveryDays          []string `yaml:"delivery_days"`
}

func LoadZoneFile(path string) (*ZoneTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zone file: %w", err)
	}
	return ParseZones(data)
}

func ParseZones(data []byte) (*ZoneTable, error) {
	var f zoneFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse zone file: %w", err)
	}

	zones := make([]Zone, 0, len(f.Zones))
	for _, e := range f.Zones {
		fee, err := parseAmount(e.FlatFee)
		if err != nil {
			return nil, fmt.Errorf("zone %q flat_fee: %w", e.ID, err)
		}
		threshold, err := parseAmount(e.FreeDeliveryThreshold)
		if err != nil {
			return nil, fmt.Errorf("zone %q free_delivery_threshold: %w", e.ID, err)
		}

		days := make([]time.Weekday, 0, len(e.DeliveryDays))
		for _, name := range e.DeliveryDays {
			day, err := parseWeekday(name)
			if err != nil {
				return nil, fmt.Errorf("zone %q: %w", e.ID, err)
			}
			days = append(days, day)
		}

		zones = append(zones, Zone{
			ID:                    e.ID,
			Name:                  e.Name,
			FlatFee:               fee,
			FreeDeliveryThreshold: threshold,
			DeliveryDays:          days,
		})
	}

	return NewZoneTable(zones...)
}

func parseAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

func parseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if n == full || n == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}
