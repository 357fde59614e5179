// Package search turns ride search query parameters into a structured
// predicate. It knows nothing about HTTP or SQL; the repository layer
// translates a Filter into a query and tests evaluate it in memory.
package search

import (
	"errors"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"rideshare/internal/domain"
)

var (
	// ErrMissingParams is returned when one of from, to, seat or date is empty.
	ErrMissingParams = errors.New("please provide all required search parameters: from, to, seat, date")

	// ErrInvalidDate is returned when the date cannot be parsed.
	ErrInvalidDate = errors.New("invalid date format provided")

	// ErrInvalidSeatCount is returned when seat is not an integer within bounds.
	ErrInvalidSeatCount = errors.New("seat count must be a number between 1 and 10")
)

// SortKey selects the ordering of search results.
type SortKey string

const (
	SortEarliest SortKey = "earliest"
	SortPrice    SortKey = "price"
	SortDuration SortKey = "duration"
)

// Bucket names a departure time-of-day range.
type Bucket string

const (
	BucketBeforeSix Bucket = "departure_before_six_am"
	BucketSixToNoon Bucket = "departure_six_to_noon"
	BucketNoonToSix Bucket = "departure_noon_to_six"
)

// bucketHours maps a bucket to its [from, to) hour range within the day.
var bucketHours = map[Bucket][2]int{
	BucketBeforeSix: {0, 6},
	BucketSixToNoon: {6, 12},
	BucketNoonToSix: {12, 18},
}

const dateLayout = "2006-01-02"

// Params holds raw search inputs as received from a client.
type Params struct {
	From      string
	To        string
	Seat      string
	Date      string
	Sort      string
	Departure []string
}

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Filter is the structured predicate for a ride search.
type Filter struct {
	Origin      string
	Destination string
	MinSeats    int
	Day         Window
	Departures  []Window // unioned; empty means the whole day
	Sort        SortKey
	// ExcludeStatus rides are never returned.
	ExcludeStatus domain.RideStatus
}

// Build validates params and produces a Filter. Calendar days are resolved in loc.
func Build(p Params, loc *time.Location) (Filter, error) {
	if loc == nil {
		loc = time.UTC
	}

	from := strings.TrimSpace(p.From)
	to := strings.TrimSpace(p.To)
	if from == "" || to == "" || strings.TrimSpace(p.Seat) == "" || strings.TrimSpace(p.Date) == "" {
		return Filter{}, ErrMissingParams
	}

	day, err := parseDay(strings.TrimSpace(p.Date), loc)
	if err != nil {
		return Filter{}, err
	}

	seats, err := strconv.Atoi(strings.TrimSpace(p.Seat))
	if err != nil || seats < domain.MinSeats || seats > domain.MaxSeats {
		return Filter{}, ErrInvalidSeatCount
	}

	return Filter{
		Origin:        from,
		Destination:   to,
		MinSeats:      seats,
		Day:           Window{Start: day, End: day.AddDate(0, 0, 1)},
		Departures:    departureWindows(day, ParseBuckets(p.Departure)),
		Sort:          ParseSortKey(p.Sort),
		ExcludeStatus: domain.RideStatusCanceled,
	}, nil
}

// parseDay returns local midnight of the requested calendar day.
func parseDay(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}

// ParseSortKey accepts both the UI labels and short keys.
func ParseSortKey(raw string) SortKey {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "price":
		return SortPrice
	case "shortest ride", "duration":
		return SortDuration
	default:
		return SortEarliest
	}
}

// ParseBuckets splits comma separated values, drops unknown names and duplicates,
// and returns buckets in chronological order.
func ParseBuckets(values []string) []Bucket {
	var buckets []Bucket
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			b := Bucket(strings.TrimSpace(part))
			if _, ok := bucketHours[b]; !ok || slices.Contains(buckets, b) {
				continue
			}
			buckets = append(buckets, b)
		}
	}
	sort.Slice(buckets, func(i, j int) bool {
		return bucketHours[buckets[i]][0] < bucketHours[buckets[j]][0]
	})
	return buckets
}

func departureWindows(day time.Time, buckets []Bucket) []Window {
	if len(buckets) == 0 {
		return nil
	}
	windows := make([]Window, 0, len(buckets))
	for _, b := range buckets {
		h := bucketHours[b]
		windows = append(windows, Window{
			Start: time.Date(day.Year(), day.Month(), day.Day(), h[0], 0, 0, 0, day.Location()),
			End:   time.Date(day.Year(), day.Month(), day.Day(), h[1], 0, 0, 0, day.Location()),
		})
	}
	return windows
}

// Matches evaluates the filter against a single ride.
func (f Filter) Matches(r *domain.Ride) bool {
	if r == nil {
		return false
	}
	if f.ExcludeStatus != "" && r.Status == f.ExcludeStatus {
		return false
	}
	if !containsFold(r.Origin.Name, f.Origin) || !containsFold(r.Destination.Name, f.Destination) {
		return false
	}
	if r.AvailableSeats < f.MinSeats {
		return false
	}
	if !f.Day.Contains(r.StartTime) {
		return false
	}
	if len(f.Departures) == 0 {
		return true
	}
	for _, w := range f.Departures {
		if w.Contains(r.StartTime) {
			return true
		}
	}
	return false
}

// Apply filters and orders rides in memory.
func (f Filter) Apply(rides []*domain.Ride) []*domain.Ride {
	out := make([]*domain.Ride, 0, len(rides))
	for _, r := range rides {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	SortRides(out, f.Sort)
	return out
}

// SortRides orders rides by key. Ties break on start time then ID.
func SortRides(rides []*domain.Ride, key SortKey) {
	sort.SliceStable(rides, func(i, j int) bool {
		a, b := rides[i], rides[j]
		switch key {
		case SortPrice:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case SortDuration:
			if da, db := a.Duration(), b.Duration(); da != db {
				return da < db
			}
		}
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		return a.ID < b.ID
	})
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
