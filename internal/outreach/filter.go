package outreach

import (
	"sort"
	"strings"

	"github.com/i474232898/wellness-van-map/internal/common"
)

// DateRange selects schedule records relative to today.
type DateRange string

const (
	RangeAll      DateRange = "all"
	RangeToday    DateRange = "today"
	RangeUpcoming DateRange = "upcoming"
	RangeWeek     DateRange = "week"
	RangeMonth    DateRange = "month"
)

// ParseDateRange maps a query value onto a DateRange. Unknown values mean all.
func ParseDateRange(s string) DateRange {
	switch r := DateRange(strings.ToLower(strings.TrimSpace(s))); r {
	case RangeToday, RangeUpcoming, RangeWeek, RangeMonth:
		return r
	default:
		return RangeAll
	}
}

// ScheduleFilter narrows the schedule shown on the map.
type ScheduleFilter struct {
	Range   DateRange
	Service string
}

// FilterByDateRange keeps the records whose date falls in rng. Week and month
// windows start today and include both ends.
func FilterByDateRange(records []ScheduleRecord, rng DateRange, today Date) []ScheduleRecord {
	var keep func(Date) bool
	switch rng {
	case RangeToday:
		keep = func(d Date) bool { return d.Equal(today) }
	case RangeUpcoming:
		keep = func(d Date) bool { return !d.Before(today) }
	case RangeWeek:
		end := today.AddDays(7)
		keep = func(d Date) bool { return !d.Before(today) && !d.After(end) }
	case RangeMonth:
		end := today.AddMonths(1)
		keep = func(d Date) bool { return !d.Before(today) && !d.After(end) }
	default:
		keep = func(Date) bool { return true }
	}

	out := make([]ScheduleRecord, 0, len(records))
	for _, r := range records {
		if keep(r.Date) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByService keeps the records offering a service whose name contains
// service, ignoring case. "" and "all" disable the filter.
func FilterByService(records []ScheduleRecord, service string) []ScheduleRecord {
	service = strings.TrimSpace(service)
	if service == "" || strings.EqualFold(service, "all") {
		return records
	}

	out := make([]ScheduleRecord, 0, len(records))
	for _, r := range records {
		if common.AnyContainsFold(r.Services, service) {
			out = append(out, r)
		}
	}
	return out
}

// SortByDate returns a copy of records ordered by date, keeping sheet order
// for records on the same day.
func SortByDate(records []ScheduleRecord) []ScheduleRecord {
	out := make([]ScheduleRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
