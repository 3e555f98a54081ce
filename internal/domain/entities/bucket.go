package entities

import (
	"fmt"
	"time"
)

// BucketType is the granularity of a metrics aggregation period
type BucketType string

const (
	BucketDay   BucketType = "day"
	BucketWeek  BucketType = "week"
	BucketMonth BucketType = "month"
)

// BucketRef identifies a single counter bucket
type BucketRef struct {
	Type BucketType `json:"bucket_type" db:"bucket_type"`
	Key  string     `json:"bucket_key" db:"bucket_key"`
}

// DayKey formats the calendar-date bucket key, e.g. 2026-10-14
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// WeekKey formats the ISO-8601 week bucket key, e.g. 2026-W42. Weeks start on
// Monday and belong to the ISO year, which can differ from the calendar year
// in the first and last days of January and December.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// MonthKey formats the calendar-month bucket key, e.g. 2026-10
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// BucketsFor returns the day, week and month buckets containing t, evaluated in loc
func BucketsFor(t time.Time, loc *time.Location) []BucketRef {
	local := t.In(loc)
	return []BucketRef{
		{Type: BucketDay, Key: DayKey(local)},
		{Type: BucketWeek, Key: WeekKey(local)},
		{Type: BucketMonth, Key: MonthKey(local)},
	}
}

// StartOfDay truncates t to local midnight in its location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfISOWeek returns the Monday that starts the ISO week containing t
func StartOfISOWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// StartOfMonth returns the first day of the month containing t
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
