package clock

import (
	"fmt"
	"time"
)

// Archive partitions are named after the Monday of the archived week,
// e.g. transactions_semaine_2025_11_03. The week identifier exposed to
// API consumers is the ISO form, e.g. 2025-W45.
const partitionPrefix = "transactions_semaine_"

// WeekStart returns the Monday 00:00 UTC of the week containing t
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := int(t.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7 // Sunday
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}

// WeekEnd returns the exclusive upper bound of the week containing t,
// i.e. the following Monday 00:00 UTC.
func WeekEnd(t time.Time) time.Time {
	return WeekStart(t).AddDate(0, 0, 7)
}

// WeekID returns the ISO week identifier of t, e.g. "2025-W45"
func WeekID(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// MondayOf resolves an ISO week identifier to its Monday
func MondayOf(weekID string) (time.Time, error) {
	var year, week int
	if _, err := fmt.Sscanf(weekID, "%d-W%d", &year, &week); err != nil {
		return time.Time{}, fmt.Errorf("invalid week identifier %q: %w", weekID, err)
	}
	if week < 1 || week > 53 {
		return time.Time{}, fmt.Errorf("invalid week identifier %q: week out of range", weekID)
	}
	// January 4 always falls in ISO week 1
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	return WeekStart(jan4).AddDate(0, 0, (week-1)*7), nil
}

// PartitionName returns the archive collection name for the week
// starting on the given Monday.
func PartitionName(monday time.Time) string {
	return partitionPrefix + monday.UTC().Format("2006_01_02")
}

// PartitionNameForWeekID resolves a week identifier straight to its
// collection name.
func PartitionNameForWeekID(weekID string) (string, error) {
	monday, err := MondayOf(weekID)
	if err != nil {
		return "", err
	}
	return PartitionName(monday), nil
}
