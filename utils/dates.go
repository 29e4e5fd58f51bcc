// Package utils provides utility functions for the application.
package utils

import "time"

// DateOnly truncates a time to midnight UTC so date columns compare cleanly.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a midnight-UTC date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether two times fall on the same calendar day (UTC).
func SameDate(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}

// NextOccurrence returns the earliest date >= today with the given month/day,
// rolling over to next year when this year's candidate has already passed.
//
// A Feb 29 anchor is observed on Feb 28 in years without a leap day.
func NextOccurrence(month time.Month, day int, today time.Time) time.Time {
	today = DateOnly(today)
	candidate := occurrenceInYear(today.Year(), month, day)
	if candidate.Before(today) {
		candidate = occurrenceInYear(today.Year()+1, month, day)
	}
	return candidate
}

func occurrenceInYear(year int, month time.Month, day int) time.Time {
	if month == time.February && day == 29 && !isLeapYear(year) {
		day = 28
	}
	return Date(year, month, day)
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInRange enumerates every day from start to end inclusive. It is meant
// for membership tests, not ordered iteration.
func DaysInRange(start, end time.Time) map[time.Time]struct{} {
	out := make(map[time.Time]struct{})
	for cur := DateOnly(start); !cur.After(DateOnly(end)); cur = cur.AddDate(0, 0, 1) {
		out[cur] = struct{}{}
	}
	return out
}

// DayOfYear returns the nth day of a year (1-based), e.g. day 256 for
// Programmer's Day.
func DayOfYear(year, n int) time.Time {
	return Date(year, time.January, 1).AddDate(0, 0, n-1)
}
