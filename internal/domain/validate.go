package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Input validation runs before any store mutation and returns the full list
// of violations, not just the first one.

var emailRe = regexp.MustCompile(`^[\w.+-]+(\.[\w-]+)*@([\w-]+\.)+[a-zA-Z]{2,7}$`)

func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// ValidatePassword enforces the registration password policy: at least 8
// characters with upper, lower and a digit.
func ValidatePassword(pw string) []string {
	var v []string
	if len(pw) < 8 {
		v = append(v, "password must be at least 8 characters long")
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		v = append(v, "password must contain an uppercase letter, a lowercase letter and a number")
	}
	return v
}

func ValidateRegistration(name, email, password string) []string {
	var v []string
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		v = append(v, "name must be at least 2 characters long")
	}
	if len(name) > 50 {
		v = append(v, "name cannot be more than 50 characters")
	}
	if !ValidEmail(strings.ToLower(strings.TrimSpace(email))) {
		v = append(v, "invalid email address")
	}
	v = append(v, ValidatePassword(password)...)
	return v
}

// ValidateEvent checks an event about to be inserted or replaced. Updates
// merge into the stored document first, so the full required-field set always
// applies.
func ValidateEvent(e *Event) []string {
	var v []string
	if strings.TrimSpace(e.Title) == "" {
		v = append(v, "event title is required")
	}
	if len(e.EventDates) == 0 {
		v = append(v, "at least one event date is required")
	}
	for i, d := range e.EventDates {
		if d.Date.IsZero() {
			v = append(v, fmt.Sprintf("event date %d is missing a date", i))
		}
		if !d.IsAllDay && d.StartTime != nil && d.EndTime != nil && d.EndTime.Before(*d.StartTime) {
			v = append(v, fmt.Sprintf("event date %d ends before it starts", i))
		}
	}
	if e.Status != "" && !ValidEventStatus(e.Status) {
		v = append(v, "invalid event status")
	}
	if e.Visibility != "" && !ValidVisibility(e.Visibility) {
		v = append(v, "invalid event visibility")
	}
	if e.Recurrence != nil {
		v = append(v, validateRecurrence(e.Recurrence)...)
	}
	for _, r := range e.Reminders {
		if r.Time < 0 {
			v = append(v, "reminder time cannot be negative")
		}
	}
	return v
}

func validateRecurrence(r *Recurrence) []string {
	var v []string
	switch r.Pattern {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceBiweekly,
		RecurrenceMonthly, RecurrenceYearly, RecurrenceCustom:
	default:
		v = append(v, "invalid recurrence pattern")
	}
	if r.Interval < 0 {
		v = append(v, "recurrence interval cannot be negative")
	}
	for _, d := range r.ByDaysOfWeek {
		if d < 0 || d > 6 {
			v = append(v, "recurrence weekday must be between 0 and 6")
			break
		}
	}
	for _, d := range r.ByDaysOfMonth {
		if d < 1 || d > 31 {
			v = append(v, "recurrence monthday must be between 1 and 31")
			break
		}
	}
	return v
}
