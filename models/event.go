package models

import (
	"time"
)

// EventStatus is the closed set of event lifecycle states.
type EventStatus string

const (
	EventPending   EventStatus = "pending"
	EventApproved  EventStatus = "approved"
	EventRejected  EventStatus = "rejected"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// Purchasable reports whether tickets may be sold for an event in this state.
// Approved is the only purchasable state.
func (s EventStatus) Purchasable() bool {
	return s == EventApproved
}

type Event struct {
	ID          string      `json:"id"`
	OrganizerID string      `json:"organizer_id"`
	Name        string      `json:"event_name"`
	Description string      `json:"description"`
	Venue       string      `json:"venue"`
	EventDate   string      `json:"event_date"`           // ISO date, e.g. "2026-03-14"
	StartTime   string      `json:"start_time,omitempty"` // "HH:MM"
	EndTime     string      `json:"end_time,omitempty"`   // "HH:MM", optional
	Status      EventStatus `json:"status"`
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// EffectiveEnd returns the instant the event is considered over: end_time on
// event_date when set, otherwise the end of event_date. All in UTC.
func (e *Event) EffectiveEnd() (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, e.EventDate, time.UTC)
	if err != nil {
		return time.Time{}, err
	}

	if e.EndTime == "" {
		return day.Add(24 * time.Hour), nil
	}

	end, err := time.ParseInLocation(timeLayout, e.EndTime, time.UTC)
	if err != nil {
		return time.Time{}, err
	}

	return day.Add(time.Duration(end.Hour())*time.Hour + time.Duration(end.Minute())*time.Minute), nil
}

// ShouldComplete reports whether an approved event is due for the
// approved -> completed transition at the given instant. A date strictly
// before today completes regardless of end_time.
func (e *Event) ShouldComplete(now time.Time) bool {
	if e.Status != EventApproved {
		return false
	}

	day, err := time.ParseInLocation(dateLayout, e.EventDate, time.UTC)
	if err != nil {
		return false
	}

	today := now.UTC().Truncate(24 * time.Hour)
	if day.Before(today) {
		return true
	}

	end, err := e.EffectiveEnd()
	if err != nil {
		return false
	}
	return !end.After(now.UTC())
}
