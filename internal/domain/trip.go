package domain

import "time"

// TripStatusConfirmed is the only status the planning flow produces.
const TripStatusConfirmed = "Confirmed"

// DefaultGroupSize is the placeholder group size for planned journeys.
const DefaultGroupSize = 3

// ScheduledTrip is a planned journey persisted by the client.
//
// Trips are never updated in place: cancellation is deletion.
type ScheduledTrip struct {
	ID          TripID `json:"id"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	GroupSize   int    `json:"groupSize"`
	Status      string `json:"status"`
	// Timestamp is the creation time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// CreatedAt returns Timestamp as a time.Time.
func (t ScheduledTrip) CreatedAt() time.Time {
	return time.UnixMilli(t.Timestamp).UTC()
}
