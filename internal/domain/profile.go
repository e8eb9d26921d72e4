package domain

// UserProfile is a fictitious traveller produced by a matching search.
type UserProfile struct {
	ID            ProfileID `json:"id"`
	Name          string    `json:"name"`
	Avatar        string    `json:"avatar"`
	Rating        float64   `json:"rating"`
	Destination   string    `json:"destination"`
	ScheduledTime *string   `json:"scheduledTime,omitempty"`
}

type GroupStatus string

const (
	GroupStatusForming  GroupStatus = "FORMING"
	GroupStatusFull     GroupStatus = "FULL"
	GroupStatusVerified GroupStatus = "VERIFIED"
)

// MatchGroup is a fare-splitting group formed from a matching search.
type MatchGroup struct {
	ID       GroupID       `json:"id"`
	Mode     TransportMode `json:"mode"`
	Users    []UserProfile `json:"users"`
	MaxUsers int           `json:"maxUsers"`
	Status   GroupStatus   `json:"status"`
}
