// Package profile backs the profile screen: identity card, static commuter
// stats and the list of upcoming planned trips.
package profile

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/nexusflow/nexusflow-client/internal/app/navigation"
	"github.com/nexusflow/nexusflow-client/internal/domain"
)

// TripStore is the trip persistence the profile reads and cancels through.
type TripStore interface {
	GetTrips(ctx context.Context) []domain.ScheduledTrip
	DeleteTrip(ctx context.Context, id domain.TripID) error
}

// Session ends the signed-in session. The navigation shell satisfies it.
type Session interface {
	User() *domain.SessionUser
	Logout(ctx context.Context) navigation.View
}

// Stat is one card of the impact grid.
type Stat struct {
	Label string
	Value string
	Sub   string
}

// Stats are placeholder figures until real trip history exists.
var Stats = []Stat{
	{Label: "Efficiency", Value: "92%", Sub: "Multi-modal use"},
	{Label: "Fare Saved", Value: "₹4,250", Sub: "Sync group split"},
	{Label: "CO2 Offset", Value: "24.8kg", Sub: "Green transit"},
	{Label: "Tokens", Value: "1,240", Sub: "Redeemable"},
}

type Profile struct {
	trips   TripStore
	session Session

	mu     sync.Mutex
	loaded []domain.ScheduledTrip
}

// New loads the trip list.
func New(ctx context.Context, trips TripStore, session Session) *Profile {
	p := &Profile{trips: trips, session: session}
	p.Reload(ctx)
	return p
}

func (p *Profile) User() *domain.SessionUser { return p.session.User() }

// Trips returns the list as last loaded.
func (p *Profile) Trips() []domain.ScheduledTrip {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.loaded)
}

func (p *Profile) Reload(ctx context.Context) []domain.ScheduledTrip {
	trips := p.trips.GetTrips(ctx)
	p.mu.Lock()
	p.loaded = trips
	p.mu.Unlock()
	return slices.Clone(trips)
}

// Cancel deletes the trip and reloads the list. The list is reloaded even
// when the delete fails so it reflects what is stored.
func (p *Profile) Cancel(ctx context.Context, id domain.TripID) ([]domain.ScheduledTrip, error) {
	err := p.trips.DeleteTrip(ctx, id)
	trips := p.Reload(ctx)
	if err != nil {
		return trips, fmt.Errorf("cancel trip %s: %w", id, err)
	}
	return trips, nil
}

func (p *Profile) Logout(ctx context.Context) navigation.View {
	return p.session.Logout(ctx)
}
