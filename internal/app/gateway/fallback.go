package gateway

import (
	"fmt"

	"github.com/nexusflow/nexusflow-client/internal/domain"
)

// Offline fallbacks, returned when no model credential is configured.

func fallbackRoutes() []domain.RouteOption {
	return []domain.RouteOption{
		{
			ID:   "1",
			Mode: domain.TransportModeWalking,
			Segments: []domain.RouteSegment{
				{Mode: domain.TransportModeWalking, Duration: "4 mins", Instruction: "Walk 120m to Central Metro Station"},
				{Mode: domain.TransportModeMetro, Duration: "18 mins", Instruction: "Take Blue Line towards Terminal 3"},
				{Mode: domain.TransportModeAuto, Duration: "6 mins", Instruction: "Exit Gate 2 and take Auto to Destination"},
			},
			Duration:     "28 mins",
			Cost:         "₹45",
			ComfortLevel: domain.ComfortMedium,
			Summary:      "Walk + Metro + Auto",
		},
		{
			ID:   "2",
			Mode: domain.TransportModeCab,
			Segments: []domain.RouteSegment{
				{Mode: domain.TransportModeCab, Duration: "22 mins", Instruction: "Direct Door-to-Door Cab ride"},
			},
			Duration:     "22 mins",
			Cost:         "₹210",
			ComfortLevel: domain.ComfortHigh,
			Summary:      "Direct Cab",
		},
	}
}

func fallbackNearby(destination string) []domain.UserProfile {
	return []domain.UserProfile{
		{ID: "u1", Name: "Alex Johnson", Avatar: avatarURL(1), Rating: 4.8, Destination: destination},
		{ID: "u2", Name: "Sarah Lee", Avatar: avatarURL(2), Rating: 4.9, Destination: destination},
	}
}

func fallbackScheduled(destination, timeSlot string) []domain.UserProfile {
	return []domain.UserProfile{
		{ID: "s1", Name: "James Wilson", Avatar: avatarURL(5), Rating: 4.7, Destination: destination, ScheduledTime: ptr(timeSlot)},
		{ID: "s2", Name: "Emily Chen", Avatar: avatarURL(6), Rating: 5.0, Destination: destination, ScheduledTime: ptr(timeSlot)},
	}
}

func fallbackPlaces(query string) []string {
	return []string{query + " Central", query + " Park"}
}

func avatarURL(n int) string {
	return fmt.Sprintf("https://picsum.photos/50/50?random=%d", n)
}

func ptr[T any](v T) *T { return &v }
