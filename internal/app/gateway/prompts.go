package gateway

import (
	"fmt"
	"strings"

	"github.com/nexusflow/nexusflow-client/internal/domain"
	"github.com/nexusflow/nexusflow-client/internal/ports/out/model"
)

func routesPrompt(origin, destination string, prefs []domain.RoutePreference) string {
	tags := make([]string, 0, len(prefs))
	for _, p := range prefs {
		tags = append(tags, string(p))
	}
	return fmt.Sprintf(`Create 3 distinct urban travel routes from %q to %q.
Preferences: %s.

STRICT MULTIMODE RULES:
1. Combine different modes (Walk, Metro, Bus, Auto, Cab) for the most efficient path.
2. If a segment is < %d meters, it MUST be "WALKING".
3. For each segment, provide a CLEAR instruction including the transition point (e.g., "Walk 100m to Station X").

Return JSON:
- duration: total time
- cost: total cost
- comfortLevel: "High", "Medium", "Low"
- summary: brief mode chain (e.g. "Walk → Metro → Auto")
- segments: array of { mode: one of BUS, METRO, AUTO, CAB, WALKING, duration: string, instruction: string, distance: string such as "120m" }`,
		origin, destination, strings.Join(tags, ", "), domain.WalkingThresholdMeters)
}

func nearbyPrompt(destination string, mode domain.TransportMode) string {
	return fmt.Sprintf("Generate 3 fictional user profiles who are currently nearby and traveling to %q using %q.", destination, string(mode))
}

func scheduledPrompt(destination, timeSlot string) string {
	return fmt.Sprintf("Generate 3 fictional users for %q at %q.", destination, timeSlot)
}

func placesPrompt(query string) string {
	return fmt.Sprintf("List %d location names matching %q.", maxPlaceSuggestions, query)
}

func str() *model.Schema { return &model.Schema{Type: model.TypeString} }

var routesSchema = &model.Schema{
	Type: model.TypeArray,
	Items: &model.Schema{
		Type: model.TypeObject,
		Properties: map[string]*model.Schema{
			"duration":     str(),
			"cost":         str(),
			"comfortLevel": str(),
			"summary":      str(),
			"segments": {
				Type: model.TypeArray,
				Items: &model.Schema{
					Type: model.TypeObject,
					Properties: map[string]*model.Schema{
						"mode":        str(),
						"duration":    str(),
						"instruction": str(),
						"distance":    str(),
					},
					Required: []string{"mode", "duration", "instruction"},
				},
			},
		},
		Required: []string{"duration", "cost", "comfortLevel", "summary", "segments"},
	},
}

func profilesSchema(withSchedule bool) *model.Schema {
	props := map[string]*model.Schema{
		"id":          str(),
		"name":        str(),
		"rating":      {Type: model.TypeNumber},
		"destination": str(),
	}
	required := []string{"id", "name", "rating", "destination"}
	if withSchedule {
		props["scheduledTime"] = str()
		required = append(required, "scheduledTime")
	}
	return &model.Schema{
		Type:  model.TypeArray,
		Items: &model.Schema{Type: model.TypeObject, Properties: props, Required: required},
	}
}

var placesSchema = &model.Schema{Type: model.TypeArray, Items: str()}
