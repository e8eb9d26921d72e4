package domain

import "strings"

type TransportMode string

const (
	TransportModeBus     TransportMode = "BUS"
	TransportModeMetro   TransportMode = "METRO"
	TransportModeAuto    TransportMode = "AUTO"
	TransportModeCab     TransportMode = "CAB"
	TransportModeWalking TransportMode = "WALKING"
)

var modeAliases = map[string]TransportMode{
	"BUS":      TransportModeBus,
	"COACH":    TransportModeBus,
	"METRO":    TransportModeMetro,
	"SUBWAY":   TransportModeMetro,
	"TRAIN":    TransportModeMetro,
	"RAIL":     TransportModeMetro,
	"AUTO":     TransportModeAuto,
	"RICKSHAW": TransportModeAuto,
	"TUKTUK":   TransportModeAuto,
	"CAB":      TransportModeCab,
	"TAXI":     TransportModeCab,
	"CAR":      TransportModeCab,
	"WALKING":  TransportModeWalking,
	"WALK":     TransportModeWalking,
	"FOOT":     TransportModeWalking,
}

// ParseTransportMode maps free-text mode names onto the known modes.
// Unknown names are returned upper-cased with ok=false.
func ParseTransportMode(s string) (TransportMode, bool) {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	if m, ok := modeAliases[key]; ok {
		return m, true
	}
	return TransportMode(strings.ToUpper(strings.TrimSpace(s))), false
}

type RoutePreference string

const (
	RoutePreferenceFast          RoutePreference = "FAST"
	RoutePreferenceCostEfficient RoutePreference = "COST_EFFICIENT"
	RoutePreferenceComfortable   RoutePreference = "COMFORTABLE"
)

// RoutePreferences lists preferences in display order.
var RoutePreferences = []RoutePreference{RoutePreferenceFast, RoutePreferenceCostEfficient, RoutePreferenceComfortable}

type ComfortLevel string

const (
	ComfortHigh   ComfortLevel = "High"
	ComfortMedium ComfortLevel = "Medium"
	ComfortLow    ComfortLevel = "Low"
)

// ParseComfortLevel is case-insensitive; unknown values map to Medium.
func ParseComfortLevel(s string) ComfortLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return ComfortHigh
	case "low":
		return ComfortLow
	default:
		return ComfortMedium
	}
}

// RouteSegment is one leg of a route. Duration and Distance are opaque display strings.
type RouteSegment struct {
	Mode        TransportMode `json:"mode"`
	Instruction string        `json:"instruction"`
	Duration    string        `json:"duration"`
	Distance    *string       `json:"distance,omitempty"`
}

// RouteOption is a generated multimodal itinerary. It is never persisted.
type RouteOption struct {
	ID           RouteID        `json:"id"`
	Mode         TransportMode  `json:"mode"`
	Segments     []RouteSegment `json:"segments"`
	Duration     string         `json:"duration"`
	Cost         string         `json:"cost"`
	ComfortLevel ComfortLevel   `json:"comfortLevel"`
	Summary      string         `json:"summary"`
}
