package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oapi-codegen/nullable"

	"github.com/nexusflow/nexusflow-client/internal/domain"
)

// Shapes the model is asked to return. Optional fields are nullable so an
// explicit null and an omitted key both read as "not supplied".

type wireSegment struct {
	Mode        string                    `json:"mode"`
	Duration    string                    `json:"duration"`
	Instruction string                    `json:"instruction"`
	Distance    nullable.Nullable[string] `json:"distance,omitempty"`
}

type wireRoute struct {
	Duration     string        `json:"duration"`
	Cost         string        `json:"cost"`
	ComfortLevel string        `json:"comfortLevel"`
	Summary      string        `json:"summary"`
	Segments     []wireSegment `json:"segments"`
}

type wireProfile struct {
	ID            string                    `json:"id"`
	Name          string                    `json:"name"`
	Avatar        nullable.Nullable[string] `json:"avatar,omitempty"`
	Rating        float64                   `json:"rating"`
	Destination   string                    `json:"destination"`
	ScheduledTime nullable.Nullable[string] `json:"scheduledTime,omitempty"`
}

// decodeArray parses model output that must be a JSON array. Empty text reads as [].
func decodeArray[T any](text string) ([]T, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}
	return out, nil
}

// value returns the supplied, non-null, non-blank value of n.
func value(n nullable.Nullable[string]) (string, bool) {
	if !n.IsSpecified() || n.IsNull() {
		return "", false
	}
	v, err := n.Get()
	if err != nil {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (s wireSegment) toDomain() domain.RouteSegment {
	mode := domain.TransportModeWalking
	if strings.TrimSpace(s.Mode) != "" {
		mode, _ = domain.ParseTransportMode(s.Mode)
	}
	seg := domain.RouteSegment{
		Mode:        mode,
		Instruction: strings.TrimSpace(s.Instruction),
		Duration:    strings.TrimSpace(s.Duration),
	}
	if d, ok := value(s.Distance); ok {
		seg.Distance = &d
		if m, ok := domain.ParseDistanceMeters(d); ok && m < domain.WalkingThresholdMeters {
			seg.Mode = domain.TransportModeWalking
		}
	}
	return seg
}

// toDomain reports false for routes without segments.
func (r wireRoute) toDomain(id domain.RouteID) (domain.RouteOption, bool) {
	if len(r.Segments) == 0 {
		return domain.RouteOption{}, false
	}
	segs := make([]domain.RouteSegment, 0, len(r.Segments))
	for _, s := range r.Segments {
		segs = append(segs, s.toDomain())
	}
	return domain.RouteOption{
		ID:           id,
		Mode:         segs[0].Mode,
		Segments:     segs,
		Duration:     strings.TrimSpace(r.Duration),
		Cost:         strings.TrimSpace(r.Cost),
		ComfortLevel: domain.ParseComfortLevel(r.ComfortLevel),
		Summary:      strings.TrimSpace(r.Summary),
	}, true
}

func (p wireProfile) toDomain(idx, avatarBase int, destination string) domain.UserProfile {
	out := domain.UserProfile{
		ID:          domain.ProfileID(strings.TrimSpace(p.ID)),
		Name:        strings.TrimSpace(p.Name),
		Rating:      p.Rating,
		Destination: strings.TrimSpace(p.Destination),
	}
	if out.ID == "" {
		out.ID = domain.ProfileID(fmt.Sprintf("match-%d", idx))
	}
	if out.Destination == "" {
		out.Destination = destination
	}
	if a, ok := value(p.Avatar); ok {
		out.Avatar = a
	} else {
		out.Avatar = avatarURL(idx + avatarBase)
	}
	if st, ok := value(p.ScheduledTime); ok {
		out.ScheduledTime = &st
	}
	return out
}
