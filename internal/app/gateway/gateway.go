// Package gateway turns feature requests into generative model calls.
//
// Every operation is total: it returns a non-nil slice and never an error.
// Without a configured model the operations answer from fixed offline data;
// with one, any failure collapses to an empty result and is logged.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/nexusflow/nexusflow-client/internal/domain"
	"github.com/nexusflow/nexusflow-client/internal/ports/out/model"
)

// MinPlaceQueryLen is the shortest query answered by PlaceSuggestions.
const MinPlaceQueryLen = 3

const maxPlaceSuggestions = 5

// Avatar offsets for model-generated profiles.
const (
	nearbyAvatarBase    = 10
	scheduledAvatarBase = 20
)

const (
	opRoutes    = "smart_routes"
	opNearby    = "nearby_matches"
	opScheduled = "scheduled_matches"
	opPlaces    = "place_suggestions"
)

type Options struct {
	// Timeout bounds each model call. Zero means no bound beyond the caller's context.
	Timeout time.Duration
}

type Gateway struct {
	gen     model.Generator
	log     zerolog.Logger
	timeout time.Duration
}

// New returns a gateway over gen. A nil gen means no credential is configured.
func New(gen model.Generator, log zerolog.Logger, opts Options) *Gateway {
	return &Gateway{
		gen:     gen,
		log:     log.With().Str("component", "gateway").Logger(),
		timeout: opts.Timeout,
	}
}

// Online reports whether a model is configured.
func (g *Gateway) Online() bool { return g.gen != nil }

// SmartRoutes asks for three multimodal routes. Routes without segments are
// dropped and segments shorter than the walking threshold are forced to WALKING.
func (g *Gateway) SmartRoutes(ctx context.Context, origin, destination string, prefs []domain.RoutePreference) []domain.RouteOption {
	if g.gen == nil {
		g.offline(opRoutes)
		return fallbackRoutes()
	}
	req := model.Request{Prompt: routesPrompt(origin, destination, prefs), Schema: routesSchema}
	return call(ctx, g, opRoutes, req, func(text string) ([]domain.RouteOption, error) {
		wire, err := decodeArray[wireRoute](text)
		if err != nil {
			return nil, err
		}
		out := make([]domain.RouteOption, 0, len(wire))
		for i, w := range wire {
			id := domain.RouteID(fmt.Sprintf("gen-%d", i))
			if r, ok := w.toDomain(id); ok {
				out = append(out, r)
			}
		}
		return out, nil
	})
}

// NearbyMatches asks for fictional travellers heading to destination by mode.
func (g *Gateway) NearbyMatches(ctx context.Context, destination string, mode domain.TransportMode) []domain.UserProfile {
	if g.gen == nil {
		g.offline(opNearby)
		return fallbackNearby(destination)
	}
	req := model.Request{Prompt: nearbyPrompt(destination, mode), Schema: profilesSchema(false)}
	return call(ctx, g, opNearby, req, func(text string) ([]domain.UserProfile, error) {
		return decodeProfiles(text, nearbyAvatarBase, destination, nil)
	})
}

// ScheduledMatches is NearbyMatches for a future time slot. Every returned
// profile carries a scheduled time, timeSlot unless the model supplied one.
func (g *Gateway) ScheduledMatches(ctx context.Context, destination, timeSlot string) []domain.UserProfile {
	if g.gen == nil {
		g.offline(opScheduled)
		return fallbackScheduled(destination, timeSlot)
	}
	req := model.Request{Prompt: scheduledPrompt(destination, timeSlot), Schema: profilesSchema(true)}
	return call(ctx, g, opScheduled, req, func(text string) ([]domain.UserProfile, error) {
		return decodeProfiles(text, scheduledAvatarBase, destination, &timeSlot)
	})
}

// PlaceSuggestions returns up to five place names matching query. Queries
// shorter than MinPlaceQueryLen return empty without calling the model.
func (g *Gateway) PlaceSuggestions(ctx context.Context, query string) []string {
	if len([]rune(query)) < MinPlaceQueryLen {
		callsTotal.WithLabelValues(opPlaces, outcomeSkipped).Inc()
		return []string{}
	}
	if g.gen == nil {
		g.offline(opPlaces)
		return fallbackPlaces(query)
	}
	req := model.Request{Prompt: placesPrompt(query), Schema: placesSchema}
	return call(ctx, g, opPlaces, req, func(text string) ([]string, error) {
		names, err := decodeArray[string](text)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool, len(names))
		out := make([]string, 0, maxPlaceSuggestions)
		for _, n := range names {
			n = strings.TrimSpace(n)
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
			if len(out) == maxPlaceSuggestions {
				break
			}
		}
		return out, nil
	})
}

func decodeProfiles(text string, avatarBase int, destination string, slot *string) ([]domain.UserProfile, error) {
	wire, err := decodeArray[wireProfile](text)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserProfile, 0, len(wire))
	for i, w := range wire {
		p := w.toDomain(i, avatarBase, destination)
		if slot != nil && p.ScheduledTime == nil {
			st := *slot
			p.ScheduledTime = &st
		}
		out = append(out, p)
	}
	return out, nil
}

func (g *Gateway) offline(op string) {
	callsTotal.WithLabelValues(op, outcomeFallback).Inc()
	g.log.Debug().Str("op", op).Msg("no model credential; using offline data")
}

// call runs one model request and decodes its output. It never fails: errors,
// malformed output and panics all yield an empty slice.
func call[T any](ctx context.Context, g *Gateway, op string, req model.Request, decode func(string) ([]T, error)) (out []T) {
	start := time.Now()
	defer func() {
		callSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			g.fail(op, errors.Errorf("panic: %v", r))
			out = []T{}
		}
	}()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	text, err := g.gen.Generate(ctx, req)
	if err != nil {
		g.fail(op, errors.Wrap(err, "generate"))
		return []T{}
	}
	res, err := decode(text)
	if err != nil {
		g.fail(op, errors.WithStack(err))
		return []T{}
	}
	if len(res) == 0 {
		callsTotal.WithLabelValues(op, outcomeEmpty).Inc()
		g.log.Info().Str("op", op).Msg("model returned no results")
		return []T{}
	}
	callsTotal.WithLabelValues(op, outcomeOK).Inc()
	g.log.Debug().Str("op", op).Int("results", len(res)).Dur("elapsed", time.Since(start)).Msg("model call succeeded")
	return res
}

func (g *Gateway) fail(op string, err error) {
	callsTotal.WithLabelValues(op, outcomeFailure).Inc()
	g.log.Error().Stack().Err(err).Str("op", op).Msg("model call failed")
}
