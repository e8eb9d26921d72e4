package gateway_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memmodel "github.com/nexusflow/nexusflow-client/internal/adapters/memory/model"
	"github.com/nexusflow/nexusflow-client/internal/app/gateway"
	"github.com/nexusflow/nexusflow-client/internal/domain"
	portmodel "github.com/nexusflow/nexusflow-client/internal/ports/out/model"
)

func offline() *gateway.Gateway {
	return gateway.New(nil, zerolog.Nop(), gateway.Options{})
}

func online(gen portmodel.Generator) *gateway.Gateway {
	return gateway.New(gen, zerolog.Nop(), gateway.Options{Timeout: time.Second})
}

func TestOffline_NearbyMatchesFallback(t *testing.T) {
	t.Parallel()
	got := offline().NearbyMatches(context.Background(), "Airport", domain.TransportModeCab)

	require.Len(t, got, 2)
	assert.Equal(t, "Alex Johnson", got[0].Name)
	assert.Equal(t, "Sarah Lee", got[1].Name)
	for _, p := range got {
		assert.Equal(t, "Airport", p.Destination)
		assert.Nil(t, p.ScheduledTime)
	}
	assert.Equal(t, "https://picsum.photos/50/50?random=1", got[0].Avatar)
}

func TestOffline_ScheduledMatchesCarrySlot(t *testing.T) {
	t.Parallel()
	got := offline().ScheduledMatches(context.Background(), "Tech Park", "Tomorrow at 09:00 AM")

	require.Len(t, got, 2)
	assert.Equal(t, "James Wilson", got[0].Name)
	assert.Equal(t, 5.0, got[1].Rating)
	for _, p := range got {
		require.NotNil(t, p.ScheduledTime)
		assert.Equal(t, "Tomorrow at 09:00 AM", *p.ScheduledTime)
		assert.Equal(t, "Tech Park", p.Destination)
	}
}

func TestOffline_SmartRoutesFallback(t *testing.T) {
	t.Parallel()
	got := offline().SmartRoutes(context.Background(), "Home", "Office", []domain.RoutePreference{domain.RoutePreferenceFast})

	require.Len(t, got, 2)
	assert.Equal(t, "Walk + Metro + Auto", got[0].Summary)
	assert.Len(t, got[0].Segments, 3)
	assert.Equal(t, domain.TransportModeCab, got[1].Mode)
	assert.Equal(t, domain.ComfortHigh, got[1].ComfortLevel)
}

func TestPlaceSuggestions_ShortQuerySkipsModel(t *testing.T) {
	t.Parallel()
	gen := memmodel.Reply(`["Koramangala"]`)
	g := online(gen)

	assert.Empty(t, g.PlaceSuggestions(context.Background(), "ko"))
	assert.NotNil(t, g.PlaceSuggestions(context.Background(), ""))
	assert.Equal(t, 0, gen.Calls())

	assert.Empty(t, offline().PlaceSuggestions(context.Background(), "ko"))
	assert.Equal(t, []string{"Kora Central", "Kora Park"}, offline().PlaceSuggestions(context.Background(), "Kora"))
}

func TestPlaceSuggestions_TrimsDedupesAndCaps(t *testing.T) {
	t.Parallel()
	gen := memmodel.Reply(`["A1", " A1 ", "", "B", "C", "D", "E", "F"]`)
	got := online(gen).PlaceSuggestions(context.Background(), "some place")

	assert.Equal(t, []string{"A1", "B", "C", "D", "E"}, got)
	reqs := gen.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Prompt, `"some place"`)
	assert.Equal(t, portmodel.TypeArray, reqs[0].Schema.Type)
	assert.Equal(t, portmodel.TypeString, reqs[0].Schema.Items.Type)
}

func TestSmartRoutes_PostProcessing(t *testing.T) {
	t.Parallel()
	gen := memmodel.Reply(`[
		{"duration":"30 mins","cost":"₹60","comfortLevel":"low","summary":"Bus → Walk",
		 "segments":[
			{"mode":"bus","duration":"25 mins","instruction":"Take 500D to Silk Board","distance":"6 km"},
			{"mode":"CAB","duration":"1 min","instruction":"Cross the road","distance":"80 m"},
			{"mode":"Taxi","duration":"4 mins","instruction":"Ride to gate","distance":null}
		 ]},
		{"duration":"?","cost":"?","comfortLevel":"High","summary":"nothing","segments":[]},
		{"duration":"20 mins","cost":"₹200","comfortLevel":"posh","summary":"Cab",
		 "segments":[{"mode":"","duration":"20 mins","instruction":"Walk out"}]}
	]`)
	got := online(gen).SmartRoutes(context.Background(), "Home", "Office", []domain.RoutePreference{domain.RoutePreferenceFast, domain.RoutePreferenceComfortable})

	require.Len(t, got, 2, "route with no segments is dropped")

	r0 := got[0]
	assert.Equal(t, domain.RouteID("gen-0"), r0.ID)
	assert.Equal(t, domain.TransportModeBus, r0.Mode)
	assert.Equal(t, domain.ComfortLow, r0.ComfortLevel)
	assert.Equal(t, domain.TransportModeBus, r0.Segments[0].Mode)
	assert.Equal(t, domain.TransportModeWalking, r0.Segments[1].Mode, "80 m must be walked")
	assert.Equal(t, domain.TransportModeCab, r0.Segments[2].Mode)
	assert.Nil(t, r0.Segments[2].Distance)
	require.NotNil(t, r0.Segments[0].Distance)
	assert.Equal(t, "6 km", *r0.Segments[0].Distance)

	r1 := got[1]
	assert.Equal(t, domain.RouteID("gen-2"), r1.ID, "ids follow the position in the reply")
	assert.Equal(t, domain.TransportModeWalking, r1.Mode, "missing mode defaults to walking")
	assert.Equal(t, domain.ComfortMedium, r1.ComfortLevel)

	prompt := gen.Requests()[0].Prompt
	assert.Contains(t, prompt, `"Home"`)
	assert.Contains(t, prompt, `"Office"`)
	assert.Contains(t, prompt, "FAST, COMFORTABLE")
	assert.Contains(t, prompt, "150 meters")
}

func TestSmartRoutes_EveryShortSegmentIsWalking(t *testing.T) {
	t.Parallel()
	distances := []string{"10m", "149 meters", "0.1 km", "300 ft", "0.05 mi"}
	var b strings.Builder
	b.WriteString(`[{"duration":"x","cost":"x","comfortLevel":"High","summary":"x","segments":[`)
	for i, d := range distances {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"mode":"METRO","duration":"1 min","instruction":"go","distance":"` + d + `"}`)
	}
	b.WriteString(`]}]`)

	got := online(memmodel.Reply(b.String())).SmartRoutes(context.Background(), "a", "b", nil)
	require.Len(t, got, 1)
	for _, s := range got[0].Segments {
		assert.Equal(t, domain.TransportModeWalking, s.Mode, "distance %s", *s.Distance)
	}
}

func TestSmartRoutes_LongSegmentsKeepTheirMode(t *testing.T) {
	t.Parallel()
	gen := memmodel.Reply(`[
		{"duration":"20 mins","cost":"₹200","comfortLevel":"High","summary":"Cab",
		 "segments":[{"mode":"CAB","duration":"20 mins","instruction":"Cab to the airport","distance":"1,200m"}]},
		{"duration":"25 mins","cost":"₹40","comfortLevel":"Medium","summary":"Metro",
		 "segments":[{"mode":"METRO","duration":"25 mins","instruction":"Metro","distance":"1,5 km"}]},
		{"duration":"9 mins","cost":"₹30","comfortLevel":"Medium","summary":"Auto",
		 "segments":[{"mode":"AUTO","duration":"9 mins","instruction":"Auto","distance":"2,000 ft"}]}
	]`)
	got := online(gen).SmartRoutes(context.Background(), "Home", "Airport", nil)

	require.Len(t, got, 3)
	want := []domain.TransportMode{domain.TransportModeCab, domain.TransportModeMetro, domain.TransportModeAuto}
	for i, r := range got {
		assert.Equal(t, want[i], r.Segments[0].Mode, "distance %s", *r.Segments[0].Distance)
		assert.Equal(t, want[i], r.Mode)
	}
}

func TestMatches_FillsAvatarsAndSlot(t *testing.T) {
	t.Parallel()
	gen := memmodel.NewGenerator(
		memmodel.Response{Text: `[{"id":"a","name":"Priya","rating":4.5,"destination":"Airport"},{"name":"Ravi","rating":4.1}]`},
		memmodel.Response{Text: `[{"id":"x","name":"Meera","rating":4.9,"destination":"Airport"},{"id":"y","name":"Dev","rating":4.2,"destination":"Airport","scheduledTime":"9 AM"}]`},
	)
	g := online(gen)

	nearby := g.NearbyMatches(context.Background(), "Airport", domain.TransportModeAuto)
	require.Len(t, nearby, 2)
	assert.Equal(t, "https://picsum.photos/50/50?random=10", nearby[0].Avatar)
	assert.Equal(t, "https://picsum.photos/50/50?random=11", nearby[1].Avatar)
	assert.Equal(t, domain.ProfileID("match-1"), nearby[1].ID)
	assert.Equal(t, "Airport", nearby[1].Destination)

	scheduled := g.ScheduledMatches(context.Background(), "Airport", "Today at 06:00 PM")
	require.Len(t, scheduled, 2)
	assert.Equal(t, "https://picsum.photos/50/50?random=20", scheduled[0].Avatar)
	require.NotNil(t, scheduled[0].ScheduledTime)
	assert.Equal(t, "Today at 06:00 PM", *scheduled[0].ScheduledTime)
	assert.Equal(t, "9 AM", *scheduled[1].ScheduledTime)

	assert.Contains(t, gen.Requests()[0].Prompt, `using "AUTO"`)
	assert.Contains(t, gen.Requests()[1].Schema.Items.Properties, "scheduledTime")
}

func TestFailuresCollapseToEmpty(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		gen  portmodel.Generator
	}{
		{"generator error", memmodel.NewGenerator(memmodel.Response{Err: errors.New("503")})},
		{"malformed json", memmodel.Reply(`{"not":"an array"`)},
		{"object not array", memmodel.Reply(`{"duration":"x"}`)},
		{"empty text", memmodel.Reply("")},
		{"panicking generator", memmodel.Func(func(context.Context, portmodel.Request) (string, error) { panic("boom") })},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := online(tc.gen).SmartRoutes(context.Background(), "a", "b", nil)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestTimeoutCollapsesToEmpty(t *testing.T) {
	t.Parallel()
	slow := memmodel.Func(func(ctx context.Context, _ portmodel.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	g := gateway.New(slow, zerolog.Nop(), gateway.Options{Timeout: 20 * time.Millisecond})

	start := time.Now()
	got := g.NearbyMatches(context.Background(), "Airport", domain.TransportModeCab)
	assert.Empty(t, got)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestMetrics_CountOutcomes(t *testing.T) {
	// Not parallel: reads process-wide counters.
	counter := func(op, outcome string) float64 {
		return testutil.ToFloat64(gateway.CallsCounter(op, outcome))
	}
	skipped := counter("place_suggestions", "skipped")
	fallback := counter("nearby_matches", "fallback")

	offline().PlaceSuggestions(context.Background(), "x")
	offline().NearbyMatches(context.Background(), "Airport", domain.TransportModeCab)

	assert.Equal(t, skipped+1, counter("place_suggestions", "skipped"))
	assert.Equal(t, fallback+1, counter("nearby_matches", "fallback"))
}
