package routes_test

import (
	"context"
	"testing"

	"github.com/nexusflow/nexusflow-client/internal/app/routes"
	"github.com/nexusflow/nexusflow-client/internal/domain"
)

type plannerFunc func(ctx context.Context, origin, destination string, prefs []domain.RoutePreference) []domain.RouteOption

func (f plannerFunc) SmartRoutes(ctx context.Context, origin, destination string, prefs []domain.RoutePreference) []domain.RouteOption {
	return f(ctx, origin, destination, prefs)
}

func seg(m domain.TransportMode) domain.RouteSegment {
	return domain.RouteSegment{Mode: m, Instruction: "go", Duration: "5 min"}
}

func TestFlow_StepsAndSearch(t *testing.T) {
	t.Parallel()
	var gotOrigin, gotDest string
	var gotPrefs []domain.RoutePreference
	flow := routes.New(plannerFunc(func(_ context.Context, o, d string, p []domain.RoutePreference) []domain.RouteOption {
		gotOrigin, gotDest, gotPrefs = o, d, p
		return []domain.RouteOption{{ID: "gen-0"}, {ID: "gen-1"}}
	}))

	st := flow.State()
	if st.Step != routes.StepInput || st.Origin != routes.DefaultOrigin {
		t.Fatalf("initial state=%+v", st)
	}
	if flow.Next() {
		t.Fatalf("Next without destination advanced")
	}
	flow.SetDestination("Airport")
	if !flow.Next() || flow.State().Step != routes.StepPreferences {
		t.Fatalf("Next did not reach preferences")
	}

	flow.TogglePreference(domain.RoutePreferenceFast)
	flow.TogglePreference(domain.RoutePreferenceComfortable)
	flow.TogglePreference(domain.RoutePreferenceFast)

	st = flow.Search(context.Background())
	if gotOrigin != routes.DefaultOrigin || gotDest != "Airport" {
		t.Fatalf("planner got %q -> %q", gotOrigin, gotDest)
	}
	if len(gotPrefs) != 1 || gotPrefs[0] != domain.RoutePreferenceComfortable {
		t.Fatalf("prefs=%v", gotPrefs)
	}
	if st.Step != routes.StepResults || st.Loading || len(st.Routes) != 2 {
		t.Fatalf("results state=%+v", st)
	}
	if st.Selected == nil || st.Selected.ID != "gen-0" {
		t.Fatalf("first route not selected: %+v", st.Selected)
	}
	if !flow.Select("gen-1") || flow.State().Selected.ID != "gen-1" {
		t.Fatalf("Select(gen-1) failed")
	}
	if flow.Select("nope") {
		t.Fatalf("Select(unknown) succeeded")
	}
}

func TestFlow_EmptyResultsAreDisplayable(t *testing.T) {
	t.Parallel()
	flow := routes.New(plannerFunc(func(context.Context, string, string, []domain.RoutePreference) []domain.RouteOption {
		return []domain.RouteOption{}
	}))
	flow.SetDestination("Nowhere")
	st := flow.Search(context.Background())
	if st.Step != routes.StepResults || st.Loading || st.Selected != nil || len(st.Routes) != 0 {
		t.Fatalf("state=%+v", st)
	}
}

func TestFlow_StaleResolutionDropped(t *testing.T) {
	t.Parallel()
	flow := routes.New(nil)
	flow.SetDestination("Mall")

	first, _ := flow.Begin()
	second, st := flow.Begin()
	if !st.Loading {
		t.Fatalf("Begin did not set loading")
	}
	if flow.Resolve(first, []domain.RouteOption{{ID: "old"}}) {
		t.Fatalf("stale ticket resolved")
	}
	if !flow.State().Loading {
		t.Fatalf("stale resolution cleared loading")
	}
	if !flow.Resolve(second, []domain.RouteOption{{ID: "new"}}) {
		t.Fatalf("latest ticket rejected")
	}
	if sel := flow.State().Selected; sel == nil || sel.ID != "new" {
		t.Fatalf("selected=%+v", sel)
	}

	third, _ := flow.Begin()
	if !flow.Back() || flow.State().Step != routes.StepPreferences {
		t.Fatalf("Back from results failed")
	}
	if flow.Resolve(third, []domain.RouteOption{{ID: "late"}}) {
		t.Fatalf("search resolved after leaving results")
	}
}

func TestDirectionFlag(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		modes []domain.TransportMode
		want  string
	}{
		{"mostly cab", []domain.TransportMode{domain.TransportModeCab, domain.TransportModeAuto, domain.TransportModeWalking}, "d"},
		{"half cab is transit", []domain.TransportMode{domain.TransportModeCab, domain.TransportModeMetro}, "r"},
		{"all walking", []domain.TransportMode{domain.TransportModeWalking, domain.TransportModeWalking}, "w"},
		{"mixed transit", []domain.TransportMode{domain.TransportModeWalking, domain.TransportModeBus}, "r"},
	}
	for _, tc := range cases {
		var r domain.RouteOption
		for _, m := range tc.modes {
			r.Segments = append(r.Segments, seg(m))
		}
		if got := routes.DirectionFlag(r); got != tc.want {
			t.Fatalf("%s: DirectionFlag=%q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestMapURL(t *testing.T) {
	t.Parallel()
	r := domain.RouteOption{Segments: []domain.RouteSegment{seg(domain.TransportModeMetro)}}
	got := routes.MapURL("Current Location", "MG Road & 5th", r)
	want := "https://maps.google.com/maps?saddr=Current%20Location&daddr=MG%20Road%20%26%205th&dirflg=r&t=m&ie=UTF8&iwloc=&output=embed"
	if got != want {
		t.Fatalf("MapURL=%s\nwant   %s", got, want)
	}
	if got := routes.DirectionsURL("A B", "C"); got != "https://www.google.com/maps/dir/?api=1&origin=A%20B&destination=C&travelmode=transit" {
		t.Fatalf("DirectionsURL=%s", got)
	}
}
