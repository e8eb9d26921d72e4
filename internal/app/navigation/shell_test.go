package navigation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	memclock "github.com/nexusflow/nexusflow-client/internal/adapters/memory/clock"
	memkvstore "github.com/nexusflow/nexusflow-client/internal/adapters/memory/kvstore"
	"github.com/nexusflow/nexusflow-client/internal/app/localstore"
	"github.com/nexusflow/nexusflow-client/internal/app/navigation"
	"github.com/nexusflow/nexusflow-client/internal/domain"
)

func newShell(t *testing.T) (*navigation.Shell, *localstore.Store) {
	t.Helper()
	store := localstore.NewStore(memkvstore.NewStore(), zerolog.Nop())
	return navigation.New(context.Background(), store, zerolog.Nop()), store
}

func TestShell_IntroGoesToAuthWithoutUser(t *testing.T) {
	t.Parallel()
	sh, _ := newShell(t)
	if sh.View() != navigation.ViewIntro {
		t.Fatalf("initial view=%s", sh.View())
	}
	if v := sh.CompleteIntro(); v != navigation.ViewAuth {
		t.Fatalf("CompleteIntro=%s, want AUTH", v)
	}
}

func TestShell_IntroGoesToDashboardWithPersistedUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := localstore.NewStore(memkvstore.NewStore(), zerolog.Nop())
	u := domain.NewAccountUser("Ana", "a@x.com")
	if err := store.SaveUser(ctx, &u); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	sh := navigation.New(ctx, store, zerolog.Nop())
	if v := sh.CompleteIntro(); v != navigation.ViewDashboard {
		t.Fatalf("CompleteIntro=%s, want DASHBOARD", v)
	}
	if got := sh.User(); got == nil || got.Name != "Ana" {
		t.Fatalf("User()=%+v", got)
	}
}

func TestShell_GuardRewritesProtectedViewsAndResumes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sh, _ := newShell(t)
	sh.CompleteIntro()

	for _, v := range []navigation.View{navigation.ViewRoutes, navigation.ViewConnect, navigation.ViewPlanAhead, navigation.ViewProfile} {
		if got := sh.Navigate(v); got != navigation.ViewAuth {
			t.Fatalf("Navigate(%s)=%s, want AUTH", v, got)
		}
		if sh.Pending() != v {
			t.Fatalf("Pending()=%s, want %s", sh.Pending(), v)
		}
	}
	for _, v := range []navigation.View{navigation.ViewDashboard, navigation.ViewOracle, navigation.ViewVision} {
		if got := sh.Navigate(v); got != v {
			t.Fatalf("Navigate(%s)=%s, unprotected view was guarded", v, got)
		}
	}

	// Only the latest intercepted view is resumed.
	sh.Navigate(navigation.ViewConnect)
	if v := sh.EnterAsGuest(ctx); v != navigation.ViewConnect {
		t.Fatalf("EnterAsGuest=%s, want resumed CONNECT", v)
	}
	if sh.Pending() != "" {
		t.Fatalf("pending not cleared")
	}
	if u := sh.User(); u == nil || !u.IsGuest() || u.Email != domain.GuestEmail {
		t.Fatalf("User()=%+v", u)
	}
	if v := sh.Navigate(navigation.ViewProfile); v != navigation.ViewProfile {
		t.Fatalf("Navigate(PROFILE) as guest=%s", v)
	}
}

func TestShell_RegisterSignInLogout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sh, store := newShell(t)
	sh.CompleteIntro()

	v, err := sh.Register(ctx, "  Ana  ", "a@x.com", "p")
	if err != nil || v != navigation.ViewDashboard {
		t.Fatalf("Register=%s err=%v", v, err)
	}
	if u := store.GetUser(ctx); u == nil || u.Name != "Ana" {
		t.Fatalf("session not mirrored: %+v", u)
	}

	_, err = sh.Register(ctx, "Ana", "a@x.com", "q")
	var ne *navigation.Error
	if !errors.As(err, &ne) || ne.Code != navigation.CodeRegistrationRejected || ne.Message != localstore.MsgDuplicateEmail {
		t.Fatalf("duplicate Register err=%v", err)
	}

	if v := sh.Logout(ctx); v != navigation.ViewAuth {
		t.Fatalf("Logout=%s", v)
	}
	if sh.User() != nil || store.GetUser(ctx) != nil {
		t.Fatalf("session survived logout")
	}

	_, err = sh.SignIn(ctx, "a@x.com", "wrong")
	if !errors.As(err, &ne) || ne.Message != navigation.MsgInvalidCredentials {
		t.Fatalf("SignIn wrong password err=%v", err)
	}
	if sh.View() != navigation.ViewAuth {
		t.Fatalf("failed sign-in left AUTH: %s", sh.View())
	}

	sh.Navigate(navigation.ViewPlanAhead)
	v, err = sh.SignIn(ctx, "a@x.com", "p")
	if err != nil || v != navigation.ViewPlanAhead {
		t.Fatalf("SignIn=%s err=%v, want resumed PLAN_AHEAD", v, err)
	}
	if u := sh.User(); u == nil || u.IsGuest() || u.Email != "a@x.com" {
		t.Fatalf("User()=%+v", u)
	}
}

func TestParseView(t *testing.T) {
	t.Parallel()
	cases := map[string]navigation.View{
		"routes":     navigation.ViewRoutes,
		"plan-ahead": navigation.ViewPlanAhead,
		"PLAN_AHEAD": navigation.ViewPlanAhead,
		" oracle ":   navigation.ViewOracle,
	}
	for in, want := range cases {
		if got, ok := navigation.ParseView(in); !ok || got != want {
			t.Fatalf("ParseView(%q)=%s,%v", in, got, ok)
		}
	}
	if _, ok := navigation.ParseView("settings"); ok {
		t.Fatalf("unknown view parsed")
	}
}

func TestSplash_StagesOnVirtualTime(t *testing.T) {
	t.Parallel()
	clk := memclock.NewManualClock(time.Unix(1_700_000_000, 0))
	var seen []navigation.SplashStage
	sp := navigation.StartSplash(clk, func(s navigation.SplashStage) { seen = append(seen, s) })

	clk.Advance(499 * time.Millisecond)
	if sp.Stage() != navigation.SplashHidden {
		t.Fatalf("stage before 500ms=%v", sp.Stage())
	}
	clk.Advance(time.Millisecond)
	if sp.Stage() != navigation.SplashLogo {
		t.Fatalf("stage at 500ms=%v", sp.Stage())
	}
	clk.Advance(2300 * time.Millisecond)
	if sp.Stage() != navigation.SplashFadeOut {
		t.Fatalf("stage at 2800ms=%v", sp.Stage())
	}
	clk.Advance(600 * time.Millisecond)
	if sp.Stage() != navigation.SplashDone {
		t.Fatalf("stage at 3400ms=%v", sp.Stage())
	}
	want := []navigation.SplashStage{navigation.SplashLogo, navigation.SplashText, navigation.SplashFadeOut, navigation.SplashDone}
	if len(seen) != len(want) {
		t.Fatalf("seen=%v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("seen=%v, want %v", seen, want)
		}
	}
}

func TestSplash_StopCancelsRemainingStages(t *testing.T) {
	t.Parallel()
	clk := memclock.NewManualClock(time.Unix(0, 0))
	done := false
	sp := navigation.StartSplash(clk, func(s navigation.SplashStage) {
		if s == navigation.SplashDone {
			done = true
		}
	})
	clk.Advance(1300 * time.Millisecond)
	sp.Stop()
	sp.Stop()
	clk.Advance(10 * time.Second)

	if done || sp.Stage() != navigation.SplashText {
		t.Fatalf("stage=%v done=%v after Stop", sp.Stage(), done)
	}
	if clk.Pending() != 0 {
		t.Fatalf("Pending()=%d", clk.Pending())
	}
}
