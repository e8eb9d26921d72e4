package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nexusflow/nexusflow-client/internal/app/connect"
	"github.com/nexusflow/nexusflow-client/internal/app/localstore"
	"github.com/nexusflow/nexusflow-client/internal/app/navigation"
	"github.com/nexusflow/nexusflow-client/internal/app/planahead"
	"github.com/nexusflow/nexusflow-client/internal/app/profile"
	"github.com/nexusflow/nexusflow-client/internal/app/routes"
	"github.com/nexusflow/nexusflow-client/internal/domain"
)

var prefAliases = map[string]domain.RoutePreference{
	"fast":           domain.RoutePreferenceFast,
	"cost":           domain.RoutePreferenceCostEfficient,
	"cost_efficient": domain.RoutePreferenceCostEfficient,
	"cheap":          domain.RoutePreferenceCostEfficient,
	"comfortable":    domain.RoutePreferenceComfortable,
	"comfort":        domain.RoutePreferenceComfortable,
}

func parsePrefs(in []string) ([]domain.RoutePreference, error) {
	out := make([]domain.RoutePreference, 0, len(in))
	for _, s := range in {
		p, ok := prefAliases[strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))]
		if !ok {
			return nil, fmt.Errorf("unknown preference %q (fast, cost, comfortable)", s)
		}
		out = append(out, p)
	}
	return out, nil
}

func newRoutesCmd(f *rootFlags) *cobra.Command {
	var from, to string
	var prefs []string
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Generate multimodal routes to a destination",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = f.withApp(func(ctx context.Context, a *app, out io.Writer) error {
		if err := guard(a, navigation.ViewRoutes); err != nil {
			return err
		}
		ps, err := parsePrefs(prefs)
		if err != nil {
			return err
		}
		flow := routes.New(a.gw)
		flow.SetOrigin(from)
		flow.SetDestination(to)
		if !flow.Next() {
			return fmt.Errorf("--to is required")
		}
		for _, p := range ps {
			flow.TogglePreference(p)
		}
		st := flow.Search(ctx)
		return f.print(out, st.Routes, func(w io.Writer) {
			if len(st.Routes) == 0 {
				fmt.Fprintln(w, "No routes found.")
				return
			}
			for _, r := range st.Routes {
				fmt.Fprintf(w, "%s  %-8s %-10s %-8s %-7s %s\n", r.ID, r.Mode, r.Duration, r.Cost, r.ComfortLevel, r.Summary)
				for _, s := range r.Segments {
					fmt.Fprintf(w, "    %-8s %-9s %s\n", s.Mode, s.Duration, s.Instruction)
				}
				fmt.Fprintf(w, "    map: %s\n", routes.MapURL(st.Origin, st.Destination, r))
			}
		})
	})
	cmd.Flags().StringVar(&from, "from", routes.DefaultOrigin, "origin")
	cmd.Flags().StringVar(&to, "to", "", "destination (required)")
	cmd.Flags().StringSliceVar(&prefs, "pref", nil, "route preferences: fast, cost, comfortable")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func printProfiles(w io.Writer, ps []domain.UserProfile) {
	if len(ps) == 0 {
		fmt.Fprintln(w, "No matches found.")
		return
	}
	for _, p := range ps {
		line := fmt.Sprintf("%-10s %-16s %.1f  %s", p.ID, p.Name, p.Rating, p.Destination)
		if p.ScheduledTime != nil {
			line += "  @ " + *p.ScheduledTime
		}
		fmt.Fprintln(w, line)
	}
}

func newMatchesCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "matches", Short: "Find travellers to share a ride with"}

	var to, mode string
	nearby := &cobra.Command{
		Use:   "nearby",
		Short: "Find travellers nearby heading the same way and form a group",
		Args:  cobra.NoArgs,
	}
	nearby.RunE = f.withApp(func(ctx context.Context, a *app, out io.Writer) error {
		if err := guard(a, navigation.ViewConnect); err != nil {
			return err
		}
		m, ok := domain.ParseTransportMode(mode)
		if !ok {
			return fmt.Errorf("unknown mode %q", mode)
		}
		flow := connect.New(a.gw, a.clk, *a.shell.User())
		defer flow.Close()
		if !flow.SetMode(m) {
			return fmt.Errorf("mode must be cab or auto")
		}
		flow.SetDestination(to)
		st := flow.Search(ctx)
		if flow.Join() {
			st = flow.State()
		}
		return f.print(out, st, func(w io.Writer) {
			printProfiles(w, st.Matches)
			if g := st.Group; g != nil {
				fmt.Fprintf(w, "\ngroup %s  %s  %s %d/%d\n", g.ID, g.Mode, g.Status, len(g.Users), g.MaxUsers)
			}
		})
	})
	nearby.Flags().StringVar(&to, "to", "", "destination (required)")
	nearby.Flags().StringVar(&mode, "mode", "cab", "shared mode: cab or auto")
	_ = nearby.MarkFlagRequired("to")

	var sto, date, at string
	var confirm bool
	scheduled := &cobra.Command{
		Use:   "scheduled",
		Short: "Find travellers for a future time slot, optionally confirming the trip",
		Args:  cobra.NoArgs,
	}
	scheduled.RunE = f.withApp(func(ctx context.Context, a *app, out io.Writer) error {
		if err := guard(a, navigation.ViewPlanAhead); err != nil {
			return err
		}
		flow := planahead.New(a.gw, a.store, a.clk)
		flow.SetDestination(sto)
		flow.SetDate(date)
		if !flow.SetTime(at) {
			return fmt.Errorf("--time must be one of: %s", strings.Join(planahead.TimeSlots, ", "))
		}
		st := flow.Search(ctx)
		var trip *domain.ScheduledTrip
		if confirm {
			t, err := flow.Confirm(ctx)
			if err != nil {
				return err
			}
			trip = &t
		}
		return f.print(out, struct {
			Matches []domain.UserProfile  `json:"matches"`
			Trip    *domain.ScheduledTrip `json:"trip,omitempty"`
		}{st.Matches, trip}, func(w io.Writer) {
			printProfiles(w, st.Matches)
			if trip != nil {
				fmt.Fprintf(w, "\nconfirmed %s: %s, %s @ %s\n", trip.ID, trip.Destination, trip.Date, trip.Time)
			}
		})
	})
	scheduled.Flags().StringVar(&sto, "to", "", "destination (required)")
	scheduled.Flags().StringVar(&date, "date", planahead.DefaultDate, "day: "+strings.Join(planahead.Dates, ", "))
	scheduled.Flags().StringVar(&at, "time", planahead.DefaultTime, "time slot")
	scheduled.Flags().BoolVar(&confirm, "confirm", false, "save the planned trip")
	_ = scheduled.MarkFlagRequired("to")

	cmd.AddCommand(nearby, scheduled)
	return cmd
}

func newPlacesCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "places QUERY",
		Short: "Suggest place names for a partial query",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		q := strings.Join(args, " ")
		return f.withApp(func(ctx context.Context, a *app, out io.Writer) error {
			ps := a.gw.PlaceSuggestions(ctx, q)
			return f.print(out, ps, func(w io.Writer) {
				for _, p := range ps {
					fmt.Fprintln(w, p)
				}
			})
		})(c, args)
	}
	return cmd
}

func newAccountCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "account", Short: "Manage the session account"}

	var name, email, password string
	register := &cobra.Command{Use: "register", Short: "Create an account and sign in", Args: cobra.NoArgs}
	register.RunE = f.withApp(func(ctx context.Context, a *app, out io.Writer) error {
		if _, err := a.shell.Register(ctx, name, email, password); err != nil {
			return err
		}
		fmt.Fprintln(out, localstore.MsgAccountCreated)
		return nil
	})
	register.Flags().StringVar(&name, "name", "", "display name")
	register.Flags().StringVar(&email, "email", "", "email")
	register.Flags().StringVar(&password, "password", "", "password")

	var lemail, lpassword string
	login := &cobra.Command{Use: "login", Short: "Sign in to an existing account", Args: cobra.NoArgs}
	login.RunE = f.withApp(func(ctx context.Context, a *app, out io.Writer) error {
		if _, err := a.shell.SignIn(ctx, lemail, lpassword); err != nil {
			return err
		}
		fmt.Fprintf(out, "Signed in as %s.\n", a.shell.User().Name)
		return nil
	})
	login.Flags().StringVar(&lemail, "email", "", "email")
	login.Flags().StringVar(&lpassword, "password", "", "password")

	guest := &cobra.Command{Use: "guest", Short: "Continue as guest", Args: cobra.NoArgs}
	guest.RunE = f.withApp(func(ctx context.Context, a *app, out io.Writer) error {
		a.shell.EnterAsGuest(ctx)
		fmt.Fprintln(out, "Continuing as guest.")
		return nil
	})

	logout := &cobra.Command{Use: "logout", Short: "End the session", Args: cobra.NoArgs}
	logout.RunE = f.withApp(func(ctx context.Context, a *app, out io.Writer) error {
		a.shell.Logout(ctx)
		fmt.Fprintln(out, "Signed out.")
		return nil
	})

	whoami := &cobra.Command{Use: "whoami", Short: "Show the session user", Args: cobra.NoArgs}
	whoami.RunE = f.withApp(func(_ context.Context, a *app, out io.Writer) error {
		u := a.shell.User()
		return f.print(out, u, func(w io.Writer) {
			if u == nil {
				fmt.Fprintln(w, "Not signed in.")
				return
			}
			fmt.Fprintf(w, "%s <%s> (%s)\n", u.Name, u.Email, u.Kind)
		})
	})

	cmd.AddCommand(register, login, guest, logout, whoami)
	return cmd
}

func newTripsCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "trips", Short: "Planned trips"}

	list := &cobra.Command{Use: "list", Short: "List upcoming trips", Args: cobra.NoArgs}
	list.RunE = f.withApp(func(ctx context.Context, a *app, out io.Writer) error {
		if err := guard(a, navigation.ViewProfile); err != nil {
			return err
		}
		trips := profile.New(ctx, a.store, a.shell).Trips()
		return f.print(out, trips, func(w io.Writer) { printTrips(w, trips) })
	})

	cancel := &cobra.Command{Use: "cancel TRIP_ID", Short: "Cancel a planned trip", Args: cobra.ExactArgs(1)}
	cancel.RunE = func(c *cobra.Command, args []string) error {
		id := domain.TripID(args[0])
		return f.withApp(func(ctx context.Context, a *app, out io.Writer) error {
			if err := guard(a, navigation.ViewProfile); err != nil {
				return err
			}
			trips, err := profile.New(ctx, a.store, a.shell).Cancel(ctx, id)
			if err != nil {
				return err
			}
			return f.print(out, trips, func(w io.Writer) { printTrips(w, trips) })
		})(c, args)
	}

	cmd.AddCommand(list, cancel)
	return cmd
}

func printTrips(w io.Writer, trips []domain.ScheduledTrip) {
	if len(trips) == 0 {
		fmt.Fprintln(w, "No future syncs found.")
		return
	}
	for _, t := range trips {
		fmt.Fprintf(w, "%-20s %-24s %s @ %s  %d users  %s\n", t.ID, t.Destination, t.Date, t.Time, t.GroupSize, t.Status)
	}
}
