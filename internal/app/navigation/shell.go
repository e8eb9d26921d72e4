// Package navigation holds the top-level client state: the current view and
// the session user, with the authentication guard in front of protected views.
package navigation

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nexusflow/nexusflow-client/internal/app/localstore"
	"github.com/nexusflow/nexusflow-client/internal/domain"
)

type View string

const (
	ViewIntro     View = "INTRO"
	ViewAuth      View = "AUTH"
	ViewDashboard View = "DASHBOARD"
	ViewRoutes    View = "ROUTES"
	ViewConnect   View = "CONNECT"
	ViewPlanAhead View = "PLAN_AHEAD"
	ViewProfile   View = "PROFILE"
	ViewOracle    View = "ORACLE"
	ViewVision    View = "VISION"
)

// Views lists every view in menu order.
var Views = []View{ViewIntro, ViewAuth, ViewDashboard, ViewRoutes, ViewConnect, ViewPlanAhead, ViewProfile, ViewOracle, ViewVision}

var protected = map[View]bool{
	ViewRoutes:    true,
	ViewConnect:   true,
	ViewPlanAhead: true,
	ViewProfile:   true,
}

// IsProtected reports whether v requires a session user.
func IsProtected(v View) bool { return protected[v] }

// ParseView accepts a view name in any case, with - or _ separators.
func ParseView(s string) (View, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "-", "_")
	for _, v := range Views {
		if strings.EqualFold(string(v), s) {
			return v, true
		}
	}
	return "", false
}

// UserStore is the persistence the shell mirrors the session user to.
type UserStore interface {
	GetUser(ctx context.Context) *domain.SessionUser
	SaveUser(ctx context.Context, u *domain.SessionUser) error
	AuthenticateUser(ctx context.Context, email, password string) *domain.SessionUser
	RegisterUser(ctx context.Context, a domain.UserAccount) (localstore.RegisterResult, error)
}

// Shell owns the current view and session user. The store is a durable
// mirror written on every user change. It is safe for concurrent use.
type Shell struct {
	store UserStore
	log   zerolog.Logger

	mu      sync.Mutex
	view    View
	user    *domain.SessionUser
	pending View
}

// New starts at the intro with the persisted session user, if any.
func New(ctx context.Context, store UserStore, log zerolog.Logger) *Shell {
	return &Shell{
		store: store,
		log:   log.With().Str("component", "navigation").Logger(),
		view:  ViewIntro,
		user:  store.GetUser(ctx),
	}
}

func (s *Shell) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// User returns a copy of the session user, or nil.
func (s *Shell) User() *domain.SessionUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Pending is the protected view the guard intercepted, if any.
func (s *Shell) Pending() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// CompleteIntro leaves the splash for the dashboard, or for sign-in when
// there is no session user.
func (s *Shell) CompleteIntro() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != ViewIntro {
		return s.view
	}
	if s.user != nil {
		s.view = ViewDashboard
	} else {
		s.view = ViewAuth
	}
	return s.view
}

// Navigate moves to v. A protected view without a session user is rewritten
// to AUTH and remembered so it can be resumed after sign-in.
func (s *Shell) Navigate(v View) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if IsProtected(v) && s.user == nil {
		s.pending = v
		s.view = ViewAuth
		s.log.Debug().Str("requested", string(v)).Msg("sign-in required")
		return s.view
	}
	if v != ViewAuth {
		s.pending = ""
	}
	s.view = v
	return s.view
}

// Back returns to the dashboard, which every feature view exits to.
func (s *Shell) Back() View { return s.Navigate(ViewDashboard) }

// SignIn authenticates against the account registry.
func (s *Shell) SignIn(ctx context.Context, email, password string) (View, error) {
	u := s.store.AuthenticateUser(ctx, email, password)
	if u == nil {
		return s.View(), &Error{Code: CodeInvalidCredentials, Message: MsgInvalidCredentials}
	}
	return s.setUser(ctx, u), nil
}

// Register creates an account and signs it in.
func (s *Shell) Register(ctx context.Context, name, email, password string) (View, error) {
	res, err := s.store.RegisterUser(ctx, domain.UserAccount{Name: name, Email: email, Password: password})
	if err != nil {
		return s.View(), err
	}
	if !res.Success {
		return s.View(), &Error{Code: CodeRegistrationRejected, Message: res.Message}
	}
	u := domain.NewAccountUser(domain.NormalizeHumanName(name), domain.NormalizeEmail(email))
	return s.setUser(ctx, &u), nil
}

// EnterAsGuest starts a guest session.
func (s *Shell) EnterAsGuest(ctx context.Context) View {
	u := domain.NewGuestUser()
	return s.setUser(ctx, &u)
}

// Logout clears the session user and returns to sign-in.
func (s *Shell) Logout(ctx context.Context) View {
	s.mu.Lock()
	s.user = nil
	s.pending = ""
	s.view = ViewAuth
	s.mu.Unlock()
	s.mirror(ctx, nil)
	return ViewAuth
}

func (s *Shell) setUser(ctx context.Context, u *domain.SessionUser) View {
	s.mu.Lock()
	cp := *u
	s.user = &cp
	s.view = ViewDashboard
	if s.pending != "" {
		s.view = s.pending
		s.pending = ""
	}
	v := s.view
	s.mu.Unlock()
	s.mirror(ctx, &cp)
	s.log.Info().Str("email", cp.Email).Str("kind", string(cp.Kind)).Msg("session started")
	return v
}

// mirror writes the session user through. The in-memory user stays
// authoritative when the write fails.
func (s *Shell) mirror(ctx context.Context, u *domain.SessionUser) {
	if err := s.store.SaveUser(ctx, u); err != nil {
		s.log.Error().Err(err).Msg("persist session user")
	}
}
