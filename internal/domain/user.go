package domain

import "encoding/json"

// SessionKind discriminates the two variants of a session identity.
type SessionKind string

const (
	SessionKindAccount SessionKind = "account"
	SessionKindGuest   SessionKind = "guest"
)

// Guest identity used when a visitor explores without signing in.
const (
	GuestName  = "Guest"
	GuestEmail = "guest@nexus.flow"
)

// SessionUser is the identity held by the running client: either a signed-in
// account holder or the guest. It never carries credentials.
type SessionUser struct {
	Kind  SessionKind `json:"kind,omitempty"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
}

// NewGuestUser returns the guest session identity.
func NewGuestUser() SessionUser {
	return SessionUser{Kind: SessionKindGuest, Name: GuestName, Email: GuestEmail}
}

// NewAccountUser returns a session identity for an authenticated account.
func NewAccountUser(name, email string) SessionUser {
	return SessionUser{Kind: SessionKindAccount, Name: name, Email: email}
}

func (u SessionUser) IsGuest() bool { return u.Kind == SessionKindGuest }

// Initial returns the first letter of the display name, used for avatars.
func (u SessionUser) Initial() string {
	for _, r := range u.Name {
		return string(r)
	}
	return "?"
}

// UnmarshalJSON accepts session blobs written without a kind, which is how
// older clients stored them. The well-known guest identity decodes as guest.
func (u *SessionUser) UnmarshalJSON(b []byte) error {
	type raw SessionUser
	var r raw
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	if r.Kind == "" {
		r.Kind = SessionKindAccount
		if r.Name == GuestName && r.Email == GuestEmail {
			r.Kind = SessionKindGuest
		}
	}
	*u = SessionUser(r)
	return nil
}

// UserAccount is a registry entry. Password holds a bcrypt hash for accounts
// registered by this client, or a plaintext value inherited from older registries.
type UserAccount struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

// SessionUser strips credentials from the account.
func (a UserAccount) SessionUser() SessionUser {
	return NewAccountUser(a.Name, a.Email)
}
