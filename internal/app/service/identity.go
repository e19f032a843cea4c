package service

// Identity is who a request acts for: a guest holding an anonymous session,
// or a logged-in user. Every cart and checkout operation receives one.
type Identity interface {
	SessionID() uint
	isIdentity()
}

// GuestIdentity is an anonymous shopper identified by the session cookie.
type GuestIdentity struct {
	Session uint
}

func (g GuestIdentity) SessionID() uint { return g.Session }
func (GuestIdentity) isIdentity()       {}

// UserIdentity is an authenticated shopper and their current session.
type UserIdentity struct {
	UserID  uint
	Session uint
}

func (u UserIdentity) SessionID() uint { return u.Session }
func (UserIdentity) isIdentity()       {}

// UserIDOf returns the user id when id is a UserIdentity.
func UserIDOf(id Identity) (uint, bool) {
	if u, ok := id.(UserIdentity); ok {
		return u.UserID, true
	}
	return 0, false
}
