package entities

// SessionState tracks where the session is in its verification lifecycle
type SessionState int

const (
	SessionUnverified SessionState = iota
	SessionVerifying
	SessionAuthenticated
	SessionUnauthenticated
)

// String method for SessionState enum
func (s SessionState) String() string {
	switch s {
	case SessionUnverified:
		return "Unverified"
	case SessionVerifying:
		return "Verifying"
	case SessionAuthenticated:
		return "Authenticated"
	case SessionUnauthenticated:
		return "Unauthenticated"
	default:
		return "Unknown"
	}
}

// Resolved reports whether verification has produced an answer
func (s SessionState) Resolved() bool {
	return s == SessionAuthenticated || s == SessionUnauthenticated
}

// Session is the credential and identity held for the current process.
// Token and User are always set or cleared together.
type Session struct {
	Token    string
	User     *UserProfile
	Verified bool
}

// Authenticated reports whether both a token and a user are present
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// NewAuthenticatedSession builds a fully populated session
func NewAuthenticatedSession(token string, user UserProfile, verified bool) Session {
	u := user
	return Session{Token: token, User: &u, Verified: verified}
}
