package shared

// Principal is the authenticated actor resolved from a session or bearer token.
// It is built once per request and handed to guards and services explicitly.
type Principal struct {
	UserID      string   `json:"id"`
	Username    string   `json:"username"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// DisplayName returns the name used in timelines and audit entries.
func (p *Principal) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	return p.Username
}

// AuthState describes how far authentication has resolved for a request.
type AuthState int

const (
	// AuthLoading means the session backend could not give a definite answer yet.
	AuthLoading AuthState = iota
	// AuthUnauthenticated means no valid session or token was presented.
	AuthUnauthenticated
	// AuthAuthenticated means a principal was resolved.
	AuthAuthenticated
)

// String implements fmt.Stringer.
func (s AuthState) String() string {
	switch s {
	case AuthLoading:
		return "LOADING"
	case AuthUnauthenticated:
		return "UNAUTHENTICATED"
	case AuthAuthenticated:
		return "AUTHENTICATED"
	default:
		return "UNKNOWN"
	}
}

// SystemActor is the attribution used for entries written by the application itself.
const SystemActor = "System"
