package auth

// Phase is the aggregate client-side auth state.
type Phase string

const (
	PhaseBothLoading         Phase = "bothLoading"
	PhaseOAuthAuthenticated  Phase = "oauthAuthenticated"
	PhaseCustomAuthenticated Phase = "customAuthenticated"
	PhaseUnauthenticated     Phase = "unauthenticated"
)

// SourceStatus is the state of one session source as seen by a client.
type SourceStatus string

const (
	SourceLoading         SourceStatus = "loading"
	SourceAuthenticated   SourceStatus = "authenticated"
	SourceUnauthenticated SourceStatus = "unauthenticated"
)

// ClientUser is the profile a client can display.
type ClientUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

type Source struct {
	Status SourceStatus
	User   *ClientUser
}

// ClientState tracks both session sources. The zero value has both loading.
type ClientState struct {
	OAuth  Source
	Custom Source
}

type EventType int

const (
	// EventRefresh marks both sources as loading again.
	EventRefresh EventType = iota
	// EventOAuthResolved carries the OAuth probe result; a nil user means none.
	EventOAuthResolved
	// EventCustomResolved carries the custom-session probe result.
	EventCustomResolved
	// EventSignedOut drops both sources.
	EventSignedOut
)

type ClientEvent struct {
	Type EventType
	User *ClientUser
}

// Reduce folds ev into s. It is pure.
func Reduce(s ClientState, ev ClientEvent) ClientState {
	switch ev.Type {
	case EventRefresh:
		return ClientState{}
	case EventOAuthResolved:
		s.OAuth = resolved(ev.User)
	case EventCustomResolved:
		s.Custom = resolved(ev.User)
	case EventSignedOut:
		s.OAuth = Source{Status: SourceUnauthenticated}
		s.Custom = Source{Status: SourceUnauthenticated}
	}
	return s
}

func resolved(u *ClientUser) Source {
	if u == nil {
		return Source{Status: SourceUnauthenticated}
	}
	return Source{Status: SourceAuthenticated, User: u}
}

func (s Source) status() SourceStatus {
	if s.Status == "" {
		return SourceLoading
	}
	return s.Status
}

// Phase stays loading until both sources have answered. The OAuth identity
// is authoritative when both are authenticated.
func (s ClientState) Phase() Phase {
	if s.OAuth.status() == SourceLoading || s.Custom.status() == SourceLoading {
		return PhaseBothLoading
	}
	if s.OAuth.status() == SourceAuthenticated {
		return PhaseOAuthAuthenticated
	}
	if s.Custom.status() == SourceAuthenticated {
		return PhaseCustomAuthenticated
	}
	return PhaseUnauthenticated
}

// User returns the user for the current phase, or nil.
func (s ClientState) User() *ClientUser {
	switch s.Phase() {
	case PhaseOAuthAuthenticated:
		return s.OAuth.User
	case PhaseCustomAuthenticated:
		return s.Custom.User
	}
	return nil
}

func (s ClientState) Authenticated() bool {
	p := s.Phase()
	return p == PhaseOAuthAuthenticated || p == PhaseCustomAuthenticated
}

// Provider reports which source the current identity came from.
func (s ClientState) Provider() Provider {
	switch s.Phase() {
	case PhaseOAuthAuthenticated:
		return ProviderOAuth
	case PhaseCustomAuthenticated:
		return ProviderCustom
	}
	return ""
}
