package domain

// TokenProvider supplies the bearer token for authenticated calls. The
// token is opaque to the request layer; acquisition and refresh belong
// to the auth collaborator.
type TokenProvider interface {
	// Token returns the current token, or ok=false when the user is not
	// authenticated.
	Token() (token string, ok bool)
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func() (string, bool)

func (f TokenFunc) Token() (string, bool) { return f() }

// StaticToken is a fixed-token provider, useful for config-backed
// tokens and tests.
type StaticToken string

func (t StaticToken) Token() (string, bool) { return string(t), t != "" }
