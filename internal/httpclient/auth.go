package httpclient

import "net/http"

// Auth applies credentials to an outgoing request.
type Auth interface {
	Apply(req *http.Request)
}

// NoAuth leaves the request untouched.
type NoAuth struct{}

func (NoAuth) Apply(req *http.Request) {}

// TokenAuth sends "Authorization: token <token>", the classic GitHub
// personal access token scheme.
type TokenAuth struct {
	Token string
}

func (a TokenAuth) Apply(req *http.Request) {
	if a.Token == "" {
		return
	}
	req.Header.Set("Authorization", "token "+a.Token)
}

// BearerAuth sends "Authorization: Bearer <token>".
type BearerAuth struct {
	Token string
}

func (a BearerAuth) Apply(req *http.Request) {
	if a.Token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+a.Token)
}

// BasicAuth sends HTTP Basic credentials.
type BasicAuth struct {
	Username string
	Password string
}

func (a BasicAuth) Apply(req *http.Request) {
	if a.Username == "" && a.Password == "" {
		return
	}
	req.SetBasicAuth(a.Username, a.Password)
}
