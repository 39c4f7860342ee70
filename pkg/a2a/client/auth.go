package client

import "net/http"

// Auth schemes for outbound requests.
const (
	SchemeBearer = "bearer"
	SchemeAPIKey = "api_key"
	SchemeOAuth2 = "oauth2"
	SchemeBasic  = "basic"

	defaultAPIKeyHeader = "X-API-Key"
)

// Credentials selects how a credential is attached to outbound requests.
// The zero value attaches nothing.
type Credentials struct {
	// Scheme is one of bearer, api_key, oauth2, basic. Unrecognized
	// schemes fall back to bearer.
	Scheme string

	// Token carries the bearer, api_key, or oauth2 credential.
	Token string

	// Header overrides the api_key header name.
	Header string

	// Username and Password are used by the basic scheme.
	Username string
	Password string
}

func (c Credentials) apply(req *http.Request) {
	switch c.Scheme {
	case SchemeAPIKey:
		if c.Token == "" {
			return
		}
		header := c.Header
		if header == "" {
			header = defaultAPIKeyHeader
		}
		req.Header.Set(header, c.Token)

	case SchemeBasic:
		if c.Username == "" && c.Password == "" {
			return
		}
		req.SetBasicAuth(c.Username, c.Password)

	default:
		// bearer and oauth2 both ride the Authorization header; oauth2
		// token acquisition happens out of band.
		if c.Token == "" {
			return
		}
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}
