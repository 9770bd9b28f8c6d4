package tokensource

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// TokenPair is the token endpoint's answer, passed through as received.
// No expiry bookkeeping happens here; see Token for an expiring oauth2.Token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
}

// Token converts the pair to an oauth2.Token whose Expiry is counted from issuedAt.
func (p *TokenPair) Token(issuedAt time.Time) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  p.AccessToken,
		TokenType:    p.TokenType,
		RefreshToken: p.RefreshToken,
		ExpiresIn:    p.ExpiresIn,
	}
	if p.ExpiresIn > 0 {
		token.Expiry = issuedAt.Add(time.Duration(p.ExpiresIn) * time.Second)
	}
	if p.Scope != "" {
		token = token.WithExtra(map[string]any{"scope": p.Scope})
	}
	return token
}

// tokenResponse is a token endpoint body, success or RFC 6749 section 5.2 error.
type tokenResponse struct {
	TokenPair
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// TokenError is returned when the token endpoint rejects a grant.
type TokenError struct {
	Op          string
	StatusCode  int
	Code        string // e.g. "invalid_grant"
	Description string
}

func (e *TokenError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("%s: %s: %s (status %d)", e.Op, e.Code, e.Description, e.StatusCode)
	case e.Code != "":
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Code, e.StatusCode)
	default:
		return fmt.Sprintf("%s: token endpoint returned status %d", e.Op, e.StatusCode)
	}
}
