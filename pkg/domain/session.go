package domain

import "golang.org/x/oauth2"

// AuthenticatedUser is the signed-in identity. It lives in memory only.
type AuthenticatedUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a provider-validated token pair and the user it belongs to.
type Session struct {
	Token *oauth2.Token
	User  AuthenticatedUser
}

// AccessToken returns the bearer credential, or "" for a nil session.
func (s *Session) AccessToken() string {
	if s == nil || s.Token == nil {
		return ""
	}
	return s.Token.AccessToken
}
