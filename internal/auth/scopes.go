package auth

import "strings"

// DefaultScopes are requested at login. offline_access yields a refresh
// token; openid and email yield the ID token naming the signed-in user.
var DefaultScopes = []string{
	"openid",
	"email",
	"offline_access",
	"mail.read",
	"mail.modify",
}

// ScopeString returns the scopes in OAuth2 wire form (space separated).
func ScopeString() string {
	return strings.Join(DefaultScopes, " ")
}
