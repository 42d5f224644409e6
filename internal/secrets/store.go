package secrets

import (
	"errors"
	"fmt"
)

// Store persists small credentials such as OAuth refresh tokens.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	List() ([]string, error)
}

// ErrNotFound is returned when a key is not in the store.
var ErrNotFound = errors.New("key not found")

// ServiceName identifies korg entries in the OS keyring.
const ServiceName = "korg"

// RefreshTokenKey names the refresh token of one environment.
func RefreshTokenKey(env string) string {
	return fmt.Sprintf("refresh_token.%s", env)
}

// IdentityKey names the signed-in account of one environment.
func IdentityKey(env string) string {
	return fmt.Sprintf("identity.%s", env)
}
