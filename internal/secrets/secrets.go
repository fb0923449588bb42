// Package secrets keeps backend API keys out of the config file. On
// macOS they live in the system Keychain under the "Aical" service;
// elsewhere a noop store reports the platform as unsupported and keys
// stay in the config file or the environment.
package secrets

import "errors"

// serviceName scopes every Aical credential in the system keychain.
// Callers never pass it; stores that need a service apply it themselves.
const serviceName = "Aical"

// Keychain accounts, one per backend.
const (
	AccountNLPAPIKey      = "nlp-api-key"
	AccountCalendarAPIKey = "calendar-api-key"
)

var (
	// ErrNotFound reports that no credential is stored for the account.
	ErrNotFound = errors.New("credential not found")
	// ErrNotSupported reports that this platform has no secure store.
	ErrNotSupported = errors.New("secret store not supported on this platform")
)

// Store persists credentials keyed by account name. Implementations
// must be safe for concurrent use.
type Store interface {
	// Get returns the credential for the account, or ErrNotFound.
	Get(account string) (string, error)
	// Set stores the credential, replacing any existing value.
	Set(account, value string) error
	// Delete removes the credential, or returns ErrNotFound.
	Delete(account string) error
	// IsSupported reports whether this store actually persists anything.
	IsSupported() bool
}

// store is chosen by the platform-specific init().
var store Store

// Default returns the store for the current platform, never nil.
func Default() Store {
	if store == nil {
		store = &NoopStore{}
	}
	return store
}

// IsSupported reports whether secure credential storage is available.
func IsSupported() bool {
	return Default().IsSupported()
}

// GetNLPAPIKey returns the stored NLP backend API key.
func GetNLPAPIKey() (string, error) {
	return Default().Get(AccountNLPAPIKey)
}

// SetNLPAPIKey stores the NLP backend API key.
func SetNLPAPIKey(key string) error {
	return Default().Set(AccountNLPAPIKey, key)
}

// DeleteNLPAPIKey removes the NLP backend API key.
func DeleteNLPAPIKey() error {
	return Default().Delete(AccountNLPAPIKey)
}

// GetCalendarAPIKey returns the stored calendar backend API key.
func GetCalendarAPIKey() (string, error) {
	return Default().Get(AccountCalendarAPIKey)
}

// SetCalendarAPIKey stores the calendar backend API key.
func SetCalendarAPIKey(key string) error {
	return Default().Set(AccountCalendarAPIKey, key)
}

// DeleteCalendarAPIKey removes the calendar backend API key.
func DeleteCalendarAPIKey() error {
	return Default().Delete(AccountCalendarAPIKey)
}
