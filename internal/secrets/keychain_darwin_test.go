//go:build darwin

package secrets

import (
	"errors"
	"testing"
)

// newTestStore isolates test items under their own keychain service.
func newTestStore() *KeychainStore {
	return &KeychainStore{service: "Aical-Test"}
}

func TestKeychainStoreIsSupported(t *testing.T) {
	if !newTestStore().IsSupported() {
		t.Error("IsSupported() = false, want true on macOS")
	}
}

func TestKeychainStoreRoundTrip(t *testing.T) {
	s := newTestStore()
	account := "roundtrip-account"
	_ = s.Delete(account)

	if err := s.Set(account, "key-v1"); err != nil {
		t.Fatalf("Set() = %v", err)
	}
	got, err := s.Get(account)
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if got != "key-v1" {
		t.Errorf("Get() = %q, want %q", got, "key-v1")
	}

	if err := s.Delete(account); err != nil {
		t.Errorf("Delete() = %v", err)
	}
	if _, err := s.Get(account); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete = %v, want ErrNotFound", err)
	}
}

func TestKeychainStoreReplacesExisting(t *testing.T) {
	s := newTestStore()
	account := "replace-account"
	_ = s.Delete(account)

	if err := s.Set(account, "key-v1"); err != nil {
		t.Fatalf("Set() = %v", err)
	}
	if err := s.Set(account, "key-v2"); err != nil {
		t.Fatalf("Set() replace = %v", err)
	}
	got, err := s.Get(account)
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if got != "key-v2" {
		t.Errorf("Get() = %q, want %q", got, "key-v2")
	}
	_ = s.Delete(account)
}

func TestKeychainStoreMissingAccount(t *testing.T) {
	s := newTestStore()
	if _, err := s.Get("never-stored"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() = %v, want ErrNotFound", err)
	}
	if err := s.Delete("never-stored"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() = %v, want ErrNotFound", err)
	}
}

func TestDefaultIsKeychainStore(t *testing.T) {
	if _, ok := Default().(*KeychainStore); !ok {
		t.Errorf("Default() = %T, want *KeychainStore on macOS", Default())
	}
	if !IsSupported() {
		t.Error("IsSupported() = false, want true on macOS")
	}
}
