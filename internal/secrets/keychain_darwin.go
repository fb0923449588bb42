//go:build darwin

package secrets

import (
	"errors"

	"github.com/keybase/go-keychain"
)

func init() {
	store = &KeychainStore{service: serviceName}
}

// KeychainStore backs the package with the macOS Keychain. All items
// are generic passwords under one service; the account distinguishes
// the backends.
type KeychainStore struct {
	service string
}

// Get looks up the credential for the account.
func (k *KeychainStore) Get(account string) (string, error) {
	query := keychain.NewItem()
	query.SetSecClass(keychain.SecClassGenericPassword)
	query.SetService(k.service)
	query.SetAccount(account)
	query.SetMatchLimit(keychain.MatchLimitOne)
	query.SetReturnData(true)

	results, err := keychain.QueryItem(query)
	if err != nil {
		if errors.Is(err, keychain.ErrorItemNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if len(results) == 0 {
		return "", ErrNotFound
	}
	return string(results[0].Data), nil
}

// Set writes the credential, replacing any existing item. Items are
// marked non-synchronizable so keys never leave the machine via
// iCloud Keychain.
func (k *KeychainStore) Set(account, value string) error {
	// Delete-then-add keeps the item attributes consistent; a racing
	// duplicate still lands in the update path below.
	_ = k.Delete(account)

	item := keychain.NewItem()
	item.SetSecClass(keychain.SecClassGenericPassword)
	item.SetService(k.service)
	item.SetAccount(account)
	item.SetLabel(k.service + " - " + account)
	item.SetData([]byte(value))
	item.SetSynchronizable(keychain.SynchronizableNo)
	item.SetAccessible(keychain.AccessibleWhenUnlocked)

	err := keychain.AddItem(item)
	if errors.Is(err, keychain.ErrorDuplicateItem) {
		query := keychain.NewItem()
		query.SetSecClass(keychain.SecClassGenericPassword)
		query.SetService(k.service)
		query.SetAccount(account)

		update := keychain.NewItem()
		update.SetData([]byte(value))
		return keychain.UpdateItem(query, update)
	}
	return err
}

// Delete removes the credential for the account.
func (k *KeychainStore) Delete(account string) error {
	item := keychain.NewItem()
	item.SetSecClass(keychain.SecClassGenericPassword)
	item.SetService(k.service)
	item.SetAccount(account)

	err := keychain.DeleteItem(item)
	if errors.Is(err, keychain.ErrorItemNotFound) {
		return ErrNotFound
	}
	return err
}

// IsSupported reports true; the Keychain is always present on macOS.
func (k *KeychainStore) IsSupported() bool {
	return true
}
