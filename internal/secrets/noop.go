package secrets

// NoopStore is the fallback for platforms without a secure store.
// Every operation returns ErrNotSupported.
type NoopStore struct{}

func (n *NoopStore) Get(account string) (string, error) {
	return "", ErrNotSupported
}

func (n *NoopStore) Set(account, value string) error {
	return ErrNotSupported
}

func (n *NoopStore) Delete(account string) error {
	return ErrNotSupported
}

func (n *NoopStore) IsSupported() bool {
	return false
}
