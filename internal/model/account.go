package model

import "crypto/ecdsa"

// Account is a (secret, identity) pair. The secret never leaves this struct
// except through Key, which only the transport layer calls for signing.
type Account struct {
	Identity string
	key      *ecdsa.PrivateKey
}

// NewAccount binds an identity to its private key.
func NewAccount(identity string, key *ecdsa.PrivateKey) Account {
	return Account{Identity: identity, key: key}
}

// Key returns the signing key.
func (a Account) Key() *ecdsa.PrivateKey { return a.key }

func (a Account) String() string { return a.Identity }

// MarshalText keeps the secret out of any encoder.
func (a Account) MarshalText() ([]byte, error) { return []byte(a.Identity), nil }
