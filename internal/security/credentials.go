package security

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// Keyring service name
const keyringService = "churndb"

// ErrNotFound is returned when no credential is stored for an account
var ErrNotFound = errors.New("credential not found in keyring")

// Credential represents a stored database credential
type Credential struct {
	Account  string            `json:"account"`
	Type     string            `json:"type"`
	Value    string            `json:"value"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CredentialManager stores database passwords in the OS keyring
type CredentialManager struct {
	service string
}

// NewCredentialManager creates a new credential manager
func NewCredentialManager() *CredentialManager {
	return &CredentialManager{service: keyringService}
}

// Account builds the keyring account name for a database user
func Account(user, host string) string {
	if host == "" {
		return user
	}
	return fmt.Sprintf("%s@%s", user, host)
}

// StorePassword saves the password for user@host
func (cm *CredentialManager) StorePassword(user, host, password string) error {
	cred := Credential{
		Account:  Account(user, host),
		Type:     "password",
		Value:    password,
		Metadata: map[string]string{"host": host, "user": user},
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	if err := keyring.Set(cm.service, cred.Account, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// GetPassword returns the stored password for user@host
func (cm *CredentialManager) GetPassword(user, host string) (string, error) {
	data, err := keyring.Get(cm.service, Account(user, host))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read from keyring: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal([]byte(data), &cred); err != nil {
		// Entries set by other tools hold the bare password
		return data, nil
	}
	return cred.Value, nil
}

// DeletePassword removes the stored password for user@host
func (cm *CredentialManager) DeletePassword(user, host string) error {
	if err := keyring.Delete(cm.service, Account(user, host)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
