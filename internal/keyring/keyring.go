// Package keyring keeps the Discord bot token in the OS keychain so it does
// not have to live in .env or the config file.
package keyring

import (
	"errors"
	"fmt"
	"os"

	zkr "github.com/zalando/go-keyring"
)

const (
	serviceName = "salafibot"
	accountName = "discord-bot-token"
)

// ErrNotFound means no token is stored.
var ErrNotFound = errors.New("no token in keychain")

// Get retrieves the bot token from the OS keychain.
func Get() (string, error) {
	token, err := zkr.Get(serviceName, accountName)
	if errors.Is(err, zkr.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keychain get: %w", err)
	}
	return token, nil
}

// Set stores the bot token in the OS keychain.
func Set(token string) error {
	if token == "" {
		return fmt.Errorf("token is empty")
	}
	return zkr.Set(serviceName, accountName, token)
}

// Delete removes the bot token from the OS keychain.
func Delete() error {
	err := zkr.Delete(serviceName, accountName)
	if errors.Is(err, zkr.ErrNotFound) {
		return nil
	}
	return err
}

// Available returns true if the OS keychain is functional.
// Returns false if SALAFIBOT_KEYRING_DISABLED=1 is set (headless/CI/Docker).
// Otherwise probes the keychain with a test write/read/delete cycle.
func Available() bool {
	if os.Getenv("SALAFIBOT_KEYRING_DISABLED") == "1" {
		return false
	}
	testService := "salafibot-keyring-probe"
	testAccount := "probe"
	if err := zkr.Set(testService, testAccount, "ok"); err != nil {
		return false
	}
	_ = zkr.Delete(testService, testAccount)
	return true
}

// ResolveToken returns configured when set, otherwise the keychain token.
// A missing or unusable keychain yields an empty token and no error.
func ResolveToken(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if os.Getenv("SALAFIBOT_KEYRING_DISABLED") == "1" {
		return "", nil
	}
	token, err := Get()
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return token, err
}
