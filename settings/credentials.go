// Package settings stores provider credentials in the XDG data directory:
//
//	$XDG_DATA_HOME/polyglot/auth.json  (default: ~/.local/share/polyglot/)
//
// File permissions are 0600 (owner read/write only).
//
// Lookup order for API keys:
//  1. --api-key flag
//  2. POLYGLOT_API_KEY, then the provider's conventional env var
//  3. this credential store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dataDirName = "polyglot"
	fileName    = "auth.json"
)

// Info is the stored credential for one provider.
type Info struct {
	// Key is the API key.
	Key string `json:"key,omitempty"`
	// BaseURL is a custom endpoint URL (custom-openai).
	BaseURL string `json:"baseUrl,omitempty"`
}

// Store holds all provider credentials, keyed by provider ID.
type Store map[string]*Info

// dataDir returns the XDG data directory for polyglot.
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

// AuthFilePath returns the auth.json path.
func AuthFilePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// LoadStore reads auth.json. A missing file yields an empty store.
func LoadStore() (Store, error) {
	path, err := AuthFilePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var s Store
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if s == nil {
		s = Store{}
	}
	return s, nil
}

// SaveStore writes auth.json with 0600 permissions.
func SaveStore(s Store) error {
	path, err := AuthFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// envVarsFor maps a provider ID to its conventional API key env vars.
func envVarsFor(providerID string) []string {
	switch providerID {
	case "openai", "custom-openai":
		return []string{"OPENAI_API_KEY"}
	case "anthropic":
		return []string{"ANTHROPIC_API_KEY"}
	case "google":
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case "groq":
		return []string{"GROQ_API_KEY"}
	}
	return nil
}

// ResolveAPIKey resolves the API key for a provider: explicit flag value,
// then env vars, then the credential store.
func ResolveAPIKey(providerID, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if key := os.Getenv("POLYGLOT_API_KEY"); key != "" {
		return key, nil
	}
	for _, env := range envVarsFor(providerID) {
		if key := os.Getenv(env); key != "" {
			return key, nil
		}
	}
	store, err := LoadStore()
	if err != nil {
		return "", err
	}
	if info, ok := store[providerID]; ok && info.Key != "" {
		return info.Key, nil
	}
	return "", nil
}

// StoredBaseURL returns the custom endpoint URL saved for a provider, or ""
// when none is stored. Flag and project config values take precedence; this
// is the last step in the base URL resolution chain.
func StoredBaseURL(providerID string) (string, error) {
	store, err := LoadStore()
	if err != nil {
		return "", err
	}
	if info, ok := store[providerID]; ok {
		return info.BaseURL, nil
	}
	return "", nil
}
