package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"todoctl/internal/service"
)

// ErrNoSession is returned by LoadSession when nothing has been saved.
var ErrNoSession = errors.New("no saved session")

// SaveSession writes s to session.json with mode 0600.
func (c *Config) SaveSession(s service.SavedSession) error {
	if err := c.EnsureDir(); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.SessionPath(), data, 0600)
}

// LoadSession reads session.json. A missing file yields ErrNoSession.
func (c *Config) LoadSession() (service.SavedSession, error) {
	data, err := os.ReadFile(c.SessionPath())
	if errors.Is(err, fs.ErrNotExist) {
		return service.SavedSession{}, ErrNoSession
	}
	if err != nil {
		return service.SavedSession{}, err
	}
	var s service.SavedSession
	if err := json.Unmarshal(data, &s); err != nil {
		return service.SavedSession{}, fmt.Errorf("invalid %s: %w", SessionFile, err)
	}
	if s.Token == "" {
		return service.SavedSession{}, ErrNoSession
	}
	return s, nil
}

// RemoveSession deletes session.json. Removing a missing file is not an error.
func (c *Config) RemoveSession() error {
	err := os.Remove(c.SessionPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
