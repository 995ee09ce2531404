package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/janpow77/flowinvoice-sub001/config"
	"github.com/janpow77/flowinvoice-sub001/layout"
)

// ErrInvalidTheme is returned for themes other than light, dark or system
var ErrInvalidTheme = errors.New("invalid theme")

var themes = map[string]bool{"light": true, "dark": true, "system": true}

// Preferences are per-reviewer UI settings
type Preferences struct {
	Theme string            `json:"theme"`
	Split *layout.SplitView `json:"split"`
}

// PreferenceStore persists preferences in Storage
type PreferenceStore struct {
	storage  Storage
	defaults config.LayoutConfig
}

func NewPreferenceStore(storage Storage, defaults config.LayoutConfig) *PreferenceStore {
	return &PreferenceStore{storage: storage, defaults: defaults}
}

func preferenceKey(username string) string {
	return "prefs:" + username
}

// Get returns the stored preferences or the defaults
func (s *PreferenceStore) Get(ctx context.Context, username string) (*Preferences, error) {
	raw, err := s.storage.Get(ctx, preferenceKey(username))
	if errors.Is(err, ErrKeyNotFound) {
		return s.defaultPreferences()
	}
	if err != nil {
		return nil, err
	}

	var prefs Preferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return nil, fmt.Errorf("failed to decode preferences: %w", err)
	}
	if prefs.Split == nil {
		defaults, err := s.defaultPreferences()
		if err != nil {
			return nil, err
		}
		prefs.Split = defaults.Split
	}
	return &prefs, nil
}

func (s *PreferenceStore) Save(ctx context.Context, username string, prefs *Preferences) error {
	if !themes[prefs.Theme] {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, prefs.Theme)
	}
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	return s.storage.Set(ctx, preferenceKey(username), string(data), 0)
}

// Update loads the preferences, applies fn and saves the result
func (s *PreferenceStore) Update(ctx context.Context, username string, fn func(*Preferences) error) (*Preferences, error) {
	prefs, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := fn(prefs); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, username, prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

func (s *PreferenceStore) defaultPreferences() (*Preferences, error) {
	split, err := layout.NewSplitView(s.defaults.MinLeftWidth, s.defaults.MaxLeftWidth, s.defaults.DefaultLeftWidth)
	if err != nil {
		return nil, err
	}
	return &Preferences{Theme: "system", Split: split}, nil
}
