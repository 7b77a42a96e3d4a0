package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Distance units.
const (
	UnitsKilometers = "km"
	UnitsMiles      = "mi"
)

// UIPreferences stores persisted app preferences.
type UIPreferences struct {
	Units string `json:"units"`
}

// Miles reports whether distances are shown in miles.
func (p UIPreferences) Miles() bool {
	return p.Units == UnitsMiles
}

func (p UIPreferences) toggleUnits() UIPreferences {
	if p.Miles() {
		p.Units = UnitsKilometers
	} else {
		p.Units = UnitsMiles
	}
	return p
}

func defaultUIPreferences() UIPreferences {
	return UIPreferences{Units: UnitsKilometers}
}

// loadUIPreferences falls back to defaults on any read or decode error.
func loadUIPreferences(path string) UIPreferences {
	if path == "" {
		return defaultUIPreferences()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return defaultUIPreferences()
	}

	var prefs UIPreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return defaultUIPreferences()
	}
	if prefs.Units != UnitsMiles {
		prefs.Units = UnitsKilometers
	}
	return prefs
}

func saveUIPreferences(path string, prefs UIPreferences) error {
	if path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create prefs dir: %w", err)
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal prefs: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write prefs: %w", err)
	}
	return nil
}
