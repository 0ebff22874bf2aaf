// Package catalog holds the built-in plant presets. Applying a preset is
// just a configuration change with the preset's four values.
package catalog

import (
	"fmt"
	"sort"

	"github.com/smartgrowth/smartgrowth-server/internal/models"
	"github.com/smartgrowth/smartgrowth-server/internal/store"
)

var presets = map[string]store.Settings{
	"Cucumber":    {Enabled: true, Intensity: 4, DurationMinutes: 20, Light: 155},
	"Green onion": {Enabled: true, Intensity: 3, DurationMinutes: 10, Light: 200},
	"Dill":        {Enabled: true, Intensity: 4, DurationMinutes: 15, Light: 137},
	"Tomato":      {Enabled: true, Intensity: 4, DurationMinutes: 20, Light: 255},
	"Parsley":     {Enabled: true, Intensity: 4, DurationMinutes: 12, Light: 175},
}

// Lookup resolves a preset by name.
func Lookup(name string) (store.Settings, error) {
	set, ok := presets[name]
	if !ok {
		return store.Settings{}, fmt.Errorf("unknown preset %q: %w", name, models.ErrInvalidSetting)
	}
	return set, nil
}

// Names lists the available presets in stable order.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
