// Package npc provides NPC template definitions, live instance management,
// and arena drafting with loadout capture and restore.
package npc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Abilities holds the six core ability scores for an NPC template.
type Abilities struct {
	Brutality int `yaml:"brutality"`
	Grit      int `yaml:"grit"`
	Quickness int `yaml:"quickness"`
	Reasoning int `yaml:"reasoning"`
	Savvy     int `yaml:"savvy"`
	Flair     int `yaml:"flair"`
}

// Template defines a reusable NPC archetype loaded from YAML.
type Template struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	// Class is the combatant class used against side eligibility rules.
	Class      string    `yaml:"class"`
	Level      int       `yaml:"level"`
	MaxHP      int       `yaml:"max_hp"`
	AC         int       `yaml:"ac"`
	Perception int       `yaml:"perception"`
	Abilities  Abilities `yaml:"abilities"`
	// HomeCellID is the cell a spawned instance starts in and is returned
	// to after a bout.
	HomeCellID string `yaml:"home_cell"`
	// StageName is the announcer name used on the card; defaults to Name.
	StageName string `yaml:"stage_name"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID is non-empty, Name is non-empty,
// Level >= 1, MaxHP >= 1, AC >= 10, and HomeCellID is non-empty; returns an
// error on the first violation otherwise.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("npc template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("npc template %q: name must not be empty", t.ID)
	}
	if t.Level < 1 {
		return fmt.Errorf("npc template %q: level must be >= 1", t.ID)
	}
	if t.MaxHP < 1 {
		return fmt.Errorf("npc template %q: max_hp must be >= 1", t.ID)
	}
	if t.AC < 10 {
		return fmt.Errorf("npc template %q: ac must be >= 10", t.ID)
	}
	if t.HomeCellID == "" {
		return fmt.Errorf("npc template %q: home_cell must not be empty", t.ID)
	}
	return nil
}

// DisplayStageName returns the announcer name for the card.
func (t *Template) DisplayStageName() string {
	if t.StageName != "" {
		return t.StageName
	}
	return t.Name
}

// LoadTemplateFromBytes parses a single NPC template from raw YAML bytes.
//
// Precondition: data must be valid YAML for a single Template.
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading npc dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
