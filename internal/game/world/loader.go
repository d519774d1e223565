package world

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlArenaFile is the top-level YAML structure for arena files.
type yamlArenaFile struct {
	Arena yamlArena `yaml:"arena"`
}

// yamlArena is the YAML representation of a combat arena.
type yamlArena struct {
	ID               string     `yaml:"id"`
	Name             string     `yaml:"name"`
	FightFloor       string     `yaml:"fight_floor"`
	WaitingCells     []string   `yaml:"waiting_cells"`
	ObservationCells []string   `yaml:"observation_cells"`
	Currency         string     `yaml:"currency"`
	Account          string     `yaml:"account"`
	Cells            []yamlCell `yaml:"cells"`
}

// yamlCell is the YAML representation of a cell.
type yamlCell struct {
	ID          string            `yaml:"id"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Kind        string            `yaml:"kind"`
	SideIndex   *int              `yaml:"side_index"`
	Properties  map[string]string `yaml:"properties"`
}

// LoadArenaFromFile reads and validates a single arena YAML file.
//
// Precondition: path must point to a valid YAML arena file.
// Postcondition: Returns a validated CombatArena or a non-nil error.
func LoadArenaFromFile(path string) (*CombatArena, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading arena file %s: %w", path, err)
	}
	return LoadArenaFromBytes(data)
}

// LoadArenaFromBytes parses and validates an arena from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the arena schema.
// Postcondition: Returns a validated CombatArena or a non-nil error.
func LoadArenaFromBytes(data []byte) (*CombatArena, error) {
	var file yamlArenaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing arena YAML: %w", err)
	}

	arena := convertYAMLArena(file.Arena)
	if err := arena.Validate(); err != nil {
		return nil, fmt.Errorf("validating arena: %w", err)
	}

	return arena, nil
}

// LoadArenasFromDir loads all YAML files in a directory as arenas.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns all validated arenas or the first error encountered.
func LoadArenasFromDir(dir string) ([]*CombatArena, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading arena directory %s: %w", dir, err)
	}

	var arenas []*CombatArena
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		arena, err := LoadArenaFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading arena from %s: %w", name, err)
		}
		arenas = append(arenas, arena)
	}

	if len(arenas) == 0 {
		return nil, fmt.Errorf("no arena files found in %s", dir)
	}

	return arenas, nil
}

// convertYAMLArena converts the parsed YAML structures into domain types.
func convertYAMLArena(ya yamlArena) *CombatArena {
	arena := &CombatArena{
		ID:                 ya.ID,
		Name:               ya.Name,
		FightFloorID:       ya.FightFloor,
		WaitingCellIDs:     ya.WaitingCells,
		ObservationCellIDs: ya.ObservationCells,
		Currency:           ya.Currency,
		AccountID:          ya.Account,
		Cells:              make(map[string]*Cell, len(ya.Cells)),
	}

	for _, yc := range ya.Cells {
		cell := &Cell{
			ID:          yc.ID,
			ArenaID:     ya.ID,
			Title:       yc.Title,
			Description: strings.TrimSpace(yc.Description),
			Kind:        CellKind(yc.Kind),
			SideIndex:   -1,
			Properties:  yc.Properties,
		}
		if yc.SideIndex != nil {
			cell.SideIndex = *yc.SideIndex
		}
		if cell.Properties == nil {
			cell.Properties = make(map[string]string)
		}
		arena.Cells[cell.ID] = cell
	}

	return arena
}
