package arena

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlEventTypeFile is the top-level YAML structure for event type files.
type yamlEventTypeFile struct {
	EventType yamlEventType `yaml:"event_type"`
}

// yamlEventType is the YAML representation of an event type.
type yamlEventType struct {
	ID                   string           `yaml:"id"`
	Name                 string           `yaml:"name"`
	Arena                string           `yaml:"arena"`
	Sides                []yamlSide       `yaml:"sides"`
	RegistrationDuration string           `yaml:"registration_duration"`
	PreparationDuration  string           `yaml:"preparation_duration"`
	TimeLimit            string           `yaml:"time_limit"`
	BettingModel         string           `yaml:"betting_model"`
	EntryFee             int64            `yaml:"entry_fee"`
	TicketFee            int64            `yaml:"ticket_fee"`
	BringYourOwn         bool             `yaml:"bring_your_own"`
	AutoSchedule         bool             `yaml:"auto_schedule"`
	Recurrence           *yamlRecurrence  `yaml:"recurrence"`
}

// yamlSide is the YAML representation of one side.
type yamlSide struct {
	Index       int    `yaml:"index"`
	Name        string `yaml:"name"`
	Capacity    int    `yaml:"capacity"`
	Eligibility string `yaml:"eligibility"`
	AutoFill    bool   `yaml:"auto_fill"`
	LoaderHook  string `yaml:"loader_hook"`
	OutfitHook  string `yaml:"outfit_hook"`
}

// yamlRecurrence is the YAML representation of recurrence parameters.
type yamlRecurrence struct {
	ReferenceTime string `yaml:"reference_time"` // RFC 3339
	Interval      string `yaml:"interval"`       // Go duration
}

// LoadEventTypeFromFile reads and validates a single event type YAML file.
//
// Precondition: path must point to a valid YAML event type file.
// Postcondition: Returns a validated EventType or a non-nil error.
func LoadEventTypeFromFile(path string) (*EventType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading event type file %s: %w", path, err)
	}
	return LoadEventTypeFromBytes(data)
}

// LoadEventTypeFromBytes parses and validates an event type from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the event type schema.
// Postcondition: Returns a validated EventType or a non-nil error.
func LoadEventTypeFromBytes(data []byte) (*EventType, error) {
	var file yamlEventTypeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing event type YAML: %w", err)
	}

	t, err := convertYAMLEventType(file.EventType)
	if err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("validating event type: %w", err)
	}
	return t, nil
}

// LoadEventTypesFromDir loads all YAML files in a directory as event types.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns all validated event types or the first error encountered.
func LoadEventTypesFromDir(dir string) ([]*EventType, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading event type directory %s: %w", dir, err)
	}

	var types []*EventType
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		t, err := LoadEventTypeFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading event type from %s: %w", name, err)
		}
		types = append(types, t)
	}

	if len(types) == 0 {
		return nil, fmt.Errorf("no event type files found in %s", dir)
	}
	return types, nil
}

// convertYAMLEventType converts the parsed YAML structure into the domain type.
func convertYAMLEventType(yt yamlEventType) (*EventType, error) {
	t := &EventType{
		ID:                  yt.ID,
		Name:                yt.Name,
		ArenaID:             yt.Arena,
		BettingModel:        BettingModel(yt.BettingModel),
		Fees:                FeeSchedule{Entry: yt.EntryFee, Ticket: yt.TicketFee},
		BringYourOwn:        yt.BringYourOwn,
		AutoScheduleEnabled: yt.AutoSchedule,
	}

	var err error
	if t.RegistrationDuration, err = parseDuration(yt.ID, "registration_duration", yt.RegistrationDuration); err != nil {
		return nil, err
	}
	if t.PreparationDuration, err = parseDuration(yt.ID, "preparation_duration", yt.PreparationDuration); err != nil {
		return nil, err
	}
	if yt.TimeLimit != "" {
		if t.TimeLimit, err = parseDuration(yt.ID, "time_limit", yt.TimeLimit); err != nil {
			return nil, err
		}
	}

	for _, ys := range yt.Sides {
		t.Sides = append(t.Sides, Side{
			Index:       ys.Index,
			Name:        ys.Name,
			Capacity:    ys.Capacity,
			Eligibility: ys.Eligibility,
			AutoFill:    ys.AutoFill,
			LoaderHook:  ys.LoaderHook,
			OutfitHook:  ys.OutfitHook,
		})
	}

	if yt.Recurrence != nil {
		ref, err := time.Parse(time.RFC3339, yt.Recurrence.ReferenceTime)
		if err != nil {
			return nil, fmt.Errorf("event type %q: recurrence reference_time: %w", yt.ID, err)
		}
		interval, err := parseDuration(yt.ID, "recurrence interval", yt.Recurrence.Interval)
		if err != nil {
			return nil, err
		}
		t.Recurrence = &Recurrence{ReferenceTime: ref, Interval: interval}
	}

	return t, nil
}

func parseDuration(typeID, field, value string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("event type %q: %s must not be empty", typeID, field)
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("event type %q: %s %q is not a valid duration: %w", typeID, field, value, err)
	}
	return d, nil
}
