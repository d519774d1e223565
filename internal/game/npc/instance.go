package npc

// Instance is a live NPC combatant spawned from a template. Its position is
// tracked by the actor manager under the same ID; the instance carries the
// combat stats.
type Instance struct {
	// ID uniquely identifies this runtime instance.
	ID string
	// TemplateID is the source template's ID.
	TemplateID string
	// Name is copied from the template for display.
	Name string
	// StageName is the announcer name copied from the template.
	StageName string
	// Class is the combatant class copied from the template.
	Class string
	// HomeCellID is where the instance spawned and belongs between bouts.
	HomeCellID string
	// CurrentHP is the instance's current hit points.
	CurrentHP int
	// MaxHP is the instance's maximum hit points.
	MaxHP int
	// AC is the instance's armor class.
	AC int
	// Level is the instance's level.
	Level int
	// Perception is the instance's perception modifier.
	Perception int
}

// NewInstance creates a live NPC instance from a template.
//
// Precondition: id must be non-empty; tmpl must be non-nil.
// Postcondition: CurrentHP equals tmpl.MaxHP.
func NewInstance(id string, tmpl *Template) *Instance {
	return &Instance{
		ID:         id,
		TemplateID: tmpl.ID,
		Name:       tmpl.Name,
		StageName:  tmpl.DisplayStageName(),
		Class:      tmpl.Class,
		HomeCellID: tmpl.HomeCellID,
		CurrentHP:  tmpl.MaxHP,
		MaxHP:      tmpl.MaxHP,
		AC:         tmpl.AC,
		Level:      tmpl.Level,
		Perception: tmpl.Perception,
	}
}

// IsDead reports whether the instance has zero or fewer hit points.
func (i *Instance) IsDead() bool {
	return i.CurrentHP <= 0
}

// Revive restores the instance to full hit points.
//
// Postcondition: IsDead() reports false.
func (i *Instance) Revive() {
	i.CurrentHP = i.MaxHP
}

// HealthDescription returns a visible health state string suitable for examine output.
//
// Postcondition: Returns a non-empty string.
func (i *Instance) HealthDescription() string {
	if i.CurrentHP <= 0 {
		return "dead"
	}
	pct := float64(i.CurrentHP) / float64(i.MaxHP)
	switch {
	case pct >= 1.0:
		return "unharmed"
	case pct >= 0.85:
		return "barely scratched"
	case pct >= 0.60:
		return "lightly wounded"
	case pct >= 0.40:
		return "moderately wounded"
	case pct >= 0.20:
		return "heavily wounded"
	default:
		return "critically wounded"
	}
}
