package content

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
)

var (
	// ErrUnknownTemplate is returned when a combatant template ID is not registered.
	ErrUnknownTemplate = errors.New("unknown combatant template")
	// ErrUnknownEncounter is returned when an encounter ID is not registered.
	ErrUnknownEncounter = errors.New("unknown encounter")
)

// Registry holds all loaded definitions indexed by ID.
type Registry struct {
	skills     map[string]*SkillDef
	items      map[string]*ItemDef
	templates  map[string]*CombatantTemplate
	encounters map[string]*EncounterDef
}

// NewRegistry returns an empty Registry.
//
// Postcondition: all internal maps are initialised.
func NewRegistry() *Registry {
	return &Registry{
		skills:     make(map[string]*SkillDef),
		items:      make(map[string]*ItemDef),
		templates:  make(map[string]*CombatantTemplate),
		encounters: make(map[string]*EncounterDef),
	}
}

// Load reads skills/, items/, combatants/, and encounters/ under dir and
// returns a Registry whose cross-references have been checked.
//
// Precondition: all four subdirectories exist.
// Postcondition: Returns a fully linked Registry or the first error found.
func Load(dir string) (*Registry, error) {
	r := NewRegistry()

	skills, err := loadDir(filepath.Join(dir, "skills"), LoadSkillFromBytes)
	if err != nil {
		return nil, err
	}
	for _, s := range skills {
		if err := r.RegisterSkill(s); err != nil {
			return nil, err
		}
	}

	items, err := loadDir(filepath.Join(dir, "items"), LoadItemFromBytes)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := r.RegisterItem(it); err != nil {
			return nil, err
		}
	}

	templates, err := loadDir(filepath.Join(dir, "combatants"), LoadTemplateFromBytes)
	if err != nil {
		return nil, err
	}
	for _, t := range templates {
		if err := r.RegisterTemplate(t); err != nil {
			return nil, err
		}
	}

	encounters, err := loadDir(filepath.Join(dir, "encounters"), LoadEncounterFromBytes)
	if err != nil {
		return nil, err
	}
	for _, e := range encounters {
		if err := r.RegisterEncounter(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RegisterSkill adds s to the registry.
//
// Postcondition: returns error if s.ID already registered.
func (r *Registry) RegisterSkill(s *SkillDef) error {
	if _, exists := r.skills[s.ID]; exists {
		return fmt.Errorf("content: skill ID %q already registered", s.ID)
	}
	r.skills[s.ID] = s
	return nil
}

// RegisterItem adds d to the registry.
//
// Postcondition: returns error if d.ID already registered.
func (r *Registry) RegisterItem(d *ItemDef) error {
	if _, exists := r.items[d.ID]; exists {
		return fmt.Errorf("content: item ID %q already registered", d.ID)
	}
	r.items[d.ID] = d
	return nil
}

// RegisterTemplate adds t to the registry.
//
// Precondition: every skill and item t references is already registered.
// Postcondition: returns error on a duplicate ID or a dangling reference.
func (r *Registry) RegisterTemplate(t *CombatantTemplate) error {
	if _, exists := r.templates[t.ID]; exists {
		return fmt.Errorf("content: combatant template ID %q already registered", t.ID)
	}
	for _, id := range t.Skills {
		if _, ok := r.skills[id]; !ok {
			return fmt.Errorf("content: combatant template %q references unknown skill %q", t.ID, id)
		}
	}
	for _, id := range t.Items {
		if _, ok := r.items[id]; !ok {
			return fmt.Errorf("content: combatant template %q references unknown item %q", t.ID, id)
		}
	}
	r.templates[t.ID] = t
	return nil
}

// RegisterEncounter adds e to the registry.
//
// Precondition: every template e references is already registered.
// Postcondition: returns error on a duplicate ID or a dangling reference.
func (r *Registry) RegisterEncounter(e *EncounterDef) error {
	if _, exists := r.encounters[e.ID]; exists {
		return fmt.Errorf("content: encounter ID %q already registered", e.ID)
	}
	for _, id := range append(append([]string{}, e.Party...), e.Enemies...) {
		if _, ok := r.templates[id]; !ok {
			return fmt.Errorf("content: encounter %q: %w %q", e.ID, ErrUnknownTemplate, id)
		}
	}
	r.encounters[e.ID] = e
	return nil
}

// Skill returns the SkillDef for id and whether it was found.
func (r *Registry) Skill(id string) (*SkillDef, bool) {
	s, ok := r.skills[id]
	return s, ok
}

// Item returns the ItemDef for id and whether it was found.
func (r *Registry) Item(id string) (*ItemDef, bool) {
	d, ok := r.items[id]
	return d, ok
}

// Template returns the CombatantTemplate for id and whether it was found.
func (r *Registry) Template(id string) (*CombatantTemplate, bool) {
	t, ok := r.templates[id]
	return t, ok
}

// Encounter returns the EncounterDef for id and whether it was found.
func (r *Registry) Encounter(id string) (*EncounterDef, bool) {
	e, ok := r.encounters[id]
	return e, ok
}

// EncounterIDs returns every registered encounter ID in sorted order.
func (r *Registry) EncounterIDs() []string {
	ids := make([]string, 0, len(r.encounters))
	for id := range r.encounters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Spawn creates a fresh combatant from the template templateID.
//
// Postcondition: the combatant has a new UUID, full HP and MP, and its own
// copies of the template's skills and items.
func (r *Registry) Spawn(templateID string, faction combat.Faction) (*combat.Combatant, error) {
	t, ok := r.templates[templateID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, templateID)
	}
	c := &combat.Combatant{
		ID:           uuid.New().String(),
		Name:         t.Name,
		Job:          t.Job,
		Faction:      faction,
		MaxHP:        t.MaxHP,
		CurrentHP:    t.MaxHP,
		MaxMP:        t.MaxMP,
		CurrentMP:    t.MaxMP,
		Attack:       t.Attack,
		Defense:      t.Defense,
		MagicAttack:  t.MagicAttack,
		MagicDefense: t.MagicDefense,
		Speed:        t.Speed,
	}
	for _, id := range t.Skills {
		c.Skills = append(c.Skills, r.skills[id].Skill())
	}
	for _, id := range t.Items {
		c.Inventory = append(c.Inventory, r.items[id].Item())
	}
	return c, nil
}

// BuildEncounter spawns both rosters of the encounter id. When a template
// appears more than once on a side, its combatants are suffixed A, B, C...
// so names stay distinct.
func (r *Registry) BuildEncounter(id string) (party, enemies []*combat.Combatant, err error) {
	e, ok := r.encounters[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownEncounter, id)
	}
	if party, err = r.spawnSide(e.Party, combat.FactionPlayer); err != nil {
		return nil, nil, err
	}
	if enemies, err = r.spawnSide(e.Enemies, combat.FactionEnemy); err != nil {
		return nil, nil, err
	}
	return party, enemies, nil
}

func (r *Registry) spawnSide(ids []string, faction combat.Faction) ([]*combat.Combatant, error) {
	counts := make(map[string]int, len(ids))
	for _, id := range ids {
		counts[id]++
	}
	seen := make(map[string]int, len(ids))

	side := make([]*combat.Combatant, 0, len(ids))
	for _, id := range ids {
		c, err := r.Spawn(id, faction)
		if err != nil {
			return nil, err
		}
		if counts[id] > 1 {
			c.Name = fmt.Sprintf("%s %c", c.Name, 'A'+seen[id])
			seen[id]++
		}
		side = append(side, c)
	}
	return side, nil
}
