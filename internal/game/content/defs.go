// Package content loads skill, item, combatant, and encounter definitions from
// YAML and spawns battle-ready combatants from them.
package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
)

// SkillDef is a skill definition loaded from YAML.
type SkillDef struct {
	ID               string  `yaml:"id"`
	Name             string  `yaml:"name"`
	Description      string  `yaml:"description"`
	MPCost           int     `yaml:"mp_cost"`
	DamageMultiplier float64 `yaml:"damage_multiplier"`
	// Effect is "damage" (default) or "heal".
	Effect     string `yaml:"effect"`
	HealAmount int    `yaml:"heal_amount"`
}

// Validate checks that the skill satisfies basic invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty, MPCost >= 0,
// DamageMultiplier >= 0, Effect is known, and heal skills heal a positive amount.
func (s *SkillDef) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("skill: id must not be empty")
	}
	if s.Name == "" {
		return fmt.Errorf("skill %q: name must not be empty", s.ID)
	}
	if s.MPCost < 0 {
		return fmt.Errorf("skill %q: mp_cost must be >= 0", s.ID)
	}
	if s.DamageMultiplier < 0 {
		return fmt.Errorf("skill %q: damage_multiplier must be >= 0", s.ID)
	}
	switch combat.EffectKind(s.effect()) {
	case combat.EffectDamage:
	case combat.EffectHeal:
		if s.HealAmount < 1 {
			return fmt.Errorf("skill %q: heal_amount must be >= 1 for heal skills", s.ID)
		}
	default:
		return fmt.Errorf("skill %q: effect must be one of [damage, heal], got %q", s.ID, s.Effect)
	}
	return nil
}

func (s *SkillDef) effect() string {
	if s.Effect == "" {
		return string(combat.EffectDamage)
	}
	return s.Effect
}

// Skill converts the definition to its combat form.
func (s *SkillDef) Skill() combat.Skill {
	return combat.Skill{
		ID:               s.ID,
		Name:             s.Name,
		Description:      s.Description,
		MPCost:           s.MPCost,
		DamageMultiplier: s.DamageMultiplier,
		Effect:           combat.EffectKind(s.effect()),
		HealAmount:       s.HealAmount,
	}
}

// ItemDef is an item definition loaded from YAML.
type ItemDef struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Category is consumable (default), weapon, armor, or accessory.
	Category string `yaml:"category"`
	// Restores is "hp" (default) or "mp"; only consumables restore anything.
	Restores string `yaml:"restores"`
	Amount   int    `yaml:"amount"`
}

// Validate checks that the item satisfies basic invariants.
func (d *ItemDef) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("item: id must not be empty")
	}
	if d.Name == "" {
		return fmt.Errorf("item %q: name must not be empty", d.ID)
	}
	if d.Amount < 0 {
		return fmt.Errorf("item %q: amount must be >= 0", d.ID)
	}
	switch combat.ItemCategory(d.category()) {
	case combat.CategoryConsumable, combat.CategoryWeapon, combat.CategoryArmor, combat.CategoryAccessory:
	default:
		return fmt.Errorf("item %q: category must be one of [consumable, weapon, armor, accessory], got %q", d.ID, d.Category)
	}
	switch combat.Resource(d.Restores) {
	case "", combat.ResourceHP, combat.ResourceMP:
	default:
		return fmt.Errorf("item %q: restores must be one of [hp, mp], got %q", d.ID, d.Restores)
	}
	return nil
}

func (d *ItemDef) category() string {
	if d.Category == "" {
		return string(combat.CategoryConsumable)
	}
	return d.Category
}

// Item converts the definition to its combat form.
func (d *ItemDef) Item() combat.Item {
	return combat.Item{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Category:    combat.ItemCategory(d.category()),
		Restores:    combat.Resource(d.Restores),
		Amount:      d.Amount,
	}
}

// CombatantTemplate is a reusable combatant archetype loaded from YAML.
type CombatantTemplate struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Job          string   `yaml:"job"`
	MaxHP        int      `yaml:"max_hp"`
	MaxMP        int      `yaml:"max_mp"`
	Attack       int      `yaml:"attack"`
	Defense      int      `yaml:"defense"`
	MagicAttack  int      `yaml:"magic_attack"`
	MagicDefense int      `yaml:"magic_defense"`
	Speed        int      `yaml:"speed"`
	Skills       []string `yaml:"skills"`
	Items        []string `yaml:"items"`
}

// Validate checks the template's own fields. References to skills and items
// are checked by the Registry.
func (t *CombatantTemplate) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("combatant template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("combatant template %q: name must not be empty", t.ID)
	}
	if t.MaxHP < 1 {
		return fmt.Errorf("combatant template %q: max_hp must be >= 1", t.ID)
	}
	for field, v := range map[string]int{
		"max_mp": t.MaxMP, "attack": t.Attack, "defense": t.Defense,
		"magic_attack": t.MagicAttack, "magic_defense": t.MagicDefense, "speed": t.Speed,
	} {
		if v < 0 {
			return fmt.Errorf("combatant template %q: %s must be >= 0", t.ID, field)
		}
	}
	return nil
}

// EncounterDef pairs a party with an enemy group, both given as template IDs.
// A template may appear more than once on a side.
type EncounterDef struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Party       []string `yaml:"party"`
	Enemies     []string `yaml:"enemies"`
}

// Validate checks that the encounter has an ID and both sides are non-empty.
func (e *EncounterDef) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("encounter: id must not be empty")
	}
	if len(e.Party) == 0 {
		return fmt.Errorf("encounter %q: party must not be empty", e.ID)
	}
	if len(e.Enemies) == 0 {
		return fmt.Errorf("encounter %q: enemies must not be empty", e.ID)
	}
	return nil
}

type validator interface {
	Validate() error
}

// decode parses one definition from raw YAML bytes and validates it.
func decode[T any, PT interface {
	*T
	validator
}](data []byte) (*T, error) {
	var v T
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if err := PT(&v).Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

// LoadSkillFromBytes parses a single skill definition.
func LoadSkillFromBytes(data []byte) (*SkillDef, error) { return decode[SkillDef](data) }

// LoadItemFromBytes parses a single item definition.
func LoadItemFromBytes(data []byte) (*ItemDef, error) { return decode[ItemDef](data) }

// LoadTemplateFromBytes parses a single combatant template.
func LoadTemplateFromBytes(data []byte) (*CombatantTemplate, error) {
	return decode[CombatantTemplate](data)
}

// LoadEncounterFromBytes parses a single encounter definition.
func LoadEncounterFromBytes(data []byte) (*EncounterDef, error) {
	return decode[EncounterDef](data)
}

// loadDir reads every *.yaml file in dir with load.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all definitions in file-name order, or an error on the
// first parse or validate failure.
func loadDir[T any](dir string, load func([]byte) (*T, error)) ([]*T, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading content dir %q: %w", dir, err)
	}

	var out []*T
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		def, err := load(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		out = append(out, def)
	}
	return out, nil
}
