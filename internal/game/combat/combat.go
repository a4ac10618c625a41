// Package combat implements the turn-based battle engine: turn ordering,
// action resolution, and victory detection for a party fighting an enemy group.
package combat

// Faction distinguishes party members from enemies.
type Faction int

const (
	FactionPlayer Faction = iota
	FactionEnemy
)

// String returns a human-readable faction label.
func (f Faction) String() string {
	switch f {
	case FactionPlayer:
		return "player"
	case FactionEnemy:
		return "enemy"
	default:
		return "unknown"
	}
}

// EffectKind determines how a skill's output is applied to its target.
type EffectKind string

const (
	EffectDamage EffectKind = "damage"
	EffectHeal   EffectKind = "heal"
)

// Skill is a learned ability that costs MP.
type Skill struct {
	ID          string
	Name        string
	Description string
	MPCost      int
	// DamageMultiplier scales the caster's attack. Zero is treated as 1.
	DamageMultiplier float64
	Effect           EffectKind
	// HealAmount is only meaningful when Effect == EffectHeal.
	HealAmount int
}

// Supportive reports whether the skill targets the caster's own side.
func (s Skill) Supportive() bool { return s.Effect == EffectHeal }

// ItemCategory classifies an inventory item.
type ItemCategory string

const (
	CategoryConsumable ItemCategory = "consumable"
	CategoryWeapon     ItemCategory = "weapon"
	CategoryArmor      ItemCategory = "armor"
	CategoryAccessory  ItemCategory = "accessory"
)

// Resource names which vital an item restores.
type Resource string

const (
	ResourceHP Resource = "hp"
	ResourceMP Resource = "mp"
)

// Item is one unit in a combatant's inventory.
type Item struct {
	ID          string
	Name        string
	Description string
	Category    ItemCategory
	// Restores defaults to ResourceHP when empty.
	Restores Resource
	Amount   int
}

// UsableInCombat reports whether the item may be consumed during a battle.
func (i Item) UsableInCombat() bool { return i.Category == CategoryConsumable }

// RestoredResource returns the vital this item restores.
func (i Item) RestoredResource() Resource {
	if i.Restores == "" {
		return ResourceHP
	}
	return i.Restores
}

// Combatant represents one participant in a battle, on either side.
//
// Invariant: 0 <= CurrentHP <= MaxHP and 0 <= CurrentMP <= MaxMP.
type Combatant struct {
	ID        string
	Name      string
	Job       string
	Faction   Faction
	MaxHP     int
	CurrentHP int
	MaxMP     int
	CurrentMP int
	Attack    int
	Defense   int
	// MagicAttack and MagicDefense are carried for content compatibility;
	// no current rule reads them.
	MagicAttack  int
	MagicDefense int
	Speed        int
	Skills       []Skill
	Inventory    []Item
}

// IsPlayer reports whether this combatant fights for the party.
func (c *Combatant) IsPlayer() bool { return c.Faction == FactionPlayer }

// IsDefeated reports whether this combatant has been reduced to zero HP.
// Defeat is permanent for the remainder of the battle.
func (c *Combatant) IsDefeated() bool { return c.CurrentHP <= 0 }

// ApplyDamage reduces CurrentHP by amount, flooring at zero.
//
// Precondition: amount >= 0.
// Postcondition: CurrentHP >= 0.
func (c *Combatant) ApplyDamage(amount int) {
	c.CurrentHP -= amount
	if c.CurrentHP < 0 {
		c.CurrentHP = 0
	}
}

// RestoreHP raises CurrentHP by amount, capped at MaxHP, and returns the HP
// actually gained.
func (c *Combatant) RestoreHP(amount int) int {
	before := c.CurrentHP
	c.CurrentHP = clamp(c.CurrentHP+amount, 0, c.MaxHP)
	return c.CurrentHP - before
}

// RestoreMP raises CurrentMP by amount, capped at MaxMP, and returns the MP
// actually gained.
func (c *Combatant) RestoreMP(amount int) int {
	before := c.CurrentMP
	c.CurrentMP = clamp(c.CurrentMP+amount, 0, c.MaxMP)
	return c.CurrentMP - before
}

// SpendMP deducts cost from CurrentMP.
//
// Postcondition: returns false and leaves CurrentMP unchanged when cost exceeds it.
func (c *Combatant) SpendMP(cost int) bool {
	if cost > c.CurrentMP {
		return false
	}
	c.CurrentMP -= cost
	return true
}

// RemoveItem removes the inventory entry at slot.
//
// Precondition: slot is a valid index into Inventory.
func (c *Combatant) RemoveItem(slot int) {
	c.Inventory = append(c.Inventory[:slot:slot], c.Inventory[slot+1:]...)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
