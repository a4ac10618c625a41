package render

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/turnbattle/internal/game/combat"
)

// Renderer turns battle state into terminal text. With Color unset every
// escape sequence is stripped, for pipes and log files.
type Renderer struct {
	Color bool
}

func (r Renderer) finish(s string) string {
	if r.Color {
		return s
	}
	return StripANSI(s)
}

// Status renders both rosters with HP and MP.
func (r Renderer) Status(snap combat.Snapshot) string {
	var b strings.Builder
	b.WriteString(Colorize(Bold+BrightCyan, "== Party =="))
	b.WriteString("\n")
	for _, c := range snap.Party {
		b.WriteString(combatantLine(c))
	}
	b.WriteString(Colorize(Bold+BrightRed, "== Enemies =="))
	b.WriteString("\n")
	for _, c := range snap.Enemies {
		b.WriteString(combatantLine(c))
	}
	return r.finish(b.String())
}

func combatantLine(c combat.CombatantSnapshot) string {
	name := c.Name
	if c.Job != "" && c.Faction == combat.FactionPlayer.String() {
		name = fmt.Sprintf("%s (%s)", c.Name, c.Job)
	}
	if c.Defeated {
		return fmt.Sprintf("  %s\n", Colorf(Dim, "%-20s defeated", name))
	}
	line := fmt.Sprintf("  %-20s HP %s", name, hpColor(c.HP, c.MaxHP))
	if c.MaxMP > 0 {
		line += fmt.Sprintf("  MP %s", Colorf(Blue, "%d/%d", c.MP, c.MaxMP))
	}
	return line + "\n"
}

func hpColor(hp, maxHP int) string {
	color := Green
	switch {
	case hp*4 <= maxHP:
		color = Red
	case hp*2 <= maxHP:
		color = Yellow
	}
	return Colorf(color, "%d/%d", hp, maxHP)
}

// TurnOrder renders the live turn order, marking the current actor.
func (r Renderer) TurnOrder(snap combat.Snapshot) string {
	parts := make([]string, len(snap.TurnOrder))
	for i, name := range snap.TurnOrder {
		if name == snap.CurrentActor {
			parts[i] = Colorize(Bold+BrightYellow, "["+name+"]")
			continue
		}
		parts[i] = name
	}
	return r.finish("Turn order: " + strings.Join(parts, " > ") + "\n")
}

// Result renders one resolved action.
func (r Renderer) Result(res combat.ActionResult) string {
	var b strings.Builder
	switch res.Action {
	case combat.ActionAttack:
		fmt.Fprintf(&b, "%s attacks %s", Colorize(Bold, res.ActorName), Colorize(Bold, res.TargetName))
	case combat.ActionSkill:
		fmt.Fprintf(&b, "%s casts %s on %s", Colorize(Bold, res.ActorName), Colorize(Magenta, res.Detail), Colorize(Bold, res.TargetName))
	case combat.ActionItem:
		fmt.Fprintf(&b, "%s uses %s on %s", Colorize(Bold, res.ActorName), Colorize(Cyan, res.Detail), Colorize(Bold, res.TargetName))
	}
	switch res.Kind {
	case combat.MagnitudeDamage:
		fmt.Fprintf(&b, ", dealing %s damage", Colorf(BrightRed, "%d", res.Magnitude))
	case combat.MagnitudeHeal:
		fmt.Fprintf(&b, ", restoring %s HP", Colorf(BrightGreen, "%d", res.Magnitude))
	case combat.MagnitudeRestoreMP:
		fmt.Fprintf(&b, ", restoring %s MP", Colorf(Blue, "%d", res.Magnitude))
	}
	b.WriteString(".\n")
	if res.TargetDefeated {
		b.WriteString(Colorf(Red, "%s is defeated!", res.TargetName))
		b.WriteString("\n")
	}
	return r.finish(b.String())
}

// Outcome renders the battle's conclusion.
func (r Renderer) Outcome(o combat.Outcome) string {
	switch o {
	case combat.OutcomeEnemiesDefeated:
		return r.finish(Colorize(Bold+BrightGreen, "Victory! All enemies have been defeated.") + "\n")
	case combat.OutcomePartyDefeated:
		return r.finish(Colorize(Bold+BrightRed, "Defeat... the party has fallen.") + "\n")
	default:
		return r.finish("The battle was abandoned.\n")
	}
}

// Menu renders the choices available to a party member. Indices are 1-based,
// matching what the console accepts.
func (r Renderer) Menu(req combat.DecisionRequest) string {
	var b strings.Builder
	a := req.Actor
	b.WriteString(Colorf(Bold+BrightYellow, "%s's turn", a.Name))
	fmt.Fprintf(&b, " (HP %d/%d, MP %d/%d)\n", a.CurrentHP, a.MaxHP, a.CurrentMP, a.MaxMP)

	b.WriteString("  attack [@target]\n")
	for i, s := range a.Skills {
		label := fmt.Sprintf("  skill %d  %-14s %2d MP", i+1, s.Name, s.MPCost)
		if s.MPCost > a.CurrentMP {
			label = Colorize(Dim, label)
		}
		b.WriteString(label + "\n")
	}
	for i, it := range a.Inventory {
		label := fmt.Sprintf("  item %d   %s", i+1, it.Name)
		if !it.UsableInCombat() {
			label = Colorize(Dim, label+" (equipment)")
		}
		b.WriteString(label + "\n")
	}

	b.WriteString("Targets:")
	for i, c := range req.Foes {
		if !c.IsDefeated() {
			fmt.Fprintf(&b, " @%d %s", i+1, Colorize(Red, c.Name))
		}
	}
	b.WriteString("  Allies:")
	for i, c := range req.Allies {
		if !c.IsDefeated() {
			fmt.Fprintf(&b, " @%d %s", i+1, Colorize(Green, c.Name))
		}
	}
	b.WriteString("\n> ")
	return r.finish(b.String())
}
