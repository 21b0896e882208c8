package game

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pixil98/go-crawl/internal/protocol"
)

// Packed foreground tile flags, from crawl's tile-flags.h. Behaviour and
// wound level are three-bit fields compared against whole-field values,
// not tested bitwise.
const (
	behMask        protocol.TileFlags = 0x00700000
	behStab        protocol.TileFlags = 0x00100000
	behMayStab     protocol.TileFlags = 0x00200000
	behFleeing     protocol.TileFlags = 0x00300000
	behParalysed   protocol.TileFlags = 0x00400000
	mdamMask       protocol.TileFlags = 0x1C0000000
	mdamLight      protocol.TileFlags = 0x040000000
	mdamModerate   protocol.TileFlags = 0x080000000
	mdamHeavy      protocol.TileFlags = 0x0C0000000
	mdamSevere     protocol.TileFlags = 0x100000000
	mdamAlmostGone protocol.TileFlags = 0x1C0000000
)

// ignoredMonsters are harmless stationary features the server reports as
// monsters. They never count as enemies.
var ignoredMonsters = map[string]struct{}{
	"plant":                {},
	"withered plant":       {},
	"fungus":               {},
	"toadstool":            {},
	"bush":                 {},
	"ballistomycete spore": {},
	"briar patch":          {},
	"pillar of salt":       {},
	"block of ice":         {},
	"spectral weapon":      {},
}

// knownDangerous are early uniques and ogre-class brutes whose server
// threat rating undersells them; they get bumped to at least "dangerous".
var knownDangerous = map[string]struct{}{
	"sigmund":           {},
	"jessica":           {},
	"edmund":            {},
	"eustachio":         {},
	"natasha":           {},
	"robin, the goblin": {},
	"ijyb":              {},
	"terence":           {},
	"ogre":              {},
	"centaur":           {},
	"gnoll sergeant":    {},
	"orc priest":        {},
	"orc wizard":        {},
}

var threatLabels = map[int]string{
	0: "trivial",
	1: "easy",
	2: "dangerous",
	3: "extremely dangerous",
}

// formNames indexes crawl's transformation enum.
var formNames = map[int]string{
	1: "Spider", 2: "Blade Hands", 3: "Statue", 4: "Serpent",
	5: "Dragon", 6: "Death", 7: "Bat", 8: "Pig", 9: "Tree",
	10: "Wisp", 11: "Jelly", 12: "Fungus", 13: "Storm", 14: "Quill",
	15: "Maw", 16: "Flux", 17: "Slaughter", 18: "Vampire",
}

// Enemy is one nearby hostile, positioned relative to the player.
type Enemy struct {
	Name      string
	DX, DY    int
	Direction string
	Distance  int
	Threat    string
	Status    string
}

// InventoryItem is one carried item with its hotkey slot letter.
type InventoryItem struct {
	Slot        string
	Name        string
	Quantity    int
	Equipped    string
	Useless     bool
	Inscription string
}

// Landmark is a notable discovered feature relative to the player.
type Landmark struct {
	Type      string
	Glyph     string
	Direction string
	Distance  int
	DX, DY    int
}

// SlotLetter maps a numeric inventory index to its hotkey letter:
// 0-25 map to a-z, 26-51 to A-Z.
func SlotLetter(index int) string {
	switch {
	case index >= 0 && index < 26:
		return string(rune('a' + index))
	case index >= 26 && index < 52:
		return string(rune('A' + index - 26))
	default:
		return strconv.Itoa(index)
	}
}

// SlotIndex is the inverse of SlotLetter.
func SlotIndex(letter string) int {
	if len(letter) != 1 {
		if n, err := strconv.Atoi(letter); err == nil {
			return n
		}
		return -1
	}
	c := letter[0]
	switch {
	case c >= 'a' && c <= 'z':
		return int(c - 'a')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 26
	default:
		return -1
	}
}

// NearbyEnemies lists hostiles within dist 8, nearest first. Ignored
// pseudo-monsters are dropped, and threat is bumped for known-dangerous
// names regardless of what the server rated them.
func (m *Mirror) NearbyEnemies() []Enemy {
	var out []Enemy
	me := m.player.Pos
	for _, mon := range m.Monsters() {
		dist := chebyshev(mon.Pos, me)
		if dist > 8 {
			continue
		}
		name := mon.Name
		if name == "" {
			name = "unknown"
		}
		if _, skip := ignoredMonsters[strings.ToLower(name)]; skip {
			continue
		}
		threat := mon.Threat
		if _, known := knownDangerous[strings.ToLower(name)]; known && threat < 2 {
			threat = 2
		}
		label, ok := threatLabels[threat]
		if !ok {
			label = fmt.Sprintf("unknown(%d)", threat)
		}
		dx, dy := mon.Pos.X-me.X, mon.Pos.Y-me.Y
		out = append(out, Enemy{
			Name:      name,
			DX:        dx,
			DY:        dy,
			Direction: compass(dx, dy, "nsew"),
			Distance:  dist,
			Threat:    label,
			Status:    m.monsterStatus(mon.Pos),
		})
	}
	return out
}

// monsterStatus decodes behaviour and wound level from the cell's packed
// foreground flags.
func (m *Mirror) monsterStatus(pos Point) string {
	cell, ok := m.cells[pos]
	if !ok {
		return ""
	}
	var parts []string
	switch cell.Flags & behMask {
	case behStab:
		parts = append(parts, "sleeping")
	case behMayStab:
		parts = append(parts, "unaware")
	case behFleeing:
		parts = append(parts, "fleeing")
	case behParalysed:
		parts = append(parts, "paralysed")
	}
	switch cell.Flags & mdamMask {
	case mdamLight:
		parts = append(parts, "lightly wounded")
	case mdamModerate:
		parts = append(parts, "moderately wounded")
	case mdamHeavy:
		parts = append(parts, "heavily wounded")
	case mdamSevere:
		parts = append(parts, "severely wounded")
	case mdamAlmostGone:
		parts = append(parts, "almost dead")
	}
	return strings.Join(parts, ", ")
}

// InventoryItems lists carried items by slot letter, a before A.
func (m *Mirror) InventoryItems() []InventoryItem {
	type entry struct {
		idx  int
		item protocol.InvItem
	}
	var entries []entry
	for key, item := range m.inventory {
		if item.Name == "" || item.Name == "?" {
			continue
		}
		idx, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		entries = append(entries, entry{idx: idx, item: item})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })

	out := make([]InventoryItem, 0, len(entries))
	for _, e := range entries {
		item := InventoryItem{
			Slot:        SlotLetter(e.idx),
			Name:        e.item.Name,
			Quantity:    e.item.Quantity,
			Useless:     e.item.Useless,
			Inscription: e.item.Inscription,
		}
		switch e.idx {
		case m.player.WeaponIndex:
			item.Equipped = "weapon"
		case m.player.OffhandIndex:
			item.Equipped = "offhand"
		}
		out = append(out, item)
	}
	return out
}

// RenderMap draws the discovered map around the player as ASCII, radius
// tiles in each direction, with @ marking the player.
func (m *Mirror) RenderMap(radius int) string {
	if len(m.cells) == 0 {
		return "No map data available"
	}
	me := m.player.Pos
	var b strings.Builder
	for y := me.Y - radius; y <= me.Y+radius; y++ {
		for x := me.X - radius; x <= me.X+radius; x++ {
			switch {
			case x == me.X && y == me.Y:
				b.WriteString("@")
			default:
				if cell, ok := m.cells[Point{X: x, Y: y}]; ok && cell.Glyph != "" {
					b.WriteString(cell.Glyph)
				} else {
					b.WriteString(" ")
				}
			}
		}
		if y < me.Y+radius {
			b.WriteString("\n")
		}
	}
	return b.String()
}

var landmarkGlyphs = map[string]string{
	">": "downstairs",
	"<": "upstairs",
	"_": "altar",
	"+": "door",
}

var landmarkOrder = map[string]int{
	"downstairs": 0,
	"upstairs":   1,
	"altar":      2,
	"door":       3,
}

// Landmarks lists discovered stairs, altars and doors relative to the
// player. Doors are noise, so they are only reported when nothing better
// has been found.
func (m *Mirror) Landmarks() []Landmark {
	me := m.player.Pos
	var found []Landmark
	for pos, cell := range m.cells {
		typ, ok := landmarkGlyphs[cell.Glyph]
		if !ok {
			continue
		}
		dx, dy := pos.X-me.X, pos.Y-me.Y
		found = append(found, Landmark{
			Type:      typ,
			Glyph:     cell.Glyph,
			Direction: compass(dx, dy, "NSEW"),
			Distance:  chebyshev(pos, me),
			DX:        dx,
			DY:        dy,
		})
	}
	sort.Slice(found, func(i, j int) bool {
		oi, oj := landmarkOrder[found[i].Type], landmarkOrder[found[j].Type]
		if oi != oj {
			return oi < oj
		}
		return found[i].Distance < found[j].Distance
	})

	var nonDoors []Landmark
	for _, l := range found {
		if l.Type != "door" {
			nonDoors = append(nonDoors, l)
		}
	}
	if len(nonDoors) > 0 {
		return nonDoors
	}
	if len(found) > 10 {
		found = found[:10]
	}
	return found
}

// LandmarksText formats Landmarks for a text report.
func (m *Mirror) LandmarksText() string {
	landmarks := m.Landmarks()
	if len(landmarks) == 0 {
		return "No landmarks discovered yet."
	}
	lines := make([]string, 0, len(landmarks))
	for _, l := range landmarks {
		lines = append(lines, fmt.Sprintf("%s (%s) — %s, %d tiles away (dx=%d, dy=%d)",
			l.Type, l.Glyph, l.Direction, l.Distance, l.DX, l.DY))
	}
	return strings.Join(lines, "\n")
}

// Stats formats the one-line character summary.
func (m *Mirror) Stats() string {
	p := m.player

	charInfo := strings.TrimSpace(p.Species + " " + p.Title)
	if charInfo == "" {
		charInfo = "Unknown"
	}
	if form := formNames[p.Form]; form != "" {
		charInfo += fmt.Sprintf(" (%s Form)", form)
	}

	hpStr := fmt.Sprintf("HP: %d/%d", p.HP, p.HPMax)
	if p.PoisonSurvival > 0 && p.PoisonSurvival < p.HP {
		hpStr += fmt.Sprintf(" (→%d after poison)", p.PoisonSurvival)
	}

	defenses := fmt.Sprintf("%s %s %s",
		statWithMod("AC", p.AC, p.ACMod),
		statWithMod("EV", p.EV, p.EVMod),
		statWithMod("SH", p.SH, p.SHMod))

	godStr := p.God
	if godStr == "" {
		godStr = "None"
	} else {
		if p.PietyRank > 0 {
			godStr += " [" + strings.Repeat("★", p.PietyRank) + strings.Repeat("☆", 6-p.PietyRank) + "]"
		}
		if p.Penance {
			godStr += " (PENANCE!)"
		}
	}

	var extras strings.Builder
	if p.Contam > 0 {
		levels := []string{"", "glow", "glow+", "GLOW!", "GLOW!!"}
		idx := p.Contam
		if idx > 4 {
			idx = 4
		}
		fmt.Fprintf(&extras, " | Contam: %s", levels[idx])
	}
	if p.AdjustedNoise >= 0 {
		fmt.Fprintf(&extras, " | Noise: %d", p.AdjustedNoise)
	}
	if p.Doom != 0 {
		fmt.Fprintf(&extras, " | Doom: %d", p.Doom)
	}
	if p.Lives != 0 {
		fmt.Fprintf(&extras, " | Lives: %d", p.Lives)
	}
	if status := statusText(p.Status); status != "" {
		fmt.Fprintf(&extras, " | Status: %s", status)
	}

	return fmt.Sprintf("Character: %s | %s | MP: %d/%d | %s | Str: %d Int: %d Dex: %d | "+
		"XL: %d (%d%%) | Gold: %d | Place: %s:%d | God: %s%s | Turn: %d",
		charInfo, hpStr, p.MP, p.MPMax, defenses, p.Str, p.Int, p.Dex,
		p.XL, p.Progress, p.Gold, p.Place, p.Depth, godStr, extras.String(), p.Turn)
}

func statWithMod(name string, base, mod int) string {
	switch {
	case mod > 0:
		return fmt.Sprintf("%s: %d (+%d)", name, base, mod)
	case mod < 0:
		return fmt.Sprintf("%s: %d (%d)", name, base, mod)
	default:
		return fmt.Sprintf("%s: %d", name, base)
	}
}

func statusText(status []protocol.StatusLight) string {
	var lights []string
	for _, s := range status {
		switch {
		case s.Light != "":
			lights = append(lights, s.Light)
		case s.Text != "":
			lights = append(lights, s.Text)
		}
	}
	return strings.Join(lights, ", ")
}

var terrainNames = map[string]string{
	"#": "wall",
	".": "floor",
	"+": "door",
	"'": "open door",
	">": "downstairs",
	"<": "upstairs",
	"~": "water",
	"≈": "deep water",
}

// TacticalReadout is a compact one-line substitute for the ASCII map:
// current terrain, the eight adjacent tiles, and the nearest retreat
// upstairs.
func (m *Mirror) TacticalReadout() string {
	if len(m.cells) == 0 {
		return "No map data available"
	}
	me := m.player.Pos

	terrain := "unknown"
	if cell, ok := m.cells[me]; ok {
		if name, ok := terrainNames[cell.Glyph]; ok {
			terrain = name
		}
	}
	place := m.player.Place
	if place == "" {
		place = "Unknown"
	}
	parts := []string{fmt.Sprintf("Position: %s:%d (%s)", place, m.player.Depth, terrain)}

	var adjacent []string
	for _, dy := range []int{-1, 0, 1} {
		for _, dx := range []int{-1, 0, 1} {
			if dx == 0 && dy == 0 {
				continue
			}
			dir := compass(dx, dy, "NSEW")
			glyph := " "
			if cell, ok := m.cells[Point{X: me.X + dx, Y: me.Y + dy}]; ok {
				glyph = cell.Glyph
			}
			switch glyph {
			case "#":
				adjacent = append(adjacent, dir+":wall")
			case "+":
				adjacent = append(adjacent, dir+":door")
			case ">":
				adjacent = append(adjacent, dir+":down")
			case "<":
				adjacent = append(adjacent, dir+":up")
			case ".":
				adjacent = append(adjacent, dir+":floor")
			case " ", "":
				adjacent = append(adjacent, dir+":unseen")
			}
		}
	}
	parts = append(parts, "Adjacent: "+strings.Join(adjacent, ", "))

	var nearestUp *Landmark
	for _, l := range m.Landmarks() {
		if l.Type != "upstairs" {
			continue
		}
		if nearestUp == nil || l.Distance < nearestUp.Distance {
			cp := l
			nearestUp = &cp
		}
	}
	if nearestUp != nil {
		parts = append(parts, fmt.Sprintf("Nearest upstairs: %s, %d tiles", nearestUp.Direction, nearestUp.Distance))
	} else {
		parts = append(parts, "Nearest upstairs: none visible")
	}

	return strings.Join(parts, " | ")
}

// environmentText reports active overlays at the player's cell.
func (m *Mirror) environmentText() string {
	cell, ok := m.cells[m.player.Pos]
	if !ok || len(cell.Overlays) == 0 {
		return ""
	}
	overlayTruthy := func(key string) bool {
		raw, ok := cell.Overlays[key]
		if !ok {
			return false
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return false
		}
		switch t := v.(type) {
		case bool:
			return t
		case float64:
			return t != 0
		default:
			return v != nil
		}
	}
	var effects []string
	if overlayTruthy("silenced") {
		effects = append(effects, "SILENCED (no spells!)")
	}
	if overlayTruthy("sanctuary") {
		effects = append(effects, "Sanctuary (no combat)")
	}
	if overlayTruthy("halo") {
		effects = append(effects, "Halo")
	}
	if overlayTruthy("liquefied") {
		effects = append(effects, "Liquefied ground")
	}
	if overlayTruthy("orb_glow") {
		effects = append(effects, fmt.Sprintf("Orb glow (%s)", string(cell.Overlays["orb_glow"])))
	}
	if overlayTruthy("disjunct") {
		effects = append(effects, "Disjunction")
	}
	return strings.Join(effects, ", ")
}

// StateText is the full multi-section state dump: stats, recent messages,
// inventory, enemies, environment and the tactical readout.
func (m *Mirror) StateText() string {
	parts := []string{"=== DCSS State ===", m.Stats(), "", "--- Messages ---"}
	for _, line := range m.RecentMessages(5) {
		parts = append(parts, "  "+line.Text)
	}

	if inv := m.InventoryItems(); len(inv) > 0 {
		parts = append(parts, "", "--- Inventory ---")
		for _, item := range inv {
			line := fmt.Sprintf("  %s) %s", item.Slot, item.Name)
			switch item.Equipped {
			case "weapon":
				line += " (wielded)"
			case "offhand":
				line += " (offhand)"
			}
			if item.Useless {
				line += " [useless]"
			}
			if item.Inscription != "" {
				line += fmt.Sprintf(" {%s}", item.Inscription)
			}
			parts = append(parts, line)
		}
	}

	if enemies := m.NearbyEnemies(); len(enemies) > 0 {
		parts = append(parts, "", "--- Enemies ---")
		for _, e := range enemies {
			line := fmt.Sprintf("  %s (%s, dist %d, threat %s", e.Name, e.Direction, e.Distance, e.Threat)
			if e.Status != "" {
				line += ", " + e.Status
			}
			parts = append(parts, line+")")
		}
	}

	if env := m.environmentText(); env != "" {
		parts = append(parts, "", fmt.Sprintf("--- Environment: %s ---", env))
	}

	parts = append(parts, "", "--- Tactical ---", m.TacticalReadout())

	if ended, _ := m.Ended(); ended {
		parts = append(parts, "\n*** GAME OVER — YOU ARE DEAD ***")
	}
	return strings.Join(parts, "\n")
}

// compass builds a direction string from a relative offset using the four
// letters given (e.g. "NSEW" or "nsew"). Zero offset yields "here".
func compass(dx, dy int, letters string) string {
	var b strings.Builder
	if dy < 0 {
		b.WriteByte(letters[0])
	} else if dy > 0 {
		b.WriteByte(letters[1])
	}
	if dx > 0 {
		b.WriteByte(letters[2])
	} else if dx < 0 {
		b.WriteByte(letters[3])
	}
	if b.Len() == 0 {
		return "here"
	}
	return b.String()
}
