// Package game maintains a client-side mirror of the running game and
// drives it: state reconstruction from server diffs, the dispatch loop
// that trades keys for updates, and the action vocabulary on top.
package game

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/pixil98/go-crawl/internal/display"
	"github.com/pixil98/go-crawl/internal/protocol"
)

const (
	// Message ring limits: trim back to messageKeep once messageCap is hit.
	messageCap  = 200
	messageKeep = 100
)

// Point is an absolute map coordinate.
type Point struct {
	X, Y int
}

// CellState is the mirrored view of one map cell.
type CellState struct {
	Glyph    string
	Feature  int
	Flags    protocol.TileFlags
	Overlays map[string]json.RawMessage
}

// MonsterInfo is a monster at a known position. Name is resolved through
// the id cache, since the server omits it on re-sightings.
type MonsterInfo struct {
	Pos    Point
	ID     int
	Name   string
	Threat int
	Type   int
}

// PlayerState is the accumulated player snapshot.
type PlayerState struct {
	HP, HPMax           int
	MP, MPMax           int
	AC, EV, SH          int
	ACMod, EVMod, SHMod int
	Str, Int, Dex       int
	XL, Progress        int
	Place               string
	Depth               int
	God                 string
	PietyRank           int
	Penance             bool
	Gold                int
	Turn, Time          int
	Species, Title      string
	PoisonSurvival      int
	Contam              int
	AdjustedNoise       int
	Form                int
	QuiverDesc          string
	WeaponIndex         int
	OffhandIndex        int
	Doom, Lives         int
	Pos                 Point
	Status              []protocol.StatusLight
}

// LogLine is one mirrored game-log line with its global sequence number.
type LogLine struct {
	Seq  int
	Turn int
	Text string
}

// Mirror folds inbound messages into a queryable game state. It is not
// safe for concurrent use; the dispatch loop is its only writer.
type Mirror struct {
	player PlayerState

	cells    map[Point]CellState
	monsters map[Point]*MonsterInfo

	// monsterNames caches the last seen name per monster id, since diffs
	// after first sighting usually omit it.
	monsterNames map[int]string

	inventory map[string]protocol.InvItem

	messages []LogLine
	seq      int

	mode protocol.InputMode

	ended       bool
	endedReason string
}

func NewMirror() *Mirror {
	return &Mirror{
		player: PlayerState{
			// Index -1 means "nothing equipped"; slot 0 is a real slot.
			WeaponIndex:   -1,
			OffhandIndex:  -1,
			AdjustedNoise: -1,
		},
		cells:        make(map[Point]CellState),
		monsters:     make(map[Point]*MonsterInfo),
		monsterNames: make(map[int]string),
		inventory:    make(map[string]protocol.InvItem),
		mode:         protocol.ModeReady,
	}
}

// Apply folds one message into the mirror. Unknown kinds are ignored, so
// the caller can feed every inbound message unconditionally. Applying the
// same diff twice yields the same state.
func (m *Mirror) Apply(msg protocol.Message) {
	switch v := msg.(type) {
	case *protocol.Player:
		m.applyPlayer(v)
	case *protocol.Map:
		m.applyMap(v)
	case *protocol.Msgs:
		m.applyMsgs(v)
	case *protocol.InputModeMsg:
		m.mode = v.Mode
	case *protocol.Close:
		m.ended = true
		m.endedReason = v.Reason
	case *protocol.GoLobby:
		m.ended = true
	}
}

// ApplyAll folds a batch in order.
func (m *Mirror) ApplyAll(msgs []protocol.Message) {
	for _, msg := range msgs {
		m.Apply(msg)
	}
}

func (m *Mirror) applyPlayer(p *protocol.Player) {
	setInt(&m.player.HP, p.HP)
	setInt(&m.player.HPMax, p.HPMax)
	setInt(&m.player.MP, p.MP)
	setInt(&m.player.MPMax, p.MPMax)
	setInt(&m.player.AC, p.AC)
	setInt(&m.player.EV, p.EV)
	setInt(&m.player.SH, p.SH)
	setInt(&m.player.ACMod, p.ACMod)
	setInt(&m.player.EVMod, p.EVMod)
	setInt(&m.player.SHMod, p.SHMod)
	setInt(&m.player.Str, p.Str)
	setInt(&m.player.Int, p.Int)
	setInt(&m.player.Dex, p.Dex)
	setInt(&m.player.XL, p.XL)
	setInt(&m.player.Progress, p.Progress)
	setString(&m.player.Place, p.Place)
	setInt(&m.player.Depth, p.Depth)
	setString(&m.player.God, p.God)
	setInt(&m.player.PietyRank, p.PietyRank)
	if p.Penance != nil {
		m.player.Penance = *p.Penance
	}
	setInt(&m.player.Gold, p.Gold)
	setInt(&m.player.Turn, p.Turn)
	setInt(&m.player.Time, p.Time)
	setString(&m.player.Species, p.Species)
	setString(&m.player.Title, p.Title)
	setInt(&m.player.PoisonSurvival, p.PoisonSurvival)
	setInt(&m.player.Contam, p.Contam)
	setInt(&m.player.AdjustedNoise, p.AdjustedNoise)
	setInt(&m.player.Form, p.Form)
	setString(&m.player.QuiverDesc, p.QuiverDesc)
	setInt(&m.player.WeaponIndex, p.WeaponIndex)
	setInt(&m.player.OffhandIndex, p.OffhandIndex)
	setInt(&m.player.Doom, p.Doom)
	setInt(&m.player.Lives, p.Lives)

	if p.Pos != nil {
		m.player.Pos = Point{X: p.Pos.X, Y: p.Pos.Y}
	}
	if p.HasStatus() {
		m.player.Status = append([]protocol.StatusLight(nil), p.Status...)
	}
	for slot, item := range p.Inv {
		if item == nil || item.Quantity == 0 {
			delete(m.inventory, slot)
			continue
		}
		m.inventory[slot] = *item
	}
}

// applyMap walks a diff batch, resolving the implicit cursor: an explicit
// x or y resets that axis, an absent x advances one column. The
// batch is authoritative for every coordinate it touches: monster entries
// at all touched coordinates are cleared first, then repopulated from the
// batch, so ghosts cannot survive a cell update that omits the monster.
func (m *Mirror) applyMap(d *protocol.Map) {
	if d.Clear {
		m.cells = make(map[Point]CellState)
		m.monsters = make(map[Point]*MonsterInfo)
	}

	type placed struct {
		pos  Point
		cell *protocol.Cell
	}
	resolved := make([]placed, 0, len(d.Cells))

	var cur Point
	haveX, haveY := false, false
	for i := range d.Cells {
		c := &d.Cells[i]
		if c.X != nil {
			cur.X = *c.X
			haveX = true
		} else if haveX {
			cur.X++
		}
		if c.Y != nil {
			cur.Y = *c.Y
			haveY = true
		}
		if !haveX || !haveY {
			// Batch starts without a full anchor; nothing to place yet.
			continue
		}
		resolved = append(resolved, placed{pos: cur, cell: c})
	}

	for _, p := range resolved {
		delete(m.monsters, p.pos)
	}

	for _, p := range resolved {
		state := m.cells[p.pos]
		if p.cell.Glyph != nil {
			state.Glyph = *p.cell.Glyph
		}
		if p.cell.Feature != nil {
			state.Feature = *p.cell.Feature
		}
		if p.cell.FG != nil {
			state.Flags = *p.cell.FG
		}
		// Overlays are not diffed: each touched cell carries its full
		// overlay set, and an update without one lifts them.
		if len(p.cell.Overlays) > 0 {
			state.Overlays = make(map[string]json.RawMessage, len(p.cell.Overlays))
			for k, v := range p.cell.Overlays {
				state.Overlays[k] = v
			}
		} else {
			state.Overlays = nil
		}
		m.cells[p.pos] = state

		if p.cell.MonSet && p.cell.Mon != nil {
			m.placeMonster(p.pos, p.cell.Mon)
		}
	}
}

func (m *Mirror) placeMonster(pos Point, mon *protocol.Monster) {
	info := &MonsterInfo{Pos: pos}
	if mon.ID != nil {
		info.ID = *mon.ID
	}
	if mon.Name != nil {
		info.Name = *mon.Name
		if info.ID != 0 {
			m.monsterNames[info.ID] = info.Name
		}
	} else if info.ID != 0 {
		info.Name = m.monsterNames[info.ID]
	}
	if mon.Threat != nil {
		info.Threat = *mon.Threat
	}
	if mon.Type != nil {
		info.Type = *mon.Type
	}
	m.monsters[pos] = info
}

func (m *Mirror) applyMsgs(msgs *protocol.Msgs) {
	for _, line := range msgs.Messages {
		text := display.StripTags(line.Text)
		if strings.TrimSpace(text) == "" {
			continue
		}
		m.seq++
		m.messages = append(m.messages, LogLine{Seq: m.seq, Turn: line.Turn, Text: text})
	}
	if len(m.messages) > messageCap {
		m.messages = append([]LogLine(nil), m.messages[len(m.messages)-messageKeep:]...)
	}
}

// Player returns a copy of the player snapshot.
func (m *Mirror) Player() PlayerState {
	p := m.player
	p.Status = append([]protocol.StatusLight(nil), m.player.Status...)
	return p
}

// Mode returns the last announced input mode.
func (m *Mirror) Mode() protocol.InputMode {
	return m.mode
}

// Ended reports whether the server closed the game, with its reason.
func (m *Mirror) Ended() (bool, string) {
	return m.ended, m.endedReason
}

// Cell returns the mirrored cell at p.
func (m *Mirror) Cell(p Point) (CellState, bool) {
	c, ok := m.cells[p]
	return c, ok
}

// Monsters returns all known monsters, nearest to the player first.
func (m *Mirror) Monsters() []MonsterInfo {
	out := make([]MonsterInfo, 0, len(m.monsters))
	for _, info := range m.monsters {
		out = append(out, *info)
	}
	me := m.player.Pos
	sort.Slice(out, func(i, j int) bool {
		di, dj := chebyshev(out[i].Pos, me), chebyshev(out[j].Pos, me)
		if di != dj {
			return di < dj
		}
		if out[i].Pos.Y != out[j].Pos.Y {
			return out[i].Pos.Y < out[j].Pos.Y
		}
		return out[i].Pos.X < out[j].Pos.X
	})
	return out
}

// Inventory returns the current slot map.
func (m *Mirror) Inventory() map[string]protocol.InvItem {
	out := make(map[string]protocol.InvItem, len(m.inventory))
	for k, v := range m.inventory {
		out[k] = v
	}
	return out
}

// MessageSeq returns the sequence number of the newest log line.
func (m *Mirror) MessageSeq() int {
	return m.seq
}

// MessagesSince returns log lines with sequence numbers greater than seq.
// Lines trimmed out of the ring are gone; callers only ever ask about
// recent sequence points so that does not bite in practice.
func (m *Mirror) MessagesSince(seq int) []LogLine {
	i := sort.Search(len(m.messages), func(i int) bool {
		return m.messages[i].Seq > seq
	})
	return append([]LogLine(nil), m.messages[i:]...)
}

// RecentMessages returns up to n of the newest log lines, oldest first.
func (m *Mirror) RecentMessages(n int) []LogLine {
	if n > len(m.messages) {
		n = len(m.messages)
	}
	return append([]LogLine(nil), m.messages[len(m.messages)-n:]...)
}

// Reset wipes all per-game state. Call between games on one session.
func (m *Mirror) Reset() {
	*m = *NewMirror()
}

func chebyshev(a, b Point) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
