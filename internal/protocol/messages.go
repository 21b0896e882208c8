package protocol

import (
	"bytes"
	"encoding/json"
)

// Envelope is the outer frame shape used by webtiles in both directions:
// {"msgs": [ ... ]}.
type Envelope struct {
	Msgs []json.RawMessage `json:"msgs"`
}

// Message is implemented by every decoded inbound message. Handlers switch
// on the concrete type rather than probing key presence.
type Message interface {
	Kind() string
}

// Player carries an incremental player-state diff. Every field is optional;
// an absent key means "unchanged", never "reset". Pointer fields model that
// distinction directly.
type Player struct {
	HP             *int    `json:"hp"`
	HPMax          *int    `json:"hp_max"`
	MP             *int    `json:"mp"`
	MPMax          *int    `json:"mp_max"`
	AC             *int    `json:"ac"`
	EV             *int    `json:"ev"`
	SH             *int    `json:"sh"`
	ACMod          *int    `json:"ac_mod"`
	EVMod          *int    `json:"ev_mod"`
	SHMod          *int    `json:"sh_mod"`
	Str            *int    `json:"str"`
	Int            *int    `json:"int"`
	Dex            *int    `json:"dex"`
	XL             *int    `json:"xl"`
	Progress       *int    `json:"progress"`
	Place          *string `json:"place"`
	Depth          *int    `json:"depth"`
	God            *string `json:"god"`
	PietyRank      *int    `json:"piety_rank"`
	Penance        *bool   `json:"penance"`
	Gold           *int    `json:"gold"`
	Turn           *int    `json:"turn"`
	Time           *int    `json:"time"`
	Species        *string `json:"species"`
	Title          *string `json:"title"`
	PoisonSurvival *int    `json:"poison_survival"`
	RealHPMax      *int    `json:"real_hp_max"`
	Contam         *int    `json:"contam"`
	AdjustedNoise  *int    `json:"adjusted_noise"`
	Form           *int    `json:"form"`
	QuiverDesc     *string `json:"quiver_desc"`
	WeaponIndex    *int    `json:"weapon_index"`
	OffhandIndex   *int    `json:"offhand_index"`
	Doom           *int    `json:"doom"`
	Lives          *int    `json:"lives"`
	Deaths         *int    `json:"deaths"`

	Pos *Position `json:"pos"`

	// Inventory is a per-slot diff: a null entry removes the slot.
	Inv map[string]*InvItem `json:"inv"`

	// Status replaces the active status-light set wholesale when present.
	Status []StatusLight `json:"status"`

	statusSet bool
}

func (*Player) Kind() string { return "player" }

// HasStatus reports whether the diff carried a "status" key at all, since
// an empty list (clear everything) and an absent key (unchanged) differ.
func (p *Player) HasStatus() bool { return p.statusSet }

func (p *Player) UnmarshalJSON(data []byte) error {
	type alias Player
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = Player(a)
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err == nil {
		_, p.statusSet = probe["status"]
	}
	return nil
}

// Position is the nested pos object inside a player diff.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// InvItem is one inventory slot payload.
type InvItem struct {
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	Inscription string `json:"inscription"`
	Useless     bool   `json:"useless"`
}

// StatusLight is one active status effect as shown in the status bar.
type StatusLight struct {
	Light string `json:"light"`
	Text  string `json:"text"`
	Desc  string `json:"desc"`
}

// Map is a map-cell diff batch. Cell coordinates use an implicit cursor:
// an explicit x or y resets it, an absent x advances it by one.
type Map struct {
	Clear bool   `json:"clear"`
	Cells []Cell `json:"cells"`
}

func (*Map) Kind() string { return "map" }

// Cell is one entry of a map diff batch. Mon distinguishes three states:
// absent (no change), explicit null (remove), and an object (upsert) —
// MonSet reports whether the key was present at all.
type Cell struct {
	X       *int
	Y       *int
	Glyph   *string
	Feature *int
	FG      *TileFlags
	Mon     *Monster
	MonSet  bool

	// Overlays holds the environmental flags (silenced, sanctuary, halo,
	// liquefied, ...). Values are heterogeneous (bools and numbers), so the
	// raw form is kept.
	Overlays map[string]json.RawMessage
}

var overlayKeys = []string{
	"silenced", "sanctuary", "halo", "liquefied",
	"orb_glow", "quad_glow", "disjunct", "awakened_forest",
	"blasphemy", "highlighted_summoner",
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["x"]; ok {
		if err := json.Unmarshal(raw, &c.X); err != nil {
			return err
		}
	}
	if raw, ok := fields["y"]; ok {
		if err := json.Unmarshal(raw, &c.Y); err != nil {
			return err
		}
	}
	if raw, ok := fields["g"]; ok {
		if err := json.Unmarshal(raw, &c.Glyph); err != nil {
			return err
		}
	}
	if raw, ok := fields["f"]; ok {
		if err := json.Unmarshal(raw, &c.Feature); err != nil {
			return err
		}
	}
	if raw, ok := fields["fg"]; ok {
		if err := json.Unmarshal(raw, &c.FG); err != nil {
			return err
		}
	}
	if raw, ok := fields["mon"]; ok {
		c.MonSet = true
		if !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			if err := json.Unmarshal(raw, &c.Mon); err != nil {
				return err
			}
		}
	}
	for _, k := range overlayKeys {
		if raw, ok := fields[k]; ok {
			if c.Overlays == nil {
				c.Overlays = make(map[string]json.RawMessage)
			}
			c.Overlays[k] = raw
		}
	}
	return nil
}

// TileFlags is the packed 64-bit foreground flag word. The server sends it
// either as a plain number or as a [lo, hi] pair of 32-bit halves.
type TileFlags uint64

func (f *TileFlags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var parts []int64
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		var v uint64
		if len(parts) > 0 {
			v = uint64(uint32(parts[0]))
		}
		if len(parts) > 1 {
			v |= uint64(parts[1]) << 32
		}
		*f = TileFlags(v)
		return nil
	}
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = TileFlags(v)
	return nil
}

// Monster is the monster sub-object of a map cell. Fields are optional:
// later sightings of a known monster often omit the name.
type Monster struct {
	ID     *int    `json:"id"`
	Name   *string `json:"name"`
	Threat *int    `json:"threat"`
	Type   *int    `json:"type"`
}

// Msgs carries a batch of game-log lines.
type Msgs struct {
	Messages []TextLine `json:"messages"`
	Rollback int        `json:"rollback"`
}

func (*Msgs) Kind() string { return "msgs" }

// TextLine is one line of log text, possibly with inline markup.
type TextLine struct {
	Text string `json:"text"`
	Turn int    `json:"turn"`
}

// InputModeMsg announces what class of input the server is waiting on.
type InputModeMsg struct {
	Mode InputMode `json:"mode"`
}

func (*InputModeMsg) Kind() string { return "input_mode" }

// FormattedText appears where the server sends either a bare string or a
// {"text": ...} object.
type FormattedText struct {
	Text string
}

func (t *FormattedText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		t.Text = obj.Text
		return nil
	}
	return json.Unmarshal(data, &t.Text)
}

// MenuItem is one entry of a menu. Level below 2 marks a header row.
type MenuItem struct {
	Text    string `json:"text"`
	Level   *int   `json:"level"`
	Hotkeys []int  `json:"hotkeys"`
}

// Menu opens (replaces) the active menu.
type Menu struct {
	Tag   string         `json:"tag"`
	Title *FormattedText `json:"title"`
	More  *FormattedText `json:"more"`
	Items []MenuItem     `json:"items"`
}

func (*Menu) Kind() string { return "menu" }

// UpdateMenu patches the open menu field by field; only present fields
// change.
type UpdateMenu struct {
	Tag   *string        `json:"tag"`
	Title *FormattedText `json:"title"`
	More  *FormattedText `json:"more"`
	Items []MenuItem     `json:"items"`

	itemsSet bool
}

func (*UpdateMenu) Kind() string { return "update_menu" }

func (u *UpdateMenu) HasItems() bool { return u.itemsSet }

func (u *UpdateMenu) UnmarshalJSON(data []byte) error {
	type alias UpdateMenu
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*u = UpdateMenu(a)
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err == nil {
		_, u.itemsSet = probe["items"]
	}
	return nil
}

// UpdateMenuItems replaces a chunk of the open menu's items positionally.
type UpdateMenuItems struct {
	ChunkStart int        `json:"chunk_start"`
	Items      []MenuItem `json:"items"`
}

func (*UpdateMenuItems) Kind() string { return "update_menu_items" }

// CloseMenu closes the open menu.
type CloseMenu struct{}

func (*CloseMenu) Kind() string { return "close_menu" }

// CloseAllMenus closes every open menu.
type CloseAllMenus struct{}

func (*CloseAllMenus) Kind() string { return "close_all_menus" }

// UIPush opens a popup. Popups have no fixed schema; the known text-bearing
// fields are kept raw alongside everything else so the renderer can fall
// back to listing field names.
type UIPush struct {
	Type   string
	Fields map[string]json.RawMessage
}

func (*UIPush) Kind() string { return "ui-push" }

func (u *UIPush) UnmarshalJSON(data []byte) error {
	return unmarshalUIFields(data, &u.Type, &u.Fields)
}

// UIState patches the open popup field by field.
type UIState struct {
	Type   string
	Fields map[string]json.RawMessage
}

func (*UIState) Kind() string { return "ui-state" }

func (u *UIState) UnmarshalJSON(data []byte) error {
	return unmarshalUIFields(data, &u.Type, &u.Fields)
}

func unmarshalUIFields(data []byte, typ *string, fields *map[string]json.RawMessage) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if raw, ok := m["type"]; ok {
		if err := json.Unmarshal(raw, typ); err != nil {
			return err
		}
	}
	delete(m, "msg")
	*fields = m
	return nil
}

// UIPop closes the open popup.
type UIPop struct{}

func (*UIPop) Kind() string { return "ui-pop" }

// Close signals the game process going away (death, win, or save).
type Close struct {
	Reason string `json:"reason"`
}

func (*Close) Kind() string { return "close" }

// SetGameLinks carries the lobby's playable-game list as an HTML fragment.
type SetGameLinks struct {
	Content string `json:"content"`
}

func (*SetGameLinks) Kind() string { return "set_game_links" }

// LoginSuccess acknowledges a login or successful registration.
type LoginSuccess struct {
	Username string `json:"username"`
}

func (*LoginSuccess) Kind() string { return "login_success" }

// GoLobby confirms arrival at the lobby.
type GoLobby struct{}

func (*GoLobby) Kind() string { return "go_lobby" }

// Ping is a server liveness probe; the transport answers it with a pong.
type Ping struct{}

func (*Ping) Kind() string { return "ping" }

// Unknown preserves messages of kinds the client does not consume.
type Unknown struct {
	Tag string
	Raw json.RawMessage
}

func (u *Unknown) Kind() string { return u.Tag }
