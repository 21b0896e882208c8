// Package ui mirrors the server's menu and popup state. The server owns
// these surfaces; we only ever see diffs, so the tracker's job is merging
// diffs into the last full snapshot and answering "is anything open?".
package ui

import (
	"github.com/pixil98/go-crawl/internal/protocol"
)

// Tracker accumulates menu and popup messages into a queryable view.
type Tracker struct {
	menu   *protocol.Menu
	popups []*protocol.UIState
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Apply folds one message into the tracked state. Non-UI messages are
// ignored so callers can feed it every inbound message unconditionally.
func (t *Tracker) Apply(msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.Menu:
		menu := *m
		t.menu = &menu
	case *protocol.UpdateMenu:
		t.applyUpdateMenu(m)
	case *protocol.UpdateMenuItems:
		t.applyUpdateMenuItems(m)
	case *protocol.CloseMenu, *protocol.CloseAllMenus:
		t.menu = nil
	case *protocol.UIPush:
		state := &protocol.UIState{Type: m.Type, Fields: m.Fields}
		t.popups = append(t.popups, state)
	case *protocol.UIState:
		t.applyUIState(m)
	case *protocol.UIPop:
		if n := len(t.popups); n > 0 {
			t.popups = t.popups[:n-1]
		}
	case *protocol.GoLobby, *protocol.Close:
		t.Reset()
	}
}

func (t *Tracker) applyUpdateMenu(m *protocol.UpdateMenu) {
	if t.menu == nil {
		// Update for a menu we never saw opened; treat it as the open.
		t.menu = &protocol.Menu{}
	}
	if m.Tag != nil {
		t.menu.Tag = *m.Tag
	}
	if m.Title != nil {
		t.menu.Title = m.Title
	}
	if m.More != nil {
		t.menu.More = m.More
	}
	if m.HasItems() {
		t.menu.Items = m.Items
	}
}

func (t *Tracker) applyUpdateMenuItems(m *protocol.UpdateMenuItems) {
	if t.menu == nil {
		return
	}
	// Items arrive as a chunk replacing a contiguous range.
	for i, item := range m.Items {
		idx := m.ChunkStart + i
		if idx < 0 {
			continue
		}
		for idx >= len(t.menu.Items) {
			t.menu.Items = append(t.menu.Items, protocol.MenuItem{})
		}
		t.menu.Items[idx] = item
	}
}

func (t *Tracker) applyUIState(m *protocol.UIState) {
	if len(t.popups) == 0 {
		// State diff with no tracked popup: the push predates us
		// (or was lost), so adopt the diff as the popup itself.
		t.popups = append(t.popups, &protocol.UIState{Type: m.Type, Fields: m.Fields})
		return
	}
	top := t.popups[len(t.popups)-1]
	if m.Type != "" {
		top.Type = m.Type
	}
	if top.Fields == nil {
		top.Fields = m.Fields
		return
	}
	for k, v := range m.Fields {
		top.Fields[k] = v
	}
}

// Menu returns the open menu, or nil.
func (t *Tracker) Menu() *protocol.Menu {
	return t.menu
}

// Popup returns the topmost popup, or nil.
func (t *Tracker) Popup() *protocol.UIState {
	if len(t.popups) == 0 {
		return nil
	}
	return t.popups[len(t.popups)-1]
}

// PopupDepth returns how many popups are stacked.
func (t *Tracker) PopupDepth() int {
	return len(t.popups)
}

// Blocked reports whether a menu or popup is waiting on input.
func (t *Tracker) Blocked() bool {
	return t.menu != nil || len(t.popups) > 0
}

// ForceClear discards all tracked menu and popup state. Used by the
// recovery path after escapes have been sent blind.
func (t *Tracker) ForceClear() {
	t.menu = nil
	t.popups = nil
}

// Reset is ForceClear plus anything session-scoped; currently identical,
// kept separate so session teardown reads as intent.
func (t *Tracker) Reset() {
	t.ForceClear()
}
