package ui

import (
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"

	"github.com/pixil98/go-crawl/internal/protocol"
)

func intPtr(v int) *int { return &v }

func TestRenderMenu(t *testing.T) {
	menu := &protocol.Menu{
		Tag:   "pickup",
		Title: &protocol.FormattedText{Text: "Pick up what?"},
		More:  &protocol.FormattedText{Text: "(_ for help)"},
		Items: []protocol.MenuItem{
			{Text: "<cyan>Hand Weapons</cyan>", Level: intPtr(1)},
			{Text: "<w>a short sword</w>", Level: intPtr(2), Hotkeys: []int{'a'}},
			{Text: "a whip", Level: intPtr(2), Hotkeys: []int{'b'}},
			{Text: "", Level: intPtr(2)},
		},
	}

	out := RenderMenu(menu)

	want := []string{
		"Pick up what?",
		"-- Hand Weapons",
		"  a - a short sword",
		"  b - a whip",
		"(_ for help)",
	}
	for _, line := range want {
		if !strings.Contains(out, line) {
			t.Errorf("output missing %q:\n%s", line, out)
		}
	}
	if strings.Contains(out, "<cyan>") {
		t.Error("colour markup should be stripped")
	}
}

func TestRenderMenu_Nil(t *testing.T) {
	testutil.AssertEqual(t, "nil menu", RenderMenu(nil), "")
}

func TestRenderPopup(t *testing.T) {
	tests := map[string]struct {
		raw      string
		contains []string
	}{
		"text fields in order": {
			raw: `{"msg":"ui-push","type":"describe-item","title":"a ration","body":"A filling meal."}`,
			contains: []string{
				"a ration",
				"A filling meal.",
			},
		},
		"object-form text field": {
			raw:      `{"msg":"ui-push","type":"prompt","prompt":{"text":"Really eat it?"}}`,
			contains: []string{"Really eat it?"},
		},
		"description only renders as text": {
			raw:      `{"msg":"ui-push","type":"describe-item","description":"A sturdy club.","quote":"Bonk."}`,
			contains: []string{"A sturdy club.", "Bonk."},
		},
		"spell description and stats": {
			raw:      `{"msg":"ui-push","type":"describe-spell","spells_description":"Throws a bolt of flame.","stats":"Power: ###..."}`,
			contains: []string{"Throws a bolt of flame.", "Power: ###..."},
		},
		"unknown type falls back to field listing": {
			raw:      `{"msg":"ui-push","type":"seed-selection","seed":42}`,
			contains: []string{"[popup seed-selection:", "seed"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			msg := decodeMsg(t, tt.raw)
			push := msg.(*protocol.UIPush)
			out := RenderPopup(&protocol.UIState{Type: push.Type, Fields: push.Fields})

			for _, part := range tt.contains {
				if !strings.Contains(out, part) {
					t.Errorf("output missing %q:\n%s", part, out)
				}
			}
		})
	}
}

func TestRenderPopup_Nil(t *testing.T) {
	testutil.AssertEqual(t, "nil popup", RenderPopup(nil), "")
}

func TestHotkeyFor(t *testing.T) {
	menu := &protocol.Menu{
		Items: []protocol.MenuItem{
			{Text: "Actions", Level: intPtr(1), Hotkeys: []int{'x'}},
			{Text: "a - drop this item", Level: intPtr(2), Hotkeys: []int{'a'}},
			{Text: "b - Inscribe it", Level: intPtr(2), Hotkeys: []int{'b'}},
			{Text: "no hotkey row", Level: intPtr(2)},
		},
	}

	tests := map[string]struct {
		substr string
		exp    int
	}{
		"exact fragment":       {"drop", 'a'},
		"case insensitive":     {"inscribe", 'b'},
		"header not matched":   {"actions", 0},
		"no such item":         {"quaff", 0},
		"hotkeyless not found": {"no hotkey", 0},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "hotkey", HotkeyFor(menu, tt.substr), tt.exp)
		})
	}
}

func TestHotkeyFor_NilMenu(t *testing.T) {
	testutil.AssertEqual(t, "nil menu", HotkeyFor(nil, "anything"), 0)
}
