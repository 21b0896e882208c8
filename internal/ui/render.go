package ui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pixil98/go-crawl/internal/display"
	"github.com/pixil98/go-crawl/internal/protocol"
)

// popupTextFields are the popup fields known to carry human-readable text,
// in the order they should be shown.
var popupTextFields = []string{
	"title", "prompt", "text", "body", "more",
	"description", "quote", "spells_description", "stats",
}

// RenderMenu flattens the open menu to text. Header rows (level < 2) are
// kept as section markers; selectable rows show their hotkey letter.
func RenderMenu(m *protocol.Menu) string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	if m.Title != nil && m.Title.Text != "" {
		b.WriteString(display.StripTags(m.Title.Text))
		b.WriteString("\n")
	}
	for _, item := range m.Items {
		text := display.StripTags(item.Text)
		if text == "" {
			continue
		}
		if item.Level != nil && *item.Level < 2 {
			fmt.Fprintf(&b, "-- %s\n", text)
			continue
		}
		if key := hotkeyLetter(item); key != "" {
			fmt.Fprintf(&b, "  %s - %s\n", key, text)
		} else {
			fmt.Fprintf(&b, "  %s\n", text)
		}
	}
	if m.More != nil && m.More.Text != "" {
		b.WriteString(display.StripTags(m.More.Text))
		b.WriteString("\n")
	}
	return display.Wrap(strings.TrimRight(b.String(), "\n"))
}

// RenderPopup extracts the readable text of a popup. Popups have no fixed
// schema, so unknown types fall back to naming the type and its fields.
func RenderPopup(p *protocol.UIState) string {
	if p == nil {
		return ""
	}
	var parts []string
	for _, field := range popupTextFields {
		raw, ok := p.Fields[field]
		if !ok {
			continue
		}
		if text := decodeTextField(raw); text != "" {
			parts = append(parts, display.StripTags(text))
		}
	}
	if len(parts) > 0 {
		return display.Wrap(strings.Join(parts, "\n"))
	}

	fields := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		if k == "type" {
			continue
		}
		fields = append(fields, k)
	}
	return fmt.Sprintf("[popup %s: %s]", p.Type, strings.Join(fields, ", "))
}

// decodeTextField handles the two shapes text fields arrive in: a bare
// string or a {"text": ...} object.
func decodeTextField(raw json.RawMessage) string {
	var ft protocol.FormattedText
	if err := json.Unmarshal(raw, &ft); err == nil {
		return ft.Text
	}
	return ""
}

func hotkeyLetter(item protocol.MenuItem) string {
	for _, hk := range item.Hotkeys {
		if hk >= 'a' && hk <= 'z' || hk >= 'A' && hk <= 'Z' {
			return string(rune(hk))
		}
	}
	return ""
}

// HotkeyFor returns the keycode for the menu item whose text contains
// substr (case-insensitive), or 0 when no item matches.
func HotkeyFor(m *protocol.Menu, substr string) int {
	if m == nil {
		return 0
	}
	needle := strings.ToLower(substr)
	for _, item := range m.Items {
		if item.Level != nil && *item.Level < 2 {
			continue
		}
		if len(item.Hotkeys) == 0 {
			continue
		}
		if strings.Contains(strings.ToLower(display.StripTags(item.Text)), needle) {
			return item.Hotkeys[0]
		}
	}
	return 0
}
