package game

import (
	"context"
	"fmt"
	"time"

	"github.com/pixil98/go-crawl/internal/protocol"
	"github.com/pixil98/go-crawl/internal/ui"
)

// ReadUI renders whichever surface is open, menu before popup.
func (c *Client) ReadUI() string {
	if menu := c.tracker.Menu(); menu != nil {
		return ui.RenderMenu(menu)
	}
	if popup := c.tracker.Popup(); popup != nil {
		return ui.RenderPopup(popup)
	}
	return "No menu or popup is currently open."
}

// SelectMenuItem presses a hotkey into the open menu and reports whether
// the menu closed. Anything longer than one character is matched against
// the menu's item text instead, and the found item's hotkey is pressed.
func (c *Client) SelectMenuItem(ctx context.Context, key string) string {
	if c.tracker.Menu() == nil {
		return "No menu is currently open."
	}
	if len([]rune(key)) > 1 {
		code := ui.HotkeyFor(c.tracker.Menu(), key)
		if code == 0 {
			return fmt.Sprintf("No menu entry matches %q.", key)
		}
		key = string(rune(code))
	}
	if err := c.transport.SendKey(ctx, key); err != nil {
		return fmt.Sprintf("[ERROR: send failed: %v]", err)
	}
	time.Sleep(300 * time.Millisecond)
	msgs, err := c.transport.Recv(ctx, time.Second)
	if err != nil {
		return fmt.Sprintf("[ERROR: connection lost: %v]", err)
	}
	c.applyAll(msgs)

	if c.tracker.Menu() == nil {
		return fmt.Sprintf("Menu closed after pressing %q.", key)
	}
	return fmt.Sprintf("Pressed %q. Menu still open; read it to see the updated state.", key)
}

// Dismiss closes whichever surface is open with an escape. Local tracker
// state is cleared even if the close confirmation never arrives, since a
// desynced "open" surface blocks every other action.
func (c *Client) Dismiss(ctx context.Context) string {
	hadMenu := c.tracker.Menu() != nil
	hadPopup := !hadMenu && c.tracker.Popup() != nil

	if err := c.transport.SendKey(ctx, protocol.KeyEsc); err != nil {
		return fmt.Sprintf("[ERROR: send failed: %v]", err)
	}
	if !hadMenu && !hadPopup {
		return "Escape pressed."
	}
	time.Sleep(300 * time.Millisecond)
	if msgs, err := c.transport.Recv(ctx, time.Second); err == nil {
		c.applyAll(msgs)
	}
	if hadMenu {
		if c.tracker.Menu() != nil {
			c.tracker.ForceClear()
		}
		return "Menu closed."
	}
	if c.tracker.Popup() != nil {
		c.tracker.ForceClear()
	}
	return "Popup dismissed."
}
