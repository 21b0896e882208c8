package game

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pixil98/go-crawl/internal/protocol"
)

// dispatchOpts tunes one dispatch cycle. menuOK actions bypass the open
// surface guards and the narration cadence; they exist for the calls that
// resolve those very surfaces.
type dispatchOpts struct {
	timeout time.Duration
	menuOK  bool
}

// act runs one normal dispatch cycle with the configured timeout.
func (c *Client) act(ctx context.Context, keys ...string) []string {
	return c.dispatch(ctx, keys, dispatchOpts{timeout: c.dispatchTimeout})
}

// actMenuOK runs a dispatch cycle that is allowed while a menu, popup or
// prompt is open.
func (c *Client) actMenuOK(ctx context.Context, keys ...string) []string {
	return c.dispatch(ctx, keys, dispatchOpts{timeout: c.dispatchTimeout, menuOK: true})
}

// dispatch sends keys and polls until the server hands input back,
// applying every diff seen along the way. Game-level failures come back
// as in-band strings; the caller relays them verbatim.
func (c *Client) dispatch(ctx context.Context, keys []string, opts dispatchOpts) []string {
	if !c.inGame {
		return []string{"Not in game"}
	}

	if !opts.menuOK {
		if c.narrateEvery > 0 && c.actionsSinceNarrate >= c.narrateEvery {
			return []string{fmt.Sprintf(
				"[ERROR: You must narrate before continuing. You've taken %d actions without narrating for stream viewers.]",
				c.actionsSinceNarrate)}
		}
		c.actionsSinceNarrate++

		if c.pendingPrompt != "" {
			if c.pendingPrompt == "stat_increase" {
				return []string{"[ERROR: Stat increase prompt is waiting! Choose 'S', 'I', or 'D' to pick Strength, Intelligence, or Dexterity.]"}
			}
			return []string{fmt.Sprintf("[ERROR: A prompt is pending: %s]", c.pendingPrompt)}
		}
		if menu := c.tracker.Menu(); menu != nil {
			title := "a menu"
			if menu.Title != nil && menu.Title.Text != "" {
				title = menu.Title.Text
			}
			return []string{fmt.Sprintf("[ERROR: %s is still open. Read it, select an item, or dismiss it first.]", title)}
		}
		if depth := c.tracker.PopupDepth(); depth > 1 {
			return []string{fmt.Sprintf("[ERROR: A popup is still open (%d stacked). Read it or dismiss it first.]", depth)}
		} else if depth == 1 {
			return []string{"[ERROR: A popup is still open. Read it or dismiss it first.]"}
		}
	}

	msgStart := c.mirror.MessageSeq()

	// Fold in anything that arrived since the last action.
	if leftover, err := c.transport.Recv(ctx, 50*time.Millisecond); err == nil {
		c.applyAll(leftover)
	}

	for _, key := range keys {
		if err := c.transport.SendKey(ctx, key); err != nil {
			return []string{fmt.Sprintf("[ERROR: send failed: %v]", err)}
		}
	}

	timeout := opts.timeout
	if timeout <= 0 {
		timeout = c.dispatchTimeout
	}
	deadline := time.Now().Add(timeout)
	gotInput := false
	gotPlayer := false

	for time.Now().Before(deadline) && !c.Dead() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		step := 500 * time.Millisecond
		if remaining < step {
			step = remaining
		}
		msgs, err := c.transport.Recv(ctx, step)
		if err != nil {
			return []string{fmt.Sprintf("[ERROR: connection lost: %v]", err)}
		}

		for _, msg := range msgs {
			c.applyAll([]protocol.Message{msg})
			switch m := msg.(type) {
			case *protocol.InputModeMsg:
				c.handleInputMode(ctx, m.Mode, &gotInput)
			case *protocol.Player:
				gotPlayer = true
			case *protocol.Close:
				slog.InfoContext(ctx, "game closed", "reason", m.Reason)
			case *protocol.UIPush, *protocol.UIState:
				slog.InfoContext(ctx, "popup during action", "kind", msg.Kind())
				gotInput = true
			case *protocol.Menu, *protocol.UpdateMenu, *protocol.UpdateMenuItems:
				slog.InfoContext(ctx, "menu during action", "kind", msg.Kind())
				gotInput = true
			}
		}

		if gotInput && gotPlayer {
			break
		}
		if gotInput {
			if extra, err := c.transport.Recv(ctx, 100*time.Millisecond); err == nil {
				c.applyAll(extra)
			}
			break
		}
	}

	if !gotInput && !c.Dead() {
		c.timeouts++
		slog.WarnContext(ctx, "action finished without input hand-back",
			"keys", keys, "consecutive", c.timeouts)
		if c.timeouts >= 3 {
			c.recover(ctx)
			c.timeouts = 0
		}
	} else {
		c.timeouts = 0
	}

	out := make([]string, 0, 8)
	for _, line := range c.mirror.MessagesSince(msgStart) {
		out = append(out, line.Text)
	}
	for _, line := range out {
		if strings.Contains(line, "Unknown command") {
			out = append(out, "[HINT: 'Unknown command' means a key you sent was invalid in this context.]")
			break
		}
	}
	return out
}

// handleInputMode reacts to a mode announcement mid-action. Ready and
// targeting hand input back; the pager is acknowledged with a space;
// prompts latch when they are the stat-increase prompt and are escaped
// otherwise; travel means work is still in progress.
func (c *Client) handleInputMode(ctx context.Context, mode protocol.InputMode, gotInput *bool) {
	switch mode {
	case protocol.ModeReady:
		*gotInput = true
	case protocol.ModePager:
		if err := c.transport.SendKey(ctx, " "); err != nil {
			slog.WarnContext(ctx, "acknowledging pager", "error", err)
		}
	case protocol.ModePrompt:
		if c.recentStatPrompt() {
			c.pendingPrompt = "stat_increase"
			slog.InfoContext(ctx, "stat increase prompt detected")
			*gotInput = true
			return
		}
		slog.InfoContext(ctx, "text prompt during action, escaping")
		if err := c.transport.SendKey(ctx, protocol.KeyEsc); err != nil {
			slog.WarnContext(ctx, "escaping prompt", "error", err)
		}
	case protocol.ModeTargeting:
		// Waiting for a direction; the caller supplies it.
		*gotInput = true
	case protocol.ModeTravel:
		// Multi-turn work in progress.
	default:
		slog.InfoContext(ctx, "unknown input mode, escaping", "mode", int(mode))
		if err := c.transport.SendKey(ctx, protocol.KeyEsc); err != nil {
			slog.WarnContext(ctx, "escaping unknown mode", "error", err)
		}
	}
}

func (c *Client) recentStatPrompt() bool {
	for _, line := range c.mirror.RecentMessages(5) {
		if strings.Contains(line.Text, "(S)trength") {
			return true
		}
	}
	return false
}

// recover resyncs after repeated timeouts: blind escapes to shed whatever
// surface the server thinks is open, then Ctrl-R to force a full redraw,
// then drain and rebuild. Phantom menu and popup state is cleared since
// the redraw re-announces anything genuinely open.
func (c *Client) recover(ctx context.Context) {
	slog.WarnContext(ctx, "repeated timeouts, resyncing")
	for i := 0; i < 3; i++ {
		if err := c.transport.SendKey(ctx, protocol.KeyEsc); err != nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err := c.transport.SendKey(ctx, protocol.KeyCtrlR); err != nil {
		return
	}
	time.Sleep(300 * time.Millisecond)

	c.tracker.ForceClear()
	for i := 0; i < 5; i++ {
		msgs, err := c.transport.Recv(ctx, 500*time.Millisecond)
		if err != nil || len(msgs) == 0 {
			return
		}
		c.applyAll(msgs)
		for _, msg := range msgs {
			if m, ok := msg.(*protocol.InputModeMsg); ok && m.Mode == protocol.ModeReady {
				slog.InfoContext(ctx, "resynced")
			}
		}
	}
}
