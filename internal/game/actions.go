package game

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pixil98/go-crawl/internal/protocol"
)

var directionKeys = map[string]string{
	"n": protocol.KeyDirN, "s": protocol.KeyDirS,
	"e": protocol.KeyDirE, "w": protocol.KeyDirW,
	"ne": protocol.KeyDirNE, "nw": protocol.KeyDirNW,
	"se": protocol.KeyDirSE, "sw": protocol.KeyDirSW,
}

// Move steps one tile in a compass direction. Failed moves (turn counter
// unchanged) escalate advice as they repeat.
func (c *Client) Move(ctx context.Context, direction string) []string {
	key, ok := directionKeys[strings.ToLower(direction)]
	if !ok {
		return []string{fmt.Sprintf("Invalid direction: %s. Use n/s/e/w/ne/nw/se/sw", direction)}
	}
	turnBefore := c.mirror.Player().Turn
	result := c.act(ctx, key)
	if c.mirror.Player().Turn == turnBefore {
		c.failedMoves++
		switch n := c.failedMoves; {
		case n >= 5:
			result = append(result, fmt.Sprintf("[You've failed to move %d times in a row. Something is clearly wrong with your approach. Stop and reconsider what other navigation tools are available.]", n))
		case n >= 3:
			result = append(result, fmt.Sprintf("[%d consecutive failed moves. There's a wall or obstacle to the %s. Think about what other navigation tools are available.]", n, direction))
		default:
			result = append(result, fmt.Sprintf("[Nothing happened — there's a wall or obstacle to the %s.]", direction))
		}
	} else {
		c.failedMoves = 0
	}
	return result
}

// Attack is a move into an occupied tile.
func (c *Client) Attack(ctx context.Context, direction string) []string {
	return c.Move(ctx, direction)
}

// AutoExplore runs auto-explore and classifies a no-progress result as
// either an enemy interruption or a fully explored floor.
func (c *Client) AutoExplore(ctx context.Context) []string {
	turnBefore := c.mirror.Player().Turn
	result := c.act(ctx, "o")
	if c.mirror.Player().Turn == turnBefore {
		recent := strings.ToLower(strings.Join(result, " "))
		if len(c.mirror.NearbyEnemies()) > 0 ||
			strings.Contains(recent, "is nearby") ||
			strings.Contains(recent, "comes into view") {
			result = append(result, "[Explore interrupted by enemy.]")
		} else {
			result = append(result, "[Floor fully explored. Go downstairs to continue to the next level.]")
		}
	}
	return result
}

// AutoFight attacks the nearest enemy with Tab.
func (c *Client) AutoFight(ctx context.Context) []string {
	if len(c.mirror.NearbyEnemies()) == 0 {
		return []string{"No enemies in sight. Use auto-explore to keep moving."}
	}
	return c.act(ctx, protocol.KeyTab)
}

// Rest rests until healed or interrupted; refused while enemies are in
// sight.
func (c *Client) Rest(ctx context.Context) []string {
	if enemies := c.mirror.NearbyEnemies(); len(enemies) > 0 {
		names := make([]string, 0, 3)
		for i, e := range enemies {
			if i == 3 {
				break
			}
			names = append(names, e.Name)
		}
		return []string{fmt.Sprintf("Can't rest — enemies in sight: %s. Kill or flee first.", strings.Join(names, ", "))}
	}
	return c.act(ctx, "5")
}

// WaitTurn passes a single turn.
func (c *Client) WaitTurn(ctx context.Context) []string {
	return c.act(ctx, ".")
}

// GoUpstairs climbs stairs here, falling back to interlevel travel when
// not standing on any.
func (c *Client) GoUpstairs(ctx context.Context) []string {
	return c.useStairs(ctx, "<", func(before, after PlayerState) bool {
		return after.Depth < before.Depth || after.Place != before.Place
	})
}

// GoDownstairs descends stairs here, falling back to interlevel travel
// when not standing on any.
func (c *Client) GoDownstairs(ctx context.Context) []string {
	return c.useStairs(ctx, ">", func(before, after PlayerState) bool {
		return after.Depth > before.Depth || after.Place != before.Place
	})
}

func (c *Client) useStairs(ctx context.Context, key string, moved func(before, after PlayerState) bool) []string {
	before := c.mirror.Player()
	result := c.act(ctx, key)
	if moved(before, c.mirror.Player()) {
		return result
	}
	if travelled, msgs := c.interlevelTravel(ctx, key); travelled {
		return msgs
	}
	return append(result, "[Not on stairs. Find stairs among the landmarks, then move toward them step by step.]")
}

// interlevelTravel reaches for G travel: G opens a destination prompt,
// then "<" or ">" plus enter auto-travels to the nearest matching stairs
// and uses them. Reports false when the prompt never appeared.
func (c *Client) interlevelTravel(ctx context.Context, destination string) (bool, []string) {
	if err := c.transport.SendKey(ctx, "G"); err != nil {
		return false, nil
	}
	time.Sleep(300 * time.Millisecond)
	msgs, err := c.transport.Recv(ctx, time.Second)
	if err != nil {
		return false, nil
	}
	c.applyAll(msgs)

	gotPrompt := false
	for _, msg := range msgs {
		switch m := msg.(type) {
		case *protocol.InputModeMsg:
			if m.Mode == protocol.ModePrompt || m.Mode == protocol.ModeTravel {
				gotPrompt = true
			}
		case *protocol.Menu:
			gotPrompt = true
		}
	}
	if !gotPrompt {
		c.transport.SendKey(ctx, protocol.KeyEsc)
		time.Sleep(100 * time.Millisecond)
		if drained, err := c.transport.Recv(ctx, 200*time.Millisecond); err == nil {
			c.applyAll(drained)
		}
		return false, nil
	}

	if err := c.transport.SendKey(ctx, destination); err != nil {
		return false, nil
	}
	if err := c.transport.SendKey(ctx, protocol.KeyEnter); err != nil {
		return false, nil
	}
	time.Sleep(300 * time.Millisecond)
	// Travel can take many turns; give it a generous window.
	return true, c.dispatch(ctx, nil, dispatchOpts{timeout: 15 * time.Second})
}

// Pickup picks up items underfoot. A menu may open for stacks.
func (c *Client) Pickup(ctx context.Context) []string {
	msgs := c.act(ctx, ",")
	if c.tracker.Menu() != nil {
		msgs = append(msgs, "[A pickup menu opened — read it to see items, select one to pick it up, or dismiss to cancel.]")
	}
	return msgs
}

// UseAbility activates ability at the given hotkey.
func (c *Client) UseAbility(ctx context.Context, key string) []string {
	return c.act(ctx, "a", key)
}

// CastSpell casts the spell at the given hotkey. Targeted spells enter
// targeting mode; direction aims them, and an empty direction auto-targets
// the nearest enemy.
func (c *Client) CastSpell(ctx context.Context, key, direction string) []string {
	if err := c.transport.SendKey(ctx, "z"); err != nil {
		return []string{fmt.Sprintf("[ERROR: send failed: %v]", err)}
	}
	if err := c.transport.SendKey(ctx, key); err != nil {
		return []string{fmt.Sprintf("[ERROR: send failed: %v]", err)}
	}
	time.Sleep(150 * time.Millisecond)
	msgs, err := c.transport.Recv(ctx, 500*time.Millisecond)
	if err != nil {
		return []string{fmt.Sprintf("[ERROR: connection lost: %v]", err)}
	}
	c.applyAll(msgs)

	targeting := false
	for _, msg := range msgs {
		if m, ok := msg.(*protocol.InputModeMsg); ok {
			if m.Mode == protocol.ModeTargeting || m.Mode == protocol.ModePrompt {
				targeting = true
			}
		}
	}
	if !targeting {
		// Instant spell, or the cast failed outright.
		if extra, err := c.transport.Recv(ctx, 300*time.Millisecond); err == nil {
			c.applyAll(extra)
		}
		out := make([]string, 0, 5)
		for _, line := range c.mirror.RecentMessages(5) {
			out = append(out, line.Text)
		}
		return out
	}

	dirKey := "."
	if direction != "" {
		dirKey = dirKeyFor(direction)
	}
	result := c.act(ctx, dirKey)
	for _, line := range result {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "can't see") || strings.Contains(lower, "can't reach") {
			c.transport.SendKey(ctx, protocol.KeyEsc)
			time.Sleep(100 * time.Millisecond)
			if drained, err := c.transport.Recv(ctx, 300*time.Millisecond); err == nil {
				c.applyAll(drained)
			}
			result = append(result, "[Spell targeting cancelled — target not visible. Try without direction to auto-target the nearest enemy.]")
			break
		}
	}
	return result
}

func dirKeyFor(direction string) string {
	if key, ok := directionKeys[strings.ToLower(direction)]; ok {
		return key
	}
	return direction
}

// Quaff drinks the potion in the given slot.
func (c *Client) Quaff(ctx context.Context, slot string) []string {
	return c.act(ctx, "q", slot)
}

// ReadScroll reads the scroll in the given slot.
func (c *Client) ReadScroll(ctx context.Context, slot string) []string {
	return c.act(ctx, "r", slot)
}

// Wield wields the weapon in the given slot.
func (c *Client) Wield(ctx context.Context, slot string) []string {
	return c.act(ctx, "w", slot)
}

// Wear puts on the armour in the given slot.
func (c *Client) Wear(ctx context.Context, slot string) []string {
	return c.act(ctx, "W", slot)
}

// TakeOffArmour removes the armour in the given slot.
func (c *Client) TakeOffArmour(ctx context.Context, slot string) []string {
	return c.act(ctx, "T", slot)
}

// PutOnJewelry puts on the jewellery in the given slot.
func (c *Client) PutOnJewelry(ctx context.Context, slot string) []string {
	return c.act(ctx, "P", slot)
}

// RemoveJewelry removes jewellery; with an empty slot the game picks.
func (c *Client) RemoveJewelry(ctx context.Context, slot string) []string {
	if slot != "" {
		return c.act(ctx, "R", slot)
	}
	return c.act(ctx, "R")
}

// Drop drops the item in the given slot.
func (c *Client) Drop(ctx context.Context, slot string) []string {
	return c.act(ctx, "d", slot)
}

// ZapWand zaps the wand in the given slot, optionally aimed.
func (c *Client) ZapWand(ctx context.Context, slot, direction string) []string {
	keys := []string{"V", slot}
	if direction != "" {
		keys = append(keys, dirKeyFor(direction))
	}
	return c.act(ctx, keys...)
}

// Evoke evokes the item in the given slot.
func (c *Client) Evoke(ctx context.Context, slot string) []string {
	return c.act(ctx, "v", slot)
}

// ThrowItem throws the item in the given slot in a direction.
func (c *Client) ThrowItem(ctx context.Context, slot, direction string) []string {
	return c.act(ctx, "F", slot, dirKeyFor(direction))
}

// Pray prays at an altar or to the current god.
func (c *Client) Pray(ctx context.Context) []string {
	god := strings.ToLower(c.mirror.Player().God)
	if god == "" || god == "none" || god == "no god" {
		return []string{"You don't worship a god. Find an altar and use it to join a religion."}
	}
	return c.act(ctx, "p")
}

// ChooseStat answers a pending stat-increase prompt with S, I or D.
func (c *Client) ChooseStat(ctx context.Context, stat string) []string {
	stat = strings.ToUpper(stat)
	if stat != "S" && stat != "I" && stat != "D" {
		return []string{"[ERROR: Invalid stat. Use 'S' (Strength), 'I' (Intelligence), or 'D' (Dexterity).]"}
	}
	if c.pendingPrompt != "stat_increase" {
		return []string{"[No stat increase prompt pending.]"}
	}
	c.pendingPrompt = ""
	return c.actMenuOK(ctx, stat)
}

// Respond answers a yes/no confirmation; anything unrecognised escapes.
func (c *Client) Respond(ctx context.Context, action string) []string {
	var key string
	switch strings.ToLower(action) {
	case "yes":
		key = "Y"
	case "no":
		key = "N"
	default:
		key = protocol.KeyEsc
	}
	return c.actMenuOK(ctx, key)
}

// Escape sends a bare escape.
func (c *Client) Escape(ctx context.Context) []string {
	return c.actMenuOK(ctx, protocol.KeyEsc)
}

// SendKeys sends raw keys one at a time, for anything the vocabulary
// doesn't cover.
func (c *Client) SendKeys(ctx context.Context, keys string) []string {
	split := make([]string, 0, len(keys))
	for _, r := range keys {
		split = append(split, string(r))
	}
	return c.act(ctx, split...)
}

// Examine describes the item in the given slot from the inventory mirror.
func (c *Client) Examine(slot string) []string {
	for _, item := range c.mirror.InventoryItems() {
		if item.Slot == slot {
			return []string{fmt.Sprintf("%s - %s (qty: %d)", slot, item.Name, item.Quantity)}
		}
	}
	return []string{fmt.Sprintf("No item in slot %q.", slot)}
}
