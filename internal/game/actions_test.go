package game

import (
	"context"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"

	"github.com/pixil98/go-crawl/internal/protocol"
)

func TestMove_InvalidDirection(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)

	out := c.Move(context.Background(), "up")
	if !strings.Contains(out[0], "Invalid direction") {
		t.Errorf("expected direction error, got %v", out)
	}
	testutil.AssertEqual(t, "nothing sent", len(f.keys), 0)
}

func TestMove_FailureEscalation(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)
	c.mirror.Apply(decodeMsg(t, `{"msg":"player","turn":5}`))

	// Walking into a wall: the server answers but the turn never advances.
	f.respond[protocol.KeyDirN] = readyBatch(t, 5)

	expectations := []string{
		"Nothing happened",
		"Nothing happened",
		"3 consecutive failed moves",
		"4 consecutive failed moves",
		"failed to move 5 times in a row",
	}
	for i, want := range expectations {
		out := c.Move(context.Background(), "n")
		last := out[len(out)-1]
		if !strings.Contains(last, want) {
			t.Fatalf("move %d: expected %q, got %v", i+1, want, out)
		}
	}
	testutil.AssertEqual(t, "failure count", c.failedMoves, 5)

	// A move that advances the turn clears the streak.
	f.respond[protocol.KeyDirN] = readyBatch(t, 6)
	out := c.Move(context.Background(), "n")
	testutil.AssertEqual(t, "streak reset", c.failedMoves, 0)
	for _, line := range out {
		if strings.Contains(line, "Nothing happened") {
			t.Errorf("unexpected failure message after success: %v", out)
		}
	}
}

func TestAutoExplore_Classification(t *testing.T) {
	t.Run("interrupted by enemy", func(t *testing.T) {
		f := newFakeTransport()
		c := newTestClient(t, f)
		c.mirror.Apply(decodeMsg(t, `{"msg":"player","turn":5,"pos":{"x":10,"y":10}}`))
		c.mirror.Apply(decodeMsg(t, `{"msg":"map","cells":[
			{"x":12,"y":10,"g":"g","mon":{"id":1,"name":"goblin","threat":1}}
		]}`))
		f.respond["o"] = readyBatch(t, 5)

		out := c.AutoExplore(context.Background())
		last := out[len(out)-1]
		testutil.AssertEqual(t, "verdict", last, "[Explore interrupted by enemy.]")
	})

	t.Run("floor fully explored", func(t *testing.T) {
		f := newFakeTransport()
		c := newTestClient(t, f)
		c.mirror.Apply(decodeMsg(t, `{"msg":"player","turn":5}`))
		f.respond["o"] = readyBatch(t, 5)

		out := c.AutoExplore(context.Background())
		last := out[len(out)-1]
		testutil.AssertEqual(t, "verdict", last, "[Floor fully explored. Go downstairs to continue to the next level.]")
	})

	t.Run("progress made", func(t *testing.T) {
		f := newFakeTransport()
		c := newTestClient(t, f)
		c.mirror.Apply(decodeMsg(t, `{"msg":"player","turn":5}`))
		f.respond["o"] = readyBatch(t, 25)

		out := c.AutoExplore(context.Background())
		for _, line := range out {
			if strings.Contains(line, "[Floor fully explored") || strings.Contains(line, "[Explore interrupted") {
				t.Errorf("unexpected verdict on progress: %v", out)
			}
		}
	})
}

func TestAutoFight_RequiresEnemies(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)

	out := c.AutoFight(context.Background())
	if !strings.Contains(out[0], "No enemies in sight") {
		t.Errorf("expected refusal, got %v", out)
	}
	testutil.AssertEqual(t, "nothing sent", len(f.keys), 0)

	c.mirror.Apply(decodeMsg(t, `{"msg":"player","pos":{"x":10,"y":10}}`))
	c.mirror.Apply(decodeMsg(t, `{"msg":"map","cells":[
		{"x":11,"y":10,"g":"r","mon":{"id":1,"name":"rat","threat":0}}
	]}`))
	f.respond[protocol.KeyTab] = readyBatch(t, 6)

	c.AutoFight(context.Background())
	testutil.AssertEqual(t, "tab sent", f.countKey(protocol.KeyTab), 1)
}

func TestRest_RefusedWithEnemies(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)
	c.mirror.Apply(decodeMsg(t, `{"msg":"player","pos":{"x":10,"y":10}}`))
	c.mirror.Apply(decodeMsg(t, `{"msg":"map","cells":[
		{"x":11,"y":10,"g":"r","mon":{"id":1,"name":"rat","threat":0}},
		{"x":9,"y":10,"g":"g","mon":{"id":2,"name":"goblin","threat":1}}
	]}`))

	out := c.Rest(context.Background())
	if !strings.Contains(out[0], "Can't rest") || !strings.Contains(out[0], "rat") {
		t.Errorf("expected refusal naming enemies, got %v", out)
	}
	testutil.AssertEqual(t, "nothing sent", len(f.keys), 0)
}

func TestRest_SendsKeyWhenClear(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)
	f.respond["5"] = readyBatch(t, 50)

	c.Rest(context.Background())
	testutil.AssertEqual(t, "rest key sent", f.countKey("5"), 1)
}

func TestGoDownstairs_OnStairs(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)
	c.mirror.Apply(decodeMsg(t, `{"msg":"player","place":"Dungeon","depth":1,"turn":10}`))

	f.respond[">"] = []protocol.Message{
		decodeMsg(t, `{"msg":"player","depth":2,"turn":11}`),
		decodeMsg(t, `{"msg":"input_mode","mode":1}`),
	}

	out := c.GoDownstairs(context.Background())

	testutil.AssertEqual(t, "depth", c.Player().Depth, 2)
	for _, line := range out {
		if strings.Contains(line, "Not on stairs") {
			t.Errorf("unexpected fallback advice: %v", out)
		}
	}
	// No travel fallback was attempted.
	testutil.AssertEqual(t, "no travel key", f.countKey("G"), 0)
}

func TestGoDownstairs_TravelFallback(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)
	c.mirror.Apply(decodeMsg(t, `{"msg":"player","place":"Dungeon","depth":1,"turn":10}`))

	// Not on stairs: ">" does nothing, G opens the travel prompt, and the
	// destination plus enter auto-travels down.
	f.respond[">"] = readyBatch(t, 10)
	f.respond["G"] = []protocol.Message{
		decodeMsg(t, `{"msg":"input_mode","mode":7}`),
	}
	f.respond[protocol.KeyEnter] = []protocol.Message{
		decodeMsg(t, `{"msg":"player","depth":2,"turn":40}`),
		decodeMsg(t, `{"msg":"input_mode","mode":1}`),
	}

	c.GoDownstairs(context.Background())

	testutil.AssertEqual(t, "travel opened", f.countKey("G"), 1)
	testutil.AssertEqual(t, "depth", c.Player().Depth, 2)
}

func TestGoUpstairs_NoStairsAnywhere(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)
	c.mirror.Apply(decodeMsg(t, `{"msg":"player","place":"Dungeon","depth":2,"turn":10}`))

	// "<" does nothing and the travel prompt never appears.
	f.respond["<"] = readyBatch(t, 10)

	out := c.GoUpstairs(context.Background())

	last := out[len(out)-1]
	if !strings.Contains(last, "Not on stairs") {
		t.Errorf("expected stairs advice, got %v", out)
	}
	// The aborted travel attempt was escaped.
	if f.countKey(protocol.KeyEsc) == 0 {
		t.Error("expected escape after failed travel prompt")
	}
}

func TestCastSpell_InstantAndTargeted(t *testing.T) {
	t.Run("instant spell", func(t *testing.T) {
		f := newFakeTransport()
		c := newTestClient(t, f)

		f.respond["a"] = []protocol.Message{
			decodeMsg(t, `{"msg":"msgs","messages":[{"text":"Your skin hardens.","turn":5}]}`),
			decodeMsg(t, `{"msg":"input_mode","mode":1}`),
		}

		out := c.CastSpell(context.Background(), "a", "")
		joined := strings.Join(out, " ")
		if !strings.Contains(joined, "Your skin hardens.") {
			t.Errorf("expected cast message, got %v", out)
		}
	})

	t.Run("targeted spell aims and fires", func(t *testing.T) {
		f := newFakeTransport()
		c := newTestClient(t, f)

		f.respond["a"] = []protocol.Message{
			decodeMsg(t, `{"msg":"input_mode","mode":4}`),
		}
		f.respond[protocol.KeyDirE] = []protocol.Message{
			decodeMsg(t, `{"msg":"msgs","messages":[{"text":"The flame bolt hits the goblin!","turn":6}]}`),
			decodeMsg(t, `{"msg":"player","turn":6}`),
			decodeMsg(t, `{"msg":"input_mode","mode":1}`),
		}

		out := c.CastSpell(context.Background(), "a", "e")
		joined := strings.Join(out, " ")
		if !strings.Contains(joined, "flame bolt hits") {
			t.Errorf("expected hit message, got %v", out)
		}
	})

	t.Run("target not visible cleans up", func(t *testing.T) {
		f := newFakeTransport()
		c := newTestClient(t, f)

		f.respond["a"] = []protocol.Message{
			decodeMsg(t, `{"msg":"input_mode","mode":4}`),
		}
		f.respond["."] = []protocol.Message{
			decodeMsg(t, `{"msg":"msgs","messages":[{"text":"Sorry, you can't see any susceptible monsters.","turn":6}]}`),
			decodeMsg(t, `{"msg":"input_mode","mode":4}`),
		}

		out := c.CastSpell(context.Background(), "a", "")
		joined := strings.Join(out, " ")
		if !strings.Contains(joined, "Spell targeting cancelled") {
			t.Errorf("expected cancellation advice, got %v", out)
		}
		if f.countKey(protocol.KeyEsc) == 0 {
			t.Error("expected escape to leave targeting mode")
		}
	})
}

func TestPray_RequiresGod(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)

	out := c.Pray(context.Background())
	if !strings.Contains(out[0], "don't worship") {
		t.Errorf("expected refusal, got %v", out)
	}

	c.mirror.Apply(decodeMsg(t, `{"msg":"player","god":"Trog"}`))
	f.respond["p"] = readyBatch(t, 6)
	c.Pray(context.Background())
	testutil.AssertEqual(t, "pray sent", f.countKey("p"), 1)
}

func TestRespond(t *testing.T) {
	tests := map[string]struct {
		action string
		key    string
	}{
		"yes":          {"yes", "Y"},
		"no":           {"no", "N"},
		"unrecognised": {"maybe", protocol.KeyEsc},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFakeTransport()
			c := newTestClient(t, f)
			f.respond[tt.key] = readyBatch(t, 6)

			c.Respond(context.Background(), tt.action)
			testutil.AssertEqual(t, "key sent", f.countKey(tt.key), 1)
		})
	}
}

func TestSendKeys_SplitsRunes(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)
	f.respond["b"] = readyBatch(t, 6)

	c.SendKeys(context.Background(), "ab")

	testutil.AssertEqual(t, "first key", f.keys[0], "a")
	testutil.AssertEqual(t, "second key", f.keys[1], "b")
}

func TestExamine(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)
	c.mirror.Apply(decodeMsg(t, `{"msg":"player","inv":{"0":{"name":"a club","quantity":1}}}`))

	out := c.Examine("a")
	testutil.AssertEqual(t, "description", out[0], "a - a club (qty: 1)")

	out = c.Examine("z")
	testutil.AssertEqual(t, "missing slot", out[0], `No item in slot "z".`)
}

func TestReadUI(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)

	testutil.AssertEqual(t, "nothing open", c.ReadUI(), "No menu or popup is currently open.")

	c.tracker.Apply(decodeMsg(t, `{"msg":"ui-push","type":"describe-item","title":"a ration"}`))
	if !strings.Contains(c.ReadUI(), "a ration") {
		t.Errorf("expected popup text, got %q", c.ReadUI())
	}

	// An open menu takes precedence over the popup.
	c.tracker.Apply(decodeMsg(t, `{"msg":"menu","tag":"inv","title":"Inventory"}`))
	if !strings.Contains(c.ReadUI(), "Inventory") {
		t.Errorf("expected menu text, got %q", c.ReadUI())
	}
}

func TestSelectMenuItem(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)

	testutil.AssertEqual(t, "no menu", c.SelectMenuItem(context.Background(), "a"), "No menu is currently open.")

	c.tracker.Apply(decodeMsg(t, `{"msg":"menu","tag":"pickup","title":"Pick up what?"}`))
	f.respond["a"] = []protocol.Message{decodeMsg(t, `{"msg":"close_menu"}`)}

	out := c.SelectMenuItem(context.Background(), "a")
	testutil.AssertEqual(t, "menu closed", out, `Menu closed after pressing "a".`)

	c.tracker.Apply(decodeMsg(t, `{"msg":"menu","tag":"pickup","title":"Pick up what?"}`))
	out = c.SelectMenuItem(context.Background(), "b")
	if !strings.Contains(out, "Menu still open") {
		t.Errorf("expected still-open report, got %q", out)
	}
}

func TestSelectMenuItem_ByItemText(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)

	c.tracker.Apply(decodeMsg(t, `{"msg":"menu","tag":"pickup","title":"Pick up what?","items":[
		{"text":"a scroll of identify","level":2,"hotkeys":[97]},
		{"text":"a potion of curing","level":2,"hotkeys":[98]}
	]}`))
	f.respond["b"] = []protocol.Message{decodeMsg(t, `{"msg":"close_menu"}`)}

	out := c.SelectMenuItem(context.Background(), "potion of curing")
	testutil.AssertEqual(t, "menu closed", out, `Menu closed after pressing "b".`)
	testutil.AssertEqual(t, "key sent", f.keys[len(f.keys)-1], "b")

	c.tracker.Apply(decodeMsg(t, `{"msg":"menu","tag":"pickup","title":"Pick up what?"}`))
	out = c.SelectMenuItem(context.Background(), "wand of digging")
	testutil.AssertEqual(t, "no match", out, `No menu entry matches "wand of digging".`)
}
