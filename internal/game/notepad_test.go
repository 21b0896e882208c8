package game

import (
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestNotepad(t *testing.T) {
	n := NewNotepad()

	testutil.AssertEqual(t, "empty read", n.Read(""), "Notepad is empty.")

	out := n.Write("deaths", "killed by Sigmund on D:2")
	testutil.AssertEqual(t, "first write", out, "Note saved to [deaths] (1 notes on this page, 1 total).")

	n.Write("deaths", "ogre ambush on D:4")
	out = n.Write("tactics", "lure ogres into corridors")
	testutil.AssertEqual(t, "third write", out, "Note saved to [tactics] (1 notes on this page, 3 total).")

	page := n.Read("deaths")
	if !strings.Contains(page, "[deaths]") || !strings.Contains(page, "- ogre ambush on D:4") {
		t.Errorf("unexpected page read:\n%s", page)
	}

	testutil.AssertEqual(t, "missing page", n.Read("loot"), "No notes on page [loot].")

	all := n.Read("")
	// Pages come back in creation order.
	if strings.Index(all, "[deaths]") > strings.Index(all, "[tactics]") {
		t.Errorf("expected creation order:\n%s", all)
	}

	out = n.RipPage("deaths")
	testutil.AssertEqual(t, "rip", out, "Ripped out [deaths] (2 notes removed).")
	testutil.AssertEqual(t, "ripped page gone", n.Read("deaths"), "No notes on page [deaths].")

	out = n.RipPage("deaths")
	testutil.AssertEqual(t, "rip missing", out, "No page [deaths] to rip out.")
}
