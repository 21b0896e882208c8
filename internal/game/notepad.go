package game

import (
	"fmt"
	"strings"
)

// Notepad is a free-form per-run scratchpad organised into named pages.
// It survives nothing past the run; persistent records live in runlog.
type Notepad struct {
	pages map[string][]string
	order []string
}

func NewNotepad() *Notepad {
	return &Notepad{pages: make(map[string][]string)}
}

// Write appends a note to page, creating the page if needed, and returns
// an in-band confirmation line.
func (n *Notepad) Write(page, text string) string {
	if _, ok := n.pages[page]; !ok {
		n.order = append(n.order, page)
	}
	n.pages[page] = append(n.pages[page], text)
	total := 0
	for _, notes := range n.pages {
		total += len(notes)
	}
	return fmt.Sprintf("Note saved to [%s] (%d notes on this page, %d total).", page, len(n.pages[page]), total)
}

// Read returns the notes on page, or all pages when page is empty.
func (n *Notepad) Read(page string) string {
	if len(n.pages) == 0 {
		return "Notepad is empty."
	}
	if page != "" {
		notes := n.pages[page]
		if len(notes) == 0 {
			return fmt.Sprintf("No notes on page [%s].", page)
		}
		lines := make([]string, 0, len(notes)+1)
		lines = append(lines, fmt.Sprintf("[%s]", page))
		for _, note := range notes {
			lines = append(lines, "- "+note)
		}
		return strings.Join(lines, "\n")
	}
	var lines []string
	for _, p := range n.order {
		lines = append(lines, fmt.Sprintf("[%s]", p))
		for _, note := range n.pages[p] {
			lines = append(lines, "  - "+note)
		}
	}
	return strings.Join(lines, "\n")
}

// RipPage deletes a page and everything on it.
func (n *Notepad) RipPage(page string) string {
	notes, ok := n.pages[page]
	if !ok {
		return fmt.Sprintf("No page [%s] to rip out.", page)
	}
	delete(n.pages, page)
	for i, p := range n.order {
		if p == page {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
	return fmt.Sprintf("Ripped out [%s] (%d notes removed).", page, len(notes))
}
