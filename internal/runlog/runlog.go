// Package runlog keeps the persistent record of play: one entry per game
// attempt, plus the aggregate attempt/win/death totals the stream overlay
// shows. Entries survive process restarts via the file store.
package runlog

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-crawl/internal/storage"
)

// Run outcomes.
const (
	OutcomePlaying   = "playing"
	OutcomeDeath     = "death"
	OutcomeWin       = "win"
	OutcomeAbandoned = "abandoned"
)

// Run is one recorded game attempt.
type Run struct {
	Character  string     `json:"character"`
	Species    string     `json:"species"`
	Background string     `json:"background"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	Outcome    string     `json:"outcome"`
	Cause      string     `json:"cause,omitempty"`
	Place      string     `json:"place,omitempty"`
	XL         int        `json:"xl,omitempty"`
	Turn       int        `json:"turn,omitempty"`
}

func (r *Run) Validate() error {
	el := errors.NewErrorList()

	if r.StartedAt.IsZero() {
		el.Add(fmt.Errorf("started_at must be set"))
	}

	switch r.Outcome {
	case OutcomePlaying, OutcomeDeath, OutcomeWin, OutcomeAbandoned:
	default:
		el.Add(fmt.Errorf("unknown outcome %q", r.Outcome))
	}

	return el.Err()
}

// Totals aggregates the record across all stored runs.
type Totals struct {
	Attempts int
	Wins     int
	Deaths   int
}

// Result captures the end state of the character for a finished run.
type Result struct {
	Cause string
	Place string
	XL    int
	Turn  int
}

// Tracker records runs into a store and answers for the totals. It is
// driven by a single runner; no locking beyond the store's own.
type Tracker struct {
	store   storage.Storer[*Run]
	current string
}

func NewTracker(store storage.Storer[*Run]) *Tracker {
	return &Tracker{store: store}
}

// StartRun records a new attempt and returns its id.
func (t *Tracker) StartRun(character, species, background string) (string, error) {
	id := uuid.NewString()
	run := &Run{
		Character:  character,
		Species:    species,
		Background: background,
		StartedAt:  time.Now().UTC(),
		Outcome:    OutcomePlaying,
	}
	if err := t.store.Save(id, run); err != nil {
		return "", fmt.Errorf("recording run start: %w", err)
	}
	t.current = id
	return id, nil
}

// RecordDeath closes the current run as a death.
func (t *Tracker) RecordDeath(res Result) error {
	return t.finish(OutcomeDeath, res)
}

// RecordWin closes the current run as a win.
func (t *Tracker) RecordWin(res Result) error {
	return t.finish(OutcomeWin, res)
}

// RecordAbandoned closes the current run as abandoned (stale save cleared,
// operator shutdown).
func (t *Tracker) RecordAbandoned(res Result) error {
	return t.finish(OutcomeAbandoned, res)
}

func (t *Tracker) finish(outcome string, res Result) error {
	if t.current == "" {
		return fmt.Errorf("no run in progress")
	}
	run := t.store.Get(t.current)
	if run == nil {
		return fmt.Errorf("run %q not found", t.current)
	}
	now := time.Now().UTC()
	run.EndedAt = &now
	run.Outcome = outcome
	run.Cause = res.Cause
	run.Place = res.Place
	run.XL = res.XL
	run.Turn = res.Turn
	if err := t.store.Save(t.current, run); err != nil {
		return fmt.Errorf("recording run end: %w", err)
	}
	t.current = ""
	return nil
}

// Totals counts every stored run, including the one in progress.
func (t *Tracker) Totals() Totals {
	var totals Totals
	for _, run := range t.store.GetAll() {
		totals.Attempts++
		switch run.Outcome {
		case OutcomeWin:
			totals.Wins++
		case OutcomeDeath:
			totals.Deaths++
		}
	}
	return totals
}

// History returns all runs, oldest first.
func (t *Tracker) History() []*Run {
	all := t.store.GetAll()
	runs := make([]*Run, 0, len(all))
	for _, run := range all {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return runs
}
