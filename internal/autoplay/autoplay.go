// Package autoplay is a bounded tactical loop for routine floor-clearing:
// explore, fight trivial packs, rest, descend. It builds entirely on the
// game client's action and query surface and hands control back the moment
// anything non-routine appears.
package autoplay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pixil98/go-crawl/internal/game"
)

// Game is the slice of the client the loop drives.
type Game interface {
	Player() game.PlayerState
	NearbyEnemies() []game.Enemy
	AutoExplore(ctx context.Context) []string
	AutoFight(ctx context.Context) []string
	Rest(ctx context.Context) []string
	GoDownstairs(ctx context.Context) []string
	Dead() bool
}

// Options bound the loop. Zero values take defaults; every numeric input
// is clamped to a safe range so a bad caller cannot produce an unbounded
// or instantly-stopping loop.
type Options struct {
	// HPStopPercent stops the loop when HP drops below this percentage.
	HPStopPercent int
	// MaxActions caps how many actions one run may take.
	MaxActions int
	// StopOnPickup stops after auto-explore picks up equipment.
	StopOnPickup bool
	// StopOnAltar stops when an altar is discovered.
	StopOnAltar bool
	// AutoDescend takes the stairs down when a floor is fully explored
	// instead of stopping.
	AutoDescend bool
	// NonTrivialStop stops when at least this many non-trivial enemies
	// are in sight at once.
	NonTrivialStop int
}

const (
	defaultHPStop         = 50
	defaultMaxActions     = 100
	defaultNonTrivialStop = 2
	noProgressLimit       = 5
	prolongedFightActions = 20
	restBelowPercent      = 80
)

func (o Options) clamped() Options {
	if o.HPStopPercent == 0 {
		o.HPStopPercent = defaultHPStop
	}
	if o.HPStopPercent < 10 {
		o.HPStopPercent = 10
	}
	if o.HPStopPercent > 90 {
		o.HPStopPercent = 90
	}
	if o.MaxActions == 0 {
		o.MaxActions = defaultMaxActions
	}
	if o.MaxActions < 1 {
		o.MaxActions = 1
	}
	if o.MaxActions > 500 {
		o.MaxActions = 500
	}
	if o.NonTrivialStop < 1 {
		o.NonTrivialStop = defaultNonTrivialStop
	}
	return o
}

// Report is the loop's contract with its caller: what happened, what was
// gained, and exactly why it stopped.
type Report struct {
	Events     []string
	Kills      int
	Pickups    int
	Actions    int
	StopReason string
}

func (r *Report) event(format string, args ...any) {
	r.Events = append(r.Events, fmt.Sprintf(format, args...))
}

// badStatuses are status lights that should end routine play immediately.
var badStatuses = []string{
	"Pois", "Conf", "Slow", "Drain", "Fear", "Corr", "Weak", "Para", "Pet",
}

var killMarkers = []string{
	"you kill", "you destroy", "dies!", "is destroyed", "you slice", "blown up",
}

var pickupMarkers = []string{
	"you now have", "you pick up", " - ", "picked up",
}

// Run drives the loop until a stop condition fires and returns the report.
func Run(ctx context.Context, g Game, opts Options) Report {
	opts = opts.clamped()
	var report Report

	start := g.Player()
	lastTurn := start.Turn
	stalled := 0
	fightActions := 0
	exploreFallback := false

	for report.Actions < opts.MaxActions {
		if g.Dead() {
			report.StopReason = "game over"
			return report
		}
		p := g.Player()

		// (1) No progress across several iterations means something is
		// stuck in a way actions won't fix.
		if p.Turn == lastTurn {
			stalled++
			if stalled >= noProgressLimit {
				report.StopReason = "no progress: turn counter stuck"
				return report
			}
		} else {
			stalled = 0
			lastTurn = p.Turn
		}

		// (2) Immediate stop conditions.
		enemies := g.NearbyEnemies()
		if name, found := dangerousEnemy(enemies); found {
			report.StopReason = "dangerous enemy spotted: " + name
			return report
		}
		if n := nonTrivialCount(enemies); n >= opts.NonTrivialStop {
			report.StopReason = fmt.Sprintf("%d non-trivial enemies in sight", n)
			return report
		}
		if p.HPMax > 0 && p.HP*100 < opts.HPStopPercent*p.HPMax {
			report.StopReason = fmt.Sprintf("HP below %d%%", opts.HPStopPercent)
			return report
		}
		if status, found := badStatus(p); found {
			report.StopReason = "bad status effect: " + status
			return report
		}
		if p.XL > start.XL {
			report.StopReason = fmt.Sprintf("experience level gained (now XL %d)", p.XL)
			return report
		}

		// (3) Fight while everything in sight is routine.
		if len(enemies) > 0 {
			turnBefore := p.Turn
			msgs := g.AutoFight(ctx)
			report.Actions++
			fightActions++
			report.Kills += countMarkers(msgs, killMarkers)

			if g.Player().Turn == turnBefore {
				// Unreachable target; explore once to reposition.
				if !exploreFallback {
					exploreFallback = true
					g.AutoExplore(ctx)
					report.Actions++
					report.event("unreachable enemy, explored to reposition")
					continue
				}
				report.StopReason = "enemy unreachable"
				return report
			}
			if fightActions >= prolongedFightActions && nonTrivialCount(g.NearbyEnemies()) > 0 {
				report.StopReason = "prolonged fight against non-trivial enemies"
				return report
			}
			continue
		}
		fightActions = 0
		exploreFallback = false

		// (5) Rest before pushing on when it is safe and worthwhile.
		if p.HPMax > 0 && p.HP*100 < restBelowPercent*p.HPMax {
			g.Rest(ctx)
			report.Actions++
			report.event("rested to recover")
			continue
		}

		// (4) Explore.
		msgs := g.AutoExplore(ctx)
		report.Actions++

		if picked := countMarkers(msgs, pickupMarkers); picked > 0 {
			report.Pickups += picked
			report.event("picked up items while exploring")
			if opts.StopOnPickup {
				report.StopReason = "item picked up"
				return report
			}
		}
		if containsAny(msgs, "altar") {
			report.event("altar discovered")
			if opts.StopOnAltar {
				report.StopReason = "altar discovered"
				return report
			}
		}
		if containsAny(msgs, "floor fully explored") {
			if !opts.AutoDescend {
				report.StopReason = "floor fully explored"
				return report
			}
			cur := g.Player()
			if cur.HP < cur.HPMax && len(g.NearbyEnemies()) == 0 {
				g.Rest(ctx)
				report.Actions++
			}
			g.GoDownstairs(ctx)
			report.Actions++
			after := g.Player()
			report.event("descended to %s:%d", after.Place, after.Depth)
			slog.InfoContext(ctx, "autoplay descended", "place", after.Place, "depth", after.Depth)
		}
	}

	report.StopReason = fmt.Sprintf("action budget exhausted (%d)", opts.MaxActions)
	return report
}

func dangerousEnemy(enemies []game.Enemy) (string, bool) {
	for _, e := range enemies {
		if e.Threat == "dangerous" || e.Threat == "extremely dangerous" {
			return e.Name, true
		}
	}
	return "", false
}

func nonTrivialCount(enemies []game.Enemy) int {
	n := 0
	for _, e := range enemies {
		if e.Threat != "trivial" {
			n++
		}
	}
	return n
}

func badStatus(p game.PlayerState) (string, bool) {
	for _, s := range p.Status {
		light := s.Light
		if light == "" {
			light = s.Text
		}
		for _, bad := range badStatuses {
			if strings.HasPrefix(light, bad) {
				return light, true
			}
		}
	}
	return "", false
}

func countMarkers(msgs []string, markers []string) int {
	n := 0
	for _, msg := range msgs {
		lower := strings.ToLower(msg)
		for _, marker := range markers {
			if strings.Contains(lower, marker) {
				n++
				break
			}
		}
	}
	return n
}

func containsAny(msgs []string, needle string) bool {
	for _, msg := range msgs {
		if strings.Contains(strings.ToLower(msg), needle) {
			return true
		}
	}
	return false
}
