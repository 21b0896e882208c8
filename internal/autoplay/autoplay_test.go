package autoplay

import (
	"context"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"

	"github.com/pixil98/go-crawl/internal/game"
	"github.com/pixil98/go-crawl/internal/protocol"
)

// fakeGame scripts the client surface the loop drives. Handlers mutate the
// fake's state so each test describes a little scenario.
type fakeGame struct {
	player  game.PlayerState
	enemies []game.Enemy
	dead    bool

	onFight   func(f *fakeGame) []string
	onExplore func(f *fakeGame) []string

	fights   int
	explores int
	rests    int
	descends int
}

func (f *fakeGame) Player() game.PlayerState    { return f.player }
func (f *fakeGame) NearbyEnemies() []game.Enemy { return f.enemies }
func (f *fakeGame) Dead() bool                  { return f.dead }

func (f *fakeGame) AutoFight(ctx context.Context) []string {
	f.fights++
	if f.onFight != nil {
		return f.onFight(f)
	}
	return nil
}

func (f *fakeGame) AutoExplore(ctx context.Context) []string {
	f.explores++
	if f.onExplore != nil {
		return f.onExplore(f)
	}
	f.player.Turn++
	return []string{"You explore."}
}

func (f *fakeGame) Rest(ctx context.Context) []string {
	f.rests++
	f.player.Turn += 10
	f.player.HP = f.player.HPMax
	return []string{"You feel much better."}
}

func (f *fakeGame) GoDownstairs(ctx context.Context) []string {
	f.descends++
	f.player.Turn++
	f.player.Depth++
	return []string{"You climb downwards."}
}

func trivial(name string) game.Enemy   { return game.Enemy{Name: name, Threat: "trivial"} }
func easy(name string) game.Enemy      { return game.Enemy{Name: name, Threat: "easy"} }
func dangerous(name string) game.Enemy { return game.Enemy{Name: name, Threat: "dangerous"} }

func healthyPlayer() game.PlayerState {
	return game.PlayerState{HP: 20, HPMax: 20, XL: 1, Turn: 100, Place: "Dungeon", Depth: 1}
}

func TestRun_KillsThenDangerousSighting(t *testing.T) {
	f := &fakeGame{player: healthyPlayer(), enemies: []game.Enemy{trivial("rat")}}
	f.onFight = func(f *fakeGame) []string {
		f.player.Turn++
		switch f.fights {
		case 1:
			f.enemies = []game.Enemy{trivial("jackal")}
			return []string{"You kill the rat!"}
		default:
			f.enemies = nil
			return []string{"You kill the jackal!"}
		}
	}
	f.onExplore = func(f *fakeGame) []string {
		f.player.Turn++
		f.enemies = []game.Enemy{dangerous("ogre")}
		return []string{"An ogre comes into view."}
	}

	report := Run(context.Background(), f, Options{})

	testutil.AssertEqual(t, "stop reason", report.StopReason, "dangerous enemy spotted: ogre")
	testutil.AssertEqual(t, "kills", report.Kills, 2)
	testutil.AssertEqual(t, "pickups", report.Pickups, 0)
	testutil.AssertEqual(t, "fights", f.fights, 2)
}

func TestRun_StopsWhenDead(t *testing.T) {
	f := &fakeGame{player: healthyPlayer(), dead: true}

	report := Run(context.Background(), f, Options{})

	testutil.AssertEqual(t, "stop reason", report.StopReason, "game over")
	testutil.AssertEqual(t, "actions", report.Actions, 0)
}

func TestRun_NoProgressAbort(t *testing.T) {
	f := &fakeGame{player: healthyPlayer()}
	// Exploring never advances the turn counter.
	f.onExplore = func(f *fakeGame) []string { return []string{"You explore."} }

	report := Run(context.Background(), f, Options{})

	testutil.AssertEqual(t, "stop reason", report.StopReason, "no progress: turn counter stuck")
	if report.Actions >= 10 {
		t.Errorf("expected early abort, took %d actions", report.Actions)
	}
}

func TestRun_NonTrivialGroupStop(t *testing.T) {
	f := &fakeGame{
		player:  healthyPlayer(),
		enemies: []game.Enemy{easy("gnoll"), easy("gnoll")},
	}

	report := Run(context.Background(), f, Options{})

	testutil.AssertEqual(t, "stop reason", report.StopReason, "2 non-trivial enemies in sight")
	testutil.AssertEqual(t, "no fighting", f.fights, 0)
}

func TestRun_HPStop(t *testing.T) {
	f := &fakeGame{player: healthyPlayer()}
	f.player.HP = 8 // 40%

	report := Run(context.Background(), f, Options{HPStopPercent: 50})

	testutil.AssertEqual(t, "stop reason", report.StopReason, "HP below 50%")
}

func TestRun_BadStatusStop(t *testing.T) {
	f := &fakeGame{player: healthyPlayer()}
	f.player.Status = []protocol.StatusLight{{Light: "Pois", Text: "poisoned"}}

	report := Run(context.Background(), f, Options{})

	testutil.AssertEqual(t, "stop reason", report.StopReason, "bad status effect: Pois")
}

func TestRun_XLGainStop(t *testing.T) {
	f := &fakeGame{player: healthyPlayer()}
	f.onExplore = func(f *fakeGame) []string {
		f.player.Turn++
		f.player.XL = 2
		return []string{"You have reached level 2!"}
	}

	report := Run(context.Background(), f, Options{})

	testutil.AssertEqual(t, "stop reason", report.StopReason, "experience level gained (now XL 2)")
}

func TestRun_UnreachableEnemy(t *testing.T) {
	f := &fakeGame{player: healthyPlayer(), enemies: []game.Enemy{trivial("rat")}}
	// Fighting never advances the turn; the loop explores once to
	// reposition, then gives up.
	f.onFight = func(f *fakeGame) []string { return nil }

	report := Run(context.Background(), f, Options{})

	testutil.AssertEqual(t, "stop reason", report.StopReason, "enemy unreachable")
	testutil.AssertEqual(t, "fallback explores", f.explores, 1)
	testutil.AssertEqual(t, "fights", f.fights, 2)
}

func TestRun_ProlongedFightAbort(t *testing.T) {
	f := &fakeGame{player: healthyPlayer(), enemies: []game.Enemy{easy("gnoll")}}
	f.onFight = func(f *fakeGame) []string {
		f.player.Turn++
		return []string{"You hit the gnoll."}
	}

	report := Run(context.Background(), f, Options{})

	testutil.AssertEqual(t, "stop reason", report.StopReason, "prolonged fight against non-trivial enemies")
	testutil.AssertEqual(t, "fight actions", f.fights, 20)
}

func TestRun_RestsBeforeExploring(t *testing.T) {
	f := &fakeGame{player: healthyPlayer()}
	f.player.HP = 14 // 70%, below the rest threshold but above any stop

	report := Run(context.Background(), f, Options{HPStopPercent: 50, MaxActions: 5})

	if f.rests == 0 {
		t.Error("expected a rest before exploring")
	}
	if f.explores == 0 {
		t.Error("expected exploring after recovery")
	}
	testutil.AssertEqual(t, "budget stop", report.StopReason, "action budget exhausted (5)")
}

func TestRun_PickupStop(t *testing.T) {
	f := &fakeGame{player: healthyPlayer()}
	f.onExplore = func(f *fakeGame) []string {
		f.player.Turn++
		return []string{"You now have a +0 flail (weapon)."}
	}

	report := Run(context.Background(), f, Options{StopOnPickup: true})

	testutil.AssertEqual(t, "stop reason", report.StopReason, "item picked up")
	testutil.AssertEqual(t, "pickups", report.Pickups, 1)
}

func TestRun_AltarStop(t *testing.T) {
	f := &fakeGame{player: healthyPlayer()}
	f.onExplore = func(f *fakeGame) []string {
		f.player.Turn++
		return []string{"You found a sparkling altar of Okawaru."}
	}

	report := Run(context.Background(), f, Options{StopOnAltar: true})

	testutil.AssertEqual(t, "stop reason", report.StopReason, "altar discovered")
}

func TestRun_FloorExploredStopsWithoutAutoDescend(t *testing.T) {
	f := &fakeGame{player: healthyPlayer()}
	f.onExplore = func(f *fakeGame) []string {
		f.player.Turn++
		return []string{"[Floor fully explored. Go downstairs to continue to the next level.]"}
	}

	report := Run(context.Background(), f, Options{})

	testutil.AssertEqual(t, "stop reason", report.StopReason, "floor fully explored")
	testutil.AssertEqual(t, "no descent", f.descends, 0)
}

func TestRun_AutoDescend(t *testing.T) {
	f := &fakeGame{player: healthyPlayer()}
	f.onExplore = func(f *fakeGame) []string {
		f.player.Turn++
		if f.player.Depth == 1 {
			return []string{"[Floor fully explored. Go downstairs to continue to the next level.]"}
		}
		return []string{"You explore."}
	}

	report := Run(context.Background(), f, Options{AutoDescend: true, MaxActions: 10})

	testutil.AssertEqual(t, "descents", f.descends, 1)
	testutil.AssertEqual(t, "depth", f.player.Depth, 2)

	descended := false
	for _, e := range report.Events {
		if strings.Contains(e, "descended to Dungeon:2") {
			descended = true
		}
	}
	if !descended {
		t.Errorf("expected descent event, got %v", report.Events)
	}
}

func TestRun_ActionBudget(t *testing.T) {
	f := &fakeGame{player: healthyPlayer()}

	report := Run(context.Background(), f, Options{MaxActions: 3})

	testutil.AssertEqual(t, "stop reason", report.StopReason, "action budget exhausted (3)")
	testutil.AssertEqual(t, "actions", report.Actions, 3)
}

func TestOptions_Clamped(t *testing.T) {
	tests := map[string]struct {
		in  Options
		exp Options
	}{
		"zero values take defaults": {
			in:  Options{},
			exp: Options{HPStopPercent: 50, MaxActions: 100, NonTrivialStop: 2},
		},
		"low values clamp up": {
			in:  Options{HPStopPercent: 5, MaxActions: -3, NonTrivialStop: -1},
			exp: Options{HPStopPercent: 10, MaxActions: 1, NonTrivialStop: 2},
		},
		"high values clamp down": {
			in:  Options{HPStopPercent: 99, MaxActions: 10000, NonTrivialStop: 4},
			exp: Options{HPStopPercent: 90, MaxActions: 500, NonTrivialStop: 4},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "clamped", tt.in.clamped(), tt.exp)
		})
	}
}
