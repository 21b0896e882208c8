// Package runner is the unattended play worker: it connects to a
// webtiles server, starts games, drives the tactical loop, and records
// every attempt in the run log until stopped or the character dies.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pixil98/go-crawl/internal/autoplay"
	"github.com/pixil98/go-crawl/internal/display"
	"github.com/pixil98/go-crawl/internal/game"
	"github.com/pixil98/go-crawl/internal/overlay"
	"github.com/pixil98/go-crawl/internal/report"
	"github.com/pixil98/go-crawl/internal/runlog"
	"github.com/pixil98/go-crawl/internal/webtiles"
)

// Config carries everything the runner needs to play unattended.
type Config struct {
	URL      string
	Username string
	Password string

	GameID     string
	Species    string
	Background string
	Weapon     string

	DispatchTimeout time.Duration
	NarrateEvery    int

	Autoplay autoplay.Options
	MaxRuns  int
}

type Runner struct {
	cfg       Config
	tracker   *runlog.Tracker
	publisher *overlay.Publisher
}

func NewRunner(cfg Config, tracker *runlog.Tracker, publisher *overlay.Publisher) *Runner {
	return &Runner{
		cfg:       cfg,
		tracker:   tracker,
		publisher: publisher,
	}
}

// Start plays until the run budget is spent or the context is cancelled.
// Each connection hosts at most one death or win; a fresh session is
// opened per attempt.
func (r *Runner) Start(ctx context.Context) error {
	runs := 0
	for r.cfg.MaxRuns <= 0 || runs < r.cfg.MaxRuns {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := r.playOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		runs++
	}

	if history, err := report.RenderHistory(r.tracker.History()); err == nil {
		fmt.Println(history)
	} else {
		slog.WarnContext(ctx, "rendering run history", "error", err)
	}
	return nil
}

func (r *Runner) playOnce(ctx context.Context) error {
	session, err := webtiles.Connect(ctx, r.cfg.URL, r.cfg.Username, r.cfg.Password)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", r.cfg.URL, err)
	}
	defer session.Disconnect()

	opts := []game.ClientOpt{
		game.WithNarrateEvery(r.cfg.NarrateEvery),
	}
	if r.cfg.DispatchTimeout > 0 {
		opts = append(opts, game.WithDispatchTimeout(r.cfg.DispatchTimeout))
	}
	if r.publisher != nil {
		opts = append(opts, game.WithOverlay(r.publisher))
	}
	client := game.NewClient(session, opts...)

	character := fmt.Sprintf("%s@%s", r.cfg.Username, r.cfg.URL)
	runID, err := r.tracker.StartRun(character, r.cfg.Species, r.cfg.Background)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "run started", "run", runID, "totals", r.tracker.Totals())

	state, err := client.StartGame(ctx, r.cfg.GameID, r.cfg.Species, r.cfg.Background, r.cfg.Weapon)
	if err != nil {
		if recErr := r.tracker.RecordAbandoned(runlog.Result{Cause: err.Error()}); recErr != nil {
			slog.WarnContext(ctx, "recording abandoned run", "error", recErr)
		}
		return fmt.Errorf("starting game: %w", err)
	}
	slog.DebugContext(ctx, "initial state", "state", state)
	r.publishSnapshot(ctx, client, "Starting new game...")

	var lastReport autoplay.Report
	for !client.Dead() {
		if ctx.Err() != nil {
			// Operator shutdown mid-run: keep the save for next time.
			if err := client.SaveGame(ctx); err != nil {
				slog.WarnContext(ctx, "saving game on shutdown", "error", err)
			}
			if err := r.tracker.RecordAbandoned(r.result(client, "shutdown")); err != nil {
				slog.WarnContext(ctx, "recording abandoned run", "error", err)
			}
			return nil
		}

		client.Narrate(ctx, "Clearing the floor...")
		lastReport = autoplay.Run(ctx, client, r.cfg.Autoplay)
		slog.InfoContext(ctx, "autoplay finished",
			"reason", lastReport.StopReason,
			"actions", lastReport.Actions,
			"kills", lastReport.Kills)
		r.publishSnapshot(ctx, client, lastReport.StopReason)

		if client.Dead() {
			break
		}
		if done := r.handleStop(ctx, client, lastReport); done {
			break
		}
	}

	return r.finishRun(ctx, client, &lastReport)
}

// handleStop decides what to do after an autoplay stop that wasn't death.
// Routine stops (XL gain, floor explored, rest-worthy HP) loop back into
// autoplay; anything the loop cannot resolve ends the run by saving.
func (r *Runner) handleStop(ctx context.Context, client *game.Client, rep autoplay.Report) bool {
	reason := rep.StopReason
	switch {
	case strings.HasPrefix(reason, "experience level gained"):
		return false
	case strings.HasPrefix(reason, "HP below"):
		client.Rest(ctx)
		return false
	case strings.HasPrefix(reason, "floor fully explored"):
		client.GoDownstairs(ctx)
		return false
	case strings.HasPrefix(reason, "dangerous enemy spotted"):
		// Without a tactical brain attached, retreat is the safe play.
		client.Narrate(ctx, display.Capitalize(reason)+"; retreating upstairs")
		client.GoUpstairs(ctx)
		return false
	default:
		slog.InfoContext(ctx, "stopping run", "reason", reason)
		if err := client.SaveGame(ctx); err != nil {
			slog.WarnContext(ctx, "saving game", "error", err)
		}
		return true
	}
}

func (r *Runner) finishRun(ctx context.Context, client *game.Client, rep *autoplay.Report) error {
	var outcome, cause string
	var err error
	switch {
	case client.Won():
		cause = "escaped with the Orb"
		outcome = runlog.OutcomeWin
		err = r.tracker.RecordWin(r.result(client, cause))
		r.publishSnapshot(ctx, client, "Won: "+cause)
	case client.Dead():
		cause = deathCause(client)
		outcome = runlog.OutcomeDeath
		err = r.tracker.RecordDeath(r.result(client, cause))
		r.publishSnapshot(ctx, client, "Died: "+cause)
	default:
		cause = "saved"
		outcome = runlog.OutcomeAbandoned
		err = r.tracker.RecordAbandoned(r.result(client, cause))
	}
	if err != nil {
		return fmt.Errorf("recording run end: %w", err)
	}

	p := client.Player()
	summary, renderErr := report.RenderSession(report.Session{
		Character: strings.TrimSpace(p.Species + " " + p.Title),
		Outcome:   outcome,
		Cause:     cause,
		Place:     fmt.Sprintf("%s:%d", p.Place, p.Depth),
		XL:        p.XL,
		Turn:      p.Turn,
		Totals:    r.tracker.Totals(),
		Autoplay:  rep,
	})
	if renderErr != nil {
		slog.WarnContext(ctx, "rendering session report", "error", renderErr)
		return nil
	}
	fmt.Println(summary)
	return nil
}

func (r *Runner) result(client *game.Client, cause string) runlog.Result {
	p := client.Player()
	return runlog.Result{
		Cause: cause,
		Place: fmt.Sprintf("%s:%d", p.Place, p.Depth),
		XL:    p.XL,
		Turn:  p.Turn,
	}
}

func (r *Runner) publishSnapshot(ctx context.Context, client *game.Client, thought string) {
	if r.publisher == nil {
		return
	}
	p := client.Player()
	totals := r.tracker.Totals()
	status := "Playing"
	if client.Dead() {
		status = "Dead"
	}
	character := strings.TrimSpace(p.Species + " " + p.Title)
	if character == "" {
		character = "—"
	}
	r.publisher.PublishSnapshot(ctx, overlay.Snapshot{
		Attempt:   totals.Attempts,
		Wins:      totals.Wins,
		Deaths:    totals.Deaths,
		Character: character,
		XL:        p.XL,
		Place:     fmt.Sprintf("%s:%d", p.Place, p.Depth),
		Turn:      p.Turn,
		Thought:   thought,
		Status:    status,
	})
}

// deathCause digs the killer line out of the recent message log.
func deathCause(client *game.Client) string {
	for _, line := range client.Mirror().RecentMessages(10) {
		if strings.Contains(line.Text, "You die") {
			return line.Text
		}
	}
	if _, reason := client.Mirror().Ended(); reason != "" {
		return reason
	}
	return "unknown"
}
