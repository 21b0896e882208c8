package game

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pixil98/go-crawl/internal/protocol"
	"github.com/pixil98/go-crawl/internal/ui"
)

const defaultDispatchTimeout = 5 * time.Second

// Transport is the session surface the client drives. *webtiles.Session
// satisfies it; tests substitute fakes.
type Transport interface {
	Send(ctx context.Context, msg any) error
	SendKey(ctx context.Context, key string) error
	Recv(ctx context.Context, timeout time.Duration) ([]protocol.Message, error)
	StartGame(ctx context.Context, gameID, species, background, weapon string) ([]protocol.Message, error)
	QuitGame(ctx context.Context) error
	SaveGame(ctx context.Context) error
	GameIDs() []string
	Disconnect()
}

// Overlay receives narration and lifecycle events for spectators. All
// methods are best-effort; failures never block play.
type Overlay interface {
	Thought(ctx context.Context, text string)
	Event(ctx context.Context, event string)
	Stats(ctx context.Context, stats string)
}

// Client is the high-level game driver: it owns the state mirror, the
// menu/popup tracker, and the dispatch loop that trades keys for diffs.
// State queries are free; actions consume game turns.
type Client struct {
	transport Transport
	mirror    *Mirror
	tracker   *ui.Tracker
	notepad   *Notepad
	overlay   Overlay

	dispatchTimeout time.Duration

	// narrateEvery forces a Narrate call every N actions; zero disables
	// the cadence entirely.
	narrateEvery int

	inGame       bool
	sessionEnded bool

	pendingPrompt       string
	actionsSinceNarrate int
	timeouts            int
	failedMoves         int
}

// ClientOpt configures a Client.
type ClientOpt func(*Client)

// WithOverlay attaches a spectator overlay publisher.
func WithOverlay(o Overlay) ClientOpt {
	return func(c *Client) { c.overlay = o }
}

// WithDispatchTimeout bounds how long one action waits for the server to
// hand input back.
func WithDispatchTimeout(d time.Duration) ClientOpt {
	return func(c *Client) { c.dispatchTimeout = d }
}

// WithNarrateEvery requires a Narrate call every n actions; 0 disables.
func WithNarrateEvery(n int) ClientOpt {
	return func(c *Client) { c.narrateEvery = n }
}

func NewClient(transport Transport, opts ...ClientOpt) *Client {
	c := &Client{
		transport:       transport,
		mirror:          NewMirror(),
		tracker:         ui.NewTracker(),
		notepad:         NewNotepad(),
		dispatchTimeout: defaultDispatchTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mirror exposes the state mirror for queries.
func (c *Client) Mirror() *Mirror {
	return c.mirror
}

// Player returns the current player snapshot.
func (c *Client) Player() PlayerState {
	return c.mirror.Player()
}

// NearbyEnemies returns hostiles in sight, nearest first.
func (c *Client) NearbyEnemies() []Enemy {
	return c.mirror.NearbyEnemies()
}

// Notepad exposes the per-run scratchpad.
func (c *Client) Notepad() *Notepad {
	return c.notepad
}

// InGame reports whether a game is currently running.
func (c *Client) InGame() bool {
	return c.inGame
}

// Dead reports whether the running game has ended underneath us.
func (c *Client) Dead() bool {
	ended, _ := c.mirror.Ended()
	return ended
}

// Won reports whether the ended game was an orb win rather than a death.
func (c *Client) Won() bool {
	if ended, _ := c.mirror.Ended(); !ended {
		return false
	}
	for _, line := range c.mirror.RecentMessages(10) {
		if strings.Contains(line.Text, "escaped with the Orb") {
			return true
		}
	}
	return false
}

// SessionEnded reports whether a death or win has been recorded, after
// which no further game may be started on this client.
func (c *Client) SessionEnded() bool {
	return c.sessionEnded
}

// AcknowledgeSessionEnd clears the end-of-game latch once the caller has
// recorded the outcome, allowing a fresh StartGame.
func (c *Client) AcknowledgeSessionEnd() {
	c.sessionEnded = false
	c.mirror.Reset()
	c.tracker.Reset()
	c.pendingPrompt = ""
	c.timeouts = 0
	c.failedMoves = 0
}

// StartGame starts a fresh game, abandoning a stale save first if the
// server resumed one instead of offering character creation. The
// abandon-and-retry happens at most once.
func (c *Client) StartGame(ctx context.Context, gameID, species, background, weapon string) (string, error) {
	if c.sessionEnded {
		return "", fmt.Errorf("session has ended; no further games may be started")
	}
	if c.inGame {
		if err := c.QuitGame(ctx); err != nil {
			return "", err
		}
	}
	if gameID == "" {
		ids := c.transport.GameIDs()
		if len(ids) == 0 {
			return "", fmt.Errorf("starting game: no game ids known")
		}
		gameID = ids[0]
	}

	startup, err := c.transport.StartGame(ctx, gameID, species, background, weapon)
	if err != nil {
		return "", err
	}

	if !sawNewGameChoice(startup) {
		// The server resumed an old save instead of starting fresh.
		slog.InfoContext(ctx, "stale save detected, abandoning")
		c.inGame = true
		if c.overlay != nil {
			c.overlay.Event(ctx, "Clearing stale save, restarting...")
		}
		if err := c.QuitGame(ctx); err != nil {
			return "", fmt.Errorf("abandoning stale save: %w", err)
		}
		if _, err := c.transport.Recv(ctx, time.Second); err != nil {
			return "", err
		}
		startup, err = c.transport.StartGame(ctx, gameID, species, background, weapon)
		if err != nil {
			return "", err
		}
	}

	c.mirror.Reset()
	c.tracker.Reset()
	c.pendingPrompt = ""
	c.timeouts = 0
	c.failedMoves = 0
	c.applyAll(startup)
	c.inGame = true

	// Let the opening flurry of diffs settle before reporting state.
	for i := 0; i < 5; i++ {
		msgs, err := c.transport.Recv(ctx, time.Second)
		if err != nil {
			break
		}
		c.applyAll(msgs)
		if len(msgs) == 0 {
			break
		}
	}

	if c.overlay != nil {
		c.overlay.Event(ctx, "game_started")
	}
	return c.mirror.StateText(), nil
}

// QuitGame abandons the running game and its save.
func (c *Client) QuitGame(ctx context.Context) error {
	if !c.inGame {
		return nil
	}
	err := c.transport.QuitGame(ctx)
	c.inGame = false
	return err
}

// SaveGame saves and exits to the lobby, keeping the save.
func (c *Client) SaveGame(ctx context.Context) error {
	if !c.inGame {
		return nil
	}
	err := c.transport.SaveGame(ctx)
	c.inGame = false
	return err
}

// Disconnect quits any running game and drops the connection.
func (c *Client) Disconnect(ctx context.Context) {
	if c.inGame {
		if err := c.QuitGame(ctx); err != nil {
			slog.WarnContext(ctx, "quitting game on disconnect", "error", err)
		}
	}
	c.transport.Disconnect()
}

// Narrate publishes commentary to the overlay and resets the narration
// cadence counter.
func (c *Client) Narrate(ctx context.Context, text string) {
	c.actionsSinceNarrate = 0
	if c.overlay != nil {
		c.overlay.Thought(ctx, text)
		c.overlay.Stats(ctx, c.mirror.Stats())
	}
}

// applyAll feeds a batch to the mirror and the UI tracker, and latches
// session end on death or win.
func (c *Client) applyAll(msgs []protocol.Message) {
	for _, msg := range msgs {
		c.mirror.Apply(msg)
		c.tracker.Apply(msg)
		if _, ok := msg.(*protocol.Close); ok {
			c.inGame = false
			c.sessionEnded = true
		}
	}
}

func sawNewGameChoice(msgs []protocol.Message) bool {
	for _, m := range msgs {
		if state, ok := m.(*protocol.UIState); ok && state.Type == "newgame-choice" {
			return true
		}
	}
	return false
}
