package overlay

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

// bus is the slice of Server the publisher needs; tests substitute fakes.
type bus interface {
	Publish(subject string, data []byte) error
}

// Snapshot is the full overlay stats payload: run record plus the live
// character line.
type Snapshot struct {
	Attempt   int    `json:"attempt"`
	Wins      int    `json:"wins"`
	Deaths    int    `json:"deaths"`
	Character string `json:"character"`
	XL        int    `json:"xl"`
	Place     string `json:"place"`
	Turn      int    `json:"turn"`
	Thought   string `json:"thought"`
	Status    string `json:"status"`
}

// Publisher pushes overlay traffic onto the bus. All sends are
// best-effort: failures are logged and dropped.
type Publisher struct {
	bus bus
}

func NewPublisher(server *Server) *Publisher {
	return &Publisher{bus: server}
}

// Thought publishes one narration entry.
func (p *Publisher) Thought(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	p.publish(ctx, SubjectThought, map[string]any{
		"ts":   time.Now().Unix(),
		"text": text,
	})
}

// Event publishes a lifecycle event (game started, stale save cleared,
// death recorded).
func (p *Publisher) Event(ctx context.Context, event string) {
	p.publish(ctx, SubjectEvent, map[string]any{
		"ts":    time.Now().Unix(),
		"event": event,
	})
}

// Stats publishes the live character stat line.
func (p *Publisher) Stats(ctx context.Context, stats string) {
	p.publish(ctx, SubjectStats, map[string]any{
		"ts":    time.Now().Unix(),
		"stats": stats,
	})
}

// PublishSnapshot publishes the full stats payload, including the
// persistent attempt/win/death record.
func (p *Publisher) PublishSnapshot(ctx context.Context, snap Snapshot) {
	p.publish(ctx, SubjectStats, snap)
}

func (p *Publisher) publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.WarnContext(ctx, "encoding overlay payload", "subject", subject, "error", err)
		return
	}
	if err := p.bus.Publish(subject, data); err != nil {
		slog.WarnContext(ctx, "publishing overlay payload", "subject", subject, "error", err)
	}
}
