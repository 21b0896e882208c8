package webtiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/pixil98/go-crawl/internal/protocol"
)

const (
	// queueDepth bounds the hand-off queue between the reader goroutine and
	// the dispatching path.
	queueDepth = 1024

	// idleThreshold is how long the connection may sit quiet before the
	// keepalive goroutine sends a proactive pong.
	idleThreshold = 30 * time.Second

	// keepaliveInterval is the keepalive goroutine's wake-up cadence.
	keepaliveInterval = 10 * time.Second

	// burstWindow is how long Recv keeps draining after the first message
	// of a burst arrives.
	burstWindow = 50 * time.Millisecond

	readLimit = 1 << 22
)

// ErrClosed is returned once the connection has gone away. Transport
// failures are fatal to the session; the caller must reconnect explicitly.
var ErrClosed = errors.New("webtiles: connection closed")

// Conn is one webtiles WebSocket connection. A single reader goroutine owns
// the socket's receive side: it feeds the shared inflater, answers server
// pings, and hands everything else to the dispatching path over a bounded,
// ordered queue. It never interprets game state — all state mutation happens
// on the dispatching path, so there is exactly one state mutator.
type Conn struct {
	ws       *websocket.Conn
	inflater *streamInflater

	queue chan protocol.Message

	writeMu  sync.Mutex
	lastSend time.Time

	readDone chan struct{}
	readErr  error

	done      chan struct{}
	closeOnce sync.Once
}

// Dial opens a webtiles connection and starts the reader and keepalive
// goroutines.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing websocket: %w", err)
	}
	ws.SetReadLimit(readLimit)

	c := &Conn{
		ws:       ws,
		inflater: newStreamInflater(),
		queue:    make(chan protocol.Message, queueDepth),
		lastSend: time.Now(),
		readDone: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	go c.keepalive()
	return c, nil
}

// Send serializes one outbound message and updates the idle clock.
func (c *Conn) Send(ctx context.Context, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	c.lastSend = time.Now()
	return nil
}

// SendKey sends one logical keypress (see protocol.KeyMessage).
func (c *Conn) SendKey(ctx context.Context, key string) error {
	return c.Send(ctx, protocol.KeyMessage(key))
}

// Recv returns all messages available within timeout. Messages already
// queued are returned immediately; otherwise it waits up to timeout for the
// first arrival, then keeps draining briefly to pick up the rest of the
// burst. It never blocks past timeout; an empty slice means nothing came.
func (c *Conn) Recv(ctx context.Context, timeout time.Duration) ([]protocol.Message, error) {
	var out []protocol.Message
	out = c.drainQueue(out)
	if len(out) > 0 {
		out = c.drainBurst(ctx, out)
		return out, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case m := <-c.queue:
		out = append(out, m)
		out = c.drainBurst(ctx, out)
		return out, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.readDone:
		// Reader gone: return whatever raced into the queue, then fail.
		if out = c.drainQueue(out); len(out) > 0 {
			return out, nil
		}
		return nil, c.closedErr()
	}
}

// WaitFor drains messages until match reports true or the timeout elapses,
// returning whether a match was seen and everything drained meanwhile.
func (c *Conn) WaitFor(ctx context.Context, timeout time.Duration, match func(protocol.Message) bool) (bool, []protocol.Message, error) {
	var seen []protocol.Message
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		step := time.Until(deadline)
		if step > time.Second {
			step = time.Second
		}
		msgs, err := c.Recv(ctx, step)
		seen = append(seen, msgs...)
		if err != nil {
			return false, seen, err
		}
		for _, m := range msgs {
			if match(m) {
				return true, seen, nil
			}
		}
	}
	return false, seen, nil
}

// WaitForKind waits for a message of the given kind.
func (c *Conn) WaitForKind(ctx context.Context, kind string, timeout time.Duration) (bool, []protocol.Message, error) {
	return c.WaitFor(ctx, timeout, func(m protocol.Message) bool {
		return m.Kind() == kind
	})
}

// Close tears the connection down. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close(websocket.StatusNormalClosure, "")
		c.inflater.close()
	})
	return err
}

// readLoop is the only reader of the socket. It decodes frames, answers
// pings, and queues the rest in arrival order.
func (c *Conn) readLoop() {
	defer close(c.readDone)
	ctx := context.Background()
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			select {
			case <-c.done:
				c.readErr = ErrClosed
			default:
				c.readErr = fmt.Errorf("reading frame: %w", err)
			}
			return
		}
		for _, m := range c.decode(ctx, typ, data) {
			select {
			case c.queue <- m:
			default:
				slog.Warn("receive queue full, dropping message", "kind", m.Kind())
			}
		}
	}
}

// decode turns one frame into messages. Binary frames pass through the
// shared inflater; text frames are plain JSON. Failures are swallowed — the
// server remains authoritative and the next frame usually supersedes a bad
// one. Server pings are answered here and filtered out.
func (c *Conn) decode(ctx context.Context, typ websocket.MessageType, data []byte) []protocol.Message {
	if typ == websocket.MessageBinary {
		text, err := c.inflater.inflate(data)
		if err != nil {
			slog.WarnContext(ctx, "dropping undecodable binary frame", "error", err)
			return nil
		}
		data = text
	}

	msgs, err := protocol.DecodeEnvelope(data)
	if err != nil {
		slog.WarnContext(ctx, "dropping unparseable frame", "error", err)
		return nil
	}

	out := msgs[:0]
	for _, m := range msgs {
		if _, ok := m.(*protocol.Ping); ok {
			if err := c.Send(ctx, protocol.Pong()); err != nil {
				slog.WarnContext(ctx, "answering ping", "error", err)
			}
			continue
		}
		out = append(out, m)
	}
	return out
}

// keepalive sends a proactive pong when the connection has been idle past
// the threshold, so the server does not drop a quiet session.
func (c *Conn) keepalive() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-c.readDone:
			return
		case <-ticker.C:
		}

		c.writeMu.Lock()
		idle := time.Since(c.lastSend)
		c.writeMu.Unlock()
		if idle > idleThreshold {
			if err := c.Send(context.Background(), protocol.Pong()); err != nil {
				return
			}
		}
	}
}

// drainBurst keeps pulling messages that arrive within the burst window, so
// one Recv call returns a server burst whole instead of splitting it.
func (c *Conn) drainBurst(ctx context.Context, out []protocol.Message) []protocol.Message {
	timer := time.NewTimer(burstWindow)
	defer timer.Stop()
	for {
		select {
		case m := <-c.queue:
			out = append(out, m)
		case <-timer.C:
			return out
		case <-ctx.Done():
			return out
		}
	}
}

func (c *Conn) drainQueue(out []protocol.Message) []protocol.Message {
	for {
		select {
		case m := <-c.queue:
			out = append(out, m)
		default:
			return out
		}
	}
}

func (c *Conn) closedErr() error {
	if c.readErr != nil {
		return c.readErr
	}
	return ErrClosed
}
