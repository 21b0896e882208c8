package webtiles

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/pixil98/go-crawl/internal/protocol"
)

// gameLinkPattern scrapes playable game ids out of the lobby's HTML
// fragment, e.g. href="#play-dcss-web-trunk".
var gameLinkPattern = regexp.MustCompile(`#play-([^"]+)"`)

// Session is a logged-in webtiles session. It owns the connection and the
// protocol ceremony around it: registration, login, lobby discovery,
// character creation, and save abandonment.
type Session struct {
	conn     *Conn
	url      string
	username string
	gameIDs  []string
}

// Connect dials the server and logs in. Registration is attempted first —
// it also logs in on success. When registration fails the account is
// assumed to exist, and because a failed registration can corrupt the
// server-side session, the connection is reopened before the normal login.
func Connect(ctx context.Context, url, username, password string) (*Session, error) {
	conn, err := Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	s := &Session{conn: conn, url: url, username: username}

	// Let any greeting traffic pass before the handshake.
	if _, err := conn.Recv(ctx, 500*time.Millisecond); err != nil {
		conn.Close()
		return nil, err
	}

	if err := conn.Send(ctx, protocol.Register(username, password)); err != nil {
		conn.Close()
		return nil, err
	}
	regMsgs, err := conn.Recv(ctx, 2*time.Second)
	if err != nil {
		conn.Close()
		return nil, err
	}

	registered := false
	for _, m := range regMsgs {
		if _, ok := m.(*protocol.LoginSuccess); ok {
			registered = true
			break
		}
	}

	if registered {
		if err := conn.Send(ctx, protocol.RequestLobby()); err != nil {
			conn.Close()
			return nil, err
		}
		_, lobbyMsgs, err := conn.WaitForKind(ctx, "go_lobby", 10*time.Second)
		if err != nil {
			conn.Close()
			return nil, err
		}
		s.gameIDs = scrapeGameLinks(append(regMsgs, lobbyMsgs...))
		return s, nil
	}

	// Account exists: reconnect and log in normally.
	conn.Close()
	time.Sleep(200 * time.Millisecond)
	conn, err = Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	if _, err := conn.Recv(ctx, 500*time.Millisecond); err != nil {
		conn.Close()
		return nil, err
	}
	if err := s.login(ctx, username, password); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) login(ctx context.Context, username, password string) error {
	if err := s.conn.Send(ctx, protocol.Login(username, password)); err != nil {
		return err
	}
	found, loginMsgs, err := s.conn.WaitForKind(ctx, "login_success", 10*time.Second)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("logging in as %q: no login_success from server", username)
	}

	if err := s.conn.Send(ctx, protocol.RequestLobby()); err != nil {
		return err
	}
	_, lobbyMsgs, err := s.conn.WaitForKind(ctx, "go_lobby", 10*time.Second)
	if err != nil {
		return err
	}
	s.gameIDs = scrapeGameLinks(append(loginMsgs, lobbyMsgs...))
	return nil
}

func scrapeGameLinks(msgs []protocol.Message) []string {
	for _, m := range msgs {
		links, ok := m.(*protocol.SetGameLinks)
		if !ok {
			continue
		}
		matches := gameLinkPattern.FindAllStringSubmatch(links.Content, -1)
		if len(matches) == 0 {
			continue
		}
		ids := make([]string, 0, len(matches))
		for _, match := range matches {
			ids = append(ids, match[1])
		}
		return ids
	}
	return nil
}

// GameIDs returns the playable game ids discovered at login.
func (s *Session) GameIDs() []string {
	return s.gameIDs
}

// Username returns the account this session is logged in as.
func (s *Session) Username() string {
	return s.username
}

// StartGame sends the play request and feeds the three character-creation
// keys as the newgame-choice prompts arrive. It returns every message seen
// during startup; the caller inspects them to detect a resumed stale save
// (no newgame-choice prompt ever shown).
func (s *Session) StartGame(ctx context.Context, gameID, species, background, weapon string) ([]protocol.Message, error) {
	if err := s.conn.Send(ctx, protocol.Play(gameID)); err != nil {
		return nil, err
	}

	choices := []string{species, background, weapon}
	choiceIdx := 0
	var all []protocol.Message

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		msgs, err := s.conn.Recv(ctx, 2*time.Second)
		if err != nil {
			return all, err
		}
		all = append(all, msgs...)

		gotMap := false
		for _, m := range msgs {
			switch msg := m.(type) {
			case *protocol.Map:
				gotMap = true
			case *protocol.UIState:
				if msg.Type == "newgame-choice" && choiceIdx < len(choices) {
					if err := s.conn.SendKey(ctx, choices[choiceIdx]); err != nil {
						return all, err
					}
					choiceIdx++
				}
			}
		}
		if gotMap {
			return all, nil
		}
	}
	return all, fmt.Errorf("starting game %q: no map data within 30s", gameID)
}

// QuitGame abandons the current game and its save: flush any open prompts
// with escape, send Ctrl-Q, type the literal confirmation, and wait for the
// lobby. The wait is bounded; a server that never answers does not hang us.
func (s *Session) QuitGame(ctx context.Context) error {
	for i := 0; i < 3; i++ {
		if err := s.conn.SendKey(ctx, protocol.KeyEsc); err != nil {
			return err
		}
		time.Sleep(100 * time.Millisecond)
	}
	s.conn.Recv(ctx, 500*time.Millisecond)

	if err := s.conn.SendKey(ctx, protocol.KeyCtrlQ); err != nil {
		return err
	}
	time.Sleep(500 * time.Millisecond)
	s.conn.Recv(ctx, 500*time.Millisecond)

	// The confirmation must arrive as individual characters.
	for _, ch := range "yes" {
		if err := s.conn.SendKey(ctx, string(ch)); err != nil {
			return err
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err := s.conn.SendKey(ctx, protocol.KeyEnter); err != nil {
		return err
	}
	time.Sleep(500 * time.Millisecond)

	for i := 0; i < 10; i++ {
		msgs, err := s.conn.Recv(ctx, 500*time.Millisecond)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			if _, ok := m.(*protocol.GoLobby); ok {
				return nil
			}
		}
		if len(msgs) == 0 {
			break
		}
	}
	slog.WarnContext(ctx, "quit sequence finished without lobby confirmation")
	return nil
}

// SaveGame saves and exits to the lobby (Ctrl-S), keeping the save.
func (s *Session) SaveGame(ctx context.Context) error {
	if err := s.conn.SendKey(ctx, protocol.KeyCtrlS); err != nil {
		return err
	}
	_, _, err := s.conn.WaitForKind(ctx, "go_lobby", 10*time.Second)
	return err
}

// Send forwards an outbound message on the underlying connection.
func (s *Session) Send(ctx context.Context, msg any) error {
	return s.conn.Send(ctx, msg)
}

// SendKey forwards one logical keypress.
func (s *Session) SendKey(ctx context.Context, key string) error {
	return s.conn.SendKey(ctx, key)
}

// Recv forwards to the underlying connection's bounded receive.
func (s *Session) Recv(ctx context.Context, timeout time.Duration) ([]protocol.Message, error) {
	return s.conn.Recv(ctx, timeout)
}

// Disconnect closes the connection.
func (s *Session) Disconnect() {
	s.conn.Close()
}
