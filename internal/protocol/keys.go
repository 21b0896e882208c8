package protocol

import "strings"

// Logical key names understood by KeyMessage. Multi-character names map to
// keycode or direction messages; anything else is sent as literal input.
const (
	KeyTab   = "key_tab"
	KeyEsc   = "key_esc"
	KeyEnter = "key_enter"
	KeyDirN  = "key_dir_n"
	KeyDirNE = "key_dir_ne"
	KeyDirE  = "key_dir_e"
	KeyDirSE = "key_dir_se"
	KeyDirS  = "key_dir_s"
	KeyDirSW = "key_dir_sw"
	KeyDirW  = "key_dir_w"
	KeyDirNW = "key_dir_nw"
	KeyCtrlQ = "key_ctrl_q"
	KeyCtrlR = "key_ctrl_r"
	KeyCtrlS = "key_ctrl_s"
)

const ctrlKeyPrefix = "key_ctrl_"

// KeyMsg is an outbound non-printable keypress.
type KeyMsg struct {
	Msg     string `json:"msg"`
	Keycode int    `json:"keycode"`
}

// InputMsg is outbound printable text (including numpad directions).
type InputMsg struct {
	Msg  string `json:"msg"`
	Text string `json:"text"`
}

var specialKeys = map[string]any{
	KeyTab:   KeyMsg{Msg: "key", Keycode: 9},
	KeyEsc:   KeyMsg{Msg: "key", Keycode: 27},
	KeyEnter: InputMsg{Msg: "input", Text: "\r"},
	KeyDirN:  InputMsg{Msg: "input", Text: "8"},
	KeyDirNE: InputMsg{Msg: "input", Text: "9"},
	KeyDirE:  InputMsg{Msg: "input", Text: "6"},
	KeyDirSE: InputMsg{Msg: "input", Text: "3"},
	KeyDirS:  InputMsg{Msg: "input", Text: "2"},
	KeyDirSW: InputMsg{Msg: "input", Text: "1"},
	KeyDirW:  InputMsg{Msg: "input", Text: "4"},
	KeyDirNW: InputMsg{Msg: "input", Text: "7"},
}

// KeyMessage turns a logical key name into its outbound message. Supported
// forms: the named specials above, "key_ctrl_<x>" for control characters,
// and plain text (single characters or literal strings like "yes").
func KeyMessage(key string) any {
	if msg, ok := specialKeys[key]; ok {
		return msg
	}
	if strings.HasPrefix(key, ctrlKeyPrefix) && len(key) == len(ctrlKeyPrefix)+1 {
		ch := strings.ToLower(key[len(ctrlKeyPrefix):])[0]
		return KeyMsg{Msg: "key", Keycode: int(ch-'a') + 1}
	}
	return InputMsg{Msg: "input", Text: key}
}

// LoginMsg requests a login with an existing account.
type LoginMsg struct {
	Msg      string `json:"msg"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterMsg requests account registration; on success the server also
// logs the session in.
type RegisterMsg struct {
	Msg      string `json:"msg"`
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// GoLobbyMsg asks for the lobby.
type GoLobbyMsg struct {
	Msg string `json:"msg"`
}

// PlayMsg starts or resumes a game.
type PlayMsg struct {
	Msg    string `json:"msg"`
	GameID string `json:"game_id"`
}

// PongMsg answers a server ping and doubles as the idle keepalive.
type PongMsg struct {
	Msg string `json:"msg"`
}

func Login(username, password string) LoginMsg {
	return LoginMsg{Msg: "login", Username: username, Password: password}
}

func Register(username, password string) RegisterMsg {
	return RegisterMsg{Msg: "register", Username: username, Password: password}
}

func RequestLobby() GoLobbyMsg {
	return GoLobbyMsg{Msg: "go_lobby"}
}

func Play(gameID string) PlayMsg {
	return PlayMsg{Msg: "play", GameID: gameID}
}

func Pong() PongMsg {
	return PongMsg{Msg: "pong"}
}
