package protocol

import (
	"encoding/json"
	"fmt"
)

// DecodeEnvelope parses one {"msgs": [...]} frame into typed messages.
// Individual messages that fail to decode are skipped: the server is
// authoritative and a malformed entry must not poison the batch.
func DecodeEnvelope(data []byte) ([]Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parsing envelope: %w", err)
	}
	msgs := make([]Message, 0, len(env.Msgs))
	for _, raw := range env.Msgs {
		m, err := DecodeMessage(raw)
		if err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// DecodeMessage decodes a single message object by its "msg" tag.
func DecodeMessage(raw json.RawMessage) (Message, error) {
	var tag struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("reading message tag: %w", err)
	}

	var m Message
	switch tag.Msg {
	case "player":
		m = &Player{}
	case "map":
		m = &Map{}
	case "msgs":
		m = &Msgs{}
	case "input_mode":
		m = &InputModeMsg{}
	case "menu":
		m = &Menu{}
	case "update_menu":
		m = &UpdateMenu{}
	case "update_menu_items":
		m = &UpdateMenuItems{}
	case "close_menu":
		m = &CloseMenu{}
	case "close_all_menus":
		m = &CloseAllMenus{}
	case "ui-push":
		m = &UIPush{}
	case "ui-state":
		m = &UIState{}
	case "ui-pop":
		m = &UIPop{}
	case "close":
		m = &Close{}
	case "set_game_links":
		m = &SetGameLinks{}
	case "login_success":
		m = &LoginSuccess{}
	case "go_lobby":
		m = &GoLobby{}
	case "ping":
		m = &Ping{}
	default:
		return &Unknown{Tag: tag.Msg, Raw: raw}, nil
	}

	if err := json.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("decoding %q message: %w", tag.Msg, err)
	}
	return m, nil
}
