package protocol

import "fmt"

// InputMode is the server-declared input state. The values are fixed by the
// webtiles protocol.
type InputMode int

const (
	// ModeTravel: travel or auto-explore in progress, no input wanted yet.
	ModeTravel InputMode = 0
	// ModeReady: the game is waiting for an ordinary command.
	ModeReady InputMode = 1
	// ModeTargeting: a direction or confirmation is expected.
	ModeTargeting InputMode = 4
	// ModePager: a "--more--" pager is blocking output.
	ModePager InputMode = 5
	// ModePrompt: a free-text or single-key prompt is open.
	ModePrompt InputMode = 7
)

func (m InputMode) String() string {
	switch m {
	case ModeTravel:
		return "travel"
	case ModeReady:
		return "ready"
	case ModeTargeting:
		return "targeting"
	case ModePager:
		return "pager"
	case ModePrompt:
		return "prompt"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}
