package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/pkmn-tools/shinyhunt-go/gamestate"
)

// Message type discriminators used on the wire. The Lua side emits "state"
// frames and consumes "input", "macro", and "reset" commands; anything else
// is ignored without error.
const (
	TypeInput = "input"
	TypeMacro = "macro"
	TypeReset = "reset"
	TypeState = "state"
)

// MacroStep is one timed button hold inside a macro. Button order is press
// order; duplicates are allowed.
type MacroStep struct {
	Duration int      `json:"duration"`
	Buttons  []string `json:"buttons"`
}

// InputMessage presses a set of buttons for one tick.
type InputMessage struct {
	Type    string   `json:"type"`
	Buttons []string `json:"buttons"`
}

// MacroMessage runs an ordered sequence of timed button holds.
type MacroMessage struct {
	Type  string      `json:"type"`
	Steps []MacroStep `json:"steps"`
}

// ResetMessage clears any held input and aborts a running macro.
type ResetMessage struct {
	Type string `json:"type"`
}

// StateMessage is one decoded inbound state frame.
type StateMessage struct {
	Type string             `json:"type"`
	Data gamestate.Snapshot `json:"data"`
}

// encodeLine marshals a message as a single newline-terminated JSON line.
func encodeLine(message any) ([]byte, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("encode bridge message: %w", err)
	}
	return append(data, '\n'), nil
}

// EncodeInput builds the wire form of a button press command.
func EncodeInput(buttons []string) ([]byte, error) {
	if buttons == nil {
		buttons = []string{}
	}
	return encodeLine(InputMessage{Type: TypeInput, Buttons: buttons})
}

// EncodeMacro builds the wire form of a macro command.
func EncodeMacro(steps []MacroStep) ([]byte, error) {
	if steps == nil {
		steps = []MacroStep{}
	}
	return encodeLine(MacroMessage{Type: TypeMacro, Steps: steps})
}

// EncodeReset builds the wire form of an input reset command.
func EncodeReset() ([]byte, error) {
	return encodeLine(ResetMessage{Type: TypeReset})
}

// DecodeLine parses one inbound line. It returns (nil, nil) for messages of
// any type other than "state" so pollers can skip them, and a hard error for
// malformed JSON; corrupt frames are never swallowed.
func DecodeLine(line []byte) (*StateMessage, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return nil, fmt.Errorf("decode bridge message: %w", err)
	}
	if probe.Type != TypeState {
		return nil, nil
	}

	var msg StateMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, fmt.Errorf("decode state frame: %w", err)
	}
	if msg.Data == nil {
		msg.Data = gamestate.Snapshot{}
	}
	return &msg, nil
}
