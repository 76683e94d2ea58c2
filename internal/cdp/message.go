package cdp

import (
	"encoding/json"
	"fmt"
)

// command is the outbound wire envelope.
type command struct {
	ID        int64          `json:"id"`
	Method    string         `json:"method"`
	Params    map[string]any `json:"params"`
	SessionID string         `json:"sessionId,omitempty"`
}

// messageType tags a parsed inbound frame.
type messageType int

const (
	eventMessage messageType = iota
	commandResponseMessage
)

// event is an unsolicited inbound notification.
type event struct {
	method    string
	params    map[string]any
	sessionID string
}

// commandResponse is the reply to an outbound command. err holds the
// raw error object JSON when present; otherwise result is populated,
// defaulting to an empty map.
type commandResponse struct {
	id        int64
	sessionID string
	err       json.RawMessage
	result    map[string]any
}

// parseFunc decodes one frame. expectedID is the id the current pump
// is waiting on; it exists for diagnostics and so scripted test
// parsers can fabricate matching replies.
type parseFunc func(data string, expectedID int64) (messageType, *event, *commandResponse, error)

// wireMessage is the superset envelope used to sniff the frame type.
type wireMessage struct {
	ID        *int64          `json:"id"`
	Method    string          `json:"method"`
	Params    map[string]any  `json:"params"`
	Result    json.RawMessage `json:"result"`
	Error     json.RawMessage `json:"error"`
	SessionID string          `json:"sessionId"`
}

// parseMessage decodes one JSON frame into an event or a command
// response. A frame carrying an id is a command response even if it
// also carries a method; a frame with neither is malformed. A response
// with neither result nor error parses as success with an empty result
// (DevTools omits the result dictionary on some valid responses).
func parseMessage(data string, expectedID int64) (messageType, *event, *commandResponse, error) {
	var msg wireMessage
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return 0, nil, nil, fmt.Errorf("parse inspector message: %w", err)
	}

	if msg.ID != nil {
		resp := &commandResponse{id: *msg.ID, sessionID: msg.SessionID}
		if len(msg.Error) > 0 {
			resp.err = msg.Error
			return commandResponseMessage, nil, resp, nil
		}
		resp.result = map[string]any{}
		if len(msg.Result) > 0 {
			if err := json.Unmarshal(msg.Result, &resp.result); err != nil {
				return 0, nil, nil, fmt.Errorf("parse command result: %w", err)
			}
		}
		return commandResponseMessage, nil, resp, nil
	}

	if msg.Method != "" {
		ev := &event{method: msg.Method, params: msg.Params, sessionID: msg.SessionID}
		if ev.params == nil {
			ev.params = map[string]any{}
		}
		return eventMessage, ev, nil, nil
	}

	return 0, nil, nil, fmt.Errorf("inspector message has neither id nor method: %s", data)
}
