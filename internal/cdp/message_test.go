package cdp

import (
	"encoding/json"
	"testing"
)

func TestParseMessageNonJSON(t *testing.T) {
	t.Parallel()

	if _, _, _, err := parseMessage("hi", 0); err == nil {
		t.Fatal("expected error for non-JSON input")
	}
}

func TestParseMessageNeitherCommandNorEvent(t *testing.T) {
	t.Parallel()

	if _, _, _, err := parseMessage("{}", 0); err == nil {
		t.Fatal("expected error for empty object")
	}
}

func TestParseMessageEventNoParams(t *testing.T) {
	t.Parallel()

	typ, ev, _, err := parseMessage(`{"method":"method"}`, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != eventMessage {
		t.Fatalf("expected event message, got %v", typ)
	}
	if ev.method != "method" {
		t.Errorf("expected method %q, got %q", "method", ev.method)
	}
	if ev.params == nil || len(ev.params) != 0 {
		t.Errorf("expected empty params map, got %#v", ev.params)
	}
}

func TestParseMessageEventWithSessionID(t *testing.T) {
	t.Parallel()

	typ, ev, _, err := parseMessage(`{"method":"method","sessionId":"B221AF2"}`, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != eventMessage {
		t.Fatalf("expected event message, got %v", typ)
	}
	if ev.sessionID != "B221AF2" {
		t.Errorf("expected session id B221AF2, got %q", ev.sessionID)
	}
}

func TestParseMessageEventWithParams(t *testing.T) {
	t.Parallel()

	typ, ev, _, err := parseMessage(`{"method":"method","params":{"key":100},"sessionId":"AB3A"}`, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != eventMessage {
		t.Fatalf("expected event message, got %v", typ)
	}
	if key, ok := ev.params["key"].(float64); !ok || key != 100 {
		t.Errorf("expected key=100, got %#v", ev.params["key"])
	}
	if ev.sessionID != "AB3A" {
		t.Errorf("expected session id AB3A, got %q", ev.sessionID)
	}
}

func TestParseMessageResponseNoErrorOrResult(t *testing.T) {
	t.Parallel()

	// DevTools does not necessarily return a result dictionary for
	// every valid response; a blank one is inferred.
	typ, _, resp, err := parseMessage(`{"id":1,"sessionId":"AB2AF3C"}`, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != commandResponseMessage {
		t.Fatalf("expected command response, got %v", typ)
	}
	if resp.result == nil || len(resp.result) != 0 {
		t.Errorf("expected empty result map, got %#v", resp.result)
	}
	if resp.sessionID != "AB2AF3C" {
		t.Errorf("expected session id AB2AF3C, got %q", resp.sessionID)
	}
}

func TestParseMessageResponseError(t *testing.T) {
	t.Parallel()

	typ, _, resp, err := parseMessage(`{"id":1,"error":{}}`, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != commandResponseMessage {
		t.Fatalf("expected command response, got %v", typ)
	}
	if resp.id != 1 {
		t.Errorf("expected id 1, got %d", resp.id)
	}
	if len(resp.err) == 0 {
		t.Error("expected raw error payload to be captured")
	}
	if resp.result != nil {
		t.Errorf("expected nil result alongside error, got %#v", resp.result)
	}
}

func TestParseMessageResponseResult(t *testing.T) {
	t.Parallel()

	typ, _, resp, err := parseMessage(`{"id":1,"result":{"key":1}}`, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != commandResponseMessage {
		t.Fatalf("expected command response, got %v", typ)
	}
	if resp.id != 1 {
		t.Errorf("expected id 1, got %d", resp.id)
	}
	if len(resp.err) != 0 {
		t.Errorf("expected no error, got %s", resp.err)
	}
	if key, ok := resp.result["key"].(float64); !ok || key != 1 {
		t.Errorf("expected key=1, got %#v", resp.result["key"])
	}
}

func TestParseMessageIDWinsOverMethod(t *testing.T) {
	t.Parallel()

	typ, _, resp, err := parseMessage(`{"id":5,"method":"method"}`, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != commandResponseMessage {
		t.Fatalf("expected command response when both id and method present, got %v", typ)
	}
	if resp.id != 5 {
		t.Errorf("expected id 5, got %d", resp.id)
	}
}

func TestCommandEnvelopeEmptyParams(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(command{ID: 1, Method: "method", Params: map[string]any{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":1,"method":"method","params":{}}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}
}

func TestCommandEnvelopeSessionID(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(command{ID: 2, Method: "method", Params: map[string]any{}, SessionID: "AB3A"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":2,"method":"method","params":{},"sessionId":"AB3A"}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}
}
