package emulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/grantcarthew/cdpctl/internal/cdp"
)

// echoSocket acknowledges every command so the client never blocks.
type echoSocket struct {
	connected bool
	frames    []string
	sent      []string
}

func (s *echoSocket) Connect(ctx context.Context, url string) error {
	s.connected = true
	return nil
}

func (s *echoSocket) IsConnected() bool { return s.connected }

func (s *echoSocket) Send(ctx context.Context, message string) error {
	if !s.connected {
		return errors.New("not connected")
	}
	s.sent = append(s.sent, message)
	var cmd struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(message), &cmd); err != nil {
		return err
	}
	s.frames = append(s.frames, fmt.Sprintf(`{"id":%d,"result":{}}`, cmd.ID))
	return nil
}

func (s *echoSocket) ReceiveNextMessage(ctx context.Context) (string, cdp.ReceiveStatus) {
	if len(s.frames) == 0 {
		return "", cdp.ReceiveTimeout
	}
	msg := s.frames[0]
	s.frames = s.frames[1:]
	return msg, cdp.ReceiveOK
}

func (s *echoSocket) HasNextMessage() bool { return len(s.frames) > 0 }

func (s *echoSocket) Close() error {
	s.connected = false
	return nil
}

func (s *echoSocket) push(frame string) { s.frames = append(s.frames, frame) }

// sentMethods decodes the method of every sent envelope.
func (s *echoSocket) sentMethods(t *testing.T) []string {
	t.Helper()
	var methods []string
	for _, raw := range s.sent {
		var cmd struct {
			Method string `json:"method"`
		}
		if err := json.Unmarshal([]byte(raw), &cmd); err != nil {
			t.Fatalf("unmarshal sent command: %v", err)
		}
		methods = append(methods, cmd.Method)
	}
	return methods
}

func countMethod(methods []string, method string) int {
	var n int
	for _, m := range methods {
		if m == method {
			n++
		}
	}
	return n
}

func newClient(sock *echoSocket) *cdp.Client {
	return cdp.NewClient("id", "", "ws://test", func() cdp.SyncWebSocket { return sock })
}

func TestOverrideManagerInertWithoutMetrics(t *testing.T) {
	t.Parallel()

	sock := &echoSocket{}
	client := newClient(sock)
	m := NewOverrideManager(client, nil)

	if m.HasOverrideMetrics() || m.IsEmulatingTouch() {
		t.Error("expected no override configured")
	}
	if err := client.ConnectIfNecessary(context.Background()); err != nil {
		t.Fatalf("ConnectIfNecessary: %v", err)
	}
	if n := countMethod(sock.sentMethods(t), "Emulation.setDeviceMetricsOverride"); n != 0 {
		t.Errorf("expected no override commands, got %d", n)
	}
}

func TestOverrideManagerAppliesOnConnect(t *testing.T) {
	t.Parallel()

	sock := &echoSocket{}
	client := newClient(sock)
	NewOverrideManager(client, &DeviceMetrics{
		Width:             360,
		Height:            640,
		DeviceScaleFactor: 2,
		Mobile:            true,
		Touch:             true,
	})

	if err := client.ConnectIfNecessary(context.Background()); err != nil {
		t.Fatalf("ConnectIfNecessary: %v", err)
	}

	methods := sock.sentMethods(t)
	if countMethod(methods, "Emulation.setDeviceMetricsOverride") != 1 {
		t.Fatalf("expected one metrics override, sent: %v", methods)
	}
	if countMethod(methods, "Emulation.setTouchEmulationEnabled") != 1 {
		t.Fatalf("expected touch emulation enabled, sent: %v", methods)
	}

	for _, raw := range sock.sent {
		var cmd struct {
			Method string         `json:"method"`
			Params map[string]any `json:"params"`
		}
		if err := json.Unmarshal([]byte(raw), &cmd); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if cmd.Method != "Emulation.setDeviceMetricsOverride" {
			continue
		}
		if w, ok := cmd.Params["width"].(float64); !ok || w != 360 {
			t.Errorf("expected width 360, got %#v", cmd.Params["width"])
		}
		if mobile, ok := cmd.Params["mobile"].(bool); !ok || !mobile {
			t.Errorf("expected mobile true, got %#v", cmd.Params["mobile"])
		}
	}
}

func TestOverrideManagerSkipsTouchWhenDisabled(t *testing.T) {
	t.Parallel()

	sock := &echoSocket{}
	client := newClient(sock)
	m := NewOverrideManager(client, &DeviceMetrics{Width: 800, Height: 600, DeviceScaleFactor: 1})

	if m.IsEmulatingTouch() {
		t.Error("expected touch emulation off")
	}
	if err := client.ConnectIfNecessary(context.Background()); err != nil {
		t.Fatalf("ConnectIfNecessary: %v", err)
	}
	if n := countMethod(sock.sentMethods(t), "Emulation.setTouchEmulationEnabled"); n != 0 {
		t.Errorf("expected no touch command, got %d", n)
	}
}

func TestOverrideManagerReappliesOnMainFrameNavigation(t *testing.T) {
	t.Parallel()

	sock := &echoSocket{}
	client := newClient(sock)
	NewOverrideManager(client, &DeviceMetrics{Width: 800, Height: 600, DeviceScaleFactor: 1})

	if err := client.ConnectIfNecessary(context.Background()); err != nil {
		t.Fatalf("ConnectIfNecessary: %v", err)
	}

	sock.push(`{"method":"Page.frameNavigated","params":{"frame":{"id":"F1","url":"http://a/"}}}`)
	if err := client.HandleReceivedEvents(context.Background()); err != nil {
		t.Fatalf("HandleReceivedEvents: %v", err)
	}
	if n := countMethod(sock.sentMethods(t), "Emulation.setDeviceMetricsOverride"); n != 2 {
		t.Fatalf("expected override re-applied after navigation, sent %d", n)
	}

	// Subframe navigations leave the override alone.
	sock.push(`{"method":"Page.frameNavigated","params":{"frame":{"id":"F2","parentId":"F1","url":"http://b/"}}}`)
	if err := client.HandleReceivedEvents(context.Background()); err != nil {
		t.Fatalf("HandleReceivedEvents: %v", err)
	}
	if n := countMethod(sock.sentMethods(t), "Emulation.setDeviceMetricsOverride"); n != 2 {
		t.Fatalf("expected no re-apply for subframe, sent %d", n)
	}
}

func TestOverrideManagerRestore(t *testing.T) {
	t.Parallel()

	sock := &echoSocket{}
	client := newClient(sock)
	m := NewOverrideManager(client, &DeviceMetrics{Width: 800, Height: 600, DeviceScaleFactor: 1})

	if err := client.ConnectIfNecessary(context.Background()); err != nil {
		t.Fatalf("ConnectIfNecessary: %v", err)
	}
	if err := m.RestoreOverrideMetrics(context.Background()); err != nil {
		t.Fatalf("RestoreOverrideMetrics: %v", err)
	}
	if n := countMethod(sock.sentMethods(t), "Emulation.setDeviceMetricsOverride"); n != 2 {
		t.Fatalf("expected restore to re-send the override, sent %d", n)
	}
}
