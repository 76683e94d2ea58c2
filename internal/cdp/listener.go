package cdp

import "context"

// Listener observes client lifecycle, protocol events, and command
// completions. Callbacks run synchronously on the pumping goroutine,
// in listener registration order, and may issue further commands on
// the same client; the engine pumps reentrantly until each nested
// command is answered.
type Listener interface {
	// OnConnected fires once per connection epoch, before any event
	// delivery for that epoch. A non-nil return aborts the operation
	// that triggered the notification.
	OnConnected(ctx context.Context, client *Client) error

	// OnEvent fires for every protocol event. Every registered
	// listener sees the event; the first non-nil return is reported to
	// the caller of the current pump operation after delivery
	// completes.
	OnEvent(ctx context.Context, client *Client, method string, params map[string]any) error

	// OnCommandSuccess fires when a command response arrives with a
	// result (never on protocol errors), before the waiting caller
	// observes it. ctx carries the waiting command's deadline.
	OnCommandSuccess(ctx context.Context, client *Client, method string, result map[string]any) error
}

// BaseListener is a no-op Listener for embedding by listeners that
// only care about a subset of the callbacks.
type BaseListener struct{}

func (BaseListener) OnConnected(context.Context, *Client) error { return nil }

func (BaseListener) OnEvent(context.Context, *Client, string, map[string]any) error {
	return nil
}

func (BaseListener) OnCommandSuccess(context.Context, *Client, string, map[string]any) error {
	return nil
}
