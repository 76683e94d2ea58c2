package cdp

import (
	"context"
	"encoding/json"
	"fmt"
)

// Page.javascriptDialogOpening announces a modal dialog that stalls the
// renderer until dismissed; its closing counterpart lifts the stall.
const (
	dialogOpeningEvent = "Page.javascriptDialogOpening"
	dialogClosedEvent  = "Page.javascriptDialogClosed"
)

// bootstrapScript is installed on every new document and evaluated once
// in the current one immediately after connecting, so documents created
// before and after attach observe the same marker.
const bootstrapScript = "(function () { window.__cdpctl = true; })()"

type slotState int

const (
	slotWaiting slotState = iota
	slotReceived
	slotBlocked
	slotIgnored
)

// responseSlot tracks one outstanding command id.
type responseSlot struct {
	method string
	state  slotState
	ctx    context.Context // deadline of the issuing caller
	result map[string]any
	err    error
}

// eventDispatch is a partially-delivered event notification. It lives
// on the client rather than the stack so that a listener reentering
// the client can finish delivery to the remaining listeners before its
// own traffic proceeds.
type eventDispatch struct {
	ev       *event
	pending  []Listener
	firstErr error
}

// cmdDispatch is the command-success counterpart of eventDispatch.
type cmdDispatch struct {
	ctx      context.Context
	method   string
	result   map[string]any
	pending  []Listener
	firstErr error
}

// Client is a synchronous DevTools protocol client. All operations run
// on the caller's goroutine; the only concurrency is inside the
// transport. Listener callbacks may reenter the client: an inner send
// pumps the shared connection on its own stack frame, and responses
// complete whichever slot they match regardless of arrival order, so
// an outer waiter can find its command answered while a deeper one is
// still pumping.
type Client struct {
	id        string
	sessionID string
	url       string
	factory   SocketFactory
	socket    SyncWebSocket
	parse     parseFunc
	logf      func(format string, args ...any)
	closer    func() error

	connected  bool
	dropped    bool // a connection was lost; the closer hook is owed on reconnect
	nextID     int64
	stackDepth int
	dialogOpen bool

	slots             map[int64]*responseSlot
	listeners         []Listener
	unnotifiedConnect []Listener
	dispatchingEvent  *eventDispatch
	dispatchingCmd    *cmdDispatch
}

// NewClient returns a disconnected client. id is an opaque identity
// surfaced to listeners and logs; sessionID, when non-empty, is stamped
// on every outbound envelope for routing by the remote endpoint.
func NewClient(id, sessionID, url string, factory SocketFactory) *Client {
	return &Client{
		id:        id,
		sessionID: sessionID,
		url:       url,
		factory:   factory,
		parse:     parseMessage,
		logf:      func(string, ...any) {},
		nextID:    1,
		slots:     make(map[int64]*responseSlot),
	}
}

// SetFrontendCloser installs a hook run on the first ConnectIfNecessary
// after a dropped connection, before the replacement transport is
// built. A non-nil return aborts the reconnect.
func (c *Client) SetFrontendCloser(fn func() error) { c.closer = fn }

// SetLogf installs a diagnostic printf. The client logs discarded
// frames and stale responses; successful traffic is never logged.
func (c *Client) SetLogf(fn func(format string, args ...any)) { c.logf = fn }

// AddListener appends l to the dispatch order. If the client is
// already connected, l's OnConnected fires on the next pump cycle,
// before any event it would otherwise observe.
func (c *Client) AddListener(l Listener) {
	c.listeners = append(c.listeners, l)
	if c.connected {
		c.unnotifiedConnect = append(c.unnotifiedConnect, l)
	}
}

// ID returns the client's opaque identity.
func (c *Client) ID() string { return c.id }

// SessionID returns the session routing key, or "" for the root client.
func (c *Client) SessionID() string { return c.sessionID }

// NextMessageID reports the id the next command will be assigned.
func (c *Client) NextMessageID() int64 { return c.nextID }

// Close tears down the transport. The client may be connected again
// later with ConnectIfNecessary.
func (c *Client) Close() error {
	c.connected = false
	if c.socket == nil {
		return nil
	}
	err := c.socket.Close()
	c.socket = nil
	return err
}

// ConnectIfNecessary establishes the connection when there is none;
// when already connected it is a no-op. After a drop it first runs the
// frontend-closer hook, then builds a fresh transport from the
// factory, performs the bootstrap handshake, and fires OnConnected
// across listeners in registration order.
func (c *Client) ConnectIfNecessary(ctx context.Context) error {
	if c.stackDepth > 0 {
		return newError(CodeUnknownError, "cannot connect from within a listener callback")
	}
	if c.socket != nil && c.socket.IsConnected() {
		return nil
	}
	if c.connected || c.dropped {
		// The previous connection went away. Let the owner tear down
		// anything riding on it before we dial again; this runs once
		// per observed drop.
		c.connected = false
		c.dropped = false
		if c.closer != nil {
			if err := c.closer(); err != nil {
				return err
			}
		}
	}

	if c.socket != nil {
		_ = c.socket.Close()
	}
	c.socket = c.factory()
	if err := c.socket.Connect(ctx, c.url); err != nil {
		return newError(CodeDisconnected, fmt.Sprintf("connect to %s: %v", c.url, err))
	}
	c.connected = true
	c.dialogOpen = false
	c.slots = make(map[int64]*responseSlot)
	c.unnotifiedConnect = nil
	c.dispatchingEvent = nil
	c.dispatchingCmd = nil

	// Bootstrap pair: queue both without waiting; their responses
	// drain on the next pump cycle.
	err := c.SendCommandAndIgnoreResponse(ctx, "Page.addScriptToEvaluateOnNewDocument",
		map[string]any{"source": bootstrapScript})
	if err != nil {
		return err
	}
	err = c.SendCommandAndIgnoreResponse(ctx, "Runtime.evaluate",
		map[string]any{"expression": bootstrapScript})
	if err != nil {
		return err
	}

	// Notify listeners now so connection problems surface here rather
	// than during some unrelated later call, and so listeners get to
	// enable their protocol domains before anything else happens.
	c.unnotifiedConnect = append([]Listener(nil), c.listeners...)
	return c.notifyConnectListeners(ctx)
}

// SendCommand issues method with params and waits for its response,
// pumping interleaved events and other responses while it waits.
func (c *Client) SendCommand(ctx context.Context, method string, params map[string]any) error {
	_, err := c.sendCommandInternal(ctx, method, params, true)
	return err
}

// SendCommandAndGetResult is SendCommand returning the result value.
func (c *Client) SendCommandAndGetResult(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	return c.sendCommandInternal(ctx, method, params, true)
}

// SendCommandAndIgnoreResponse issues method and returns as soon as
// the envelope is on the wire; the response is consumed and dropped by
// a later pump cycle.
func (c *Client) SendCommandAndIgnoreResponse(ctx context.Context, method string, params map[string]any) error {
	_, err := c.sendCommandInternal(ctx, method, params, false)
	return err
}

// HandleEventsUntil pumps the connection until pred reports true. pred
// is consulted only when no frame is already buffered, so bursts are
// drained before the condition is evaluated. The context deadline
// bounds the whole drain; expiry returns CodeTimeout.
func (c *Client) HandleEventsUntil(ctx context.Context, pred func() (bool, error)) error {
	if err := c.ensureListenersNotified(ctx); err != nil {
		return err
	}
	if !c.connected {
		return newError(CodeDisconnected, "not connected to DevTools")
	}
	for {
		if !c.socket.HasNextMessage() {
			met, err := pred()
			if err != nil {
				return err
			}
			if met {
				return nil
			}
		}
		if err := c.processNextMessage(ctx, -1); err != nil {
			return err
		}
	}
}

// HandleReceivedEvents drains every frame the transport has already
// buffered, without blocking for more.
func (c *Client) HandleReceivedEvents(ctx context.Context) error {
	if err := c.ensureListenersNotified(ctx); err != nil {
		return err
	}
	if !c.connected {
		return newError(CodeDisconnected, "not connected to DevTools")
	}
	for c.socket.HasNextMessage() {
		if err := c.processNextMessage(ctx, -1); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) sendCommandInternal(ctx context.Context, method string, params map[string]any, waitForResponse bool) (map[string]any, error) {
	if err := c.ensureListenersNotified(ctx); err != nil {
		return nil, err
	}
	if !c.connected {
		return nil, newError(CodeDisconnected, "not connected to DevTools")
	}

	id := c.nextID
	c.nextID++
	if c.dialogOpen {
		// The renderer will not answer anything sent after the dialog
		// opened; fail without touching the wire.
		return nil, newError(CodeUnexpectedAlertOpen,
			fmt.Sprintf("%s (id %d) blocked by a javascript dialog", method, id))
	}

	if params == nil {
		params = map[string]any{}
	}
	payload, err := json.Marshal(command{ID: id, Method: method, Params: params, SessionID: c.sessionID})
	if err != nil {
		return nil, newError(CodeUnknownError, fmt.Sprintf("marshal %s command: %v", method, err))
	}
	if err := c.socket.Send(ctx, string(payload)); err != nil {
		c.markDropped()
		return nil, newError(CodeDisconnected, fmt.Sprintf("unable to send message to renderer: %v", err))
	}

	slot := &responseSlot{method: method, ctx: ctx}
	if !waitForResponse {
		slot.state = slotIgnored
	}
	c.slots[id] = slot
	if !waitForResponse {
		return nil, nil
	}

	// A nested pump run by a listener may complete this slot before
	// control returns here, so re-check the state every iteration
	// rather than assuming our id is the next to arrive.
	for slot.state == slotWaiting {
		if err := c.processNextMessage(ctx, id); err != nil {
			if slot.state == slotReceived {
				delete(c.slots, id)
			} else {
				// Park the slot so a late response is swallowed
				// silently instead of surfacing as an unexpected id.
				slot.state = slotIgnored
			}
			return nil, err
		}
	}
	if slot.state == slotBlocked {
		slot.state = slotIgnored
		return nil, newError(CodeUnexpectedAlertOpen,
			fmt.Sprintf("%s (id %d) blocked by a javascript dialog", method, id))
	}
	delete(c.slots, id)
	if slot.err != nil {
		return nil, slot.err
	}
	return slot.result, nil
}

// processNextMessage pulls one frame and routes it. expectedID is the
// id the innermost waiter is blocked on, or -1 when the caller is only
// draining events; the dialog latch uses it to decide which pending
// commands a just-opened dialog can no longer answer.
func (c *Client) processNextMessage(ctx context.Context, expectedID int64) error {
	if err := c.notifyConnectListeners(ctx); err != nil {
		return err
	}

	msg, status := c.socket.ReceiveNextMessage(ctx)
	switch status {
	case ReceiveDisconnected:
		c.markDropped()
		return newError(CodeDisconnected, "unable to receive message from renderer")
	case ReceiveTimeout:
		return newError(CodeTimeout, "timed out receiving message from renderer")
	}

	typ, ev, resp, err := c.parse(msg, expectedID)
	if err != nil {
		return newError(CodeUnknownError, fmt.Sprintf("bad inspector message: %v", err))
	}
	if typ == eventMessage {
		return c.processEvent(ctx, ev, expectedID)
	}
	return c.processCommandResponse(resp)
}

func (c *Client) markDropped() {
	c.connected = false
	c.dropped = true
}

func (c *Client) processEvent(ctx context.Context, ev *event, expectedID int64) error {
	switch ev.method {
	case dialogOpeningEvent:
		// Latch before listener dispatch: the current waiter's own
		// command (id <= expectedID) still completes normally, but
		// anything a listener sends in reaction is already behind the
		// dialog.
		c.dialogOpen = true
		for id, slot := range c.slots {
			if slot.state == slotWaiting && id > expectedID {
				slot.state = slotBlocked
			}
		}
	case dialogClosedEvent:
		c.dialogOpen = false
	}

	d := &eventDispatch{ev: ev, pending: c.snapshotListeners()}
	prev := c.dispatchingEvent
	c.dispatchingEvent = d
	c.drainEventDispatch(ctx)
	c.dispatchingEvent = prev
	return d.firstErr
}

func (c *Client) processCommandResponse(resp *commandResponse) error {
	slot, ok := c.slots[resp.id]
	if !ok {
		if len(resp.err) > 0 {
			// Stale errors (for commands whose waiter already gave up)
			// are expected and safe to drop.
			c.logf("cdp client %s: discarding error response for unknown id %d: %s",
				c.id, resp.id, resp.err)
			return nil
		}
		return newError(CodeUnknownError,
			fmt.Sprintf("unexpected command response for id %d", resp.id))
	}

	if slot.state == slotBlocked {
		c.logf("cdp client %s: discarding response for dialog-blocked command %s (id %d)",
			c.id, slot.method, resp.id)
		return nil
	}

	if len(resp.err) > 0 {
		if slot.state == slotIgnored {
			c.logf("cdp client %s: command %s (id %d) failed: %s",
				c.id, slot.method, resp.id, resp.err)
			delete(c.slots, resp.id)
			return nil
		}
		slot.err = parseInspectorError(string(resp.err))
		slot.state = slotReceived
		return nil
	}

	// Success notifications fire before the waiter observes the result
	// so observers can piggyback follow-up traffic on this pump cycle.
	d := &cmdDispatch{ctx: slot.ctx, method: slot.method, result: resp.result, pending: c.snapshotListeners()}
	prev := c.dispatchingCmd
	c.dispatchingCmd = d
	c.drainCommandDispatch()
	c.dispatchingCmd = prev

	slot.result = resp.result
	if slot.state == slotIgnored {
		delete(c.slots, resp.id)
	} else {
		slot.state = slotReceived
	}
	return d.firstErr
}

// ensureListenersNotified settles every pending notification before an
// operation touches the wire: OnConnected greetings first, then the
// rest of a command-success delivery a reentrant listener interrupted,
// then the rest of an event delivery. This is what lets a listener
// issue commands mid-dispatch without its siblings missing the frame
// that provoked them.
func (c *Client) ensureListenersNotified(ctx context.Context) error {
	if err := c.notifyConnectListeners(ctx); err != nil {
		return err
	}
	c.drainCommandDispatch()
	c.drainEventDispatch(ctx)
	return nil
}

// notifyConnectListeners drains the pending OnConnected queue. Each
// listener is removed before its callback runs; a callback reentering
// the client therefore greets the remaining listeners, in order,
// before its own traffic proceeds.
func (c *Client) notifyConnectListeners(ctx context.Context) error {
	for len(c.unnotifiedConnect) > 0 {
		l := c.unnotifiedConnect[0]
		c.unnotifiedConnect = c.unnotifiedConnect[1:]
		if err := c.dispatch(func() error { return l.OnConnected(ctx, c) }); err != nil {
			return err
		}
	}
	return nil
}

// drainEventDispatch delivers the in-flight event to listeners that
// have not yet seen it. The first listener error is recorded on the
// dispatch and surfaced by the pump call that owns it; delivery to the
// remaining listeners is never suppressed.
func (c *Client) drainEventDispatch(ctx context.Context) {
	d := c.dispatchingEvent
	if d == nil {
		return
	}
	for len(d.pending) > 0 {
		l := d.pending[0]
		d.pending = d.pending[1:]
		err := c.dispatch(func() error { return l.OnEvent(ctx, c, d.ev.method, d.ev.params) })
		if err != nil && d.firstErr == nil {
			d.firstErr = err
		}
	}
}

// drainCommandDispatch is drainEventDispatch for command-success
// notifications.
func (c *Client) drainCommandDispatch() {
	d := c.dispatchingCmd
	if d == nil {
		return
	}
	for len(d.pending) > 0 {
		l := d.pending[0]
		d.pending = d.pending[1:]
		err := c.dispatch(func() error { return l.OnCommandSuccess(d.ctx, c, d.method, d.result) })
		if err != nil && d.firstErr == nil {
			d.firstErr = err
		}
	}
}

// snapshotListeners freezes the dispatch order for one step: listeners
// registered during a callback are not delivered the current frame.
func (c *Client) snapshotListeners() []Listener {
	return append([]Listener(nil), c.listeners...)
}

func (c *Client) dispatch(fn func() error) error {
	c.stackDepth++
	defer func() { c.stackDepth-- }()
	return fn()
}
