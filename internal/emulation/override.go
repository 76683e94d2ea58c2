// Package emulation layers device emulation overrides on a DevTools
// protocol client.
package emulation

import (
	"context"

	"github.com/grantcarthew/cdpctl/internal/cdp"
)

// DeviceMetrics describes the screen the page should believe it is
// rendered on.
type DeviceMetrics struct {
	Width             int
	Height            int
	DeviceScaleFactor float64
	Mobile            bool
	Touch             bool
}

// OverrideManager keeps device-metrics overrides applied across
// navigations and reconnects. The override must be re-sent whenever
// the main frame navigates because the renderer resets emulation state
// with the document.
type OverrideManager struct {
	cdp.BaseListener

	client  *cdp.Client
	metrics *DeviceMetrics
}

// NewOverrideManager wires an override manager to client. With nil
// metrics the manager is inert and does not register itself.
func NewOverrideManager(client *cdp.Client, metrics *DeviceMetrics) *OverrideManager {
	m := &OverrideManager{client: client, metrics: metrics}
	if metrics != nil {
		client.AddListener(m)
	}
	return m
}

// HasOverrideMetrics reports whether an override is configured.
func (m *OverrideManager) HasOverrideMetrics() bool { return m.metrics != nil }

// IsEmulatingTouch reports whether touch emulation is part of the
// override.
func (m *OverrideManager) IsEmulatingTouch() bool {
	return m.metrics != nil && m.metrics.Touch
}

// Metrics returns the configured override, or nil.
func (m *OverrideManager) Metrics() *DeviceMetrics { return m.metrics }

// RestoreOverrideMetrics re-applies the override on demand, for callers
// that reset emulation state out of band.
func (m *OverrideManager) RestoreOverrideMetrics(ctx context.Context) error {
	return m.applyIfNeeded(ctx)
}

// OnConnected applies the override on every connection epoch.
func (m *OverrideManager) OnConnected(ctx context.Context, client *cdp.Client) error {
	return m.applyIfNeeded(ctx)
}

// OnEvent re-applies the override after top-level navigations.
func (m *OverrideManager) OnEvent(ctx context.Context, client *cdp.Client, method string, params map[string]any) error {
	if method != "Page.frameNavigated" {
		return nil
	}
	frame, ok := params["frame"].(map[string]any)
	if !ok {
		return nil
	}
	if _, child := frame["parentId"]; child {
		return nil
	}
	return m.applyIfNeeded(ctx)
}

func (m *OverrideManager) applyIfNeeded(ctx context.Context) error {
	if m.metrics == nil {
		return nil
	}

	err := m.client.SendCommand(ctx, "Emulation.setDeviceMetricsOverride", map[string]any{
		"width":             m.metrics.Width,
		"height":            m.metrics.Height,
		"deviceScaleFactor": m.metrics.DeviceScaleFactor,
		"mobile":            m.metrics.Mobile,
	})
	if err != nil {
		return err
	}

	if m.metrics.Touch {
		err = m.client.SendCommand(ctx, "Emulation.setTouchEmulationEnabled", map[string]any{
			"enabled": true,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
