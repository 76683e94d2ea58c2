package cli

import (
	"context"
	"fmt"

	"github.com/grantcarthew/cdpctl/internal/browser"
	"github.com/grantcarthew/cdpctl/internal/cdp"
)

// endpoint builds the discovery endpoint from the persistent flags.
func endpoint() browser.Endpoint {
	return browser.Endpoint{Host: Host, Port: Port}
}

// dialPage attaches a protocol client to the first page target.
func dialPage(ctx context.Context) (*cdp.Client, error) {
	page, err := endpoint().FirstPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover page target: %w", err)
	}
	debugf("attaching to target %s (%s)", page.ID, page.URL)

	client := cdp.NewClient(page.ID, "", page.WebSocketURL, cdp.NewWebSocket)
	client.SetLogf(debugf)
	if err := client.ConnectIfNecessary(ctx); err != nil {
		return nil, err
	}
	return client, nil
}
