// Package broadcast defines the port for pushing out-of-band notices (such as
// catalog reloads) to every connected UI client.
package broadcast

import "context"

// Broadcaster sends a typed event to all connected clients.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
