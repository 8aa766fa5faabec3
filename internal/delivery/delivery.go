// Package delivery defines the contract shared by all transport servers.
package delivery

import "context"

// Delivery is a long-running transport such as the HTTP API.
type Delivery interface {
	Serve(ctx context.Context) error
}
