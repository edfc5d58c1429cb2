// Package delivery defines the entry points through which the outside world
// reaches the application.
package delivery

import "context"

// Delivery is implemented by every serving surface the application exposes.
type Delivery interface {
	// Serve blocks until the delivery stops or the context is cancelled.
	Serve(ctx context.Context) error
}
