// Package lifecycle holds process lifecycle constants shared across deliveries and infra.
package lifecycle

import "time"

// DefaultTimeout bounds startup and shutdown hooks (pings, graceful drains).
const DefaultTimeout = 10 * time.Second
