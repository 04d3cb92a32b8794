// Package source drives message lifecycle transitions.
//
// Two realizations exist. The store-backed relay path is driven by
// external bridge events arriving through the admin status endpoint:
// every transition is written through tracking.Service and published to
// the hub, so no in-process driver runs. The simulated driver below is
// the demo realization, selected explicitly by configuration and never
// substituted on failure of the real path.
package source

import "context"

// Driver advances tracked messages through their lifecycle.
type Driver interface {
	// Start runs the driver until ctx is done.
	Start(ctx context.Context) error

	// Stop halts the driver.
	Stop()
}
