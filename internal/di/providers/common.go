package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second
)

// Version is reported in health checks and backup manifests. Set with
// -ldflags "-X github.com/shelfwise/shelfwise-server/internal/di/providers.Version=...".
var Version = "dev"
