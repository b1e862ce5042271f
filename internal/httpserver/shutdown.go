package httpserver

import "time"

// ShutdownTimeout controls how long to wait for in-flight requests and
// background media deletions on shutdown.
var ShutdownTimeout = 15 * time.Second
