// Package version exposes the build version of the application.
package version

// Version is overridden at build time:
//
//	go build -ldflags "-X github.com/ndewijer/cryptofolio/internal/version.Version=1.2.3" ./cmd/server
var Version = "dev"
