// Package version holds the build version, overridden at link time:
//
//	go build -ldflags "-X github.com/guiyumin/vscribe/internal/core/version.Version=v0.3.0"
package version

// Version is the current vscribe version.
var Version = "dev"
