// Package buildinfo exposes build information for meshp2p binaries.
//
// Values are injected via ldflags; when they are not, the module build
// information recorded by the Go toolchain fills in the commit and the
// compiler version:
//
//	go build -ldflags "-X github.com/yndnr/meshp2p-go/internal/infra/buildinfo.Version=v1.0.0"
package buildinfo
