// Package sqliteexternal registers the optional CGO SQLite driver.
//
// It is imported by core/sqlite when the cgo_sqlite build tag is set:
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite ./cmd/xmlinput
//
// The default build uses the pure Go modernc.org/sqlite driver instead,
// which needs no C toolchain and cross-compiles cleanly.
package sqliteexternal
