// Package cache provides the key/value cache store used by the cached
// repository decorators.
//
// # Failure policy
//
// The Store interface never returns errors. A backend outage, a codec
// failure, or a corrupt payload all read as a miss (Get) or a false return
// (Set, Delete). Failures are counted in the metrics and logged at Warn, so
// a degraded cache slows the system down instead of breaking it. Ping is the
// one exception: it exists for health checks, which want the error.
//
// # Compression
//
// Writes at or above the configured threshold are zstd-compressed; smaller
// payloads are stored raw. Reads detect compressed entries by the zstd frame
// magic and decompress transparently, so the compression flag can be toggled
// without invalidating existing entries.
//
// # Backends
//
// Two byte-level backends live in internal/cacheinfra: an in-process
// sturdyc store for single-node deployments and tests, and a Redis store
// for shared caches. Select one through Config.Backend and construct the
// service with New:
//
//	svc, err := cache.New(cache.DefaultConfig(), logger)
//
// For the repository decorators built on top of this package, see the
// repositorycache package.
package cache
