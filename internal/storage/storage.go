// Package storage defines the contracts between the serving core and the
// engines that hold partition data on this host.
package storage

// Reader is an opened, immutable view of one partition at one version.
//
// Distinct Reader instances must be usable from distinct goroutines
// concurrently. The serving path does not serialize calls per instance:
// several workers may call Get on the same reader at once, so engines whose
// readers are not safe for concurrent use must serialize internally.
type Reader interface {
	// Get looks up key and fills result. The result's value bytes may be
	// backed by the caller-provided scratch buffer and are only valid until
	// the next Get with the same Result.
	Get(key []byte, result *Result) error

	// VersionNumber reports the version this reader believes it serves.
	// ok is false when the reader cannot tell.
	VersionNumber() (version int, ok bool)

	// Close releases the reader's resources. Called exactly once.
	Close() error
}

// Engine opens readers for the partitions of one domain materialized on
// this host.
type Engine interface {
	OpenReader(partitionNumber int) (Reader, error)
}
