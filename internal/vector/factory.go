package vector

import "fmt"

// Backend names a Store implementation.
type Backend string

const (
	// BackendMemory keeps everything in process memory. Good for tests and throwaway deployments.
	BackendMemory Backend = "memory"
	// BackendSQLite persists to a SQLite database file (requires CGO).
	BackendSQLite Backend = "sqlite"
	// BackendBolt persists to a bbolt file.
	BackendBolt Backend = "bolt"
)

// NewStore creates a store of the given backend. path is ignored for memory.
// Supported backends: "memory" (default), "sqlite", "bolt".
func NewStore(backend string, path string) (Store, error) {
	switch Backend(backend) {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendSQLite:
		if path == "" {
			return nil, fmt.Errorf("sqlite backend requires a storage path")
		}
		return NewSQLiteStore(path)
	case BackendBolt:
		if path == "" {
			return nil, fmt.Errorf("bolt backend requires a storage path")
		}
		return NewBoltStore(path)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: memory, sqlite, bolt)", backend)
	}
}
