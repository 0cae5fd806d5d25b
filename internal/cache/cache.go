package cache

// Store is the optional tile byte cache consulted by the fetcher before
// the network and populated after a successful fetch. Implementations
// must be safe for concurrent use.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, data []byte) error
}
