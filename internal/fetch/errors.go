package fetch

import "fmt"

// TileUnavailableError is the endpoint's definitive "not here": the
// version has been evicted or the tile lies outside provider coverage.
// It is never retried; the prober and assembler branch on it.
type TileUnavailableError struct {
	Request Request
	Status  int
}

func (e *TileUnavailableError) Error() string {
	return fmt.Sprintf("tile %s unavailable (status %d)", e.Request, e.Status)
}

// TransientError reports that the retry budget was exhausted without a
// definitive answer. The owning version is skipped; the run continues.
type TransientError struct {
	Request  Request
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("tile %s failed after %d attempts: %v", e.Request, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }
