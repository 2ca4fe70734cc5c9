package cover

import "context"

// Fetcher downloads raw image bytes. Implementations must honor ctx cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
